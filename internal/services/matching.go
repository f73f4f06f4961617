package services

import (
	"math"
	"sort"
	"strings"

	"github.com/whomimohshukla/freelancehub/internal/models"
	"github.com/whomimohshukla/freelancehub/internal/utils"
	"github.com/whomimohshukla/freelancehub/pkg/response"
	"gorm.io/gorm"
)

// Match weights; they sum to 1
const (
	weightSkills       = 0.40
	weightRating       = 0.20
	weightExperience   = 0.15
	weightRate         = 0.15
	weightAvailability = 0.10
)

const (
	matchCandidateLimit = 500
	defaultMatchLimit   = 10
	hoursPerDay         = 6
)

var experienceYears = map[string]int{
	"entry":        0,
	"intermediate": 2,
	"expert":       5,
}

var experienceFactor = map[string]float64{
	"entry":        0.8,
	"intermediate": 1.0,
	"expert":       1.3,
}

// MatchBreakdown holds each component of a score, all in [0,1]
type MatchBreakdown struct {
	Skills       float64 `json:"skills"`
	Rating       float64 `json:"rating"`
	Experience   float64 `json:"experience"`
	Rate         float64 `json:"rate"`
	Availability float64 `json:"availability"`
}

func (b MatchBreakdown) total() float64 {
	return weightSkills*b.Skills +
		weightRating*b.Rating +
		weightExperience*b.Experience +
		weightRate*b.Rate +
		weightAvailability*b.Availability
}

// ScoreMatch rates how well a freelancer fits a project, from 0 to 100
func ScoreMatch(project *models.Project, profile *models.FreelancerProfile) (float64, MatchBreakdown) {
	b := MatchBreakdown{
		Skills:       skillOverlap(project.Skills, profile.Skills),
		Rating:       clamp01(profile.Rating / 5),
		Experience:   experienceFit(project.ExperienceLevel, profile.ExperienceYears),
		Rate:         rateFit(project, profile.HourlyRate),
		Availability: availabilityFit(profile.Availability),
	}
	return math.Round(b.total()*10000) / 100, b
}

func clamp01(v float64) float64 {
	return math.Max(0, math.Min(1, v))
}

// skillOverlap is the share of the project's skills the freelancer has
func skillOverlap(wanted, have []models.Skill) float64 {
	if len(wanted) == 0 {
		return 1
	}
	owned := make(map[uint]bool, len(have))
	for _, s := range have {
		owned[s.ID] = true
	}
	hits := 0
	for _, s := range wanted {
		if owned[s.ID] {
			hits++
		}
	}
	return float64(hits) / float64(len(wanted))
}

func experienceFit(level string, years int) float64 {
	required, ok := experienceYears[level]
	if !ok || required == 0 {
		return 1
	}
	return clamp01(float64(years) / float64(required))
}

// rateFit compares the freelancer's rate with the budget; 0.5 when either is unknown
func rateFit(project *models.Project, hourlyRate float64) float64 {
	if hourlyRate <= 0 || project.BudgetMax <= 0 {
		return 0.5
	}
	cost := hourlyRate
	if project.BudgetType != models.BudgetHourly {
		if project.DurationDays <= 0 {
			return 0.5
		}
		cost = hourlyRate * hoursPerDay * float64(project.DurationDays)
	}
	if cost <= project.BudgetMax {
		return 1
	}
	return clamp01(project.BudgetMax / cost)
}

func availabilityFit(a string) float64 {
	switch a {
	case models.AvailabilityAvailable:
		return 1
	case models.AvailabilityBusy:
		return 0.5
	}
	return 0
}

type MatchingService struct {
	db *gorm.DB
}

func NewMatchingService(db *gorm.DB) *MatchingService {
	return &MatchingService{db: db}
}

type FreelancerMatch struct {
	Profile   *models.FreelancerProfile `json:"profile"`
	Score     float64                   `json:"score"`
	Breakdown MatchBreakdown            `json:"breakdown"`
}

func normalizeLimit(limit int) int {
	if limit <= 0 {
		return defaultMatchLimit
	}
	if limit > 50 {
		return 50
	}
	return limit
}

// Matches ranks freelancers for a project the actor owns
func (s *MatchingService) Matches(actor Actor, projectID uint, limit int) ([]FreelancerMatch, error) {
	var project models.Project
	if err := s.db.Preload("Skills").First(&project, projectID).Error; err != nil {
		return nil, notFoundOr(err, "project not found")
	}
	if !actor.IsAdmin() && project.ClientID != actor.UserID {
		return nil, response.NewForbidden("only the project owner can see matches")
	}

	var profiles []models.FreelancerProfile
	err := s.db.Preload("Skills").Preload("User").
		Joins("JOIN users ON users.id = freelancer_profiles.user_id AND users.is_active = ? AND users.deleted_at IS NULL", true).
		Where("freelancer_profiles.user_id <> ?", project.ClientID).
		Order("freelancer_profiles.rating DESC").
		Limit(matchCandidateLimit).
		Find(&profiles).Error
	if err != nil {
		return nil, err
	}

	matches := make([]FreelancerMatch, 0, len(profiles))
	for i := range profiles {
		score, b := ScoreMatch(&project, &profiles[i])
		matches = append(matches, FreelancerMatch{Profile: &profiles[i], Score: score, Breakdown: b})
	}
	sort.SliceStable(matches, func(i, j int) bool { return matches[i].Score > matches[j].Score })
	if n := normalizeLimit(limit); len(matches) > n {
		matches = matches[:n]
	}
	return matches, nil
}

type ProjectMatch struct {
	Project   *models.Project `json:"project"`
	Score     float64         `json:"score"`
	Breakdown MatchBreakdown  `json:"breakdown"`
}

// Recommendations ranks open public projects for a freelancer
func (s *MatchingService) Recommendations(actor Actor, limit int) ([]ProjectMatch, error) {
	if !actor.IsFreelancer() {
		return nil, response.NewForbidden("recommendations are for freelancers")
	}
	var profile models.FreelancerProfile
	if err := s.db.Preload("Skills").Where(&models.FreelancerProfile{UserID: actor.UserID}).First(&profile).Error; err != nil {
		return nil, notFoundOr(err, "freelancer profile not found")
	}

	var projects []models.Project
	err := s.db.Preload("Skills").
		Where("status = ? AND visibility = ? AND client_id <> ?", models.ProjectStatusOpen, models.VisibilityPublic, actor.UserID).
		Where("id NOT IN (?)", s.db.Model(&models.Proposal{}).Select("project_id").Where("freelancer_id = ?", actor.UserID)).
		Order("created_at DESC").
		Limit(matchCandidateLimit).
		Find(&projects).Error
	if err != nil {
		return nil, err
	}

	matches := make([]ProjectMatch, 0, len(projects))
	for i := range projects {
		score, b := ScoreMatch(&projects[i], &profile)
		matches = append(matches, ProjectMatch{Project: &projects[i], Score: score, Breakdown: b})
	}
	sort.SliceStable(matches, func(i, j int) bool { return matches[i].Score > matches[j].Score })
	if n := normalizeLimit(limit); len(matches) > n {
		matches = matches[:n]
	}
	return matches, nil
}

type PricingRequest struct {
	SkillIDs        []uint `json:"skill_ids" binding:"required,min=1"`
	ExperienceLevel string `json:"experience_level" binding:"omitempty,oneof=entry intermediate expert"`
	DurationDays    int    `json:"duration_days" binding:"min=0,max=3650"`
}

type PriceEstimate struct {
	Min       float64 `json:"min"`
	Suggested float64 `json:"suggested"`
	Max       float64 `json:"max"`
	Basis     string  `json:"basis"` // completed_projects, hourly_rates, none
	Samples   int64   `json:"samples"`
}

// Pricing suggests a budget from completed projects sharing a skill, or from freelancer rates
func (s *MatchingService) Pricing(req *PricingRequest) (*PriceEstimate, error) {
	if len(req.SkillIDs) == 0 {
		return nil, response.NewBadRequest("at least one skill is required")
	}
	level := req.ExperienceLevel
	if level == "" {
		level = "intermediate"
	}
	factor := experienceFactor[level]

	withSkill := s.db.Table("project_skills").Select("project_id").Where("skill_id IN ?", req.SkillIDs)
	var agg struct {
		Avg   float64
		Count int64
	}
	if err := s.db.Model(&models.Project{}).
		Select("COALESCE(AVG(agreed_amount), 0) AS avg, COUNT(*) AS count").
		Where("status = ? AND agreed_amount > 0 AND id IN (?)", models.ProjectStatusCompleted, withSkill).
		Scan(&agg).Error; err != nil {
		return nil, err
	}
	if agg.Count > 0 {
		return estimate(agg.Avg*factor, "completed_projects", agg.Count), nil
	}

	var rates []float64
	if err := s.db.Model(&models.FreelancerProfile{}).
		Where("hourly_rate > 0 AND id IN (?)",
			s.db.Table("freelancer_skills").Select("freelancer_profile_id").Where("skill_id IN ?", req.SkillIDs)).
		Pluck("hourly_rate", &rates).Error; err != nil {
		return nil, err
	}
	if len(rates) == 0 {
		return &PriceEstimate{Basis: "none"}, nil
	}
	days := req.DurationDays
	if days <= 0 {
		days = 7
	}
	return estimate(median(rates)*hoursPerDay*float64(days)*factor, "hourly_rates", int64(len(rates))), nil
}

func estimate(suggested float64, basis string, samples int64) *PriceEstimate {
	return &PriceEstimate{
		Min:       utils.RoundMoney(suggested * 0.8),
		Suggested: utils.RoundMoney(suggested),
		Max:       utils.RoundMoney(suggested * 1.2),
		Basis:     basis,
		Samples:   samples,
	}
}

func median(values []float64) float64 {
	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)
	n := len(sorted)
	if n%2 == 1 {
		return sorted[n/2]
	}
	return (sorted[n/2-1] + sorted[n/2]) / 2
}

type ProfileCheck struct {
	Field      string `json:"field"`
	Weight     int    `json:"weight"`
	Done       bool   `json:"done"`
	Suggestion string `json:"suggestion,omitempty"`
}

type ProfileAnalysis struct {
	Score       int            `json:"score"` // 0..100
	Checks      []ProfileCheck `json:"checks"`
	Suggestions []string       `json:"suggestions"`
}

func check(field string, weight int, done bool, suggestion string) ProfileCheck {
	c := ProfileCheck{Field: field, Weight: weight, Done: done}
	if !done {
		c.Suggestion = suggestion
	}
	return c
}

// ProfileAnalysis scores how complete the actor's profile is
func (s *MatchingService) ProfileAnalysis(actor Actor) (*ProfileAnalysis, error) {
	var user models.User
	if err := s.db.First(&user, actor.UserID).Error; err != nil {
		return nil, notFoundOr(err, "user not found")
	}

	var checks []ProfileCheck
	switch user.Role {
	case models.RoleFreelancer:
		var p models.FreelancerProfile
		if err := s.db.Preload("Skills").Where(&models.FreelancerProfile{UserID: user.ID}).First(&p).Error; err != nil {
			return nil, notFoundOr(err, "freelancer profile not found")
		}
		checks = []ProfileCheck{
			check("avatar", 5, user.Avatar != "", "Upload a profile photo."),
			check("title", 10, strings.TrimSpace(p.Title) != "", "Add a headline that says what you do."),
			check("bio", 20, len(strings.TrimSpace(p.Bio)) >= 100, "Write a bio of at least 100 characters."),
			check("skills", 20, len(p.Skills) >= 3, "List at least three skills."),
			check("hourly_rate", 10, p.HourlyRate > 0, "Set your hourly rate."),
			check("experience_years", 10, p.ExperienceYears > 0, "Add your years of experience."),
			check("portfolio_url", 10, p.PortfolioURL != "", "Link your portfolio."),
			check("languages", 5, p.Languages != "", "List the languages you work in."),
			check("payout_account", 10, p.HasPayoutAccount(), "Connect a payout account so you can be paid."),
		}
	case models.RoleClient:
		var p models.ClientProfile
		if err := s.db.Where(&models.ClientProfile{UserID: user.ID}).First(&p).Error; err != nil {
			return nil, notFoundOr(err, "client profile not found")
		}
		checks = []ProfileCheck{
			check("avatar", 10, user.Avatar != "", "Upload a profile photo or logo."),
			check("company_name", 20, p.CompanyName != "", "Add your company name."),
			check("industry", 15, p.Industry != "", "Tell freelancers your industry."),
			check("website", 15, p.Website != "", "Link your website."),
			check("description", 25, len(strings.TrimSpace(p.Description)) >= 50, "Describe your company in a few sentences."),
			check("payment_verified", 15, p.PaymentVerified, "Fund a milestone to get a verified payment badge."),
		}
	default:
		return nil, response.NewBadRequest("profile analysis is for clients and freelancers")
	}

	analysis := &ProfileAnalysis{Checks: checks, Suggestions: []string{}}
	for _, c := range checks {
		if c.Done {
			analysis.Score += c.Weight
		} else {
			analysis.Suggestions = append(analysis.Suggestions, c.Suggestion)
		}
	}
	return analysis, nil
}
