package services

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/whomimohshukla/freelancehub/internal/models"
	"github.com/whomimohshukla/freelancehub/pkg/logger"
	"gorm.io/gorm"
)

const dailyReportLock = "daily_report"

type DailyReportService struct {
	db        *gorm.DB
	ai        *AIService
	alerts    *AlertService
	configSvc *SystemConfigService

	mu      sync.Mutex
	cron    *cron.Cron
	entryID cron.EntryID
}

func NewDailyReportService(db *gorm.DB, ai *AIService, alerts *AlertService) *DailyReportService {
	return &DailyReportService{
		db:        db,
		ai:        ai,
		alerts:    alerts,
		configSvc: NewSystemConfigService(db),
	}
}

type NamedCount struct {
	Name  string `json:"name"`
	Count int64  `json:"count"`
}

func (s *DailyReportService) StartScheduler() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cron != nil {
		return
	}
	s.cron = cron.New()
	s.scheduleLocked()
	s.cron.Start()
	logger.Infof("[DailyReport] Scheduler started")
}

func (s *DailyReportService) StopScheduler() {
	s.mu.Lock()
	c := s.cron
	s.cron = nil
	s.mu.Unlock()
	if c != nil {
		<-c.Stop().Done()
	}
}

// Reschedule applies a changed daily_report_time
func (s *DailyReportService) Reschedule() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cron != nil {
		s.scheduleLocked()
	}
}

// reportCron turns "HH:MM" into a cron expression, defaulting to 08:00
func reportCron(hhmm string) string {
	var hour, minute int
	if _, err := fmt.Sscanf(hhmm, "%d:%d", &hour, &minute); err != nil ||
		hour < 0 || hour > 23 || minute < 0 || minute > 59 {
		hour, minute = 8, 0
	}
	return fmt.Sprintf("%d %d * * *", minute, hour)
}

func (s *DailyReportService) scheduleLocked() {
	if s.entryID != 0 {
		s.cron.Remove(s.entryID)
		s.entryID = 0
	}
	reportTime := s.configSvc.GetWithDefault("daily_report_time", "08:00")
	expr := reportCron(reportTime)
	id, err := s.cron.AddFunc(expr, func() {
		if !s.configSvc.GetBool("daily_report_enabled", false) {
			return
		}
		if _, err := s.GenerateAndSend(context.Background(), time.Now().UTC().AddDate(0, 0, -1)); err != nil {
			logger.Errorf("[DailyReport] scheduled report failed: %v", err)
		}
	})
	if err != nil {
		logger.Errorf("[DailyReport] Failed to add cron job: %v", err)
		return
	}
	s.entryID = id
	logger.Infof("[DailyReport] Scheduled at %s (cron: %s)", reportTime, expr)
}

func startOfDay(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// GenerateAndSend builds the digest of day and pushes it to the IM bots.
// Only one instance sends a given day.
func (s *DailyReportService) GenerateAndSend(ctx context.Context, day time.Time) (*models.DailyReport, error) {
	key := startOfDay(day).Format("2006-01-02")
	ok, err := TryAcquireLock(s.db, dailyReportLock, key, 10*time.Minute)
	if err != nil {
		return nil, err
	}
	if !ok {
		logger.Infof("[DailyReport] report %s is being generated elsewhere", key)
		return nil, nil
	}
	defer ReleaseLock(s.db, dailyReportLock, key)

	report, err := s.Generate(ctx, day)
	if err != nil {
		return nil, err
	}
	s.send(report)
	return report, nil
}

// Generate computes and stores the digest for the UTC day containing day, replacing an earlier one
func (s *DailyReportService) Generate(ctx context.Context, day time.Time) (*models.DailyReport, error) {
	from := startOfDay(day)
	to := from.Add(24 * time.Hour)

	report, err := s.collect(from, to)
	if err != nil {
		return nil, err
	}
	report.ReportDate = from
	report.ReportType = "daily"
	report.AIAnalysis, report.AIModelUsed = s.analyse(ctx, report)

	var existing models.DailyReport
	err = s.db.Where("report_date = ?", from).First(&existing).Error
	if err == nil {
		report.ID = existing.ID
		report.CreatedAt = existing.CreatedAt
		report.NotifiedAt = existing.NotifiedAt
		err = s.db.Save(report).Error
	} else {
		err = s.db.Create(report).Error
	}
	if err != nil {
		return nil, err
	}
	logger.Infof("[DailyReport] report for %s stored (ID: %d)", from.Format("2006-01-02"), report.ID)
	return report, nil
}

func (s *DailyReportService) collect(from, to time.Time) (*models.DailyReport, error) {
	r := &models.DailyReport{}
	between := "created_at >= ? AND created_at < ?"

	count := func(model interface{}, where string, args ...interface{}) int {
		var n int64
		if err := s.db.Model(model).Where(where, args...).Count(&n).Error; err != nil {
			logger.Warn().Err(err).Msg("[DailyReport] count failed")
		}
		return int(n)
	}
	sum := func(column, where string, args ...interface{}) float64 {
		var v float64
		if err := s.db.Model(&models.Payment{}).Select("COALESCE(SUM("+column+"), 0)").Where(where, args...).Scan(&v).Error; err != nil {
			logger.Warn().Err(err).Msg("[DailyReport] sum failed")
		}
		return v
	}

	r.NewUsers = count(&models.User{}, between, from, to)
	r.NewProjects = count(&models.Project{}, between, from, to)
	r.NewProposals = count(&models.Proposal{}, between, from, to)
	r.Hires = count(&models.Proposal{}, "status = ? AND updated_at >= ? AND updated_at < ?", models.ProposalStatusAccepted, from, to)
	r.CompletedCount = count(&models.Project{}, "completed_at >= ? AND completed_at < ?", from, to)

	releasedIn := "status = ? AND released_at >= ? AND released_at < ?"
	r.ReleasedCount = count(&models.Payment{}, releasedIn, models.PaymentStatusReleased, from, to)
	r.ReleasedAmount = sum("amount", releasedIn, models.PaymentStatusReleased, from, to)
	r.PlatformFees = sum("platform_fee", releasedIn, models.PaymentStatusReleased, from, to)

	refundedIn := "status = ? AND refunded_at >= ? AND refunded_at < ?"
	r.RefundedCount = count(&models.Payment{}, refundedIn, models.PaymentStatusRefunded, from, to)
	r.RefundedAmount = sum("amount", refundedIn, models.PaymentStatusRefunded, from, to)

	r.EscrowHeldAmount = sum("amount", "status IN ?", escrowStatuses)
	r.FailedReleases = count(&models.Payment{}, "status = ?", models.PaymentStatusReleaseFailed)

	var categories []NamedCount
	if err := s.db.Model(&models.Project{}).
		Select("category AS name, COUNT(*) AS count").
		Where(between+" AND category <> ''", from, to).
		Group("category").Order("count DESC").Limit(5).
		Scan(&categories).Error; err != nil {
		return nil, err
	}
	var skills []NamedCount
	if err := s.db.Table("project_skills").
		Select("skills.name AS name, COUNT(*) AS count").
		Joins("JOIN skills ON skills.id = project_skills.skill_id").
		Joins("JOIN projects ON projects.id = project_skills.project_id").
		Where("projects.created_at >= ? AND projects.created_at < ?", from, to).
		Group("skills.name").Order("count DESC").Limit(5).
		Scan(&skills).Error; err != nil {
		return nil, err
	}
	top, _ := json.Marshal(categories)
	r.TopCategories = string(top)
	top, _ = json.Marshal(skills)
	r.TopSkills = string(top)
	return r, nil
}

func (s *DailyReportService) analyse(ctx context.Context, r *models.DailyReport) (string, string) {
	summary := BuildReportSummary(r)
	if s.ai == nil {
		return "", ""
	}
	prompt := RenderPrompt(NewPromptService(s.db).ForPurpose(PromptPurposeDailyReport), map[string]string{"stats": summary})
	result, err := s.ai.Complete(ctx, &CompletionRequest{Feature: PromptPurposeDailyReport, Prompt: prompt})
	if err != nil {
		logger.Warnf("[DailyReport] AI analysis skipped: %v", err)
		return "", ""
	}
	return result.Content, result.Model
}

// BuildReportSummary renders the numbers of a report as markdown
func BuildReportSummary(r *models.DailyReport) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "## FreelanceHub daily digest - %s\n\n", r.ReportDate.Format("2006-01-02"))
	fmt.Fprintf(&sb, "- New users: %d\n", r.NewUsers)
	fmt.Fprintf(&sb, "- New projects: %d, proposals: %d, hires: %d, completed: %d\n",
		r.NewProjects, r.NewProposals, r.Hires, r.CompletedCount)
	fmt.Fprintf(&sb, "- Released: %d payments, %.2f GMV, %.2f fees\n", r.ReleasedCount, r.ReleasedAmount, r.PlatformFees)
	fmt.Fprintf(&sb, "- Refunded: %d payments, %.2f\n", r.RefundedCount, r.RefundedAmount)
	fmt.Fprintf(&sb, "- In escrow now: %.2f\n", r.EscrowHeldAmount)
	if r.FailedReleases > 0 {
		fmt.Fprintf(&sb, "- Failed releases waiting for retry: %d\n", r.FailedReleases)
	}

	var categories []NamedCount
	if json.Unmarshal([]byte(r.TopCategories), &categories) == nil && len(categories) > 0 {
		sb.WriteString("\nTop categories: ")
		for i, c := range categories {
			if i > 0 {
				sb.WriteString(", ")
			}
			fmt.Fprintf(&sb, "%s (%d)", c.Name, c.Count)
		}
		sb.WriteString("\n")
	}
	return sb.String()
}

func (s *DailyReportService) send(report *models.DailyReport) {
	body := BuildReportSummary(report)
	if report.AIAnalysis != "" {
		body += "\n" + report.AIAnalysis
	}
	level := "info"
	if report.FailedReleases > 0 {
		level = "warning"
	}
	s.alerts.SendDailyReport(AlertMessage{
		Title: "Daily digest " + report.ReportDate.Format("2006-01-02"),
		Level: level,
		Body:  body,
		Fields: []AlertField{
			{Label: "GMV released", Value: fmt.Sprintf("%.2f", report.ReleasedAmount)},
			{Label: "Hires", Value: fmt.Sprint(report.Hires)},
			{Label: "In escrow", Value: fmt.Sprintf("%.2f", report.EscrowHeldAmount)},
		},
	})

	now := time.Now().UTC()
	report.NotifiedAt = &now
	report.NotifyError = ""
	if err := s.db.Model(report).Updates(map[string]interface{}{"notified_at": now, "notify_error": ""}).Error; err != nil {
		logger.Warn().Err(err).Uint("report_id", report.ID).Msg("[DailyReport] failed to mark report sent")
	}
}

func (s *DailyReportService) List(req *PageRequest) (*PageResponse[models.DailyReport], error) {
	req.normalize(20)
	var total int64
	if err := s.db.Model(&models.DailyReport{}).Count(&total).Error; err != nil {
		return nil, err
	}
	var reports []models.DailyReport
	if err := s.db.Order("report_date DESC").Offset(req.offset()).Limit(req.PageSize).Find(&reports).Error; err != nil {
		return nil, err
	}
	return newPage(*req, total, reports), nil
}

func (s *DailyReportService) GetByID(id uint) (*models.DailyReport, error) {
	var report models.DailyReport
	if err := s.db.First(&report, id).Error; err != nil {
		return nil, notFoundOr(err, "report not found")
	}
	return &report, nil
}

func (s *DailyReportService) Resend(id uint) (*models.DailyReport, error) {
	report, err := s.GetByID(id)
	if err != nil {
		return nil, err
	}
	s.send(report)
	return report, nil
}
