package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/whomimohshukla/freelancehub/internal/models"
	"github.com/whomimohshukla/freelancehub/internal/services/events"
	"github.com/whomimohshukla/freelancehub/internal/utils"
	"github.com/whomimohshukla/freelancehub/pkg/response"
	"gorm.io/gorm"
)

// ReviewEditWindow is how long an author may change their review
const ReviewEditWindow = 14 * 24 * time.Hour

type ReviewService struct {
	db       *gorm.DB
	notifier *NotificationService
}

func NewReviewService(db *gorm.DB, notifier *NotificationService) *ReviewService {
	return &ReviewService{db: db, notifier: notifier}
}

type ReviewRequest struct {
	Rating        int    `json:"rating" binding:"required,min=1,max=5"`
	Communication *int   `json:"communication" binding:"omitempty,min=0,max=5"`
	Quality       *int   `json:"quality" binding:"omitempty,min=0,max=5"`
	Timeliness    *int   `json:"timeliness" binding:"omitempty,min=0,max=5"`
	Comment       string `json:"comment" binding:"max=5000"`
}

func validRating(v int) bool { return v >= 1 && v <= 5 }

// sub-ratings use 0 for "not rated"
func validSubRating(v int) bool { return v >= 0 && v <= 5 }

func (r *ReviewRequest) validate() error {
	if !validRating(r.Rating) {
		return response.NewBadRequest("rating must be between 1 and 5")
	}
	for _, sub := range []*int{r.Communication, r.Quality, r.Timeliness} {
		if sub != nil && !validSubRating(*sub) {
			return response.NewBadRequest("sub-ratings must be between 0 and 5")
		}
	}
	return nil
}

// Create lets either party of a completed project review the other one, once
func (s *ReviewService) Create(ctx context.Context, actor Actor, projectID uint, req *ReviewRequest) (*models.Review, error) {
	if err := req.validate(); err != nil {
		return nil, err
	}
	var project models.Project
	if err := s.db.First(&project, projectID).Error; err != nil {
		return nil, notFoundOr(err, "project not found")
	}
	if project.Status != models.ProjectStatusCompleted {
		return nil, response.NewConflict("reviews open once the project is completed")
	}
	if project.SelectedFreelancerID == nil {
		return nil, response.NewConflict("project has no hired freelancer")
	}

	review := models.Review{
		ProjectID:     project.ID,
		ReviewerID:    actor.UserID,
		Rating:        req.Rating,
		Communication: req.Communication,
		Quality:       req.Quality,
		Timeliness:    req.Timeliness,
		Comment:       strings.TrimSpace(req.Comment),
	}
	switch actor.UserID {
	case project.ClientID:
		review.RevieweeID = *project.SelectedFreelancerID
		review.Direction = models.ReviewClientToFreelancer
	case *project.SelectedFreelancerID:
		review.RevieweeID = project.ClientID
		review.Direction = models.ReviewFreelancerToClient
	default:
		return nil, response.NewForbidden("only the client and the hired freelancer can review this project")
	}

	err := s.db.Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&models.Review{}).
			Where("project_id = ? AND reviewer_id = ?", project.ID, actor.UserID).
			Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return response.NewConflict("you already reviewed this project")
		}
		if err := tx.Create(&review).Error; err != nil {
			if isDuplicateKey(err) {
				return response.NewConflict("you already reviewed this project")
			}
			return err
		}
		return recomputeRating(tx, review.RevieweeID, review.Direction)
	})
	if err != nil {
		return nil, err
	}

	s.notifier.Notify(review.RevieweeID, NotifyReviewReceived, "New review",
		fmt.Sprintf("You received a %d-star review for %q.", review.Rating, project.Title),
		fmt.Sprintf("/users/%d", review.RevieweeID))
	events.Emit(ctx, events.ReviewCreated, map[string]interface{}{
		"review_id":   review.ID,
		"project_id":  review.ProjectID,
		"reviewer_id": review.ReviewerID,
		"reviewee_id": review.RevieweeID,
		"direction":   review.Direction,
		"rating":      review.Rating,
	})
	return &review, nil
}

// Update is allowed to the author within ReviewEditWindow
func (s *ReviewService) Update(actor Actor, id uint, req *ReviewRequest) (*models.Review, error) {
	if err := req.validate(); err != nil {
		return nil, err
	}
	var review models.Review
	if err := s.db.First(&review, id).Error; err != nil {
		return nil, notFoundOr(err, "review not found")
	}
	if review.ReviewerID != actor.UserID {
		return nil, response.NewForbidden("only the author can edit a review")
	}
	if time.Since(review.CreatedAt) > ReviewEditWindow {
		return nil, response.NewConflict("reviews can only be edited within 14 days")
	}

	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&review).Updates(map[string]interface{}{
			"rating":        req.Rating,
			"communication": req.Communication,
			"quality":       req.Quality,
			"timeliness":    req.Timeliness,
			"comment":       strings.TrimSpace(req.Comment),
		}).Error; err != nil {
			return err
		}
		return recomputeRating(tx, review.RevieweeID, review.Direction)
	})
	if err != nil {
		return nil, err
	}
	if err := s.db.First(&review, id).Error; err != nil {
		return nil, err
	}
	return &review, nil
}

// Delete is an admin moderation action
func (s *ReviewService) Delete(actor Actor, id uint) error {
	if !actor.IsAdmin() {
		return response.NewForbidden("only admins can delete reviews")
	}
	var review models.Review
	if err := s.db.First(&review, id).Error; err != nil {
		return notFoundOr(err, "review not found")
	}
	return s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Delete(&review).Error; err != nil {
			return err
		}
		return recomputeRating(tx, review.RevieweeID, review.Direction)
	})
}

// recomputeRating refreshes the reviewee's average rating from scratch
func recomputeRating(tx *gorm.DB, revieweeID uint, direction string) error {
	var agg struct {
		Avg   float64
		Count int64
	}
	if err := tx.Model(&models.Review{}).
		Select("COALESCE(AVG(rating), 0) AS avg, COUNT(*) AS count").
		Where("reviewee_id = ? AND direction = ?", revieweeID, direction).
		Scan(&agg).Error; err != nil {
		return err
	}
	updates := map[string]interface{}{
		"rating":       utils.RoundMoney(agg.Avg),
		"review_count": agg.Count,
	}
	if direction == models.ReviewClientToFreelancer {
		return tx.Model(&models.FreelancerProfile{}).Where("user_id = ?", revieweeID).Updates(updates).Error
	}
	return tx.Model(&models.ClientProfile{}).Where("user_id = ?", revieweeID).Updates(updates).Error
}

func (s *ReviewService) ListForProject(projectID uint) ([]models.Review, error) {
	var reviews []models.Review
	err := s.db.Preload("Reviewer").Where("project_id = ?", projectID).
		Order("created_at ASC").Find(&reviews).Error
	return reviews, err
}

type ReviewListRequest struct {
	PageRequest
	Direction string `form:"direction"`
}

// ListForUser returns the reviews a user received
func (s *ReviewService) ListForUser(userID uint, req *ReviewListRequest) (*PageResponse[models.Review], error) {
	req.normalize(20)

	query := s.db.Model(&models.Review{}).Where("reviewee_id = ?", userID)
	if req.Direction != "" {
		query = query.Where("direction = ?", req.Direction)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, err
	}
	var reviews []models.Review
	if err := query.Preload("Reviewer").Preload("Project").
		Order("created_at DESC").Order("id DESC").
		Offset(req.offset()).Limit(req.PageSize).
		Find(&reviews).Error; err != nil {
		return nil, err
	}
	return newPage(req.PageRequest, total, reviews), nil
}
