package services

import (
	"context"

	"github.com/whomimohshukla/freelancehub/internal/models"
	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"
)

type DashboardService struct {
	db *gorm.DB
}

func NewDashboardService(db *gorm.DB) *DashboardService {
	return &DashboardService{db: db}
}

type StatusCount struct {
	Status string `json:"status"`
	Count  int64  `json:"count"`
}

type ClientDashboard struct {
	ProjectsByStatus []StatusCount `json:"projects_by_status"`
	OpenProposals    int64         `json:"open_proposals"`
	TotalSpent       float64       `json:"total_spent"`
	EscrowHeld       float64       `json:"escrow_held"`
	UnreadMessages   int64         `json:"unread_messages"`
}

type FreelancerDashboard struct {
	ActiveProposals   int64   `json:"active_proposals"`
	ActiveProjects    int64   `json:"active_projects"`
	PendingInvites    int64   `json:"pending_invitations"`
	TotalEarnings     float64 `json:"total_earnings"`
	PendingReleases   float64 `json:"pending_releases"`
	CompletedProjects int     `json:"completed_projects"`
	Rating            float64 `json:"rating"`
	UnreadMessages    int64   `json:"unread_messages"`
}

type AdminDashboard struct {
	UsersByRole      []StatusCount `json:"users_by_role"`
	ProjectsByStatus []StatusCount `json:"projects_by_status"`
	GMV              float64       `json:"gmv"` // released to freelancers, gross
	PlatformFees     float64       `json:"platform_fees"`
	EscrowHeld       float64       `json:"escrow_held"`
	FailedReleases   int64         `json:"failed_releases"`
}

type Dashboard struct {
	Role       string               `json:"role"`
	Client     *ClientDashboard     `json:"client,omitempty"`
	Freelancer *FreelancerDashboard `json:"freelancer,omitempty"`
	Admin      *AdminDashboard      `json:"admin,omitempty"`
}

func (s *DashboardService) Get(ctx context.Context, actor Actor) (*Dashboard, error) {
	switch {
	case actor.IsAdmin():
		d, err := s.admin(ctx)
		return &Dashboard{Role: models.RoleAdmin, Admin: d}, err
	case actor.IsFreelancer():
		d, err := s.freelancer(ctx, actor.UserID)
		return &Dashboard{Role: models.RoleFreelancer, Freelancer: d}, err
	default:
		d, err := s.client(ctx, actor.UserID)
		return &Dashboard{Role: models.RoleClient, Client: d}, err
	}
}

func sumPayments(db *gorm.DB, column string, dst *float64) error {
	return db.Model(&models.Payment{}).Select("COALESCE(SUM(" + column + "), 0)").Scan(dst).Error
}

// unreadMessages counts messages from others newer than the user's read marker
func unreadMessages(db *gorm.DB, userID uint, dst *int64) error {
	return db.Model(&models.Message{}).
		Joins("JOIN conversation_participants cp ON cp.conversation_id = messages.conversation_id AND cp.user_id = ?", userID).
		Where("messages.sender_id <> ? AND (cp.last_read_at IS NULL OR messages.created_at > cp.last_read_at)", userID).
		Count(dst).Error
}

func (s *DashboardService) client(ctx context.Context, userID uint) (*ClientDashboard, error) {
	d := &ClientDashboard{ProjectsByStatus: []StatusCount{}}
	db := s.db.WithContext(ctx)
	g, _ := errgroup.WithContext(ctx)

	g.Go(func() error {
		return db.Model(&models.Project{}).Select("status, COUNT(*) AS count").
			Where("client_id = ?", userID).Group("status").Scan(&d.ProjectsByStatus).Error
	})
	g.Go(func() error {
		owned := db.Model(&models.Project{}).Select("id").Where("client_id = ?", userID)
		return db.Model(&models.Proposal{}).
			Where("project_id IN (?) AND status IN ?", owned, openProposalStatuses).
			Count(&d.OpenProposals).Error
	})
	g.Go(func() error {
		return db.Model(&models.ClientProfile{}).Select("total_spent").
			Where("user_id = ?", userID).Scan(&d.TotalSpent).Error
	})
	g.Go(func() error {
		return sumPayments(db.Where("client_id = ? AND status IN ?", userID, escrowStatuses), "amount", &d.EscrowHeld)
	})
	g.Go(func() error {
		return unreadMessages(db, userID, &d.UnreadMessages)
	})
	return d, g.Wait()
}

func (s *DashboardService) freelancer(ctx context.Context, userID uint) (*FreelancerDashboard, error) {
	d := &FreelancerDashboard{}
	db := s.db.WithContext(ctx)
	g, _ := errgroup.WithContext(ctx)

	g.Go(func() error {
		return db.Model(&models.Proposal{}).
			Where("freelancer_id = ? AND status IN ?", userID, openProposalStatuses).
			Count(&d.ActiveProposals).Error
	})
	g.Go(func() error {
		return db.Model(&models.Project{}).
			Where("selected_freelancer_id = ? AND status = ?", userID, models.ProjectStatusInProgress).
			Count(&d.ActiveProjects).Error
	})
	g.Go(func() error {
		return db.Model(&models.ProjectInvitation{}).
			Where("freelancer_id = ? AND status = ?", userID, models.InvitationStatusPending).
			Count(&d.PendingInvites).Error
	})
	g.Go(func() error {
		var p models.FreelancerProfile
		err := db.Select("total_earnings", "completed_projects", "rating").
			Where("user_id = ?", userID).Limit(1).Find(&p).Error
		d.TotalEarnings, d.CompletedProjects, d.Rating = p.TotalEarnings, p.CompletedProjects, p.Rating
		return err
	})
	g.Go(func() error {
		return sumPayments(db.Where("freelancer_id = ? AND status IN ?", userID, escrowStatuses), "payout_amount", &d.PendingReleases)
	})
	g.Go(func() error {
		return unreadMessages(db, userID, &d.UnreadMessages)
	})
	return d, g.Wait()
}

func (s *DashboardService) admin(ctx context.Context) (*AdminDashboard, error) {
	d := &AdminDashboard{UsersByRole: []StatusCount{}, ProjectsByStatus: []StatusCount{}}
	db := s.db.WithContext(ctx)
	g, _ := errgroup.WithContext(ctx)

	g.Go(func() error {
		return db.Model(&models.User{}).Select("role AS status, COUNT(*) AS count").
			Group("role").Scan(&d.UsersByRole).Error
	})
	g.Go(func() error {
		return db.Model(&models.Project{}).Select("status, COUNT(*) AS count").
			Group("status").Scan(&d.ProjectsByStatus).Error
	})
	g.Go(func() error {
		return sumPayments(db.Where("status = ?", models.PaymentStatusReleased), "amount", &d.GMV)
	})
	g.Go(func() error {
		return sumPayments(db.Where("status = ?", models.PaymentStatusReleased), "platform_fee", &d.PlatformFees)
	})
	g.Go(func() error {
		return sumPayments(db.Where("status IN ?", escrowStatuses), "amount", &d.EscrowHeld)
	})
	g.Go(func() error {
		return db.Model(&models.Payment{}).Where("status = ?", models.PaymentStatusReleaseFailed).
			Count(&d.FailedReleases).Error
	})
	return d, g.Wait()
}
