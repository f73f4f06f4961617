package models

import "time"

const (
	PaymentStatusCreated          = "created"
	PaymentStatusHeld             = "held"
	PaymentStatusReleaseScheduled = "release_scheduled"
	PaymentStatusReleased         = "released"
	PaymentStatusReleaseFailed    = "release_failed"
	PaymentStatusRefunded         = "refunded"
	PaymentStatusFailed           = "failed"
)

// Payment is the escrow record of one milestone's funds
type Payment struct {
	ID                uint       `gorm:"primaryKey" json:"id"`
	ProjectID         uint       `gorm:"index;not null" json:"project_id"`
	MilestoneID       uint       `gorm:"index;not null" json:"milestone_id"`
	Milestone         *Milestone `gorm:"foreignKey:MilestoneID" json:"milestone,omitempty"`
	ClientID          uint       `gorm:"index;not null" json:"client_id"`
	FreelancerID      uint       `gorm:"index;not null" json:"freelancer_id"`
	Amount            float64    `gorm:"not null" json:"amount"`
	PlatformFee       float64    `json:"platform_fee"`
	PayoutAmount      float64    `json:"payout_amount"`
	Currency          string     `gorm:"size:3" json:"currency"`
	Status            string     `gorm:"size:30;index;default:created" json:"status"`
	GatewayOrderID    string     `gorm:"uniqueIndex;size:100;not null" json:"gateway_order_id"`
	GatewayPaymentID  string     `gorm:"size:100;index" json:"gateway_payment_id"`
	GatewayTransferID string     `gorm:"size:100" json:"gateway_transfer_id"`
	GatewayRefundID   string     `gorm:"size:100" json:"gateway_refund_id"`
	ReleaseAt         *time.Time `gorm:"index" json:"release_at"`
	ReleasedAt        *time.Time `json:"released_at"`
	RefundedAt        *time.Time `json:"refunded_at"`
	ReleaseAttempts   int        `gorm:"default:0" json:"release_attempts"`
	FailureReason     string     `gorm:"type:text" json:"failure_reason"`
	CreatedAt         time.Time  `gorm:"index" json:"created_at"`
	UpdatedAt         time.Time  `json:"updated_at"`
}

func (Payment) TableName() string { return "payments" }

// IsLive reports whether the payment still blocks a new order for its milestone.
func (p *Payment) IsLive() bool {
	return p.Status != PaymentStatusFailed && p.Status != PaymentStatusRefunded
}

// InEscrow reports whether the funds are captured and not yet paid out.
func (p *Payment) InEscrow() bool {
	switch p.Status {
	case PaymentStatusHeld, PaymentStatusReleaseScheduled, PaymentStatusReleaseFailed:
		return true
	}
	return false
}
