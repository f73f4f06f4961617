package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/tidwall/gjson"
	"github.com/whomimohshukla/freelancehub/internal/config"
	"github.com/whomimohshukla/freelancehub/internal/metrics"
	"github.com/whomimohshukla/freelancehub/internal/models"
	"github.com/whomimohshukla/freelancehub/internal/services/events"
	"github.com/whomimohshukla/freelancehub/internal/services/gateway"
	"github.com/whomimohshukla/freelancehub/internal/utils"
	"github.com/whomimohshukla/freelancehub/pkg/logger"
	"github.com/whomimohshukla/freelancehub/pkg/response"
	"gorm.io/gorm"
)

var escrowStatuses = []string{
	models.PaymentStatusHeld,
	models.PaymentStatusReleaseScheduled,
	models.PaymentStatusReleaseFailed,
}

var releasableStatuses = []string{
	models.PaymentStatusReleaseScheduled,
	models.PaymentStatusReleaseFailed,
}

type PaymentService struct {
	db        *gorm.DB
	gw        gateway.Gateway
	cfg       *config.Config
	configSvc *SystemConfigService
	holidays  *HolidayService
	notifier  *NotificationService
	alerts    *AlertService
}

func NewPaymentService(db *gorm.DB, gw gateway.Gateway, cfg *config.Config, notifier *NotificationService, alerts *AlertService) *PaymentService {
	return &PaymentService{
		db:        db,
		gw:        gw,
		cfg:       cfg,
		configSvc: NewSystemConfigService(db),
		holidays:  NewHolidayService(),
		notifier:  notifier,
		alerts:    alerts,
	}
}

func (s *PaymentService) Gateway() gateway.Gateway {
	return s.gw
}

// EscrowSettings are the effective settings: system config over file config
func (s *PaymentService) EscrowSettings() *EscrowSettings {
	return s.configSvc.GetEscrowSettings(EscrowSettings{
		ReleaseDelayDays:   s.cfg.Escrow.ReleaseDelayDays,
		HolidayCountry:     s.cfg.Escrow.HolidayCountry,
		PlatformFeePercent: s.cfg.Payment.PlatformFeePercent,
	})
}

// SplitFee returns the platform fee and the freelancer payout for amount
func SplitFee(amount, feePercent float64) (fee, payout float64) {
	fee = utils.RoundMoney(amount * feePercent / 100)
	payout = utils.RoundMoney(amount - fee)
	return fee, payout
}

func paymentLink(p *models.Payment) string {
	return fmt.Sprintf("/payments/%d", p.ID)
}

// Checkout is what the client needs to open the gateway's payment widget
type Checkout struct {
	Payment  *models.Payment `json:"payment"`
	OrderID  string          `json:"order_id"`
	KeyID    string          `json:"key_id"`
	Amount   int64           `json:"amount"` // minor units
	Currency string          `json:"currency"`
	Provider string          `json:"provider"`
}

func (s *PaymentService) checkout(p *models.Payment) *Checkout {
	return &Checkout{
		Payment:  p,
		OrderID:  p.GatewayOrderID,
		KeyID:    s.gw.KeyID(),
		Amount:   utils.ToMinorUnits(p.Amount),
		Currency: p.Currency,
		Provider: s.gw.Name(),
	}
}

// CreateOrder opens a gateway order for a pending milestone. An unpaid order is returned again instead of duplicated.
func (s *PaymentService) CreateOrder(ctx context.Context, actor Actor, milestoneID uint) (*Checkout, error) {
	var milestone models.Milestone
	if err := s.db.First(&milestone, milestoneID).Error; err != nil {
		return nil, notFoundOr(err, "milestone not found")
	}
	project, err := ownedProject(s.db, actor, milestone.ProjectID)
	if err != nil {
		return nil, err
	}
	if project.Status != models.ProjectStatusInProgress || project.SelectedFreelancerID == nil {
		return nil, response.NewConflict("project has no hired freelancer")
	}
	if milestone.Status != models.MilestoneStatusPending {
		return nil, response.NewConflict("only pending milestones can be funded")
	}

	var live models.Payment
	err = s.db.Where("milestone_id = ? AND status NOT IN ?", milestoneID,
		[]string{models.PaymentStatusFailed, models.PaymentStatusRefunded}).First(&live).Error
	switch {
	case err == nil && live.Status == models.PaymentStatusCreated && live.Amount == milestone.Amount:
		return s.checkout(&live), nil
	case err == nil && live.Status == models.PaymentStatusCreated:
		// stale order for an older amount
		res := s.db.Model(&models.Payment{}).
			Where("id = ? AND status = ?", live.ID, models.PaymentStatusCreated).
			Updates(map[string]interface{}{
				"status":         models.PaymentStatusFailed,
				"failure_reason": "milestone amount changed",
			})
		if res.Error != nil {
			return nil, res.Error
		}
		if res.RowsAffected == 0 {
			return nil, response.NewConflict("payment order changed, try again")
		}
	case err == nil:
		return nil, response.NewConflict("milestone already has a payment")
	case !errors.Is(err, gorm.ErrRecordNotFound):
		return nil, err
	}

	settings := s.EscrowSettings()
	fee, payout := SplitFee(milestone.Amount, settings.PlatformFeePercent)
	currency := project.Currency
	if currency == "" {
		currency = s.cfg.Payment.Currency
	}

	order, err := s.gw.CreateOrder(ctx, utils.ToMinorUnits(milestone.Amount), currency,
		fmt.Sprintf("ms_%d", milestone.ID), map[string]string{
			"project_id":   fmt.Sprint(project.ID),
			"milestone_id": fmt.Sprint(milestone.ID),
		})
	metrics.IncPayment("create_order", err)
	if err != nil {
		logger.Error().Err(err).Uint("milestone_id", milestoneID).Msg("[Payment] create order failed")
		return nil, gatewayFailure("could not create payment order", err)
	}

	payment := models.Payment{
		ProjectID:      project.ID,
		MilestoneID:    milestone.ID,
		ClientID:       project.ClientID,
		FreelancerID:   *project.SelectedFreelancerID,
		Amount:         milestone.Amount,
		PlatformFee:    fee,
		PayoutAmount:   payout,
		Currency:       currency,
		Status:         models.PaymentStatusCreated,
		GatewayOrderID: order.ID,
	}
	if err := s.db.Create(&payment).Error; err != nil {
		return nil, err
	}
	return s.checkout(&payment), nil
}

// gatewayFailure turns provider errors into a 400 with the provider's description
func gatewayFailure(msg string, err error) error {
	var gwErr *gateway.Error
	if errors.As(err, &gwErr) && gwErr.StatusCode >= 400 && gwErr.StatusCode < 500 {
		return response.NewBadRequest(msg + ": " + gwErr.Description)
	}
	return fmt.Errorf("%s: %w", msg, err)
}

type VerifyPaymentRequest struct {
	OrderID   string `json:"razorpay_order_id" binding:"required"`
	PaymentID string `json:"razorpay_payment_id" binding:"required"`
	Signature string `json:"razorpay_signature" binding:"required"`
}

// VerifyPayment checks the checkout signature and moves the funds into escrow
func (s *PaymentService) VerifyPayment(ctx context.Context, actor Actor, req *VerifyPaymentRequest) (*models.Payment, error) {
	var payment models.Payment
	if err := s.db.Where("gateway_order_id = ?", req.OrderID).First(&payment).Error; err != nil {
		return nil, notFoundOr(err, "payment order not found")
	}
	if !actor.IsAdmin() && payment.ClientID != actor.UserID {
		return nil, response.NewNotFound("payment order not found")
	}

	if !s.gw.VerifyPaymentSignature(req.OrderID, req.PaymentID, req.Signature) {
		metrics.IncPayment("verify", errors.New("signature mismatch"))
		if payment.Status == models.PaymentStatusCreated {
			if err := s.db.Model(&models.Payment{}).
				Where("id = ? AND status = ?", payment.ID, models.PaymentStatusCreated).
				Updates(map[string]interface{}{
					"status":             models.PaymentStatusFailed,
					"gateway_payment_id": req.PaymentID,
					"failure_reason":     "signature verification failed",
				}).Error; err != nil {
				logger.Error().Err(err).Uint("payment_id", payment.ID).Msg("[Payment] failed to mark payment failed")
			}
		}
		LogWarning("payment", "verify_failed", "payment signature mismatch for order "+req.OrderID, &actor.UserID, "", "",
			map[string]interface{}{"payment_id": payment.ID, "milestone_id": payment.MilestoneID})
		return nil, response.NewBadRequest("payment signature verification failed")
	}

	return s.capture(ctx, &payment, req.PaymentID)
}

// capture moves a created payment to held; repeating it for the same gateway payment is a no-op
func (s *PaymentService) capture(ctx context.Context, payment *models.Payment, gatewayPaymentID string) (*models.Payment, error) {
	if payment.Status != models.PaymentStatusCreated {
		if payment.GatewayPaymentID == gatewayPaymentID && payment.Status != models.PaymentStatusFailed {
			return payment, nil
		}
		return nil, response.NewConflict("payment is not awaiting capture")
	}

	err := s.db.Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.Payment{}).
			Where("id = ? AND status = ?", payment.ID, models.PaymentStatusCreated).
			Updates(map[string]interface{}{
				"status":             models.PaymentStatusHeld,
				"gateway_payment_id": gatewayPaymentID,
				"failure_reason":     "",
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return response.NewConflict("payment is not awaiting capture")
		}

		var milestone models.Milestone
		if err := tx.First(&milestone, payment.MilestoneID).Error; err != nil {
			return err
		}
		if err := transitionMilestone(tx, &milestone, models.MilestoneStatusFunded, milestoneBySystem, nil); err != nil {
			return err
		}
		return tx.Model(&models.ClientProfile{}).Where("user_id = ?", payment.ClientID).
			Updates(map[string]interface{}{
				"total_spent":      gorm.Expr("total_spent + ?", payment.Amount),
				"payment_verified": true,
			}).Error
	})
	metrics.IncPayment("capture", err)
	if err != nil {
		return nil, err
	}

	if err := s.db.First(payment, payment.ID).Error; err != nil {
		return nil, err
	}
	s.notifier.Notify(payment.FreelancerID, NotifyPaymentHeld, "Milestone funded",
		fmt.Sprintf("%.2f %s is held in escrow. You can start work.", payment.Amount, payment.Currency), paymentLink(payment))
	s.notifier.Notify(payment.ClientID, NotifyPaymentHeld, "Payment received",
		fmt.Sprintf("Your payment of %.2f %s is held in escrow.", payment.Amount, payment.Currency), paymentLink(payment))
	events.Emit(ctx, events.PaymentHeld, paymentEventData(payment))
	return payment, nil
}

func paymentEventData(p *models.Payment) map[string]interface{} {
	return map[string]interface{}{
		"payment_id":    p.ID,
		"project_id":    p.ProjectID,
		"milestone_id":  p.MilestoneID,
		"client_id":     p.ClientID,
		"freelancer_id": p.FreelancerID,
		"amount":        p.Amount,
		"platform_fee":  p.PlatformFee,
		"payout_amount": p.PayoutAmount,
		"currency":      p.Currency,
		"status":        p.Status,
	}
}

// ReleaseDate is approval plus the configured number of business days
func (s *PaymentService) ReleaseDate(approvedAt time.Time) time.Time {
	settings := s.EscrowSettings()
	if settings.ReleaseDelayDays <= 0 {
		return approvedAt
	}
	return s.holidays.AddBusinessDays(approvedAt, settings.ReleaseDelayDays, settings.HolidayCountry)
}

// scheduleRelease runs inside the approval transaction; releaseAt comes from ReleaseDate
func (s *PaymentService) scheduleRelease(tx *gorm.DB, milestone *models.Milestone, releaseAt time.Time) (*models.Payment, error) {
	var payment models.Payment
	if err := tx.Where("milestone_id = ? AND status = ?", milestone.ID, models.PaymentStatusHeld).First(&payment).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, response.NewConflict("milestone has no held payment")
		}
		return nil, err
	}

	res := tx.Model(&models.Payment{}).
		Where("id = ? AND status = ?", payment.ID, models.PaymentStatusHeld).
		Updates(map[string]interface{}{"status": models.PaymentStatusReleaseScheduled, "release_at": releaseAt})
	if res.Error != nil {
		return nil, res.Error
	}
	if res.RowsAffected == 0 {
		return nil, response.NewConflict("payment was changed by another request")
	}
	payment.Status = models.PaymentStatusReleaseScheduled
	payment.ReleaseAt = &releaseAt
	return &payment, nil
}

// Release pays out an approved milestone now. Clients may release their own; admins any.
func (s *PaymentService) Release(ctx context.Context, actor Actor, paymentID uint) (*models.Payment, error) {
	var payment models.Payment
	if err := s.db.First(&payment, paymentID).Error; err != nil {
		return nil, notFoundOr(err, "payment not found")
	}
	if !actor.IsAdmin() && payment.ClientID != actor.UserID {
		return nil, response.NewForbidden("only the paying client or an admin can release funds")
	}
	if payment.Status != models.PaymentStatusReleaseScheduled && payment.Status != models.PaymentStatusReleaseFailed {
		return nil, response.NewConflict("only approved milestones can be released")
	}
	if err := s.releasePayment(ctx, &payment); err != nil {
		return nil, err
	}
	return &payment, nil
}

// ErrReleaseClaimed means another worker is already releasing the payment
var ErrReleaseClaimed = response.NewConflict("payment release is already in progress")

// releasePayment transfers the payout. The attempt counter doubles as an optimistic lock so that
// concurrent releases of one payment cannot both reach the gateway.
func (s *PaymentService) releasePayment(ctx context.Context, payment *models.Payment) error {
	res := s.db.Model(&models.Payment{}).
		Where("id = ? AND status IN ? AND release_attempts = ?", payment.ID, releasableStatuses, payment.ReleaseAttempts).
		UpdateColumn("release_attempts", gorm.Expr("release_attempts + 1"))
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrReleaseClaimed
	}
	payment.ReleaseAttempts++

	transferID := payment.GatewayTransferID
	if transferID == "" {
		var profile models.FreelancerProfile
		if err := s.db.Where(&models.FreelancerProfile{UserID: payment.FreelancerID}).First(&profile).Error; err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}
		if !profile.HasPayoutAccount() {
			reason := "freelancer has no payout account"
			s.markReleaseFailed(payment, reason)
			return response.NewConflict(reason)
		}

		transfer, err := s.gw.Transfer(ctx, payment.GatewayPaymentID, profile.PayoutAccountID,
			utils.ToMinorUnits(payment.PayoutAmount), payment.Currency)
		metrics.IncPayment("release", err)
		if err != nil {
			s.markReleaseFailed(payment, err.Error())
			return gatewayFailure("payout transfer failed", err)
		}
		transferID = transfer.ID
		// stored before the status commit so a retry never transfers twice
		if err := s.db.Model(&models.Payment{}).Where("id = ?", payment.ID).
			UpdateColumn("gateway_transfer_id", transferID).Error; err != nil {
			logger.Error().Err(err).Uint("payment_id", payment.ID).Str("transfer_id", transferID).Msg("[Payment] failed to record transfer")
		}
		payment.GatewayTransferID = transferID
	} else {
		logger.Info().Uint("payment_id", payment.ID).Str("transfer_id", transferID).Msg("[Payment] payout already transferred, finishing release")
	}

	now := time.Now().UTC()
	var completed *models.Project
	err := s.db.Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.Payment{}).
			Where("id = ? AND status IN ?", payment.ID, releasableStatuses).
			Updates(map[string]interface{}{
				"status":              models.PaymentStatusReleased,
				"gateway_transfer_id": transferID,
				"released_at":         now,
				"failure_reason":      "",
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrReleaseClaimed
		}

		var milestone models.Milestone
		if err := tx.First(&milestone, payment.MilestoneID).Error; err != nil {
			return err
		}
		if err := transitionMilestone(tx, &milestone, models.MilestoneStatusReleased, milestoneBySystem,
			map[string]interface{}{"released_at": now}); err != nil {
			return err
		}
		if err := tx.Model(&models.FreelancerProfile{}).Where("user_id = ?", payment.FreelancerID).
			UpdateColumn("total_earnings", gorm.Expr("total_earnings + ?", payment.PayoutAmount)).Error; err != nil {
			return err
		}
		var err error
		completed, err = autoCompleteProject(tx, payment.ProjectID)
		return err
	})
	if err != nil {
		// the transfer went through; leave a trail for manual reconciliation
		LogError("payment", "release_commit", fmt.Sprintf("transfer %s succeeded but commit failed: %v", transferID, err),
			nil, "", "", map[string]interface{}{"payment_id": payment.ID})
		return err
	}

	payment.Status = models.PaymentStatusReleased
	payment.ReleasedAt = &now
	payment.FailureReason = ""

	s.notifier.Notify(payment.FreelancerID, NotifyPaymentReleased, "Payment released",
		fmt.Sprintf("%.2f %s was transferred to your payout account.", payment.PayoutAmount, payment.Currency), paymentLink(payment))
	s.notifier.Notify(payment.ClientID, NotifyPaymentReleased, "Payment released",
		fmt.Sprintf("%.2f %s was released to the freelancer.", payment.Amount, payment.Currency), paymentLink(payment))
	if completed != nil {
		notifyProjectCompleted(s.notifier, completed)
	}
	events.Emit(ctx, events.PaymentReleased, paymentEventData(payment))
	return nil
}

func (s *PaymentService) markReleaseFailed(payment *models.Payment, reason string) {
	err := s.db.Model(&models.Payment{}).
		Where("id = ? AND status IN ?", payment.ID, releasableStatuses).
		Updates(map[string]interface{}{"status": models.PaymentStatusReleaseFailed, "failure_reason": reason}).Error
	if err != nil {
		logger.Error().Err(err).Uint("payment_id", payment.ID).Msg("[Payment] failed to record release failure")
	}
	payment.Status = models.PaymentStatusReleaseFailed
	payment.FailureReason = reason

	logger.Warn().Uint("payment_id", payment.ID).Int("attempt", payment.ReleaseAttempts).Str("reason", reason).Msg("[Payment] release failed")
	LogWarning("payment", "release_failed", reason, nil, "", "", map[string]interface{}{
		"payment_id": payment.ID,
		"attempts":   payment.ReleaseAttempts,
	})
	s.notifier.Notify(payment.FreelancerID, NotifyPaymentFailed, "Payout failed",
		"We could not transfer your payout: "+reason, paymentLink(payment))
}

// Refund returns held funds to the client. Clients may refund a funded milestone; admins any escrowed payment.
func (s *PaymentService) Refund(ctx context.Context, actor Actor, paymentID uint, reason string) (*models.Payment, error) {
	var payment models.Payment
	if err := s.db.First(&payment, paymentID).Error; err != nil {
		return nil, notFoundOr(err, "payment not found")
	}
	var milestone models.Milestone
	if err := s.db.First(&milestone, payment.MilestoneID).Error; err != nil {
		return nil, notFoundOr(err, "milestone not found")
	}

	if actor.IsAdmin() {
		if !payment.InEscrow() {
			return nil, response.NewConflict("only escrowed payments can be refunded")
		}
	} else {
		if payment.ClientID != actor.UserID {
			return nil, response.NewForbidden("only the paying client or an admin can refund")
		}
		if payment.Status != models.PaymentStatusHeld || milestone.Status != models.MilestoneStatusFunded {
			return nil, response.NewConflict("refunds are only possible before work starts")
		}
	}

	if payment.GatewayTransferID != "" {
		return nil, response.NewConflict("payout was already transferred to the freelancer")
	}

	reason = strings.TrimSpace(reason)
	if reason == "" {
		reason = "refunded"
	}
	refund, err := s.gw.Refund(ctx, payment.GatewayPaymentID, utils.ToMinorUnits(payment.Amount), map[string]string{"reason": reason})
	metrics.IncPayment("refund", err)
	if err != nil {
		return nil, gatewayFailure("refund failed", err)
	}

	if err := s.applyRefund(&payment, refund.ID, reason); err != nil {
		return nil, err
	}

	s.notifier.Notify(payment.FreelancerID, NotifyPaymentRefunded, "Milestone refunded",
		fmt.Sprintf("%.2f %s was refunded to the client.", payment.Amount, payment.Currency), paymentLink(&payment))
	s.notifier.Notify(payment.ClientID, NotifyPaymentRefunded, "Refund issued",
		fmt.Sprintf("%.2f %s is on its way back to you.", payment.Amount, payment.Currency), paymentLink(&payment))
	events.Emit(ctx, events.PaymentRefunded, paymentEventData(&payment))
	return &payment, nil
}

// applyRefund marks the payment refunded and cancels its milestone
func (s *PaymentService) applyRefund(payment *models.Payment, refundID, reason string) error {
	now := time.Now().UTC()
	err := s.db.Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.Payment{}).
			Where("id = ? AND status IN ?", payment.ID, escrowStatuses).
			Updates(map[string]interface{}{
				"status":            models.PaymentStatusRefunded,
				"gateway_refund_id": refundID,
				"refunded_at":       now,
				"failure_reason":    reason,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return response.NewConflict("payment is no longer in escrow")
		}

		// disputes resolved by an admin can cancel milestones the client could not
		if err := tx.Model(&models.Milestone{}).Where("id = ?", payment.MilestoneID).
			Update("status", models.MilestoneStatusCancelled).Error; err != nil {
			return err
		}
		return tx.Model(&models.ClientProfile{}).Where("user_id = ?", payment.ClientID).
			UpdateColumn("total_spent", gorm.Expr("total_spent - ?", payment.Amount)).Error
	})
	if err != nil {
		return err
	}
	payment.Status = models.PaymentStatusRefunded
	payment.GatewayRefundID = refundID
	payment.RefundedAt = &now
	payment.FailureReason = reason
	return nil
}

// WebhookResult reports what the webhook did with an event
type WebhookResult struct {
	Event   string `json:"event"`
	Handled bool   `json:"handled"`
}

// HandleWebhook verifies and applies a gateway event. Unknown events are acknowledged.
func (s *PaymentService) HandleWebhook(ctx context.Context, body []byte, signature string) (*WebhookResult, error) {
	if signature == "" || !s.gw.VerifyWebhookSignature(body, signature) {
		metrics.IncPayment("webhook", errors.New("bad signature"))
		return nil, response.NewBadRequest("invalid webhook signature")
	}
	if !gjson.ValidBytes(body) {
		return nil, response.NewBadRequest("invalid webhook payload")
	}

	event := gjson.GetBytes(body, "event").String()
	result := &WebhookResult{Event: event}

	var err error
	switch event {
	case "payment.captured":
		entity := gjson.GetBytes(body, "payload.payment.entity")
		result.Handled, err = s.webhookCaptured(ctx, entity.Get("order_id").String(), entity.Get("id").String())
	case "payment.failed":
		entity := gjson.GetBytes(body, "payload.payment.entity")
		result.Handled, err = s.webhookFailed(entity.Get("order_id").String(), entity.Get("id").String(),
			entity.Get("error_description").String())
	case "refund.processed":
		entity := gjson.GetBytes(body, "payload.refund.entity")
		result.Handled, err = s.webhookRefunded(ctx, entity.Get("payment_id").String(), entity.Get("id").String())
	case "transfer.processed":
		entity := gjson.GetBytes(body, "payload.transfer.entity")
		result.Handled, err = s.webhookTransferred(entity.Get("source").String(), entity.Get("id").String())
	default:
		logger.Debug().Str("event", event).Msg("[Payment] ignoring webhook event")
	}
	metrics.IncPayment("webhook", err)
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (s *PaymentService) webhookCaptured(ctx context.Context, orderID, paymentID string) (bool, error) {
	var payment models.Payment
	if err := s.db.Where("gateway_order_id = ?", orderID).First(&payment).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return false, nil
		}
		return false, err
	}
	if payment.Status != models.PaymentStatusCreated {
		return false, nil
	}
	if _, err := s.capture(ctx, &payment, paymentID); err != nil {
		var appErr *response.AppError
		if errors.As(err, &appErr) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func (s *PaymentService) webhookFailed(orderID, paymentID, reason string) (bool, error) {
	if reason == "" {
		reason = "payment failed at gateway"
	}
	res := s.db.Model(&models.Payment{}).
		Where("gateway_order_id = ? AND status = ?", orderID, models.PaymentStatusCreated).
		Updates(map[string]interface{}{
			"status":             models.PaymentStatusFailed,
			"gateway_payment_id": paymentID,
			"failure_reason":     reason,
		})
	return res.RowsAffected > 0, res.Error
}

func (s *PaymentService) webhookRefunded(ctx context.Context, paymentID, refundID string) (bool, error) {
	var payment models.Payment
	if err := s.db.Where("gateway_payment_id = ?", paymentID).First(&payment).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return false, nil
		}
		return false, err
	}
	if !payment.InEscrow() {
		return false, nil
	}
	if err := s.applyRefund(&payment, refundID, "refunded at gateway"); err != nil {
		var appErr *response.AppError
		if errors.As(err, &appErr) {
			return false, nil
		}
		return false, err
	}
	events.Emit(ctx, events.PaymentRefunded, paymentEventData(&payment))
	return true, nil
}

func (s *PaymentService) webhookTransferred(paymentID, transferID string) (bool, error) {
	res := s.db.Model(&models.Payment{}).
		Where("gateway_payment_id = ? AND status = ? AND (gateway_transfer_id = '' OR gateway_transfer_id IS NULL)",
			paymentID, models.PaymentStatusReleased).
		Update("gateway_transfer_id", transferID)
	return res.RowsAffected > 0, res.Error
}

type PayoutAccountRequest struct {
	AccountID string `json:"account_id" binding:"required,max=100"`
}

func (s *PaymentService) SetPayoutAccount(actor Actor, req *PayoutAccountRequest) error {
	if !actor.IsFreelancer() {
		return response.NewForbidden("only freelancers have payout accounts")
	}
	account := strings.TrimSpace(req.AccountID)
	if account == "" {
		return response.NewBadRequest("account_id is required")
	}
	res := s.db.Model(&models.FreelancerProfile{}).Where("user_id = ?", actor.UserID).Update("payout_account_id", account)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return response.NewNotFound("freelancer profile not found")
	}
	return nil
}

type PaymentListRequest struct {
	PageRequest
	Status    string `form:"status"`
	ProjectID uint   `form:"project_id"`
}

func (s *PaymentService) List(actor Actor, req *PaymentListRequest) (*PageResponse[models.Payment], error) {
	req.normalize(20)

	query := s.db.Model(&models.Payment{})
	switch {
	case actor.IsAdmin():
	case actor.IsFreelancer():
		query = query.Where("freelancer_id = ?", actor.UserID)
	default:
		query = query.Where("client_id = ?", actor.UserID)
	}
	if req.Status != "" {
		query = query.Where("status = ?", req.Status)
	}
	if req.ProjectID > 0 {
		query = query.Where("project_id = ?", req.ProjectID)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, err
	}
	var items []models.Payment
	if err := query.Preload("Milestone").Order("created_at DESC").Order("id DESC").
		Offset(req.offset()).Limit(req.PageSize).Find(&items).Error; err != nil {
		return nil, err
	}
	return newPage(req.PageRequest, total, items), nil
}

func (s *PaymentService) Get(actor Actor, id uint) (*models.Payment, error) {
	var payment models.Payment
	if err := s.db.Preload("Milestone").First(&payment, id).Error; err != nil {
		return nil, notFoundOr(err, "payment not found")
	}
	if !actor.IsAdmin() && payment.ClientID != actor.UserID && payment.FreelancerID != actor.UserID {
		return nil, response.NewNotFound("payment not found")
	}
	return &payment, nil
}

// SandboxCheckoutResult mimics what the gateway's widget hands back to the browser
type SandboxCheckoutResult struct {
	OrderID   string `json:"razorpay_order_id"`
	PaymentID string `json:"razorpay_payment_id"`
	Signature string `json:"razorpay_signature"`
}

// SimulateCheckout pays an order in sandbox mode so the flow can be driven without a real gateway
func (s *PaymentService) SimulateCheckout(actor Actor, orderID string) (*SandboxCheckoutResult, error) {
	sandbox, ok := s.gw.(*gateway.SandboxGateway)
	if !ok {
		return nil, response.NewNotFound("sandbox checkout is disabled")
	}
	var payment models.Payment
	if err := s.db.Where("gateway_order_id = ?", orderID).First(&payment).Error; err != nil {
		return nil, notFoundOr(err, "payment order not found")
	}
	if !actor.IsAdmin() && payment.ClientID != actor.UserID {
		return nil, response.NewNotFound("payment order not found")
	}
	paymentID, signature := sandbox.SimulateCheckout(orderID)
	return &SandboxCheckoutResult{OrderID: orderID, PaymentID: paymentID, Signature: signature}, nil
}
