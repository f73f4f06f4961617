package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/whomimohshukla/freelancehub/internal/config"
	"github.com/whomimohshukla/freelancehub/internal/metrics"
	"github.com/whomimohshukla/freelancehub/internal/models"
	"github.com/whomimohshukla/freelancehub/pkg/logger"
	"gorm.io/gorm"
)

const (
	escrowSweepLock    = "escrow_sweep"
	escrowSweepLockTTL = 30 * time.Minute
	escrowSweepBatch   = 200
)

// SweepResult summarises one escrow sweep
type SweepResult struct {
	Released int       `json:"released"`
	Failed   int       `json:"failed"`
	Skipped  int       `json:"skipped"`
	Locked   bool      `json:"locked"` // another instance was sweeping
	Started  time.Time `json:"started"`
	Duration string    `json:"duration"`
}

// EscrowService releases approved milestones whose holding period is over
type EscrowService struct {
	db       *gorm.DB
	payments *PaymentService
	alerts   *AlertService
	cfg      *config.EscrowConfig

	mu      sync.Mutex
	cron    *cron.Cron
	entryID cron.EntryID
}

func NewEscrowService(db *gorm.DB, payments *PaymentService, alerts *AlertService, cfg *config.EscrowConfig) *EscrowService {
	return &EscrowService{db: db, payments: payments, alerts: alerts, cfg: cfg}
}

func (s *EscrowService) maxAttempts() int {
	if s.cfg == nil || s.cfg.MaxReleaseAttempts <= 0 {
		return 3
	}
	return s.cfg.MaxReleaseAttempts
}

// Due returns payments the sweep would release at now
func (s *EscrowService) Due(now time.Time) ([]models.Payment, error) {
	var payments []models.Payment
	err := s.db.Where("(status = ? AND release_at <= ?) OR (status = ? AND release_attempts < ?)",
		models.PaymentStatusReleaseScheduled, now,
		models.PaymentStatusReleaseFailed, s.maxAttempts()).
		Order("release_at ASC").Order("id ASC").
		Limit(escrowSweepBatch).
		Find(&payments).Error
	return payments, err
}

// Sweep releases every due payment one by one. A failing payment does not stop the others.
func (s *EscrowService) Sweep(ctx context.Context) (*SweepResult, error) {
	started := time.Now().UTC()
	result := &SweepResult{Started: started}

	key := started.Format("2006-01-02")
	ok, err := TryAcquireLock(s.db, escrowSweepLock, key, escrowSweepLockTTL)
	if err != nil {
		return nil, fmt.Errorf("acquire sweep lock: %w", err)
	}
	if !ok {
		logger.Infof("[Escrow] sweep %s is running on another instance", key)
		result.Locked = true
		return result, nil
	}
	defer func() {
		if err := ReleaseLock(s.db, escrowSweepLock, key); err != nil {
			logger.Warn().Err(err).Msg("[Escrow] failed to release sweep lock")
		}
	}()

	due, err := s.Due(started)
	if err != nil {
		return nil, err
	}

	var failures []AlertField
	for i := range due {
		if ctx.Err() != nil {
			break
		}
		payment := &due[i]
		err := s.payments.releasePayment(ctx, payment)
		switch {
		case err == nil:
			result.Released++
			metrics.EscrowSweepReleases.WithLabelValues("released").Inc()
		case errors.Is(err, ErrReleaseClaimed):
			result.Skipped++
			metrics.EscrowSweepReleases.WithLabelValues("skipped").Inc()
		default:
			result.Failed++
			metrics.EscrowSweepReleases.WithLabelValues("failed").Inc()
			failures = append(failures, AlertField{
				Label: fmt.Sprintf("Payment #%d", payment.ID),
				Value: fmt.Sprintf("attempt %d: %v", payment.ReleaseAttempts, err),
			})
		}
	}

	elapsed := time.Since(started)
	metrics.EscrowSweepDuration.Observe(elapsed.Seconds())
	result.Duration = elapsed.Round(time.Millisecond).String()

	logger.Infof("[Escrow] sweep done: released=%d failed=%d skipped=%d in %s",
		result.Released, result.Failed, result.Skipped, result.Duration)
	LogInfo("escrow", "sweep", fmt.Sprintf("released %d, failed %d, skipped %d", result.Released, result.Failed, result.Skipped),
		nil, "", "", result)

	if len(failures) > 0 && s.alerts != nil {
		s.alerts.SendError(fmt.Sprintf("Escrow sweep: %d release(s) failed", len(failures)),
			"Some payouts could not be transferred and will be retried on the next sweep.", failures...)
	}
	return result, ctx.Err()
}

// StartScheduler runs the sweep on the configured cron expression
func (s *EscrowService) StartScheduler() error {
	spec := "0 2 * * *"
	if s.cfg != nil && s.cfg.SweepCron != "" {
		spec = s.cfg.SweepCron
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cron != nil {
		return nil
	}
	c := cron.New()
	id, err := c.AddFunc(spec, func() {
		if _, err := s.Sweep(context.Background()); err != nil {
			logger.Errorf("[Escrow] sweep failed: %v", err)
		}
	})
	if err != nil {
		return fmt.Errorf("invalid sweep cron %q: %w", spec, err)
	}
	c.Start()
	s.cron = c
	s.entryID = id
	logger.Infof("[Escrow] sweep scheduled (cron: %s)", spec)
	return nil
}

// StopScheduler waits for a running sweep to finish
func (s *EscrowService) StopScheduler() {
	s.mu.Lock()
	c := s.cron
	s.cron = nil
	s.mu.Unlock()
	if c != nil {
		<-c.Stop().Done()
	}
}
