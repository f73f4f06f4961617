package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/whomimohshukla/freelancehub/internal/metrics"
	"github.com/whomimohshukla/freelancehub/internal/models"
	"github.com/whomimohshukla/freelancehub/pkg/logger"
	"github.com/whomimohshukla/freelancehub/pkg/response"
	"gorm.io/gorm"
)

const (
	AlertKindError       = "error"
	AlertKindDailyReport = "daily_report"
)

// AlertService pushes ops messages to the configured IM bots
type AlertService struct {
	db *gorm.DB
}

func NewAlertService(db *gorm.DB) *AlertService {
	return &AlertService{db: db}
}

// RegisterAlertTaskHandler wires alert delivery into the task queue
func RegisterAlertTaskHandler(db *gorm.DB) {
	svc := NewAlertService(db)
	RegisterTaskHandler(TaskTypeAlert, func(ctx context.Context, payload []byte) error {
		var task AlertTask
		if err := json.Unmarshal(payload, &task); err != nil {
			return fmt.Errorf("decode alert task: %w", err)
		}
		return svc.Deliver(ctx, &task)
	})
}

// SendError queues an error alert for bots with error_notify on
func (s *AlertService) SendError(title, body string, fields ...AlertField) {
	s.enqueue(&AlertTask{
		Kind: AlertKindError,
		Message: AlertMessage{
			Title:  title,
			Level:  "error",
			Body:   body,
			Fields: fields,
		},
	})
}

// SendDailyReport queues the digest for bots with daily_report_enabled on
func (s *AlertService) SendDailyReport(msg AlertMessage) {
	s.enqueue(&AlertTask{Kind: AlertKindDailyReport, Message: msg})
}

func (s *AlertService) enqueue(task *AlertTask) {
	if err := GetTaskQueue().Enqueue(TaskTypeAlert, task); err != nil {
		logger.Errorf("[Alert] failed to enqueue %s alert: %v", task.Kind, err)
	}
}

// Deliver sends the alert to every matching bot; one failing bot does not stop the others
func (s *AlertService) Deliver(ctx context.Context, task *AlertTask) error {
	bots, err := s.botsFor(task.Kind)
	if err != nil {
		return err
	}
	if len(bots) == 0 {
		return nil
	}

	var errs []error
	for i := range bots {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		bot := &bots[i]
		sendErr := getAlertAdapter(bot.Type).Send(bot, &task.Message)
		metrics.IncNotification("im", sendErr)
		if sendErr != nil {
			logger.Warn().Err(sendErr).Str("bot", bot.Name).Str("type", bot.Type).Msg("[Alert] delivery failed")
			errs = append(errs, fmt.Errorf("%s: %w", bot.Name, sendErr))
		}
	}
	return errors.Join(errs...)
}

// SendTest pushes a test message to a single bot synchronously
func (s *AlertService) SendTest(botID uint) error {
	var bot models.IMBot
	if err := s.db.First(&bot, botID).Error; err != nil {
		return notFoundOr(err, "im bot not found")
	}
	err := getAlertAdapter(bot.Type).Send(&bot, &AlertMessage{
		Title: "FreelanceHub test alert",
		Level: "info",
		Body:  "If you can read this, the bot is configured correctly.",
	})
	if err != nil {
		return response.NewBadRequest("test message failed: " + err.Error())
	}
	return nil
}

func (s *AlertService) botsFor(kind string) ([]models.IMBot, error) {
	query := s.db.Where(&models.IMBot{IsActive: true})
	switch kind {
	case AlertKindDailyReport:
		query = query.Where(&models.IMBot{DailyReportEnabled: true})
	default:
		query = query.Where(&models.IMBot{ErrorNotify: true})
	}
	var bots []models.IMBot
	if err := query.Find(&bots).Error; err != nil {
		return nil, err
	}
	return bots, nil
}
