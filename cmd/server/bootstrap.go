package main

import (
	"context"
	"time"

	"github.com/whomimohshukla/freelancehub/internal/config"
	"github.com/whomimohshukla/freelancehub/internal/handlers"
	"github.com/whomimohshukla/freelancehub/internal/models"
	"github.com/whomimohshukla/freelancehub/internal/services"
	"github.com/whomimohshukla/freelancehub/internal/services/chat"
	"github.com/whomimohshukla/freelancehub/internal/services/events"
	"github.com/whomimohshukla/freelancehub/internal/services/gateway"
	"github.com/whomimohshukla/freelancehub/internal/utils"
	"github.com/whomimohshukla/freelancehub/pkg/logger"
	"gorm.io/gorm"
)

// appServices holds all initialized services needed by the routes and the shutdown path.
type appServices struct {
	cfg *config.Config
	db  *gorm.DB

	auth         *services.AuthService
	users        *services.UserService
	skills       *services.SkillService
	projects     *services.ProjectService
	proposals    *services.ProposalService
	hiring       *services.HiringService
	milestones   *services.MilestoneService
	payments     *services.PaymentService
	escrow       *services.EscrowService
	reviews      *services.ReviewService
	teams        *services.TeamService
	messaging    *services.MessagingService
	uploads      *services.UploadService
	notification *services.NotificationService
	alerts       *services.AlertService
	matching     *services.MatchingService
	assistant    *services.AssistantService
	aiUsage      *services.AIUsageService
	dashboard    *services.DashboardService
	dailyReport  *services.DailyReportService
	llmConfigs   *services.LLMConfigService
	prompts      *services.PromptService
	imBots       *services.IMBotService
	systemConfig *services.SystemConfigService
	systemLogs   *services.SystemLogService

	hub       *chat.Hub
	publisher events.Publisher
	taskQueue services.TaskQueue
	worker    *services.Worker
	relay     *chat.RedisRelay

	// cancels the log cleanup loop and the chat relay subscription
	cancel context.CancelFunc
}

// bootstrap initializes all application dependencies: database, services, schedulers.
func bootstrap(cfg *config.Config) *appServices {
	utils.SetJWTSecret(cfg.JWT.Secret)

	// Initialize database
	if err := models.InitDB(&cfg.Database); err != nil {
		logger.Fatalf("Failed to connect to database: %v", err)
	}

	// Auto migrate database
	if err := models.AutoMigrate(); err != nil {
		logger.Fatalf("Failed to migrate database: %v", err)
	}

	// Seed default data
	if err := models.SeedDefaultData(); err != nil {
		logger.Warn().Err(err).Msg("Failed to seed default data")
	}
	db := models.GetDB()

	ctx, cancel := context.WithCancel(context.Background())

	// Initialize system logger
	services.InitSystemLogger(db)

	// Start system log cleanup scheduler
	services.StartLogCleanupScheduler(ctx, db)

	// Background tasks run through Redis when enabled, inline otherwise
	services.RegisterEmailTaskHandler(&cfg.SMTP)
	services.RegisterAlertTaskHandler(db)
	taskQueue := services.InitTaskQueue(cfg)

	var worker *services.Worker
	if cfg.Redis.Enabled {
		worker = services.InitWorker(&cfg.Redis)
		if worker != nil {
			if err := worker.Start(); err != nil {
				logger.Warn().Err(err).Msg("Failed to start async worker")
			}
		}
	}

	publisher := events.Init(&cfg.AMQP)

	hub := chat.Init(chat.Options{
		MaxMessageBytes: cfg.Chat.MaxMessageBytes,
		PingInterval:    time.Duration(cfg.Chat.PingIntervalSeconds) * time.Second,
	})
	var relay *chat.RedisRelay
	if cfg.Redis.Enabled {
		r, err := chat.NewRedisRelay(&cfg.Redis)
		if err != nil {
			logger.Warn().Err(err).Msg("[Chat] Redis relay unavailable, delivering to local clients only")
		} else if err := hub.AttachRelay(ctx, r); err != nil {
			logger.Warn().Err(err).Msg("[Chat] Failed to subscribe to relay")
			_ = r.Close()
		} else {
			relay = r
		}
	}

	email := services.NewEmailService(&cfg.SMTP)
	notification := services.NewNotificationService(db, email)
	alerts := services.NewAlertService(db)
	payments := services.NewPaymentService(db, gateway.New(cfg), cfg, notification, alerts)
	ai := services.NewAIService(db, &cfg.OpenAI)

	svc := &appServices{
		cfg:          cfg,
		db:           db,
		auth:         services.NewAuthService(db, &cfg.JWT, &cfg.LDAP),
		users:        services.NewUserService(db),
		skills:       services.NewSkillService(db),
		projects:     services.NewProjectService(db, notification),
		proposals:    services.NewProposalService(db, notification),
		hiring:       services.NewHiringService(db, notification),
		milestones:   services.NewMilestoneService(db, notification, payments),
		payments:     payments,
		escrow:       services.NewEscrowService(db, payments, alerts, &cfg.Escrow),
		reviews:      services.NewReviewService(db, notification),
		teams:        services.NewTeamService(db, notification),
		messaging:    services.NewMessagingService(db, notification, hub, cfg.Chat.MaxMessageBytes),
		uploads:      services.NewUploadService(db, &cfg.Storage),
		notification: notification,
		alerts:       alerts,
		matching:     services.NewMatchingService(db),
		assistant:    services.NewAssistantService(db, ai),
		aiUsage:      services.NewAIUsageService(db),
		dashboard:    services.NewDashboardService(db),
		dailyReport:  services.NewDailyReportService(db, ai, alerts),
		llmConfigs:   services.NewLLMConfigService(db),
		prompts:      services.NewPromptService(db),
		imBots:       services.NewIMBotService(db),
		systemConfig: services.NewSystemConfigService(db),
		systemLogs:   services.NewSystemLogService(db),
		hub:          hub,
		publisher:    publisher,
		taskQueue:    taskQueue,
		worker:       worker,
		relay:        relay,
		cancel:       cancel,
	}
	hub.SetHandler(svc.messaging)

	if cfg.UsesSandboxGateway() {
		logger.Warn().Msg("[Payment] Sandbox gateway active, no real money moves")
	}

	// Schedulers
	if err := svc.escrow.StartScheduler(); err != nil {
		logger.Fatalf("Failed to start escrow scheduler: %v", err)
	}
	svc.dailyReport.StartScheduler()

	// Create default admin user
	if err := svc.auth.CreateAdminIfNotExists(); err != nil {
		logger.Warn().Err(err).Msg("Failed to create admin user")
	}

	handlers.RegisterGauges(db)

	return svc
}

// shutdown gracefully stops all services.
func (s *appServices) shutdown() {
	s.escrow.StopScheduler()
	s.dailyReport.StopScheduler()
	s.cancel()
	logger.Info().Msg("All schedulers stopped")

	s.hub.Close()
	if s.relay != nil {
		_ = s.relay.Close()
	}

	if s.worker != nil {
		s.worker.Stop()
	}
	if s.taskQueue != nil {
		_ = s.taskQueue.Close()
	}
	if err := s.publisher.Close(); err != nil {
		logger.Warn().Err(err).Msg("[Events] Failed to close publisher")
	}

	if sqlDB, err := s.db.DB(); err == nil {
		_ = sqlDB.Close()
	}
}
