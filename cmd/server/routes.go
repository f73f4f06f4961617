package main

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/whomimohshukla/freelancehub/internal/handlers"
	"github.com/whomimohshukla/freelancehub/internal/middleware"
	"github.com/whomimohshukla/freelancehub/internal/services"
	"github.com/whomimohshukla/freelancehub/pkg/logger"
	"github.com/whomimohshukla/freelancehub/pkg/response"
)

// registerRoutes sets up all HTTP routes on the given Gin engine.
func registerRoutes(r *gin.Engine, svc *appServices) {
	// Middleware
	r.Use(logger.GinLogger(), logger.GinRecovery())
	r.RedirectTrailingSlash = false
	r.RedirectFixedPath = false
	r.Use(middleware.CORS(svc.cfg.Server.CORSOrigins))
	r.Use(middleware.Metrics())

	// Rate limiters: per address for unauthenticated entry points, per account behind auth
	authLimiter := middleware.NewRateLimiter(5, 10)
	webhookLimiter := middleware.NewRateLimiter(10, 20)
	userLimiter := middleware.NewKeyedRateLimiter(20, 60, middleware.ByUser)

	authHandler := handlers.NewAuthHandler(svc.auth)
	userHandler := handlers.NewUserHandler(svc.users, svc.auth)
	skillHandler := handlers.NewSkillHandler(svc.skills)
	projectHandler := handlers.NewProjectHandler(svc.projects)
	proposalHandler := handlers.NewProposalHandler(svc.proposals, svc.hiring)
	invitationHandler := handlers.NewInvitationHandler(svc.hiring)
	milestoneHandler := handlers.NewMilestoneHandler(svc.milestones)
	paymentHandler := handlers.NewPaymentHandler(svc.payments)
	reviewHandler := handlers.NewReviewHandler(svc.reviews)
	teamHandler := handlers.NewTeamHandler(svc.teams)
	messagingHandler := handlers.NewMessagingHandler(svc.messaging, svc.hub)
	uploadHandler := handlers.NewUploadHandler(svc.uploads)
	notificationHandler := handlers.NewNotificationHandler(svc.notification)
	sseHandler := handlers.NewSSEHandler(services.GetSSEHub())
	aiHandler := handlers.NewAIHandler(svc.matching, svc.assistant)
	dashboardHandler := handlers.NewDashboardHandler(svc.dashboard)

	// Health check and metrics
	healthHandler := handlers.NewHealthHandler(svc.db, svc.hub)
	r.GET("/health", healthHandler.CheckHealth)
	r.GET("/metrics", handlers.Metrics())

	// Realtime chat (token in query string, browsers cannot set headers on websockets)
	r.GET("/ws", middleware.QueryTokenAuth(), messagingHandler.ServeWS)

	// Uploaded files, unless a CDN in front of the upload dir serves them
	if strings.HasPrefix(svc.cfg.Storage.PublicBaseURL, "/") {
		r.Static(svc.cfg.Storage.PublicBaseURL, svc.cfg.Storage.UploadDir)
	}

	api := r.Group("/api/v1")
	{
		// Auth routes (public)
		auth := api.Group("/auth", authLimiter.Middleware())
		{
			auth.POST("/register", authHandler.Register)
			auth.POST("/login", authHandler.Login)
			auth.POST("/refresh", authHandler.Refresh)
			auth.GET("/config", authHandler.GetAuthConfig)
		}

		// Gateway callbacks (signature verified, rate limited)
		api.POST("/payments/webhook", webhookLimiter.Middleware(), paymentHandler.Webhook)

		// Public catalogue
		api.GET("/skills", skillHandler.List)
		api.GET("/skills/categories", skillHandler.Categories)
		api.GET("/users/freelancers", userHandler.ListFreelancers)
		api.GET("/users/:id", userHandler.GetProfile)
		api.GET("/users/:id/reviews", reviewHandler.ListForUser)

		// SSE Events (public route with internal token validation)
		api.GET("/events/notifications", middleware.QueryTokenAuth(), sseHandler.StreamNotifications)

		// Protected routes
		protected := api.Group("")
		protected.Use(middleware.AuthRequired(), userLimiter.Middleware())
		{
			// Auth
			protected.GET("/auth/me", authHandler.GetCurrentUser)
			protected.POST("/auth/logout", authHandler.Logout)
			protected.POST("/auth/change-password", authHandler.ChangePassword)

			// Profiles
			protected.PUT("/users/me", userHandler.UpdateMe)
			protected.GET("/users/me/freelancer-profile", middleware.RoleRequired(middleware.RoleFreelancer), userHandler.GetFreelancerProfile)
			protected.PUT("/users/me/freelancer-profile", middleware.RoleRequired(middleware.RoleFreelancer), userHandler.UpdateFreelancerProfile)
			protected.PUT("/users/me/skills", middleware.RoleRequired(middleware.RoleFreelancer), userHandler.SetSkills)
			protected.GET("/users/me/client-profile", middleware.RoleRequired(middleware.RoleClient), userHandler.GetClientProfile)
			protected.PUT("/users/me/client-profile", middleware.RoleRequired(middleware.RoleClient), userHandler.UpdateClientProfile)

			// Dashboard
			protected.GET("/dashboard", dashboardHandler.Get)

			// Projects
			clientOnly := middleware.RoleRequired(middleware.RoleClient)
			protected.GET("/projects", projectHandler.List)
			protected.GET("/projects/mine", projectHandler.ListMine)
			protected.GET("/projects/:id", projectHandler.GetByID)
			protected.POST("/projects", clientOnly, projectHandler.Create)
			protected.PUT("/projects/:id", clientOnly, projectHandler.Update)
			protected.POST("/projects/:id/publish", clientOnly, projectHandler.Publish)
			protected.POST("/projects/:id/cancel", projectHandler.Cancel)
			protected.POST("/projects/:id/complete", clientOnly, projectHandler.Complete)
			protected.DELETE("/projects/:id", projectHandler.Delete)

			// Proposals
			freelancerOnly := middleware.RoleRequired(middleware.RoleFreelancer)
			protected.POST("/projects/:id/proposals", freelancerOnly, proposalHandler.Submit)
			protected.GET("/projects/:id/proposals", proposalHandler.ListForProject)
			protected.GET("/proposals/mine", freelancerOnly, proposalHandler.ListMine)
			protected.GET("/proposals/:id", proposalHandler.GetByID)
			protected.PUT("/proposals/:id", freelancerOnly, proposalHandler.Update)
			protected.POST("/proposals/:id/withdraw", freelancerOnly, proposalHandler.Withdraw)
			protected.POST("/proposals/:id/shortlist", clientOnly, proposalHandler.Shortlist)
			protected.POST("/proposals/:id/reject", clientOnly, proposalHandler.Reject)
			protected.POST("/proposals/:id/accept", clientOnly, proposalHandler.Accept)

			// Invitations
			protected.POST("/projects/:id/invitations", clientOnly, invitationHandler.Invite)
			protected.GET("/invitations/sent", clientOnly, invitationHandler.ListSent)
			protected.GET("/invitations/received", freelancerOnly, invitationHandler.ListReceived)
			protected.POST("/invitations/:id/accept", freelancerOnly, invitationHandler.Accept)
			protected.POST("/invitations/:id/decline", freelancerOnly, invitationHandler.Decline)
			protected.POST("/invitations/:id/cancel", clientOnly, invitationHandler.Cancel)

			// Milestones
			protected.POST("/projects/:id/milestones", clientOnly, milestoneHandler.Create)
			protected.GET("/projects/:id/milestones", milestoneHandler.List)
			protected.GET("/milestones/:id", milestoneHandler.GetByID)
			protected.PUT("/milestones/:id", clientOnly, milestoneHandler.Update)
			protected.DELETE("/milestones/:id", clientOnly, milestoneHandler.Delete)
			protected.POST("/milestones/:id/start", freelancerOnly, milestoneHandler.Start)
			protected.POST("/milestones/:id/submit", freelancerOnly, milestoneHandler.Submit)
			protected.POST("/milestones/:id/request-revision", clientOnly, milestoneHandler.RequestRevision)
			protected.POST("/milestones/:id/approve", clientOnly, milestoneHandler.Approve)
			protected.POST("/milestones/:id/cancel", milestoneHandler.Cancel)

			// Payments
			protected.GET("/payments", paymentHandler.List)
			protected.GET("/payments/:id", paymentHandler.GetByID)
			protected.POST("/payments/orders", clientOnly, paymentHandler.CreateOrder)
			protected.POST("/payments/verify", clientOnly, paymentHandler.Verify)
			protected.POST("/payments/sandbox/checkout", clientOnly, paymentHandler.SandboxCheckout)
			protected.POST("/payments/:id/release", middleware.RoleRequired(middleware.RoleClient, middleware.RoleAdmin), paymentHandler.Release)
			protected.POST("/payments/:id/refund", middleware.RoleRequired(middleware.RoleClient, middleware.RoleAdmin), paymentHandler.Refund)
			protected.PUT("/payments/payout-account", freelancerOnly, paymentHandler.SetPayoutAccount)

			// Reviews
			protected.POST("/projects/:id/reviews", reviewHandler.Create)
			protected.GET("/projects/:id/reviews", reviewHandler.ListForProject)
			protected.PUT("/reviews/:id", reviewHandler.Update)

			// Teams
			protected.GET("/teams", teamHandler.List)
			protected.GET("/teams/:id", teamHandler.GetByID)
			protected.POST("/teams", freelancerOnly, teamHandler.Create)
			protected.PUT("/teams/:id", teamHandler.Update)
			protected.DELETE("/teams/:id", teamHandler.Delete)
			protected.POST("/teams/:id/members", teamHandler.AddMember)
			protected.PUT("/teams/:id/members/:user_id", teamHandler.ChangeRole)
			protected.DELETE("/teams/:id/members/:user_id", teamHandler.RemoveMember)
			protected.POST("/teams/:id/leave", teamHandler.Leave)

			// Messaging
			protected.POST("/conversations", messagingHandler.StartConversation)
			protected.GET("/conversations", messagingHandler.ListConversations)
			protected.GET("/conversations/unread", messagingHandler.UnreadTotal)
			protected.GET("/conversations/:id/messages", messagingHandler.ListMessages)
			protected.POST("/conversations/:id/messages", messagingHandler.SendMessage)
			protected.POST("/conversations/:id/read", messagingHandler.MarkRead)

			// Uploads
			protected.POST("/uploads", uploadHandler.Upload)
			protected.GET("/uploads/:id", uploadHandler.GetByID)
			protected.DELETE("/uploads/:id", uploadHandler.Delete)

			// Notifications
			protected.GET("/notifications", notificationHandler.List)
			protected.GET("/notifications/unread-count", notificationHandler.UnreadCount)
			protected.POST("/notifications/:id/read", notificationHandler.MarkRead)
			protected.POST("/notifications/read-all", notificationHandler.MarkAllRead)

			// AI matching and assistant
			protected.GET("/ai/projects/:id/matches", clientOnly, aiHandler.Matches)
			protected.GET("/ai/recommendations", freelancerOnly, aiHandler.Recommendations)
			protected.POST("/ai/pricing", aiHandler.Pricing)
			protected.GET("/ai/profile-analysis", freelancerOnly, aiHandler.ProfileAnalysis)
			protected.POST("/ai/proposals/draft", freelancerOnly, aiHandler.DraftProposal)
			protected.POST("/ai/projects/description", clientOnly, aiHandler.DescribeProject)
		}

		// Admin only routes
		admin := api.Group("/admin")
		admin.Use(middleware.AuthRequired(), middleware.AdminRequired(), middleware.AuditLog())
		{
			// Users
			admin.GET("/users", userHandler.List)
			admin.PUT("/users/:id", userHandler.Update)
			admin.DELETE("/users/:id", userHandler.Delete)

			// Skills
			admin.POST("/skills", skillHandler.Create)
			admin.PUT("/skills/:id", skillHandler.Update)
			admin.DELETE("/skills/:id", skillHandler.Delete)

			// Reviews moderation
			admin.DELETE("/reviews/:id", reviewHandler.Delete)

			// Escrow
			escrowHandler := handlers.NewEscrowHandler(svc.escrow)
			admin.POST("/escrow/sweep", escrowHandler.Sweep)

			// LLM Configs
			llmConfigHandler := handlers.NewLLMConfigHandler(svc.llmConfigs)
			admin.GET("/llm-configs", llmConfigHandler.List)
			admin.GET("/llm-configs/active", llmConfigHandler.GetActive)
			admin.GET("/llm-configs/:id", llmConfigHandler.GetByID)
			admin.POST("/llm-configs", llmConfigHandler.Create)
			admin.PUT("/llm-configs/:id", llmConfigHandler.Update)
			admin.DELETE("/llm-configs/:id", llmConfigHandler.Delete)

			// AI usage
			aiUsageHandler := handlers.NewAIUsageHandler(svc.aiUsage)
			admin.GET("/ai-usage/stats", aiUsageHandler.GetStats)
			admin.GET("/ai-usage/trend", aiUsageHandler.GetDailyTrend)
			admin.GET("/ai-usage/breakdown", aiUsageHandler.GetBreakdown)

			// Prompts
			promptHandler := handlers.NewPromptHandler(svc.prompts)
			admin.GET("/prompts", promptHandler.List)
			admin.GET("/prompts/default", promptHandler.GetDefault)
			admin.GET("/prompts/:id", promptHandler.GetByID)
			admin.POST("/prompts", promptHandler.Create)
			admin.PUT("/prompts/:id", promptHandler.Update)
			admin.DELETE("/prompts/:id", promptHandler.Delete)
			admin.POST("/prompts/:id/set-default", promptHandler.SetDefault)

			// IM Bots
			imBotHandler := handlers.NewIMBotHandler(svc.imBots, svc.alerts)
			admin.GET("/im-bots", imBotHandler.List)
			admin.GET("/im-bots/active", imBotHandler.GetAllActive)
			admin.GET("/im-bots/:id", imBotHandler.GetByID)
			admin.POST("/im-bots", imBotHandler.Create)
			admin.PUT("/im-bots/:id", imBotHandler.Update)
			admin.DELETE("/im-bots/:id", imBotHandler.Delete)
			admin.POST("/im-bots/:id/test", imBotHandler.Test)

			// System Config
			systemConfigHandler := handlers.NewSystemConfigHandler(svc.systemConfig, svc.payments, svc.dailyReport)
			admin.GET("/system-config", systemConfigHandler.List)
			admin.PUT("/system-config", systemConfigHandler.Update)
			admin.GET("/system-config/escrow", systemConfigHandler.GetEscrowSettings)
			admin.PUT("/system-config/escrow", systemConfigHandler.UpdateEscrowSettings)
			admin.GET("/system-config/ldap", systemConfigHandler.GetLDAPConfig)
			admin.PUT("/system-config/ldap", systemConfigHandler.UpdateLDAPConfig)
			admin.GET("/system-config/daily-report", systemConfigHandler.GetDailyReportConfig)
			admin.PUT("/system-config/daily-report", systemConfigHandler.UpdateDailyReportConfig)

			// System Logs
			systemLogHandler := handlers.NewSystemLogHandler(svc.systemLogs)
			admin.GET("/system-logs", systemLogHandler.List)
			admin.GET("/system-logs/modules", systemLogHandler.GetModules)
			admin.GET("/system-logs/retention", systemLogHandler.GetRetentionDays)
			admin.PUT("/system-logs/retention", systemLogHandler.SetRetentionDays)
			admin.POST("/system-logs/cleanup", systemLogHandler.Cleanup)

			// Daily Reports
			dailyReportHandler := handlers.NewDailyReportHandler(svc.dailyReport)
			admin.GET("/daily-reports", dailyReportHandler.List)
			admin.GET("/daily-reports/:id", dailyReportHandler.Get)
			admin.POST("/daily-reports/generate", dailyReportHandler.Generate)
			admin.POST("/daily-reports/:id/resend", dailyReportHandler.Resend)
		}
	}

	r.NoRoute(noRoute(svc.cfg.Server.StaticDir))
}

// noRoute answers unknown API paths with the JSON envelope. Other paths go to the built
// frontend in staticDir when there is one, falling back to index.html for client-side routes.
func noRoute(staticDir string) gin.HandlerFunc {
	index := ""
	if staticDir != "" {
		index = filepath.Join(staticDir, "index.html")
		if _, err := os.Stat(index); err != nil {
			logger.Warnf("Static dir %s has no index.html, frontend disabled", staticDir)
			index = ""
		}
	}

	return func(c *gin.Context) {
		path := c.Request.URL.Path
		if index == "" || strings.HasPrefix(path, "/api/") {
			response.NotFound(c, "route not found")
			return
		}

		file := filepath.Join(staticDir, filepath.Clean("/"+path))
		if info, err := os.Stat(file); err == nil && !info.IsDir() {
			c.File(file)
			return
		}
		c.File(index)
	}
}
