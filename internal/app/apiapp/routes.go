package apiapp

import (
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/skillbridge/backend/internal/config"
	adminauthsvc "github.com/skillbridge/backend/internal/services/adminauth"
	authsvc "github.com/skillbridge/backend/internal/services/auth"
	disputesvc "github.com/skillbridge/backend/internal/services/disputes"
	matchingsvc "github.com/skillbridge/backend/internal/services/matching"
	mentorshipsvc "github.com/skillbridge/backend/internal/services/mentorships"
	modsvc "github.com/skillbridge/backend/internal/services/moderation"
	notifysvc "github.com/skillbridge/backend/internal/services/notifications"
	ratesvc "github.com/skillbridge/backend/internal/services/rate"
	sessionsvc "github.com/skillbridge/backend/internal/services/sessions"
	userssvc "github.com/skillbridge/backend/internal/services/users"
	"github.com/skillbridge/backend/internal/transport/http/handlers"
)

type Dependencies struct {
	AuthService         *authsvc.Service
	AdminAuthService    *adminauthsvc.Service
	UserService         *userssvc.Service
	MatchingService     *matchingsvc.Service
	MentorshipService   *mentorshipsvc.Service
	SessionService      *sessionsvc.Service
	ModerationService   *modsvc.Service
	DisputeService      *disputesvc.Service
	NotificationService *notifysvc.Service
	RateLimiter         *ratesvc.Limiter
	Logger              *zap.Logger
	Config              config.Config
}

func RegisterRoutes(r chi.Router, deps Dependencies) {
	healthHandler := handlers.NewHealthHandler()
	authHandler := handlers.NewAuthHandler(deps.AuthService)
	meHandler := handlers.NewMeHandler(deps.UserService)
	matchingHandler := handlers.NewMatchingHandler(deps.MatchingService)
	mentorshipHandler := handlers.NewMentorshipHandler(deps.MentorshipService)
	sessionHandler := handlers.NewSessionHandler(deps.SessionService)
	flagHandler := handlers.NewFlagHandler(deps.ModerationService, deps.RateLimiter)
	disputeHandler := handlers.NewDisputeHandler(deps.DisputeService)
	notificationHandler := handlers.NewNotificationHandler(deps.NotificationService)
	modDashHandler := handlers.NewModDashHandler(deps.AdminAuthService)

	authMW := AuthMiddleware(deps.AuthService, deps.Logger)
	moderatorMW := ModeratorAuthMiddleware(deps.AdminAuthService, deps.Logger)

	r.Get("/healthz", healthHandler.Get)

	r.Route("/v1/auth", func(r chi.Router) {
		r.Post("/login", authHandler.Login)
		r.Post("/refresh", authHandler.Refresh)
		r.With(authMW).Post("/logout", authHandler.Logout)
		r.With(authMW).Post("/logout_all", authHandler.LogoutAll)
	})

	r.Route("/v1", func(r chi.Router) {
		r.With(authMW).Get("/me", meHandler.Handle)
		r.With(authMW).Get("/mentors/{id}", meHandler.Mentor)

		r.With(authMW, RequireRole("freelancer", "admin")).Post("/matching/find", matchingHandler.Find)

		r.Route("/mentorships", func(r chi.Router) {
			r.Use(authMW)
			r.Post("/", mentorshipHandler.Request)
			r.Get("/", mentorshipHandler.List)
			r.Get("/pending", mentorshipHandler.ListPending)
			r.Get("/{id}", mentorshipHandler.Get)
			r.Post("/{id}/accept", mentorshipHandler.Accept)
			r.Post("/{id}/decline", mentorshipHandler.Decline)
			r.Post("/{id}/complete", mentorshipHandler.Complete)
		})

		r.Route("/sessions", func(r chi.Router) {
			r.Use(authMW)
			r.Post("/", sessionHandler.Schedule)
			r.Get("/upcoming", sessionHandler.Upcoming)
			r.Get("/history", sessionHandler.History)
			r.Post("/{id}/status", sessionHandler.UpdateStatus)
			r.Post("/{id}/feedback", sessionHandler.Feedback)
		})

		r.With(authMW).Post("/flags", flagHandler.Create)

		r.Route("/disputes", func(r chi.Router) {
			r.Use(authMW)
			r.Post("/", disputeHandler.Create)
			r.Get("/", disputeHandler.List)
			r.Get("/{id}", disputeHandler.Get)
			r.Post("/{id}/messages", disputeHandler.AddMessage)
			r.Post("/{id}/evidence", disputeHandler.AddEvidence)
			r.Get("/{id}/evidence/url", disputeHandler.EvidenceURL)
		})

		r.Route("/notifications", func(r chi.Router) {
			r.Use(authMW)
			r.Get("/", notificationHandler.List)
			r.Get("/unread_count", notificationHandler.UnreadCount)
			r.Post("/{id}/read", notificationHandler.MarkRead)
		})
	})

	r.Route("/moddash", func(r chi.Router) {
		r.Post("/login", modDashHandler.Login)

		r.Group(func(r chi.Router) {
			r.Use(moderatorMW)
			r.Post("/totp/enroll", modDashHandler.EnrollTOTP)
			r.Post("/totp/verify", modDashHandler.VerifyTOTP)
			r.Post("/logout", modDashHandler.Logout)

			r.Get("/flags", flagHandler.Queue)
			r.Get("/flags/stats", flagHandler.Stats)
			r.Get("/flags/evidence/url", flagHandler.EvidenceURL)
			r.Get("/flags/{id}", flagHandler.Get)
			r.Post("/flags/{id}/assign", flagHandler.Assign)
			r.Post("/flags/{id}/escalate", flagHandler.Escalate)
			r.Post("/flags/{id}/resolve", flagHandler.Resolve)
			r.Post("/flags/{id}/dismiss", flagHandler.Dismiss)
			r.Post("/flags/{id}/evidence", flagHandler.AddEvidence)

			r.Get("/disputes/stats", disputeHandler.Stats)
			r.Post("/disputes/{id}/review", disputeHandler.StartReview)
			r.Post("/disputes/{id}/mediator", disputeHandler.AssignMediator)
			r.Post("/disputes/{id}/resolve", disputeHandler.Resolve)
			r.Post("/disputes/{id}/close", disputeHandler.Close)
		})
	})
}
