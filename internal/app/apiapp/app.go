package apiapp

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/minio/minio-go/v7"
	goredis "github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/skillbridge/backend/internal/config"
	"github.com/skillbridge/backend/internal/domain/rules"
	s3infra "github.com/skillbridge/backend/internal/infra/s3"
	"github.com/skillbridge/backend/internal/infra/telegram"
	pgrepo "github.com/skillbridge/backend/internal/repo/postgres"
	redrepo "github.com/skillbridge/backend/internal/repo/redis"
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
)

type App struct {
	cfg        config.Config
	logger     *zap.Logger
	server     *http.Server
	postgres   *pgxpool.Pool
	redis      *goredis.Client
	s3         *minio.Client
	disputes   *disputesvc.Service
	httpRouter http.Handler
}

func New(ctx context.Context, cfg config.Config, log *zap.Logger) (*App, error) {
	if log == nil {
		return nil, fmt.Errorf("logger is nil")
	}

	r := chi.NewRouter()
	ApplyMiddlewares(r, log)

	var pool *pgxpool.Pool
	if p, err := pgrepo.NewPool(ctx, cfg.Postgres.DSN); err != nil {
		log.Warn("postgres init failed, continuing in degraded mode", zap.Error(err))
	} else {
		pool = p
	}

	var redisClient *goredis.Client
	if c, err := redrepo.NewClient(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB); err != nil {
		log.Warn("redis init failed, continuing in degraded mode", zap.Error(err))
	} else {
		redisClient = c
	}

	sessionRepo := redrepo.NewSessionRepo(redisClient)
	rateRepo := redrepo.NewRateRepo(redisClient)
	userRepo := pgrepo.NewUserRepo(pool)
	mentorshipRepo := pgrepo.NewMentorshipRepo(pool)
	flagRepo := pgrepo.NewFlagRepo(pool)
	contentRepo := pgrepo.NewContentRepo(pool)
	disputeRepo := pgrepo.NewDisputeRepo(pool)
	notificationRepo := pgrepo.NewNotificationRepo(pool)
	moderatorRepo := pgrepo.NewModeratorRepo(pool)
	moderatorSessionRepo := pgrepo.NewModeratorSessionRepo(pool)

	var s3Client *minio.Client
	if c, err := s3infra.NewClient(s3infra.Config{
		Endpoint:  cfg.S3.Endpoint,
		AccessKey: cfg.S3.AccessKey,
		SecretKey: cfg.S3.SecretKey,
		UseSSL:    cfg.S3.UseSSL,
	}); err != nil {
		log.Warn("s3 init failed, continuing in degraded mode", zap.Error(err))
	} else {
		s3Client = c
	}
	evidenceStore := s3infra.NewEvidenceStore(s3Client, cfg.S3.Bucket)

	var alertBot *telegram.Bot
	if cfg.Moderation.TelegramToken != "" {
		if b, err := telegram.NewBot(cfg.Moderation.TelegramToken); err != nil {
			log.Warn("telegram bot init failed, moderator alerts disabled", zap.Error(err))
		} else {
			alertBot = b
		}
	}

	userService := userssvc.NewService(userRepo)
	jwtManager := authsvc.NewJWTManager(cfg.Auth.JWTSecret, cfg.Auth.JWTAccessTTL)
	authService := authsvc.NewService(jwtManager, sessionRepo, userService, cfg.Auth.RefreshTTL)
	adminAuthService := adminauthsvc.NewService(cfg.Auth.JWTSecret, cfg.Moderation.DashboardIdleLogout, moderatorRepo, moderatorSessionRepo)

	notificationService := notifysvc.NewService(notificationRepo, log)

	matchingService := matchingsvc.NewService(matchingsvc.Dependencies{
		Mentors:     userRepo,
		Mentorships: mentorshipRepo,
		Weights: rules.Weights{
			Skill:      cfg.Matching.SkillWeight,
			Focus:      cfg.Matching.FocusWeight,
			Experience: cfg.Matching.ExperienceWeight,
			Rating:     cfg.Matching.RatingWeight,
		},
		MaxResults: cfg.Matching.MaxResults,
	})

	mentorshipService := mentorshipsvc.NewService(mentorshipsvc.Dependencies{
		Pool:        pool,
		Mentorships: mentorshipRepo,
		Mentors:     userRepo,
		Notifier:    notificationService,
	})

	sessionService := sessionsvc.NewService(sessionsvc.Dependencies{
		Pool:     pool,
		Store:    mentorshipRepo,
		Notifier: notificationService,
	})

	rateLimiter := ratesvc.NewLimiter(rateRepo, cfg.Moderation.FlagMaxPerHour)

	moderationService := modsvc.NewService(modsvc.Dependencies{
		Pool:     pool,
		Flags:    flagRepo,
		Content:  contentRepo,
		Users:    userRepo,
		Limiter:  rateLimiter,
		Notifier: notificationService,
		Alerter:  alertBot,
		Evidence: evidenceStore,
		Config: modsvc.Config{
			SuspensionDuration: cfg.Moderation.SuspensionDuration,
			EvidenceURLTTL:     cfg.Moderation.EvidenceURLTTL,
			ModeratorChatID:    cfg.Moderation.ModeratorChatID,
		},
	})

	disputeService := disputesvc.NewService(disputesvc.Dependencies{
		Pool:           pool,
		Store:          disputeRepo,
		Notifier:       notificationService,
		Admins:         userRepo,
		Evidence:       evidenceStore,
		EvidenceURLTTL: cfg.Moderation.EvidenceURLTTL,
	})

	RegisterRoutes(r, Dependencies{
		AuthService:         authService,
		AdminAuthService:    adminAuthService,
		UserService:         userService,
		MatchingService:     matchingService,
		MentorshipService:   mentorshipService,
		SessionService:      sessionService,
		ModerationService:   moderationService,
		DisputeService:      disputeService,
		NotificationService: notificationService,
		RateLimiter:         rateLimiter,
		Logger:              log,
		Config:              cfg,
	})

	server := &http.Server{
		Addr:         cfg.HTTP.Addr,
		Handler:      r,
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
		IdleTimeout:  cfg.HTTP.IdleTimeout,
	}

	return &App{
		cfg:        cfg,
		logger:     log,
		server:     server,
		postgres:   pool,
		redis:      redisClient,
		s3:         s3Client,
		disputes:   disputeService,
		httpRouter: r,
	}, nil
}

func (a *App) Run() error {
	a.logger.Info("api server started", zap.String("addr", a.cfg.HTTP.Addr))
	err := a.server.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

func (a *App) Shutdown(ctx context.Context) error {
	var shutdownErr error

	if err := a.server.Shutdown(ctx); err != nil {
		shutdownErr = err
	}
	if a.postgres != nil {
		a.postgres.Close()
	}
	if a.redis != nil {
		if err := a.redis.Close(); err != nil && shutdownErr == nil {
			shutdownErr = err
		}
	}

	return shutdownErr
}

func (a *App) Handler() http.Handler {
	return a.httpRouter
}

// DisputeService exposes the dispute service for the deadline sweeper.
func (a *App) DisputeService() *disputesvc.Service {
	return a.disputes
}
