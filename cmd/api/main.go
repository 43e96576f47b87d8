package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"

	"github.com/inspecthq/fieldreport/internal/audit"
	"github.com/inspecthq/fieldreport/internal/http/handlers"
	"github.com/inspecthq/fieldreport/internal/platform/mailer"
	"github.com/inspecthq/fieldreport/internal/platform/oauthx"
	"github.com/inspecthq/fieldreport/internal/platform/render"
	"github.com/inspecthq/fieldreport/internal/platform/transcribe"
	"github.com/inspecthq/fieldreport/internal/repo/filestore"
	"github.com/inspecthq/fieldreport/internal/service"
	"github.com/inspecthq/fieldreport/internal/storage"
	"github.com/inspecthq/fieldreport/internal/throttle"
	"github.com/inspecthq/fieldreport/pkg/config"
	"github.com/inspecthq/fieldreport/pkg/logger"
	mw "github.com/inspecthq/fieldreport/pkg/middleware"
)

func main() {
	cfg := config.Load()

	paths := storage.NewPaths(cfg.Storage.Dir)
	if err := os.MkdirAll(paths.Root, 0o755); err != nil {
		logger.Error("Failed to create storage directory", "dir", paths.Root, "error", err)
		os.Exit(1)
	}
	locks := storage.NewKeyLock()

	// Repositories
	userRepo := filestore.NewUserRepository(paths)
	sessionRepo := filestore.NewSessionRepository(paths)
	reportRepo := filestore.NewReportRepository(paths, locks)
	contactRepo := filestore.NewContactRepository(paths, locks)
	locationRepo := filestore.NewLocationRepository(paths, locks, cfg.Report.RecentLocations)
	statsRepo := filestore.NewStatsRepository(paths, locks)

	// Audit trail: always to the per-user log file, optionally to NATS too
	sinks := []audit.Sink{audit.NewFileSink(paths)}
	if cfg.Audit.NATSURL != "" {
		natsSink, err := audit.NewNATSSink(cfg.Audit.NATSURL, cfg.Audit.NATSSubject)
		if err != nil {
			logger.Error("Failed to connect audit NATS sink", "url", cfg.Audit.NATSURL, "error", err)
			os.Exit(1)
		}
		defer natsSink.Close()
		sinks = append(sinks, natsSink)
	}
	auditSink := audit.NewMultiSink(sinks...)

	// Services
	authService := service.NewAuthService(
		userRepo,
		buildMailer(cfg),
		throttle.NewLimiter(cfg.Throttle.RateWindow, cfg.Throttle.RateMax),
		throttle.NewLockout(cfg.Throttle.LockoutWindow, cfg.Throttle.LockoutMax, cfg.Throttle.LockoutDuration),
		auditSink,
		cfg.Auth.JWTSecret,
		cfg.Auth.AccessTokenTTL,
		cfg.Auth.VerificationTTL,
	)
	reportService := service.NewReportService(
		sessionRepo, reportRepo, userRepo, contactRepo, locationRepo, statsRepo,
		buildRenderer(cfg),
		auditSink,
		locks,
		paths,
		cfg.Report.OnStartConflict,
		cfg.Report.MaxPhotos,
	)

	h := handlers.New(
		authService,
		reportService,
		contactRepo,
		transcribe.NewDevTranscriber(),
		oauthx.NewDevExchanger(),
		paths,
		cfg,
	)

	// Setup router
	r := chi.NewRouter()

	r.Use(mw.RequestID)
	r.Use(mw.Logging)
	r.Use(mw.Recover)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   corsOrigins(cfg),
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		ExposedHeaders:   []string{"Retry-After", "X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Use(mw.Health)

	r.Route("/v1", func(r chi.Router) {
		r.Route("/auth", func(r chi.Router) {
			r.Post("/register", h.Register)
			r.Post("/login", h.Login)
			r.Post("/email/request-code", h.RequestEmailCode)
			r.Post("/email/verify", h.VerifyEmailCode)
		})

		r.Group(func(r chi.Router) {
			r.Use(h.RequireJWT)

			r.Get("/me", h.Me)
			r.Patch("/me", h.UpdateMe)

			r.Route("/reports", func(r chi.Router) {
				r.Get("/", h.ListReports)

				r.Route("/session", func(r chi.Router) {
					r.Post("/", h.StartReport)
					r.Get("/", h.GetSession)
					r.Delete("/", h.CancelSession)
					r.Post("/items", h.AddItem)
					r.Patch("/items/{id}", h.UpdateItem)
					r.Post("/photos", h.AddPhoto)
					r.Put("/contacts", h.SetSessionContacts)
					r.Post("/finalize", h.FinalizeReport)
				})

				r.Get("/{id}", h.GetReport)
				r.Patch("/{id}", h.OrganizeReport)
				r.Delete("/{id}", h.DeleteReport)
				r.Post("/{id}/resume", h.ResumeReport)
			})

			r.Route("/contacts", func(r chi.Router) {
				r.Get("/", h.ListContacts)
				r.Post("/", h.AddContact)
				r.Put("/", h.SaveContacts)
			})

			r.Get("/locations", h.ListLocations)
			r.Get("/stats", h.GetStats)
			r.Get("/templates", h.ListTemplates)

			r.Post("/transcribe", h.Transcribe)
			r.Post("/oauth/exchange", h.OAuthExchange)
		})
	})

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	// Graceful shutdown
	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		<-sigChan

		logger.Info("Shutting down...")

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			logger.Error("Server shutdown error", "error", err)
		}
	}()

	logger.Info("Starting server", "port", cfg.Server.Port, "storage", paths.Root)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error("Server error", "error", err)
		os.Exit(1)
	}
}

// buildMailer picks the delivery channel: dev mode logs codes, MailerSend
// when an API key is present, otherwise plain SMTP.
func buildMailer(cfg *config.Config) mailer.Service {
	if cfg.Email.DevMode {
		return mailer.NewDevMailer()
	}
	if cfg.Email.MailerSendKey != "" {
		m, err := mailer.NewMailerSendMailer(cfg.Email.MailerSendKey, cfg.Email.FromName, cfg.Email.SMTPFrom)
		if err != nil {
			logger.Error("Failed to initialize MailerSend", "error", err)
			os.Exit(1)
		}
		return m
	}
	return mailer.NewSMTPMailer(
		cfg.Email.SMTPHost,
		cfg.Email.SMTPPort,
		cfg.Email.SMTPFrom,
		cfg.Email.SMTPUser,
		cfg.Email.SMTPPass,
		cfg.Email.SMTPUseTLS,
	)
}

func buildRenderer(cfg *config.Config) render.Renderer {
	if cfg.Report.Format == "docx" {
		return render.NewDocxRenderer(cfg.Report.PandocPath)
	}
	return render.NewHTMLRenderer()
}

func corsOrigins(cfg *config.Config) []string {
	if cfg.Server.CORSOrigins == "" {
		return []string{"*"}
	}
	origins := strings.Split(cfg.Server.CORSOrigins, ",")
	for i := range origins {
		origins[i] = strings.TrimSpace(origins[i])
	}
	return origins
}
