// Package server wires the application together: it is the composition root
// that builds the store, services, and handlers, mounts the routes, and runs
// the HTTP server with graceful shutdown.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/studyweave/studyweave/internal/auth"
	"github.com/studyweave/studyweave/internal/config"
	"github.com/studyweave/studyweave/internal/handler"
	"github.com/studyweave/studyweave/internal/middleware"
	"github.com/studyweave/studyweave/internal/model"
	"github.com/studyweave/studyweave/internal/repository/gormstore"
	"github.com/studyweave/studyweave/internal/service"
)

// Server owns the router and the resources that must be released on
// shutdown. Handlers and services are wired once in New and live for the
// process lifetime.
type Server struct {
	router *chi.Mux
	cfg    config.Config
	logger *slog.Logger
	store  *gormstore.Store
}

// New opens the database, builds every service and handler, and mounts the
// routes. Each layer receives only what it needs: services get the store
// interface, handlers get services.
func New(cfg config.Config, logger *slog.Logger) (*Server, error) {
	store, err := gormstore.Open(cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &Server{
		router: chi.NewRouter(),
		cfg:    cfg,
		logger: logger,
		store:  store,
	}
	if err := s.setupRoutes(); err != nil {
		store.Close()
		return nil, fmt.Errorf("setting up routes: %w", err)
	}
	return s, nil
}

func (s *Server) setupRoutes() error {
	s.router.Use(chimiddleware.RequestID)
	s.router.Use(chimiddleware.RealIP)
	s.router.Use(chimiddleware.Recoverer)
	s.router.Use(middleware.Logger(s.logger))

	tokens, err := auth.NewTokenService(s.cfg.JWTSecret)
	if err != nil {
		return fmt.Errorf("creating token service: %w", err)
	}

	var github *auth.GitHubProvider
	if s.cfg.GitHubClientID != "" {
		github = auth.NewGitHubProvider(s.cfg.GitHubClientID, s.cfg.GitHubClientSecret, s.cfg.GitHubCallbackURL)
	}

	emailer := service.NewEmailer(s.cfg.SMTP, s.logger)

	authSvc := service.NewAuthService(s.store, tokens, emailer, s.logger)
	artifactSvc := service.NewArtifactService(s.store, s.cfg.UploadDir, s.logger)
	studySvc := service.NewStudyService(s.store, s.logger)
	competencySvc := service.NewCompetencyService(s.store, emailer, s.logger)
	assessmentSvc := service.NewAssessmentService(s.store, emailer, s.logger)
	comparisonSvc := service.NewComparisonService(s.store, s.logger)
	participantSvc := service.NewParticipantService(s.store)
	researcherSvc := service.NewResearcherService(s.store)

	authHandler := handler.NewAuthHandler(authSvc, github, s.logger)
	artifactHandler := handler.NewArtifactHandler(artifactSvc)
	studyHandler := handler.NewStudyHandler(studySvc, comparisonSvc)
	competencyHandler := handler.NewCompetencyHandler(competencySvc)
	assessmentHandler := handler.NewAssessmentHandler(assessmentSvc)
	participantHandler := handler.NewParticipantHandler(participantSvc)
	researcherHandler := handler.NewResearcherHandler(researcherSvc)
	reviewerHandler := handler.NewReviewerHandler(comparisonSvc)

	requireAuth := auth.RequireAuth(tokens)
	requireResearcher := auth.RequireRole(model.RoleResearcher)
	requireParticipant := auth.RequireRole(model.RoleParticipant, model.RoleGuest)

	s.router.Route("/api", func(r chi.Router) {
		r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusNoContent)
		})

		r.Route("/auth", func(r chi.Router) {
			r.Post("/register", authHandler.HandleRegister)
			r.Post("/login", authHandler.HandleLogin)
			r.Post("/guest", authHandler.HandleGuest)
			r.Post("/verify-email", authHandler.HandleVerifyEmail)
			r.Post("/request-reset", authHandler.HandleRequestReset)
			r.Post("/reset-password", authHandler.HandleResetPassword)
			r.Get("/github/login", authHandler.HandleGitHubLogin)
			r.Get("/github/callback", authHandler.HandleGitHubCallback)

			r.Group(func(r chi.Router) {
				r.Use(requireAuth)
				r.Get("/me", authHandler.HandleMe)
				r.Put("/me", authHandler.HandleUpdateMe)
			})
		})

		r.Route("/artifacts", func(r chi.Router) {
			r.Use(requireAuth)
			r.Get("/", artifactHandler.HandleList)
			r.Get("/{id}", artifactHandler.HandleGet)
			r.Get("/{id}/content", artifactHandler.HandleContent)

			r.Group(func(r chi.Router) {
				r.Use(requireResearcher)
				r.Post("/", artifactHandler.HandleUpload)
				r.Put("/{id}", artifactHandler.HandleReplace)
				r.Delete("/{id}", artifactHandler.HandleDelete)
				r.Put("/{id}/tags/{tagID}", artifactHandler.HandleTagArtifact)
				r.Delete("/{id}/tags/{tagID}", artifactHandler.HandleUntagArtifact)
			})
		})

		r.Route("/artifact-collections", func(r chi.Router) {
			r.Use(requireAuth, requireResearcher)
			r.Post("/", artifactHandler.HandleCreateCollection)
			r.Get("/", artifactHandler.HandleListCollections)
			r.Get("/{id}", artifactHandler.HandleGetCollection)
			r.Delete("/{id}", artifactHandler.HandleDeleteCollection)
		})

		r.Route("/tags", func(r chi.Router) {
			r.Use(requireAuth, requireResearcher)
			r.Post("/", artifactHandler.HandleCreateTag)
			r.Get("/", artifactHandler.HandleListTags)
			r.Delete("/{id}", artifactHandler.HandleDeleteTag)
		})

		r.Route("/studies", func(r chi.Router) {
			// Listing works anonymously too: signed-out callers see active
			// public studies only.
			r.With(auth.OptionalAuth(tokens)).Get("/", studyHandler.HandleList)

			r.Group(func(r chi.Router) {
				r.Use(requireAuth)
				r.Get("/{id}", studyHandler.HandleGet)
				r.Put("/{id}/checkpoint", studyHandler.HandleCheckpoint)
				r.Post("/{id}/comparisons", studyHandler.HandleSubmitComparison)

				r.Group(func(r chi.Router) {
					r.Use(requireResearcher)
					r.Post("/", studyHandler.HandleCreate)
					r.Put("/{id}", studyHandler.HandleUpdate)
					r.Delete("/{id}", studyHandler.HandleDelete)
					r.Post("/{id}/transition", studyHandler.HandleTransition)
					r.Post("/{id}/artifacts", studyHandler.HandleAddArtifact)
					r.Delete("/{id}/artifacts/{studyArtifactID}", studyHandler.HandleRemoveArtifact)
					r.Post("/{id}/participants", studyHandler.HandleInvite)
					r.Delete("/{id}/participants/{enrollmentID}", studyHandler.HandleRemoveParticipant)
				})
			})
		})

		r.Route("/competency", func(r chi.Router) {
			r.Use(requireAuth)

			r.Route("/assessments", func(r chi.Router) {
				r.Use(requireResearcher)
				r.Post("/", competencyHandler.HandleCreateAssessment)
				r.Get("/", competencyHandler.HandleListAssessments)
				r.Get("/{id}", competencyHandler.HandleGetAssessment)
				r.Delete("/{id}", competencyHandler.HandleDeleteAssessment)
				r.Post("/{id}/questions", competencyHandler.HandleAddQuestions)
				r.Delete("/{id}/questions/{questionID}", competencyHandler.HandleDeleteQuestion)
				r.Post("/{id}/questions/import", competencyHandler.HandleImportQuestions)
				r.Get("/{id}/report", competencyHandler.HandleReport)
			})

			r.Route("/assignments", func(r chi.Router) {
				r.Post("/{id}/start", competencyHandler.HandleStartAssignment)
				r.Post("/{id}/submit", competencyHandler.HandleSubmitAssignment)
				r.With(requireResearcher).Post("/{id}/review", competencyHandler.HandleReviewAssignment)
			})
		})

		r.Route("/artifact-assessments", func(r chi.Router) {
			r.Use(requireAuth)
			r.Post("/", assessmentHandler.HandleCreate)
			r.Get("/", assessmentHandler.HandleList)
			r.Get("/{id}", assessmentHandler.HandleGet)
			r.Put("/{id}", assessmentHandler.HandleUpdate)
			r.Post("/{id}/submit", assessmentHandler.HandleSubmit)
		})

		r.Route("/participant", func(r chi.Router) {
			r.Use(requireAuth, requireParticipant)
			r.Get("/assignments", participantHandler.HandleAssignments)
		})

		r.Route("/researcher", func(r chi.Router) {
			r.Use(requireAuth, requireResearcher)
			r.Get("/overview", researcherHandler.HandleOverview)
			r.Get("/participants/{studyID}", researcherHandler.HandleParticipants)
			r.Get("/notifications", researcherHandler.HandleNotifications)
			r.Get("/actions", researcherHandler.HandleActions)
		})

		r.Route("/reviewer", func(r chi.Router) {
			r.Use(requireAuth, requireResearcher)
			r.Get("/adjudications", reviewerHandler.HandleQueue)
			r.Put("/adjudications/{id}", reviewerHandler.HandleAdjudicate)
		})
	})

	return nil
}

// Start runs the HTTP server until SIGINT/SIGTERM, then drains in-flight
// requests for up to 30 seconds and closes the database.
func (s *Server) Start() error {
	defer s.store.Close()

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", s.cfg.Port),
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	serverErrors := make(chan error, 1)
	go func() {
		s.logger.Info("server starting", slog.Int("port", s.cfg.Port))
		serverErrors <- srv.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		if err != http.ErrServerClosed {
			return fmt.Errorf("server error: %w", err)
		}
	case sig := <-quit:
		s.logger.Info("shutdown signal received", slog.String("signal", sig.String()))

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := srv.Shutdown(ctx); err != nil {
			return fmt.Errorf("graceful shutdown failed: %w", err)
		}
		s.logger.Info("server stopped gracefully")
	}
	return nil
}
