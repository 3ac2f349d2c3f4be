package server

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/veristat/apiserver/config"
	"github.com/veristat/apiserver/internal/auth"
	"github.com/veristat/apiserver/internal/db"
	"github.com/veristat/apiserver/internal/handlers"
	"github.com/veristat/apiserver/internal/model"
	"github.com/veristat/apiserver/internal/mq"
	"github.com/veristat/apiserver/internal/services"
	"github.com/veristat/apiserver/internal/storage"
	"github.com/veristat/apiserver/internal/store"
)

// Server wraps the HTTP server and router.
type Server struct {
	httpServer *http.Server
	router     *chi.Mux
	db         *sql.DB
	events     *mq.MQ
}

// New constructs a Server with all dependencies wired. It fails when the
// database is unreachable, the JWT secret is missing, or any model artifact
// cannot be loaded; the process must not serve traffic in those states.
func New(ctx context.Context, cfg config.Config) (*Server, error) {
	dbConn, err := db.Open(ctx, cfg)
	if err != nil {
		return nil, err
	}

	if strings.TrimSpace(cfg.JWT.Secret) == "" {
		_ = dbConn.Close()
		return nil, errors.New("JWT_SECRET is required")
	}

	artifactSource, err := newArtifactSource(ctx, cfg)
	if err != nil {
		_ = dbConn.Close()
		return nil, err
	}
	artifacts, err := model.Load(ctx, artifactSource, cfg.Artifacts.Prefix)
	if err != nil {
		_ = dbConn.Close()
		return nil, fmt.Errorf("load model artifacts: %w", err)
	}
	if artifacts.Version != "" {
		log.Printf("loaded model artifacts version %s", artifacts.Version)
	}

	userRepo := store.NewUserRepository(dbConn)
	sessionRepo := store.NewSessionRepository(dbConn)
	predictionRepo := store.NewPredictionRepository(dbConn)

	userService := services.NewUserService(userRepo)
	sessionService := services.NewSessionService(sessionRepo)

	extractor := model.NewExtractor(artifacts.SpeakerEncoder, artifacts.Vectorizer)
	predictionService := services.NewPredictionService(extractor, artifacts.Classifier, predictionRepo)

	events, err := newEventPublisher(ctx, cfg)
	if err != nil {
		_ = dbConn.Close()
		return nil, err
	}
	if events != nil {
		predictionService.WithEvents(events, cfg.Events.Channel)
	}

	tokens := auth.NewTokenService(cfg.JWT.Secret, cfg.JWT.TokenTTL)
	guard := auth.NewGuard(tokens, userRepo, sessionRepo)
	requireUser := handlers.RequireUser(guard)
	requireAdmin := handlers.RequireAdmin(guard)

	authHandler := handlers.NewAuthHandler(userService, sessionService, tokens)
	predictHandler := handlers.NewPredictHandler(predictionService)

	router := chi.NewRouter()
	router.Use(
		middleware.RequestID,
		middleware.RealIP,
		middleware.Recoverer,
		middleware.Logger,
		middleware.Timeout(60*time.Second),
	)
	router.Get("/healthz", handlers.Healthz)
	router.Route("/auth", func(r chi.Router) {
		handlers.AuthRouter(r, authHandler, requireUser)
	})
	router.Group(func(r chi.Router) {
		handlers.PredictRouter(r, predictHandler, requireUser)
	})
	router.Route("/admin", func(r chi.Router) {
		handlers.AdminRouter(r, predictHandler, requireUser, requireAdmin)
	})

	port := cfg.ServerPort
	if port == 0 {
		port = 8080
	}

	httpServer := &http.Server{
		Addr:         fmt.Sprintf(":%d", port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return &Server{
		httpServer: httpServer,
		router:     router,
		db:         dbConn,
		events:     events,
	}, nil
}

// newArtifactSource picks the artifact backend from config.
func newArtifactSource(ctx context.Context, cfg config.Config) (model.Source, error) {
	switch cfg.Artifacts.Backend {
	case "", "local":
		return model.DirSource{Dir: cfg.Artifacts.LocalDir}, nil
	case "minio":
		client, err := storage.NewMinioClient(cfg.Minio)
		if err != nil {
			return nil, err
		}
		return storage.NewStorage(client), nil
	case "gcs":
		client, err := storage.NewGCSClient(ctx, cfg.GCS)
		if err != nil {
			return nil, err
		}
		return storage.NewStorage(client), nil
	default:
		return nil, fmt.Errorf("unknown artifacts backend %q", cfg.Artifacts.Backend)
	}
}

// newEventPublisher picks the audit event broker from config; nil with no
// error means publishing is disabled.
func newEventPublisher(ctx context.Context, cfg config.Config) (*mq.MQ, error) {
	switch cfg.Events.Backend {
	case "":
		return nil, nil
	case "rabbitmq":
		client, err := mq.NewRabbitMQClient(cfg.RabbitMQ)
		if err != nil {
			return nil, err
		}
		return mq.New(client), nil
	case "pubsub":
		client, err := mq.NewPubSubClient(ctx, cfg.PubSub)
		if err != nil {
			return nil, err
		}
		return mq.New(client), nil
	default:
		return nil, fmt.Errorf("unknown events backend %q", cfg.Events.Backend)
	}
}

// Router exposes the chi router for route registration.
func (s *Server) Router() *chi.Mux {
	return s.router
}

// Start runs the HTTP server.
func (s *Server) Start() error {
	return s.httpServer.ListenAndServe()
}

// Shutdown attempts a graceful shutdown.
func (s *Server) Shutdown() error {
	if s.events != nil {
		_ = s.events.Close()
	}
	if s.db != nil {
		_ = s.db.Close()
	}
	return s.httpServer.Close()
}
