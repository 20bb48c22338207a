package server

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/hoa-ledger/apiserver/config"
	"github.com/hoa-ledger/apiserver/internal/auth"
	"github.com/hoa-ledger/apiserver/internal/db"
	"github.com/hoa-ledger/apiserver/internal/jobs"
	"github.com/hoa-ledger/apiserver/internal/metrics"
	"github.com/hoa-ledger/apiserver/internal/mq"
	"github.com/hoa-ledger/apiserver/internal/services"
	"github.com/hoa-ledger/apiserver/internal/storage"
	"github.com/hoa-ledger/apiserver/internal/store"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Server wraps the HTTP server and the resources it owns.
type Server struct {
	httpServer *http.Server
	db         *sql.DB
	backend    mq.Backend
	publisher  *mq.Publisher
	scheduler  *jobs.ChargeScheduler
	logger     zerolog.Logger
}

// OpenRepositories returns the Postgres repositories on conn.
func OpenRepositories(conn *sql.DB) Repositories {
	return Repositories{
		Users:        store.NewUserRepository(conn),
		Houses:       store.NewHouseRepository(conn),
		Neighbors:    store.NewNeighborRepository(conn),
		Neighborhood: store.NewNeighborhoodRepository(conn),
		Ledger:       store.NewLedgerRepository(conn),
	}
}

// New connects the database and the optional event and receipt backends and
// builds the HTTP server.
func New(ctx context.Context, cfg config.Config) (*Server, error) {
	if cfg.Auth.JWTSecret == "" {
		return nil, errors.New("JWT_SECRET is required")
	}

	dbConn, err := db.Open(ctx, cfg)
	if err != nil {
		return nil, err
	}

	s := &Server{db: dbConn, logger: log.Logger}

	s.backend, err = mq.Open(ctx, cfg)
	if err != nil {
		s.close()
		return nil, fmt.Errorf("open mq: %w", err)
	}
	var events services.EventPublisher
	if s.backend != nil {
		s.publisher = mq.NewPublisher(s.backend, cfg.MQ.Channel)
		events = s.publisher
	}

	objects, err := storage.Open(ctx, cfg)
	if err != nil {
		s.close()
		return nil, fmt.Errorf("open storage: %w", err)
	}
	var receipts services.ReceiptStore
	if objects != nil {
		receipts = storage.NewReceipts(objects)
	}

	m := metrics.New()
	tokens := auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL)
	svc := NewServices(OpenRepositories(dbConn), tokens, events, receipts, m.ChargesGenerated)

	if cfg.Charges.Cron != "" {
		s.scheduler, err = jobs.NewChargeScheduler(cfg.Charges.Cron, svc.Ledger)
		if err != nil {
			s.close()
			return nil, err
		}
	}

	router := NewRouter(svc, tokens, RouterOptions{
		Logger:      s.logger,
		Metrics:     m,
		DB:          dbConn,
		CORSOrigins: cfg.HTTP.CORSOrigins,
	})

	port := cfg.ServerPort
	if port == 0 {
		port = 4000
	}

	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf(":%d", port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 75 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	return s, nil
}

// Start runs the charge scheduler, if configured, and the HTTP server. It
// returns http.ErrServerClosed after Shutdown.
func (s *Server) Start() error {
	if s.scheduler != nil {
		s.scheduler.Start()
	}
	s.logger.Info().Str("addr", s.httpServer.Addr).Msg("http server listening")
	return s.httpServer.ListenAndServe()
}

// Shutdown drains in-flight requests, then releases every resource.
func (s *Server) Shutdown(ctx context.Context) error {
	err := s.httpServer.Shutdown(ctx)
	if s.scheduler != nil {
		s.scheduler.Stop(ctx)
	}
	s.close()
	return err
}

func (s *Server) close() {
	s.publisher.Close()
	if s.backend != nil {
		if err := s.backend.Close(); err != nil {
			s.logger.Warn().Err(err).Msg("close mq backend")
		}
	}
	if s.db != nil {
		_ = s.db.Close()
	}
}
