/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

// Package server wires the maintenance engine together behind one HTTP
// server: database, cache, event bus, services, API routes and the
// periodic sweep.
package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/friendsincode/hearthwarden/internal/api"
	"github.com/friendsincode/hearthwarden/internal/audit"
	"github.com/friendsincode/hearthwarden/internal/cache"
	"github.com/friendsincode/hearthwarden/internal/config"
	"github.com/friendsincode/hearthwarden/internal/db"
	"github.com/friendsincode/hearthwarden/internal/directory"
	"github.com/friendsincode/hearthwarden/internal/events"
	"github.com/friendsincode/hearthwarden/internal/logbuffer"
	"github.com/friendsincode/hearthwarden/internal/maintenance"
	"github.com/friendsincode/hearthwarden/internal/notifications"
	"github.com/friendsincode/hearthwarden/internal/telemetry"
	"github.com/friendsincode/hearthwarden/internal/version"
)

// Server bundles HTTP and supporting services.
type Server struct {
	cfg        *config.Config
	logger     zerolog.Logger
	router     chi.Router
	httpServer *http.Server
	closers    []func() error

	db        *gorm.DB
	cache     *cache.Cache
	logBuffer *logbuffer.Buffer
	bus       *events.Bus
	api       *api.API

	dir             *directory.Service
	auditSvc        *audit.Service
	notificationSvc *notifications.Service
	maintenanceSvc  *maintenance.Service
	workItems       *maintenance.WorkItemFactory
	sweeper         *maintenance.Sweeper
	updateChecker   *version.Checker

	bgCancel context.CancelFunc
	bgWG     sync.WaitGroup
}

// New constructs the server and wires dependencies.
func New(cfg *config.Config, logBuf *logbuffer.Buffer, logger zerolog.Logger) (*Server, error) {
	router := chi.NewRouter()

	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(middleware.Logger)
	router.Use(middleware.Recoverer)
	router.Use(securityHeadersMiddleware)
	router.Use(telemetry.TracingMiddleware("hearthwarden-api"))
	router.Use(telemetry.MetricsMiddleware)
	router.Use(middleware.Timeout(60 * time.Second))

	srv := &Server{
		cfg:       cfg,
		logger:    logger,
		router:    router,
		bus:       events.NewBus(),
		logBuffer: logBuf,
	}

	if err := srv.initDependencies(); err != nil {
		return nil, err
	}

	srv.configureRoutes()
	srv.startBackgroundWorkers()

	addr := fmt.Sprintf("%s:%d", cfg.HTTPBind, cfg.HTTPPort)
	srv.httpServer = &http.Server{
		Addr:              addr,
		Handler:           srv.router,
		ReadHeaderTimeout: 15 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	return srv, nil
}

func securityHeadersMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")
		w.Header().Set("X-Frame-Options", "DENY")

		// Only advertise HSTS for requests served over HTTPS.
		if r.TLS != nil || r.Header.Get("X-Forwarded-Proto") == "https" {
			w.Header().Set("Strict-Transport-Security", "max-age=31536000; includeSubDomains")
		}

		next.ServeHTTP(w, r)
	})
}

func (s *Server) initDependencies() error {
	database, err := db.Connect(s.cfg)
	if err != nil {
		return err
	}
	if err := db.Migrate(database); err != nil {
		return err
	}
	s.db = database
	s.DeferClose(func() error { return db.Close(database) })

	if s.cfg.CacheEnabled {
		cacheCfg := cache.DefaultConfig()
		cacheCfg.RedisAddr = s.cfg.RedisAddr
		cacheCfg.RedisPassword = s.cfg.RedisPassword
		cacheCfg.RedisDB = s.cfg.RedisDB
		entityCache, err := cache.New(cacheCfg, s.logger)
		if err != nil {
			s.logger.Warn().Err(err).Msg("cache initialization failed, continuing without cache")
		} else {
			s.cache = entityCache
			s.DeferClose(func() error { return s.cache.Close() })
		}
	}

	s.dir = directory.New(s.db, s.cache, s.bus, s.logger)
	s.auditSvc = audit.NewService(s.db, s.bus, s.logger)
	s.notificationSvc = notifications.NewService(s.db, s.bus, notifications.ConfigFromEnv(), s.logger)

	slots := maintenance.NewSlotAllocator(s.db)
	s.workItems = maintenance.NewWorkItemFactory(s.db, slots, s.dir, s.auditSvc, s.notificationSvc, s.bus, s.logger)
	targets := maintenance.NewTargetResolver(s.dir, s.logger)
	s.maintenanceSvc = maintenance.NewService(s.db, targets, s.workItems, s.auditSvc, s.bus, s.logger)
	s.sweeper = maintenance.NewSweeper(s.maintenanceSvc, s.cfg.SweepCron, s.cfg.SweepOnStart, s.logger)
	s.updateChecker = version.NewChecker(s.logger)

	s.api = api.New(
		s.db,
		[]byte(s.cfg.JWTSigningKey),
		s.maintenanceSvc,
		s.workItems,
		s.dir,
		s.notificationSvc,
		s.auditSvc,
		s.logBuffer,
		s.bus,
		s.logger,
	)

	return nil
}

func (s *Server) configureRoutes() {
	s.router.Handle("/metrics", telemetry.Handler())
	s.router.Get("/version", s.handleVersion)
	s.api.Routes(s.router)
}

func (s *Server) handleVersion(w http.ResponseWriter, r *http.Request) {
	info := s.updateChecker.Info()
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(map[string]any{
		"version":          info.CurrentVersion,
		"latest":           info.LatestVersion,
		"update_available": info.UpdateAvailable,
	}); err != nil {
		s.logger.Debug().Err(err).Msg("failed to encode version response")
	}
}

func (s *Server) startBackgroundWorkers() {
	ctx, cancel := context.WithCancel(context.Background())
	s.bgCancel = cancel

	s.bgWG.Add(1)
	go func() {
		defer s.bgWG.Done()
		s.auditSvc.Start(ctx)
	}()

	s.bgWG.Add(1)
	go func() {
		defer s.bgWG.Done()
		s.notificationSvc.Start(ctx)
	}()

	if s.cache != nil {
		s.bgWG.Add(1)
		go func() {
			defer s.bgWG.Done()
			s.dir.Start(ctx)
		}()
	}

	if s.cfg.UpdateCheckEnabled {
		s.updateChecker.Start(ctx)
		s.DeferClose(func() error {
			s.updateChecker.Stop()
			return nil
		})
	}

	if err := s.sweeper.Start(ctx); err != nil {
		s.logger.Error().Err(err).Str("spec", s.cfg.SweepCron).Msg("failed to start sweeper")
	} else {
		s.DeferClose(func() error {
			s.sweeper.Stop()
			return nil
		})
	}
}

func (s *Server) stopBackgroundWorkers() {
	if s.bgCancel == nil {
		return
	}
	s.bgCancel()
	s.bgWG.Wait()
	s.bgCancel = nil
}

// HTTPServer exposes the underlying net/http server.
func (s *Server) HTTPServer() *http.Server {
	return s.httpServer
}

// LogBuffer returns the server's log buffer for attaching to zerolog.
func (s *Server) LogBuffer() *logbuffer.Buffer {
	return s.logBuffer
}

// Maintenance exposes the schedule lifecycle service.
func (s *Server) Maintenance() *maintenance.Service {
	return s.maintenanceSvc
}

// Close releases owned resources in reverse order.
func (s *Server) Close() error {
	s.stopBackgroundWorkers()
	var firstErr error
	for i := len(s.closers) - 1; i >= 0; i-- {
		if err := s.closers[i](); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// DeferClose registers a cleanup hook.
func (s *Server) DeferClose(fn func() error) {
	s.closers = append(s.closers, fn)
}
