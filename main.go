package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"
	"golang.org/x/crypto/acme/autocert"

	"github.com/padraicbc/inscricoes/config"
	"github.com/padraicbc/inscricoes/db"
	"github.com/padraicbc/inscricoes/handlers"
	applog "github.com/padraicbc/inscricoes/logger"
	mw "github.com/padraicbc/inscricoes/middleware"
	"github.com/padraicbc/inscricoes/router"
	"github.com/padraicbc/inscricoes/store"
)

func main() {
	cfg := config.Load()
	logger, err := applog.New(cfg.Debug)
	if err != nil {
		panic(err)
	}
	defer func() { _ = logger.Sync() }()
	zap.ReplaceGlobals(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	bdb, err := db.Setup(ctx, cfg)
	if err != nil {
		logger.Fatal("database unavailable", zap.Error(err))
	}
	defer bdb.Close()

	if err := db.CreateTables(ctx, bdb); err != nil {
		logger.Fatal("create tables failed", zap.Error(err))
	}

	sessions := mw.Sessions{Key: cfg.JWTKey(), Cookie: cfg.SessionCookie}
	h := handlers.New(store.New(bdb), logger, handlers.Options{
		Sessions:      sessions,
		SessionTTL:    cfg.SessionTTL,
		SecureCookies: !cfg.Debug,
	})

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	e := router.New(router.Config{
		Handler:   h,
		Logger:    logger,
		Sessions:  sessions,
		AdminRole: cfg.AdminRole,
		LoginPath: cfg.LoginPath,
		Registry:  reg,
	})

	var s *http.Server
	if cfg.Debug {
		s = &http.Server{Addr: cfg.Port, Handler: e}
		go func() {
			logger.Info("starting server", zap.String("mode", "debug"), zap.String("addr", cfg.Port))
			if err := s.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
				logger.Error("server exited", zap.Error(err))
				stop()
			}
		}()
	} else {
		autoTLS := &autocert.Manager{
			Prompt:     autocert.AcceptTOS,
			Cache:      autocert.DirCache(".cache"),
			HostPolicy: autocert.HostWhitelist(cfg.TLSDomains...),
		}
		s = &http.Server{
			Addr:         ":443",
			Handler:      e,
			TLSConfig:    autoTLS.TLSConfig(),
			ReadTimeout:  30 * time.Second,
			WriteTimeout: 120 * time.Second,
			IdleTimeout:  15 * time.Second,
		}
		go func() {
			logger.Info("starting server", zap.String("mode", "tls"), zap.Strings("domains", cfg.TLSDomains))
			if err := s.ListenAndServeTLS("", ""); !errors.Is(err, http.ErrServerClosed) {
				logger.Error("tls server exited", zap.Error(err))
				stop()
			}
		}()
	}

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := s.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown", zap.Error(err))
	}
}
