package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"extruder_monitor/internal/config"
	"extruder_monitor/internal/handlers"
	"extruder_monitor/internal/logger"
	"extruder_monitor/internal/repository"
	"extruder_monitor/internal/repository/db"
	"extruder_monitor/internal/server"
	"extruder_monitor/internal/service"

	"github.com/spf13/pflag"
)

const shutdownTimeout = 10 * time.Second

// @title                       Extruder Monitor API
// @version                     1.0
// @description                 Serial telemetry ingestion and control for a filament extruder.
// @BasePath                    /
// @securityDefinitions.apikey  BearerAuth
// @in                          header
// @name                        Authorization
func main() {
	configPath := pflag.StringP("config", "c", "", "path to config file (default configs/config.yml)")
	pflag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		logger.Get(logger.InfoLevel, logger.ConsoleFormat).Fatalw("error reading config", "err", err)
	}

	log := logger.Get(cfg.Log.Level, cfg.Log.Format)
	defer func() { _ = log.Sync() }()

	if cfg.Auth.SigningKey == "" {
		log.Fatalw("auth.signing_key is empty; set it in the config or EXTRUDER_AUTH_SIGNING_KEY")
	}

	conn, err := db.InitDB(cfg.DB.Path)
	if err != nil {
		log.Fatalw("failed to init sqlite", "err", err, "path", cfg.DB.Path)
	}
	defer func() {
		if cerr := conn.Close(); cerr != nil {
			log.Errorw("failed to close sqlite", "err", cerr)
		}
	}()

	repos := repository.NewRepository(conn)
	services := service.NewService(repos, service.Options{
		SigningKey: cfg.Auth.SigningKey,
		TokenTTL:   cfg.Auth.TokenTTL,
		Simulate:   cfg.Serial.Simulate,
		SimTick:    cfg.Serial.SimTick,
	}, log)
	apiHandler := handlers.NewHandler(services, log)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if cfg.Serial.AutoConnect {
		autoConnect(ctx, services, cfg.Serial, log)
	}

	srv := &server.Server{}
	runHTTPServer(srv, cfg.Port, apiHandler, log)

	waitForShutdown(cancel, srv, services, log)
}

// autoConnect opens the configured port, or restores the last persisted link
// when no port is configured. Failures are logged; the API stays up either way.
func autoConnect(ctx context.Context, services *service.Service, sc config.SerialConfig, log *logger.Logger) {
	if sc.Port == "" {
		if err := services.Resume(ctx); err != nil {
			log.Warnw("serial_resume_failed", "err", err)
		}
		return
	}
	err := services.Connect(ctx, service.ConnectParams{Port: sc.Port, BaudRate: sc.BaudRate})
	if err != nil {
		log.Warnw("serial_autoconnect_failed", "err", err, "port", sc.Port, "baud_rate", sc.BaudRate)
		return
	}
	log.Infow("serial_autoconnected", "port", sc.Port, "baud_rate", sc.BaudRate)
}

// runHTTPServer runs the HTTP server in a separate goroutine.
func runHTTPServer(srv *server.Server, port string, handler *handlers.Handler, log *logger.Logger) {
	go func() {
		log.Infow("http_listening", "port", port)
		if err := srv.Run(port, handler.InitRoutes()); err != nil {
			log.Fatalw("error starting server", "err", err)
		}
	}()
}

// waitForShutdown listens for termination signals, closes the serial link and
// drains the HTTP server.
func waitForShutdown(cancel context.CancelFunc, srv *server.Server, services *service.Service, log *logger.Logger) {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Infow("shutting down server...")

	ctx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()

	if services.Connected() {
		if err := services.Disconnect(ctx); err != nil {
			log.Errorw("serial_disconnect_failed", "err", err)
		}
	}

	cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Errorw("server forced to shutdown", "err", err)
	}
}
