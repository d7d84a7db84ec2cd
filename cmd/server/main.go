// Package main initializes and starts the HomeKeeper log server: an HTTPS
// records API and relay websocket over PostgreSQL, authenticated with
// client certificates issued by the server CA.
package main

import (
	"cmp"
	"context"
	"crypto/tls"
	"crypto/x509"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	nethttp "net/http"

	"github.com/atinyakov/HomeKeeper/internal/config"
	"github.com/atinyakov/HomeKeeper/internal/db"
	"github.com/atinyakov/HomeKeeper/internal/logger"
	"github.com/atinyakov/HomeKeeper/internal/repository"
	"github.com/atinyakov/HomeKeeper/internal/server/handler/http"
	"github.com/atinyakov/HomeKeeper/internal/service"
	"go.uber.org/zap"
)

var (
	// version holds the build version set via ldflags.
	version string
	// buildDate holds the build timestamp set via ldflags.
	buildDate string
)

func main() {
	options := config.Parse()

	fmt.Printf("Build version: %s\n", cmp.Or(version, "N/A"))
	fmt.Printf("Build date: %s\n", cmp.Or(buildDate, "N/A"))

	log := logger.New()
	defer func() { _ = log.Log.Sync() }()
	if err := log.Init(options.LogLevel); err != nil {
		log.Log.Fatal("failed to init logger", zap.Error(err))
	}
	zapLogger := log.Log

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	postgresDB, err := db.InitPostgres(options.DatabaseDSN)
	if err != nil {
		zapLogger.Fatal("cannot init database", zap.Error(err))
	}
	defer postgresDB.Close()

	db.StartRecordPruner(ctx, postgresDB, options.PruneInterval, options.Retention, zapLogger)

	authorRepo := repository.NewPostgresAuthorRepository(postgresDB)
	recordRepo := repository.NewPostgresRecordRepository(postgresDB)

	authService := service.NewAuthService(authorRepo)
	logService := service.NewLogService(recordRepo, authorRepo)

	authHandler := &http.AuthHandler{
		AuthService: authService,
		CACertPath:  options.CACert,
		CAKeyPath:   options.CAKey,
	}
	recordsHandler := &http.RecordsHandler{Log: logService, Logger: zapLogger}
	relayHandler := &http.RelayHandler{Log: logService, Logger: zapLogger}

	router := http.NewRouter(authHandler, recordsHandler, relayHandler, zapLogger)

	cert, err := tls.LoadX509KeyPair(options.ServerCert, options.ServerKey)
	if err != nil {
		zapLogger.Fatal("failed to load server TLS cert/key", zap.Error(err))
	}

	caCert, err := os.ReadFile(options.CACert)
	if err != nil {
		zapLogger.Fatal("failed to read CA cert", zap.Error(err))
	}
	caCertPool := x509.NewCertPool()
	if ok := caCertPool.AppendCertsFromPEM(caCert); !ok {
		zapLogger.Fatal("failed to append CA cert to pool")
	}

	// Client certificates are optional at the TLS layer. CertAuth requires
	// them outside /api/register.
	tlsConfig := &tls.Config{
		Certificates: []tls.Certificate{cert},
		ClientAuth:   tls.VerifyClientCertIfGiven,
		ClientCAs:    caCertPool,
		MinVersion:   tls.VersionTLS12,
	}

	server := &nethttp.Server{
		Addr:              options.Port,
		Handler:           router,
		TLSConfig:         tlsConfig,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			zapLogger.Error("shutdown failed", zap.Error(err))
		}
	}()

	zapLogger.Info("starting HTTPS server", zap.String("addr", options.Port))
	if err := server.ListenAndServeTLS("", ""); err != nil && !errors.Is(err, nethttp.ErrServerClosed) {
		zapLogger.Fatal("failed to start HTTPS server", zap.Error(err))
	}
	zapLogger.Info("server stopped")
}
