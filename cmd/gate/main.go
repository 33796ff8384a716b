package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/afero"

	"gate-access-service/internal/capture"
	"gate-access-service/internal/config"
	"gate-access-service/internal/db"
	"gate-access-service/internal/evidence"
	apihttp "gate-access-service/internal/http"
	"gate-access-service/internal/logger"
	"gate-access-service/internal/repository"
	"gate-access-service/internal/service"
	"gate-access-service/internal/vision"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "gate: %v\n", err)
		os.Exit(1)
	}

	log := logger.New(cfg.Log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	conn, err := db.Open(ctx, cfg.DB, log)
	if err != nil {
		log.Fatal().Err(err).Msg("datastore unavailable")
	}
	sqlDB, err := conn.DB()
	if err != nil {
		log.Fatal().Err(err).Msg("datastore handle")
	}
	defer sqlDB.Close()

	archiver, err := evidence.NewArchiver(afero.NewOsFs(), cfg.Evidence.Root, cfg.Evidence.Ext, cfg.Capture.Location, log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to configure evidence archive")
	}

	accessService := service.NewAccessService(
		repository.NewVehicleRepository(conn),
		repository.NewControlRepository(conn, cfg.Capture.Location),
		archiver,
		service.NewResolver(cfg.Capture.DebounceWindow, cfg.Capture.MessageTTL),
		service.Options{Location: cfg.Capture.Location, Timeout: cfg.DB.Timeout},
		log,
	)

	primary, err := vision.OpenCamera("primary", cfg.Camera.Primary, log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to open primary camera")
	}
	if primary == nil {
		log.Fatal().Msg("primary camera cannot be disabled")
	}
	defer primary.Close()

	secondary, err := vision.OpenCamera("secondary", cfg.Camera.Secondary, log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to open secondary camera")
	}
	if secondary != nil {
		defer secondary.Close()
	}

	board := capture.NewStatusBoard(cfg.Capture.MessageTTL)
	coordinator := capture.NewCoordinator(capture.Deps{
		Primary:   primary,
		Secondary: secondary,
		Localizer: vision.DefaultLocalizer(),
		OCR:       vision.NewTesseract(cfg.OCR.TesseractPath, cfg.OCR.Lang, cfg.OCR.PSM),
		Processor: accessService,
		Renderer:  capture.NewLogRenderer(log),
		Board:     board,
	}, capture.Config{
		Interval:      cfg.Capture.Interval,
		CameraTimeout: cfg.Camera.Timeout,
		OCRTimeout:    cfg.OCR.Timeout,
	}, log)

	gin.SetMode(gin.ReleaseMode)
	handler := apihttp.NewHandler(accessService, coordinator, board, cfg, log)
	srv := &http.Server{
		Addr:              cfg.HTTP.Addr,
		Handler:           apihttp.NewRouter(handler, cfg.Auth.JWTSecret, log),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Info().Str("addr", cfg.HTTP.Addr).Msg("http server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Msg("http server failed")
			stop()
		}
	}()

	if err := coordinator.Run(ctx); err != nil {
		log.Error().Err(err).Msg("capture loop failed")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("http shutdown")
	}
	log.Info().Msg("gate stopped")
}
