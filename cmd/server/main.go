package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"

	"github.com/Skotchmaster/video_hosting/internal/config"
	"github.com/Skotchmaster/video_hosting/internal/es"
	"github.com/Skotchmaster/video_hosting/internal/handlers"
	"github.com/Skotchmaster/video_hosting/internal/logging"
	"github.com/Skotchmaster/video_hosting/internal/loggingmw"
	"github.com/Skotchmaster/video_hosting/internal/mediastore"
	"github.com/Skotchmaster/video_hosting/internal/middleware"
	"github.com/Skotchmaster/video_hosting/internal/mykafka"
	"github.com/Skotchmaster/video_hosting/internal/service"
	transport "github.com/Skotchmaster/video_hosting/internal/transport/http"
)

const videoIndex = "videos"

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		logging.New("info").Error("config load failed", "error", err)
		os.Exit(1)
	}

	log := logging.New(cfg.LOG_LEVEL)

	db, err := config.InitDB(cfg)
	if err != nil {
		log.Error("db init failed", "error", err)
		os.Exit(1)
	}

	esClient, err := es.NewClient(cfg)
	if err != nil {
		log.Error("elasticsearch init failed", "error", err)
		os.Exit(1)
	}

	producer := mykafka.NewProducer([]string{cfg.KAFKA_ADDRESS})
	defer producer.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	media, err := mediastore.New(ctx, mediastore.Config{
		Region:    cfg.S3_REGION,
		AccessKey: cfg.S3_ACCESS_KEY,
		SecretKey: cfg.S3_SECRET_KEY,
		Endpoint:  cfg.S3_ENDPOINT,
		Bucket:    cfg.S3_BUCKET,
		PublicURL: cfg.S3_PUBLIC_URL,
	})
	if err != nil {
		log.Error("media store init failed", "error", err)
		os.Exit(1)
	}

	tokenSvc := &service.TokenService{
		DB:            db,
		AccessSecret:  []byte(cfg.ACCESS_TOKEN_SECRET),
		RefreshSecret: []byte(cfg.REFRESH_TOKEN_SECRET),
		Producer:      producer,
	}
	relationSvc := &service.RelationService{DB: db}
	viewSvc := &service.ViewService{DB: db}

	authMw := middleware.NewAuth(db, tokenSvc)

	deps := transport.Deps{
		Auth:          authMw,
		AuthHandler:   &handlers.AuthHandler{DB: db, Tokens: tokenSvc, Media: media, Producer: producer},
		Videos:        &handlers.VideoHandler{DB: db, Media: media, Producer: producer, ES: esClient, ESIndex: videoIndex, Relations: relationSvc, Views: viewSvc},
		Comments:      &handlers.CommentHandler{DB: db, Relations: relationSvc},
		Likes:         &handlers.LikeHandler{DB: db, Relations: relationSvc, Views: viewSvc},
		Subscriptions: &handlers.SubscriptionHandler{DB: db, Relations: relationSvc, Views: viewSvc},
		Channels:      &handlers.ChannelHandler{Views: viewSvc},
		Playlists:     &handlers.PlaylistHandler{DB: db},
		Search:        handlers.NewSearchHandler(esClient, videoIndex),
	}

	e := echo.New()
	e.HideBanner = true
	e.Pre(echomw.RemoveTrailingSlash())
	e.Use(echomw.Recover())
	e.Use(echomw.RequestID())
	e.Use(loggingmw.RequestLogger(log))

	transport.Register(e, deps)

	// Expired sessions are dead weight; sweep them hourly.
	go func() {
		ticker := time.NewTicker(time.Hour)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				n, err := tokenSvc.PurgeExpiredSessions(ctx)
				if err != nil {
					log.Error("session purge failed", "error", err)
					continue
				}
				if n > 0 {
					log.Info("purged expired sessions", "count", n)
				}
			}
		}
	}()

	srv := &http.Server{
		Addr:              cfg.HTTP_ADDR,
		Handler:           e,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	go func() {
		log.Info("server starting", "addr", cfg.HTTP_ADDR)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server failed", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	log.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("shutdown failed", "error", err)
	}

	if sqlDB, err := db.DB(); err == nil {
		sqlDB.Close()
	}
	log.Info("stopped")
}
