package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"pong/internal/config"
	"pong/internal/engine"
	"pong/internal/gateway"
	"pong/internal/handlers"
	"pong/internal/jobs"
	"pong/internal/metrics"
	"pong/internal/models"
	"pong/internal/rating"
	"pong/internal/repositories"
	"pong/internal/routers"
	"pong/internal/services"
	"pong/internal/utils"
)

// initDatabase opens the history store. Without a DATABASE_URL the service
// falls back to an in-process SQLite file so single-node deployments work out
// of the box.
func initDatabase(cfg *config.Config, logger *zap.Logger) (*gorm.DB, error) {
	var db *gorm.DB
	var err error
	if cfg.DatabaseURL != "" {
		db, err = gorm.Open(postgres.Open(cfg.DatabaseURL), &gorm.Config{})
	} else {
		logger.Warn("DATABASE_URL not set, using local sqlite file")
		db, err = gorm.Open(sqlite.Open("pong.db"), &gorm.Config{})
	}
	if err != nil {
		return nil, err
	}
	if err := db.AutoMigrate(&models.MatchRecord{}); err != nil {
		return nil, err
	}
	return db, nil
}

func main() {
	utils.InitLogger()
	logger := utils.GetLogger()
	defer logger.Sync()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("failed to load configuration", zap.Error(err))
	}
	game, err := config.LoadGame(cfg.GameFile)
	if err != nil {
		logger.Fatal("failed to load game tuning", zap.Error(err))
	}

	rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
	db, err := initDatabase(cfg, logger)
	if err != nil {
		logger.Fatal("failed to initialize database", zap.Error(err))
	}

	historyRepo := repositories.NewHistoryRepository(db)
	ratings := rating.NewManager(rdb, logger)
	publisher := services.NewMatchPublisher(rdb, logger)

	eng := engine.New(engine.Options{
		Logger:          logger,
		Game:            game,
		AIBotURL:        cfg.AIBotURL,
		OnMatchFinished: publisher.Publish,
	})

	subCtx, cancelSub := context.WithCancel(context.Background())
	subscriber := services.NewMatchSubscriber(rdb, historyRepo, ratings, logger)
	go subscriber.Subscribe(subCtx)

	exporter := jobs.NewLeaderboardExporter(historyRepo, rdb, cfg.LeaderboardSchedule, logger)
	if err := exporter.Start(); err != nil {
		logger.Fatal("failed to start leaderboard exporter", zap.Error(err))
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.RealIP, middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: false,
		MaxAge:           300,
	}))
	r.Use(metrics.Middleware)

	routers.GameRoutes(r, cfg.JWTSecret,
		gateway.New(eng, cfg.JWTSecret, logger),
		handlers.NewTournamentHandler(eng),
		handlers.NewInviteHandler(eng),
		handlers.NewStatsHandler(historyRepo),
		handlers.NewLeaderboardHandler(rdb),
	)

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: r,
	}

	go func() {
		logger.Info("game server listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server failed", zap.Error(err))
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	<-stop
	logger.Info("shutting down")

	exporter.Stop()
	cancelSub()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown error", zap.Error(err))
	}
}
