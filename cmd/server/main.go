package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"
	_ "time/tzdata"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/user/moviecatalog/internal/config"
	"github.com/user/moviecatalog/internal/handler"
	"github.com/user/moviecatalog/internal/logger"
	"github.com/user/moviecatalog/internal/repository"
	"github.com/user/moviecatalog/internal/router"
	"github.com/user/moviecatalog/internal/service"
)

func main() {
	envErr := godotenv.Load()

	cfg := config.Load()
	log := logger.New(cfg.LogLevel, cfg.IsProduction())
	srvLog := log.Named("server")

	if envErr != nil {
		srvLog.Debug("no .env file, using process environment")
	}
	if cfg.IsProduction() && cfg.UsesDefaultSecret() {
		srvLog.Warn("APP_SECRET is not set; tokens and sessions use the default secret")
	}

	db, err := repository.InitDB(cfg, log)
	if err != nil {
		srvLog.Error("database connection failed", "error", err)
		os.Exit(1)
	}
	sqlDB, _ := db.DB()
	defer sqlDB.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := repository.Migrate(ctx, db, log); err != nil {
		srvLog.Error("migration failed", "error", err)
		os.Exit(1)
	}

	repos := repository.NewRepositories(db)

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	h := handler.NewHandler(repos, cfg, log)
	r, err := router.New(h)
	if err != nil {
		srvLog.Error("router setup failed", "error", err)
		os.Exit(1)
	}

	service.NewCleanupService(repos, h.Media, log).Start(ctx)

	srv := &http.Server{
		Addr:           ":" + cfg.Port,
		Handler:        r,
		ReadTimeout:    10 * time.Second,
		WriteTimeout:   30 * time.Second,
		MaxHeaderBytes: 1 << 20,
	}

	go func() {
		srvLog.Info("listening", "addr", "http://localhost:"+cfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			srvLog.Error("server failed", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	srvLog.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		srvLog.Error("forced shutdown", "error", err)
	}

	srvLog.Info("server stopped")
}
