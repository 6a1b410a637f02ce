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

	"crownbidder/internal/api/handlers"
	apimw "crownbidder/internal/api/middleware"
	"crownbidder/internal/config"
	"crownbidder/internal/gateway"
	"crownbidder/internal/infrastructure/leader"
	"crownbidder/internal/infrastructure/redis"
	"crownbidder/internal/tenant"
	"crownbidder/pkg/logger"

	redisClient "github.com/go-redis/redis/v8"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
)

func main() {
	log := logger.New()
	log.Info("Starting Crownbidder gateway")

	cfg, err := config.Load()
	if err != nil {
		log.Error("Failed to load config", "error", err)
		os.Exit(1)
	}
	log.Info("Configuration loaded", "config", cfg.GetConfigString())

	// Initialize Redis
	rdb := redisClient.NewClient(&redisClient.Options{
		Addr:     cfg.Redis.Address,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		log.Error("Failed to connect to Redis", "error", err)
		os.Exit(1)
	}
	log.Info("Connected to Redis", "address", cfg.Redis.Address)

	// Tenant resolution pipeline
	domainResolver := tenant.NewDomainResolver(cfg.Platform.Host, cfg.Platform.DevHostPrefix)
	tenantCache := redis.NewRedisTenantCache(rdb)
	tenantClient := tenant.NewClient(cfg.Platform.ResolverBaseURL, tenantCache, cfg.Platform.TenantCacheTTL, log)
	rewriter := tenant.NewRewriter(cfg.Platform.TenantPrefix, cfg.Platform.PassThrough)

	// Realtime gateway
	hub := gateway.NewHub(log)
	verifier := gateway.NewTokenVerifier(cfg.Auth.JWTSecret)
	statusStore := redis.NewRedisStatusStore(rdb)
	ledger := redis.NewRedisLedger(rdb)
	transitionBus := redis.NewRedisTransitionBus(rdb, log)
	scheduleQueue := redis.NewRedisScheduleQueue(rdb)

	statusService := gateway.NewStatusService(statusStore, transitionBus, scheduleQueue, log)
	wsHandler := gateway.NewHandler(hub, verifier, statusStore, ledger, log)
	notifier := gateway.NewRoomNotifier(hub, log)

	leaderElection := leader.NewRedisLeaderElection(rdb, cfg.Leader.TTL)
	scheduler := gateway.NewTransitionScheduler(scheduleQueue, statusService, leaderElection, cfg.Instance.ID, log)

	// Edge HTTP server
	e := echo.New()
	e.HideBanner = true

	e.Pre(apimw.TenantResolution(domainResolver, tenantClient, rewriter, cfg.Platform.Host, log))
	e.Use(middleware.RequestID())
	e.Use(middleware.Recover())

	auctionHandler := handlers.NewAuctionHandler(statusService, log)
	auctionHandler.Register(e.Group("/api"))

	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]interface{}{
			"status":    "ok",
			"service":   "gateway",
			"timestamp": time.Now().Format(time.RFC3339),
		})
	})

	// Background services
	subCtx, subCancel := context.WithCancel(context.Background())
	defer subCancel()

	go func() {
		if err := transitionBus.SubscribeTransitions(subCtx, notifier.HandleTransition); err != nil && !errors.Is(err, context.Canceled) {
			log.Error("Transition subscriber stopped", "error", err)
		}
	}()

	go func() {
		if err := scheduler.Start(subCtx); err != nil {
			log.Error("Failed to start scheduler", "error", err)
		}
	}()

	go func() {
		for {
			became, err := leaderElection.BecomeLeader(context.Background(), cfg.Instance.ID)
			if err != nil {
				log.Error("Failed to attempt leadership", "error", err)
				time.Sleep(5 * time.Second)
				continue
			}
			if became {
				log.Info("Became scheduler leader", "instance_id", cfg.Instance.ID)
			}
			time.Sleep(10 * time.Second)
		}
	}()

	// Realtime websocket server
	wsServer := &http.Server{
		Addr:    fmt.Sprintf("0.0.0.0:%d", cfg.Realtime.Port),
		Handler: wsHandler.Router(),
	}
	go func() {
		log.Info("Starting realtime server", "port", cfg.Realtime.Port)
		if err := wsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("Realtime server failed", "error", err)
			os.Exit(1)
		}
	}()

	// Edge server
	edgeAddr := fmt.Sprintf("%s:%d", cfg.Edge.Host, cfg.Edge.Port)
	go func() {
		log.Info("Starting edge server", "address", edgeAddr)
		if err := e.Start(edgeAddr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("Edge server failed", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down gateway...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	subCancel()
	if err := scheduler.Stop(); err != nil {
		log.Error("Failed to stop scheduler", "error", err)
	}
	if err := leaderElection.ReleaseLeadership(shutdownCtx, cfg.Instance.ID); err != nil {
		log.Error("Failed to release leadership", "error", err)
	}
	if err := wsServer.Shutdown(shutdownCtx); err != nil {
		log.Error("Realtime server forced to shutdown", "error", err)
	}
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Error("Edge server forced to shutdown", "error", err)
	}

	log.Info("Gateway stopped")
}
