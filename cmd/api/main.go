// Package main はAPIサーバーのエントリーポイントです。
package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"

	"github.com/yourusername/user-kit/internal/auth"
	"github.com/yourusername/user-kit/internal/cache"
	"github.com/yourusername/user-kit/internal/config"
	"github.com/yourusername/user-kit/internal/crud"
	"github.com/yourusername/user-kit/internal/events"
	"github.com/yourusername/user-kit/internal/gate"
	"github.com/yourusername/user-kit/internal/layout"
	"github.com/yourusername/user-kit/internal/logger"
	"github.com/yourusername/user-kit/internal/middleware"
	"github.com/yourusername/user-kit/internal/resources"
	"github.com/yourusername/user-kit/internal/session"
	"github.com/yourusername/user-kit/internal/store"
	"github.com/yourusername/user-kit/internal/store/postgres"
)

func main() {
	// 設定の読み込み
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	appLogger := logger.New(cfg.LogLevel, cfg.LogFormat)

	// Ginのモードを設定
	gin.SetMode(cfg.GinMode)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool, err := postgres.NewPool(ctx, cfg, appLogger)
	if err != nil {
		appLogger.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer pool.Close()

	redisClient, err := newRedisClient(ctx, cfg.RedisURL)
	if err != nil {
		appLogger.Fatal().Err(err).Msg("failed to connect to redis")
	}
	defer redisClient.Close()

	// Lua スクリプトは起動時に1度だけロードする
	scripts, err := cache.LoadScripts(ctx, redisClient)
	if err != nil {
		appLogger.Fatal().Err(err).Msg("failed to load redis scripts")
	}

	scanner := store.NewPgxScanner()
	repo := store.NewRepository(pool, scanner, appLogger)
	users := store.NewUserRepository(pool, scanner, cfg.UsersTable)

	jobManager, err := setupJobs(cfg, users, appLogger)
	if err != nil {
		appLogger.Fatal().Err(err).Msg("failed to set up jobs")
	}
	jobManager.StartWorkers()

	defs, err := resources.Load(cfg.ResourcesFile)
	if err != nil {
		appLogger.Fatal().Err(err).Msg("failed to load resources")
	}

	bus := events.NewBus(appLogger)
	authManager := auth.NewManager(cfg, users, scripts, jobManager, bus, appLogger)

	registry := gate.NewRegistry()
	routes := gate.NewRoutes()

	// Ginルーターの初期化（ログは zerolog のアクセスログを使う）
	router := gin.New()
	router.Use(gin.Recovery(), middleware.AccessLog(appLogger))

	// CORS許可オリジンが設定されている場合のみ厳格なチェックを行う
	if cfg.CORSAllowedOrigins != "" {
		router.Use(middleware.StrictCORS(cfg.CORSAllowedOrigins))
	} else {
		router.Use(middleware.CORS())
	}

	// token ヘッダーをセッションIDとして使うため、セッションより前に登録する
	sessionStore := session.NewStore(cfg, redisClient)
	if rs, ok := sessionStore.(*session.RedisStore); ok {
		authManager.RotateSessionsWith(func(r *http.Request) error {
			return rs.Rotate(r, session.CookieName)
		})
	}
	router.Use(
		session.TokenSessionID(),
		sessions.Sessions(session.CookieName, sessionStore),
	)
	router.Use(gate.New(gate.Options{
		Registry:     registry,
		Routes:       routes,
		Identity:     auth.CurrentUserID,
		ExcludedApps: cfg.ExcludedApps,
		LoginPath:    cfg.LoginPath,
		Logger:       appLogger,
	}).Middleware())
	router.Use(authManager.LoadUser())

	// ルーティングの設定
	setupRoutes(router, routes, registry, authManager, layout.NewService(bus))
	crudGroup := router.Group("/app/" + crud.AppName)
	for _, res := range defs {
		crud.Register(crudGroup, routes, registry, crud.NewController(res, repo, auth.CurrentUserID, appLogger))
	}

	// サーバーの起動
	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		appLogger.Info().Str("addr", srv.Addr).Str("mode", cfg.GinMode).Int("resources", len(defs)).Msg("starting API server")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			appLogger.Fatal().Err(err).Msg("failed to start server")
		}
	}()

	<-ctx.Done()
	appLogger.Info().Msg("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		appLogger.Error().Err(err).Msg("server shutdown failed")
	}
	if err := jobManager.Shutdown(shutdownCtx); err != nil {
		appLogger.Error().Err(err).Msg("job manager shutdown failed")
	}
}

// handleHealth はヘルスチェックエンドポイントのハンドラーです。
func handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "ok",
		"service": "user-kit-api",
		"version": "0.1.0",
	})
}

// setupRoutes はヘルスチェックとユーザー関連のルートを登録します。
func setupRoutes(router *gin.Engine, routes *gate.Routes, registry *gate.Registry, authManager *auth.Manager, layoutService *layout.Service) {
	// 誰でも叩けるヘルスチェック
	routes.Handle(router, http.MethodGet, "/health", gate.RouteMeta{NoLogin: true}, handleHealth)

	authManager.Register(router, routes)

	routes.Handle(router, http.MethodGet, "/app/user/nav", gate.RouteMeta{App: "user", NoLogin: true}, layoutService.HandleNav)
	routes.Handle(router, http.MethodGet, "/app/user/sidebar", gate.RouteMeta{App: "user"}, layoutService.HandleSidebar)
}
