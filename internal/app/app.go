package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/jmoiron/sqlx"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/hitoshi/ddaytodo/internal/auth"
	"github.com/hitoshi/ddaytodo/internal/calendar"
	"github.com/hitoshi/ddaytodo/internal/config"
	"github.com/hitoshi/ddaytodo/internal/database"
	"github.com/hitoshi/ddaytodo/internal/handler"
	"github.com/hitoshi/ddaytodo/internal/logger"
	"github.com/hitoshi/ddaytodo/internal/metrics"
	"github.com/hitoshi/ddaytodo/internal/middleware"
	"github.com/hitoshi/ddaytodo/internal/profile"
	"github.com/hitoshi/ddaytodo/internal/repository"
	"github.com/hitoshi/ddaytodo/internal/security"
	"github.com/hitoshi/ddaytodo/internal/todo"
	"github.com/hitoshi/ddaytodo/internal/worker/cleanup"
)

// Init はアプリケーションの初期化を行う。
// 設定を読み込み、LOG_LEVELに従ったJSON構造化ログをセットアップする。
// writerが指定された場合はログ出力先としてそのwriterを使用する。
func Init(w io.Writer) (*config.Config, error) {
	// 1. ログの初期化（設定読み込み前にログを使えるようにする）
	logger.SetupDefault(w, slog.LevelInfo)

	// 2. 環境変数・設定ファイルから設定を読み込む
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	logger.SetupDefault(w, logger.ParseLevel(cfg.LogLevel))
	return cfg, nil
}

// initSentry はSENTRY_DSNが設定されている場合にSentryを初期化する。
// 戻り値の関数は終了時に未送信のイベントを送り切る。
func initSentry(cfg *config.Config) func() {
	if cfg.SentryDSN == "" {
		return func() {}
	}
	if err := sentry.Init(sentry.ClientOptions{
		Dsn:              cfg.SentryDSN,
		Environment:      cfg.SentryEnvironment,
		AttachStacktrace: true,
	}); err != nil {
		slog.Error("sentry init failed", slog.String("error", err.Error()))
		return func() {}
	}
	slog.Info("sentry initialized", slog.String("environment", cfg.SentryEnvironment))
	return func() { sentry.Flush(2 * time.Second) }
}

// openDB はDB接続を開き、疎通を確認する。
func openDB(ctx context.Context, cfg *config.Config) (*sqlx.DB, error) {
	db, err := database.Open(cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	slog.Info("database connection established")
	return db, nil
}

// services はリポジトリとドメインサービスの組み立て結果。
type services struct {
	auth     *auth.Service
	todos    *todo.Service
	profiles *profile.Service
}

// buildServices はリポジトリとドメインサービスをワイヤリングする。
func buildServices(db *sqlx.DB, cfg *config.Config, mc metrics.MetricsCollector) *services {
	log := slog.Default()

	// 1. リポジトリの初期化
	accountRepo := repository.NewPostgresAccountRepo(db)
	identRepo := repository.NewPostgresIdentityRepo(db)
	sessionRepo := repository.NewPostgresSessionRepo(db)
	profileRepo := repository.NewPostgresProfileRepo(db)
	todoRepo := repository.NewPostgresTodoRepo(db)
	archiveRepo := repository.NewPostgresArchiveRepo(db)

	// 2. セキュリティサービスの初期化
	sanitizer := security.NewTextSanitizer()
	urlGuard := security.NewURLGuard()

	// 3. ドメインサービスの初期化
	profileService := profile.NewService(profileRepo, sessionRepo, sanitizer, urlGuard, log)

	var oauthProvider auth.OAuthProvider
	if cfg.GoogleEnabled() {
		oauthProvider = auth.NewGoogleOAuthProvider(auth.GoogleOAuthConfig{
			ClientID:     cfg.GoogleClientID,
			ClientSecret: cfg.GoogleClientSecret,
			RedirectURL:  cfg.GoogleRedirectURL,
			HTTPClient:   urlGuard.NewSafeClient(cfg.OAuthTimeout),
		})
	}
	authService := auth.NewService(
		oauthProvider, accountRepo, identRepo, sessionRepo, profileService,
		auth.NewTokenIssuer(cfg.SessionSecret),
		auth.ServiceConfig{SessionMaxAge: cfg.SessionMaxAge},
		log,
	)

	todoService := todo.NewService(todoRepo, archiveRepo, sanitizer, mc, log, cfg.TodoMaxBatch)

	return &services{
		auth:     authService,
		todos:    todoService,
		profiles: profileService,
	}
}

// runServe はAPIサーバーモードで起動する。
// ctxがキャンセルされるとグレースフルシャットダウンを行う。
func runServe(ctx context.Context, cfg *config.Config) error {
	flush := initSentry(cfg)
	defer flush()

	db, err := openDB(ctx, cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	collector := metrics.NewCollector(registry)

	svcs := buildServices(db, cfg, collector)

	rateLimiter := middleware.NewRateLimiter(
		middleware.RateLimiterConfigPerMinute(cfg.RateLimitGeneral, cfg.RateLimitTodoCreate),
	)
	defer rateLimiter.Stop()

	router := handler.NewRouter(&handler.RouterDeps{
		Logger:            slog.Default(),
		Metrics:           collector,
		MetricsHandler:    metrics.Handler(registry),
		HealthChecker:     db,
		CORSAllowedOrigin: cfg.CORSAllowedOrigin,
		CSRF: middleware.CSRFConfig{
			CookieSecure: cfg.CookieSecure,
			CookieDomain: cfg.CookieDomain,
		},
		HSTS:        cfg.CookieSecure,
		RateLimiter: rateLimiter,

		AuthService: svcs.auth,
		AuthConfig: handler.AuthHandlerConfig{
			BaseURL:       cfg.BaseURL,
			CookieDomain:  cfg.CookieDomain,
			CookieSecure:  cfg.CookieSecure,
			SessionMaxAge: cfg.SessionMaxAge,
		},
		TodoService:    svcs.todos,
		ProfileService: svcs.profiles,
	})

	server := &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("API server starting",
			slog.String("addr", server.Addr),
			slog.Bool("google_login", cfg.GoogleEnabled()),
		)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("server listen error: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	slog.Info("shutting down API server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	slog.Info("API server stopped gracefully")
	return nil
}

// runWorker はワーカーモードで起動する。
// 期限切れセッションの削除ジョブをctxがキャンセルされるまで実行する。
func runWorker(ctx context.Context, cfg *config.Config) error {
	flush := initSentry(cfg)
	defer flush()

	db, err := openDB(ctx, cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	job := cleanup.NewCleanupJob(repository.NewPostgresSessionRepo(db), slog.Default(), cfg.SessionCleanupInterval)

	slog.Info("worker starting", slog.Duration("cleanup_interval", job.Interval))
	job.Start(ctx)

	slog.Info("worker stopped gracefully")
	return nil
}

// runMigrate はデータベースマイグレーションを実行する。
// downの場合は直前のマイグレーションを1つ巻き戻す。
func runMigrate(cfg *config.Config, direction string) error {
	slog.Info("running database migrations",
		slog.String("direction", direction),
		slog.String("database_url", maskDatabaseURL(cfg.DatabaseURL)),
	)

	run := database.RunMigrations
	if direction == "down" {
		run = database.RollbackMigrations
	}
	if err := run(cfg.DatabaseURL); err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}

	slog.Info("database migrations completed successfully")
	return nil
}

// runArchive は指定ユーザーの未完了Todoをアーカイブする。
func runArchive(ctx context.Context, cfg *config.Config, out io.Writer, userID string, viewDay calendar.Day) error {
	db, err := openDB(ctx, cfg)
	if err != nil {
		return err
	}
	defer db.Close()

	svcs := buildServices(db, cfg, metrics.Nop{})
	result, err := svcs.todos.ArchiveIncomplete(ctx, userID, viewDay)
	if err != nil {
		return fmt.Errorf("archive failed: %w", err)
	}

	fmt.Fprintf(out, "archived incomplete todos for user %s: %d active on %s, %d in archive\n",
		userID, len(result.Active), viewDay, len(result.Archived))
	return nil
}

// runHealthcheck はヘルスチェックを実行する。
// distroless環境でのDockerヘルスチェック用サブコマンド。
// /health エンドポイントにHTTPリクエストを送り、結果を返す。
func runHealthcheck(url string) error {
	client := &http.Client{Timeout: 5 * time.Second}

	resp, err := client.Get(url)
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("health check returned status %d", resp.StatusCode)
	}

	return nil
}

// maskDatabaseURL はデータベースURLの認証情報をマスクする。
func maskDatabaseURL(url string) string {
	if len(url) > 20 {
		return url[:12] + "***@..."
	}
	return "***"
}
