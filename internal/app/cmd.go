package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/hitoshi/ddaytodo/internal/calendar"
	"github.com/hitoshi/ddaytodo/internal/config"
)

// Run はアプリケーションのメインエントリーポイント。
// コマンドライン引数からサブコマンドを解析し、対応するモードで起動する。
// argsにはos.Args[1:]を渡す。
func Run(w io.Writer, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	root := NewRootCommand(w)
	root.SetArgs(args)
	return root.ExecuteContext(ctx)
}

// NewRootCommand はddaytodoのコマンドツリーを組み立てる。
// サブコマンドを省略した場合はserveとして動作する。
func NewRootCommand(w io.Writer) *cobra.Command {
	// withConfig は設定を読み込んでからfnを実行するRunEを返す。
	withConfig := func(fn func(cmd *cobra.Command, cfg *config.Config, args []string) error) func(*cobra.Command, []string) error {
		return func(cmd *cobra.Command, args []string) error {
			cfg, err := Init(w)
			if err != nil {
				return fmt.Errorf("initialization failed: %w", err)
			}
			slog.Info("starting application",
				slog.String("command", cmd.Name()),
				slog.String("port", cfg.ServerPort),
				slog.String("base_url", cfg.BaseURL),
			)
			return fn(cmd, cfg, args)
		}
	}

	serve := withConfig(func(cmd *cobra.Command, cfg *config.Config, _ []string) error {
		return runServe(cmd.Context(), cfg)
	})

	root := &cobra.Command{
		Use:           "ddaytodo",
		Short:         "D-Day付きTodo管理のAPIサーバー",
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          cobra.NoArgs,
		RunE:          serve,
	}
	root.SetOut(w)
	root.SetErr(w)

	root.AddCommand(
		&cobra.Command{
			Use:   "serve",
			Short: "APIサーバーを起動する",
			Args:  cobra.NoArgs,
			RunE:  serve,
		},
		&cobra.Command{
			Use:   "worker",
			Short: "期限切れセッションの削除ジョブを起動する",
			Args:  cobra.NoArgs,
			RunE: withConfig(func(cmd *cobra.Command, cfg *config.Config, _ []string) error {
				return runWorker(cmd.Context(), cfg)
			}),
		},
		&cobra.Command{
			Use:       "migrate [up|down]",
			Short:     "データベースマイグレーションを実行する（省略時はup）",
			ValidArgs: []string{"up", "down"},
			Args:      cobra.MatchAll(cobra.MaximumNArgs(1), cobra.OnlyValidArgs),
			RunE: withConfig(func(_ *cobra.Command, cfg *config.Config, args []string) error {
				direction := "up"
				if len(args) == 1 {
					direction = args[0]
				}
				return runMigrate(cfg, direction)
			}),
		},
		newHealthcheckCommand(),
		newArchiveCommand(w, withConfig),
	)

	return root
}

// newHealthcheckCommand はhealthcheckサブコマンドを返す。
// 軽量サブコマンドのため、設定の読み込みとログの初期化をスキップする。
func newHealthcheckCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "healthcheck",
		Short: "ローカルのAPIサーバーの /health を確認する",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			port := os.Getenv("SERVER_PORT")
			if port == "" {
				port = "8080"
			}
			return runHealthcheck(fmt.Sprintf("http://localhost:%s/health", port))
		},
	}
}

type configuredRunE func(fn func(cmd *cobra.Command, cfg *config.Config, args []string) error) func(*cobra.Command, []string) error

// newArchiveCommand はarchiveサブコマンドを返す。
func newArchiveCommand(w io.Writer, withConfig configuredRunE) *cobra.Command {
	var userID, date string

	cmd := &cobra.Command{
		Use:   "archive --user <id> [--date YYYY-MM-DD]",
		Short: "ユーザーの未完了Todoをすべてアーカイブする",
		Args:  cobra.NoArgs,
		PreRunE: func(_ *cobra.Command, _ []string) error {
			if date == "" {
				return nil
			}
			if _, err := calendar.ParseDay(date); err != nil {
				return fmt.Errorf("invalid --date %q: expected YYYY-MM-DD", date)
			}
			return nil
		},
		RunE: withConfig(func(cmd *cobra.Command, cfg *config.Config, _ []string) error {
			viewDay := calendar.Today()
			if date != "" {
				viewDay, _ = calendar.ParseDay(date)
			}
			return runArchive(cmd.Context(), cfg, w, userID, viewDay)
		}),
	}
	cmd.Flags().StringVar(&userID, "user", "", "対象ユーザーのID")
	cmd.Flags().StringVar(&date, "date", "", "アーカイブ後に一覧を表示する日付（省略時は今日）")
	_ = cmd.MarkFlagRequired("user")
	return cmd
}
