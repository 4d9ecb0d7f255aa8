package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"farmmarket/internal/config"
	"farmmarket/internal/infra/cache"
	"farmmarket/internal/infra/db"
	"farmmarket/internal/infra/telemetry"
	"farmmarket/internal/logger"
	"farmmarket/internal/server"
	"farmmarket/internal/usecase"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:           "farmmarket",
	Short:         "Farmer marketplace API",
	SilenceUsage:  true,
	SilenceErrors: true,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP server",
	RunE:  runServe,
}

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create or update database tables",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withDB(cmd.Context(), func(_ config.Config, gdb *gorm.DB) error {
			if err := db.Migrate(gdb); err != nil {
				return fmt.Errorf("migrate: %w", err)
			}
			zap.L().Info("migration finished")
			return nil
		})
	},
}

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Insert the admin account and demo catalog",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withDB(cmd.Context(), func(cfg config.Config, gdb *gorm.DB) error {
			if err := db.Migrate(gdb); err != nil {
				return fmt.Errorf("migrate: %w", err)
			}
			return db.Seed(cmd.Context(), gdb, cfg)
		})
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "YAML config file (or set CONFIG_FILE env)")
	rootCmd.AddCommand(serveCmd, migrateCmd, seedCmd)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

// 設定読み込み → ロガー → DB接続
func withDB(ctx context.Context, fn func(cfg config.Config, gdb *gorm.DB) error) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	log, err := logger.New(cfg.GoEnv)
	if err != nil {
		return fmt.Errorf("logger: %w", err)
	}
	defer func() { _ = log.Sync() }()
	defer logger.Install(log)()

	gdb, err := db.Connect(cfg)
	if err != nil {
		return fmt.Errorf("connect db: %w", err)
	}
	defer func() {
		if sqlDB, err := gdb.DB(); err == nil {
			_ = sqlDB.Close()
		}
	}()
	return fn(cfg, gdb)
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	return withDB(ctx, func(cfg config.Config, gdb *gorm.DB) error {
		shutdownTracing, err := telemetry.Init(cfg.TracingEnabled)
		if err != nil {
			return fmt.Errorf("tracing: %w", err)
		}
		defer func() {
			sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = shutdownTracing(sctx)
		}()

		if cfg.GoEnv != "prod" {
			if err := db.Migrate(gdb); err != nil {
				return fmt.Errorf("migrate: %w", err)
			}
		}

		//REDIS_ADDRが空ならキャッシュなし
		var c usecase.Cache = cache.Noop{}
		if cfg.RedisAddr != "" {
			client, err := cache.Dial(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
			if err != nil {
				return fmt.Errorf("redis: %w", err)
			}
			defer func() { _ = client.Close() }()
			c = cache.NewRedisCache(client, "farmmarket", cfg.CacheTTL)
		}

		e := server.NewApp(cfg, gdb, c, zap.L())
		return server.Run(ctx, cfg, e)
	})
}
