package cmd

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/permitwise/permitwise/internal/bridge"
	"github.com/permitwise/permitwise/internal/conversation"
	"github.com/permitwise/permitwise/internal/core/auth"
	"github.com/permitwise/permitwise/internal/core/config"
	"github.com/permitwise/permitwise/internal/core/server"
	"github.com/permitwise/permitwise/internal/matcher"
	"github.com/permitwise/permitwise/internal/quota"
	"github.com/permitwise/permitwise/internal/store"
)

const Version = "0.1.0"

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the PermitWise HTTP API",
	RunE:  runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().String("host", "", "HTTP server host override")
	serveCmd.Flags().Int("port", 0, "HTTP server port override")
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("host") {
		cfg.Server.Host, _ = cmd.Flags().GetString("host")
	}
	if cmd.Flags().Changed("port") {
		cfg.Server.Port, _ = cmd.Flags().GetInt("port")
	}

	log, err := buildLogger(cfg)
	if err != nil {
		return err
	}
	defer log.Sync()

	database, queries, err := openDatabase(cfg)
	if err != nil {
		return err
	}
	defer database.Close()

	sqlStore := store.NewSQLStore(queries)

	gateway, err := buildGateway(cfg, log)
	if err != nil {
		return err
	}

	var authenticator *auth.Authenticator
	secrets, err := config.HMACSecrets()
	if err != nil {
		return fmt.Errorf("failed to load HMAC secrets: %w", err)
	}
	if len(secrets) > 0 {
		authenticator = auth.NewAuthenticator(secrets, queries)
	} else {
		log.Warn("no HMAC secrets configured, all requests run as anonymous")
	}

	var limiter quota.Limiter = quota.Unlimited{}
	if cfg.Quota.Enabled {
		if cfg.Redis.Addr != "" {
			client := redis.NewClient(&redis.Options{Addr: cfg.Redis.Addr})
			defer client.Close()
			limiter = quota.NewRedisLimiter(client, cfg.Quota.DailyLimit)
		} else {
			limiter = quota.NewMemLimiter(cfg.Quota.DailyLimit)
		}
	}

	orchestrator := conversation.New(
		sqlStore,
		sqlStore,
		matcher.New(gateway, log),
		bridge.New(sqlStore, log),
		log,
	)

	srv := server.New(cfg, orchestrator, limiter, authenticator, log)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	log.Info("starting PermitWise API",
		zap.String("version", Version),
		zap.String("host", cfg.Server.Host),
		zap.Int("port", cfg.Server.Port))
	return srv.Run(ctx)
}
