package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/verte-zerg/kopra/internal/config"
	"github.com/verte-zerg/kopra/internal/generator"
	"github.com/verte-zerg/kopra/internal/logging"
	"github.com/verte-zerg/kopra/internal/server"
	"github.com/verte-zerg/kopra/internal/store"
)

var serveAddr string

func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the practice data, completion and speech API",
		Args:  cobra.NoArgs,
		RunE:  runServeCmd,
	}
	cmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (default :5001, or :5000 when KOPRA_ENV=production)")
	return cmd
}

func runServeCmd(cmd *cobra.Command, _ []string) error {
	fileCfg, err := config.LoadConfig(config.DefaultConfigPath())
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	env, err := config.LoadEnv()
	if err != nil {
		return err
	}
	logger, err := logging.New(env.AppEnv, env.LogLevel)
	if err != nil {
		return err
	}
	defer func() {
		_ = logger.Sync()
	}()

	addr := env.DefaultAddr()
	applyStringConfig(cmd, "addr", &addr, fileCfg.Server.Addr)
	if cmd.Flags().Changed("addr") {
		addr = serveAddr
	}

	st, err := store.Open(env.DBPath)
	if err != nil {
		return fmt.Errorf("failed to open db: %w", err)
	}
	defer func() {
		if cerr := st.Close(); cerr != nil {
			logger.Warn("failed to close db", zap.Error(cerr))
		}
	}()

	speech, err := newTTSClient(fileCfg.TTS, logger.Named("tts"))
	if err != nil {
		return err
	}
	if env.GroqAPIKey == "" {
		logger.Warn("GROQ_API_KEY is not set; completion requests will fail")
	}
	chat := newCompletionClient(env, fileCfg.Chat, logger.Named("completion"))
	var origins []string
	if fileCfg.Server.CORSOrigins != nil {
		origins = *fileCfg.Server.CORSOrigins
	}
	if err := server.ValidateCORSOrigins(origins); err != nil {
		return err
	}
	srv := server.New(server.Options{
		Store:       st,
		Chat:        chat,
		Generator:   generator.New(chat, st),
		Speech:      speech,
		Logger:      logger,
		Production:  env.Production(),
		CORSOrigins: origins,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	logger.Info("starting server",
		zap.String("env", env.AppEnv),
		zap.String("db", env.DBPath),
	)
	return srv.Run(ctx, addr)
}
