package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/example/goalbot/internal/api"
	"github.com/example/goalbot/internal/config"
	"github.com/example/goalbot/internal/consistency"
	"github.com/example/goalbot/internal/orchestrator"
	"github.com/example/goalbot/internal/providers/llm"
	"github.com/example/goalbot/internal/store"
)

var (
	addr    string
	dbPath  string
	envFile string
	verbose bool
)

var rootCmd = &cobra.Command{
	Use:   "goalbot",
	Short: "Goal coaching server",
	Long: `goalbot turns a loosely stated goal into a 30-day plan through a
clarify, refine and breakdown pipeline, then coaches daily check-ins.`,
	SilenceUsage: true,
	RunE:         serve,
}

func init() {
	rootCmd.Flags().StringVar(&addr, "addr", "", "listen address (overrides PORT/ADDR)")
	rootCmd.Flags().StringVar(&dbPath, "db", "", "sqlite database path (overrides GOALBOT_DB)")
	rootCmd.Flags().StringVar(&envFile, "env", ".env", "env file to load before reading the environment")
	rootCmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "debug logging")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func newLogger(level string) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	if verbose || level == "debug" {
		cfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
	}
	return cfg.Build()
}

func serve(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(envFile)
	if err != nil {
		return err
	}
	if addr != "" {
		cfg.Addr = addr
	}
	if dbPath != "" {
		cfg.DBPath = dbPath
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rules := consistency.DefaultRules()
	if cfg.RulesPath != "" {
		if rules, err = consistency.LoadRules(cfg.RulesPath); err != nil {
			return err
		}
	}

	client, err := llm.New(ctx, cfg.LLM, logger)
	if err != nil {
		return err
	}
	if c, ok := client.(io.Closer); ok {
		defer c.Close()
	}
	provider, model := llm.Describe(client)
	logger.Info("llm provider selected", zap.String("provider", provider), zap.String("model", model))

	st, err := store.Open(cfg.DBPath)
	if err != nil {
		return err
	}
	defer st.Close()

	pipeline := orchestrator.New(client, orchestrator.Options{
		StepBudget:  cfg.StepBudget,
		CallTimeout: cfg.GenerateTimeout,
		Verifier:    consistency.NewValidator(rules),
		Hub:         orchestrator.NewHub(),
		Logger:      logger,
	})

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           api.New(pipeline, st, logger).Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	errc := make(chan error, 1)
	go func() {
		logger.Info("server listening", zap.String("addr", cfg.Addr), zap.String("db", st.DBPath))
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
	}
	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
