package cmd

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/hostguard/hostguard/internal/core/bus"
	"github.com/hostguard/hostguard/internal/core/config"
	"github.com/hostguard/hostguard/internal/rules"
	"github.com/hostguard/hostguard/internal/sensor"
)

const Version = "0.1.0"

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Start the runtime security monitor",
	RunE:  runMonitor,
}

func init() {
	rootCmd.AddCommand(runCmd)
	runCmd.Flags().String("rules-dir", "", "rule file directory")
	runCmd.Flags().String("probe-object", "", "compiled BPF object path")
}

func runMonitor(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configFile)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	if logLevel != "" {
		cfg.LogLevel = logLevel
	}
	if logFormat != "" {
		cfg.LogFormat = logFormat
	}
	if cmd.Flags().Changed("rules-dir") {
		cfg.RulesDir, _ = cmd.Flags().GetString("rules-dir")
	}
	if cmd.Flags().Changed("probe-object") {
		cfg.ProbeObject, _ = cmd.Flags().GetString("probe-object")
	}
	if err := config.Validate(cfg); err != nil {
		return err
	}

	log, err := buildLogger(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		return err
	}
	defer log.Sync()

	eventBus := bus.New(log.Named("bus"))

	// Engine construction is all-or-nothing: any malformed rule aborts
	// startup before a single probe attaches.
	engine, err := rules.NewEngine(afero.NewOsFs(), cfg.RulesDir, eventBus, log.Named("rules"))
	if err != nil {
		return fmt.Errorf("failed to build detection engine: %w", err)
	}
	eventBus.Subscribe(engine.Process)

	if cfg.NATSURL != "" {
		publisher, err := bus.NewNATSPublisher(cfg.NATSURL, cfg.SubjectPrefix, log.Named("nats"))
		if err != nil {
			return fmt.Errorf("failed to connect external bus: %w", err)
		}
		defer publisher.Close()
		eventBus.Subscribe(publisher.Publish)
	}

	if cfg.MetricsAddr != "" {
		go serveMetrics(cfg.MetricsAddr, log)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		eventBus.Run()
	}()

	errChan := make(chan error, 1)
	go func() {
		errChan <- sensor.Run(ctx, sensor.Config{ObjectPath: cfg.ProbeObject}, eventBus, log.Named("sensor"))
	}()

	log.Info("hostguard started",
		zap.String("version", Version),
		zap.String("rules_dir", cfg.RulesDir))

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err = <-errChan:
	case <-sigChan:
		log.Info("shutting down")
		cancel()
		err = <-errChan
	}

	eventBus.Close()
	wg.Wait()
	return err
}

// buildLogger constructs the zap logger per configured level and format.
func buildLogger(level, format string) (*zap.Logger, error) {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return nil, fmt.Errorf("bad log level %q: %w", level, err)
	}

	zcfg := zap.NewProductionConfig()
	if format == "text" {
		zcfg.Encoding = "console"
	}
	zcfg.Level = zap.NewAtomicLevelAt(lvl)
	return zcfg.Build()
}

func serveMetrics(addr string, log *zap.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	if err := http.ListenAndServe(addr, mux); err != nil {
		log.Warn("metrics server stopped", zap.Error(err))
	}
}
