package main

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/mklimuk/skyadmin/pkg/config"
	"github.com/mklimuk/skyadmin/pkg/notify"
)

const (
	appName = "skyadmin"
	Version = "0.1.0"
)

// flags overriding the loaded configuration.
type flags struct {
	configPath string
	dbPath     string
	addr       string
	logLevel   string
}

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	var f flags

	cmd := &cobra.Command{
		Use:           appName,
		Short:         "Reminder service for notes and todos",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd, &f)
		},
	}

	pf := cmd.PersistentFlags()
	pf.StringVarP(&f.configPath, "config", "c", config.DefaultConfigPath, "Config file path (YAML)")
	pf.StringVar(&f.dbPath, "db", "", "Path to SQLite DB (overrides db.path)")
	pf.StringVar(&f.addr, "addr", "", "HTTP listen address (overrides http.addr)")
	pf.StringVar(&f.logLevel, "log-level", "", "Log level: debug, info, warn, error (overrides log.level)")

	cmd.AddCommand(
		&cobra.Command{
			Use:   "serve",
			Short: "Run the reminder pollers and the HTTP API",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				return runServe(cmd, &f)
			},
		},
		&cobra.Command{
			Use:   "check [kind]",
			Short: "Run one reminder check and print the report",
			Args:  cobra.MaximumNArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				kind := ""
				if len(args) == 1 {
					kind = args[0]
				}
				return runCheck(cmd, &f, kind)
			},
		},
		&cobra.Command{
			Use:   "test-notify",
			Short: "Send a test notification through the configured backends",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				return runTestNotify(cmd, &f)
			},
		},
		configCmd(&f),
		&cobra.Command{
			Use:   "version",
			Short: "Print version information",
			Run: func(cmd *cobra.Command, args []string) {
				fmt.Fprintf(cmd.OutOrStdout(), "%s version %s\n", appName, Version)
			},
		},
	)

	return cmd
}

func configCmd(f *flags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage the configuration file",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "init [path]",
		Short: "Write the default configuration",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := f.configPath
			if len(args) == 1 {
				path = args[0]
			}
			if _, err := os.Stat(path); err == nil {
				return fmt.Errorf("config file %s already exists", path)
			}
			cfg, err := config.Defaults()
			if err != nil {
				return err
			}
			if err := cfg.Save(path); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n", path)
			return nil
		},
	})
	return cmd
}

// loadConfig loads the configuration and applies flag overrides.
func loadConfig(f *flags) (*config.Config, error) {
	cfg, err := config.Load(f.configPath)
	if err != nil {
		return nil, err
	}
	if f.dbPath != "" {
		cfg.DB.Path = f.dbPath
	}
	if f.addr != "" {
		cfg.HTTP.Addr = f.addr
	}
	if f.logLevel != "" {
		cfg.Log.Level = f.logLevel
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func newLogger(level string) *slog.Logger {
	lvl := slog.LevelInfo
	switch strings.ToLower(level) {
	case "debug":
		lvl = slog.LevelDebug
	case "warn", "warning":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl}))
}

func setup(f *flags) (*config.Config, *slog.Logger, error) {
	cfg, err := loadConfig(f)
	if err != nil {
		return nil, nil, err
	}
	logger := newLogger(cfg.Log.Level)
	slog.SetDefault(logger)
	return cfg, logger, nil
}

func runServe(cmd *cobra.Command, f *flags) error {
	cfg, logger, err := setup(f)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := newApp(cfg, logger, true)
	if err != nil {
		return err
	}
	defer a.Close()

	logger.Info("skyadmin ready", "version", Version, "db", cfg.DB.Path, "addr", cfg.HTTP.Addr)
	return a.Serve(ctx)
}

func runCheck(cmd *cobra.Command, f *flags, kind string) error {
	cfg, logger, err := setup(f)
	if err != nil {
		return err
	}
	a, err := newApp(cfg, logger, false)
	if err != nil {
		return err
	}
	defer a.Close()

	reports, err := a.CheckNow(cmd.Context(), kind)
	if err != nil {
		return err
	}
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(reports)
}

func runTestNotify(cmd *cobra.Command, f *flags) error {
	cfg, logger, err := setup(f)
	if err != nil {
		return err
	}
	a, err := newApp(cfg, logger, false)
	if err != nil {
		return err
	}
	defer a.Close()

	if !a.notifier.Supported() {
		return fmt.Errorf("test notification: %w (backends: %s)", notify.ErrUnsupported, strings.Join(a.notifier.Backends(), ", "))
	}
	if err := a.notifier.Show(cmd.Context(), notify.TestNotification()); err != nil {
		return fmt.Errorf("test notification failed: %w", err)
	}
	fmt.Fprintln(cmd.OutOrStdout(), "test notification sent")
	return nil
}
