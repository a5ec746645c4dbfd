// ============================================================================
// readpulse CLI - Command Line Interface
// ============================================================================
//
// Package: internal/cli
// File: cli.go
// Purpose: Provides user-friendly command line interface based on Cobra framework
//
// Command Structure:
//   readpulse                      # Root command
//   ├── run                        # Execute one reading session
//   │   └── --config, -c          # Specify config file
//   ├── check                      # Validate and display configuration
//   ├── test-push                  # Send a test notification
//   ├── history                    # Show past run statistics
//   ├── --version                  # Display version information
//   └── --help                     # Display help information
//
// Configuration Management:
//   Uses YAML format config file (default: configs/default.yaml), with
//   environment variables layered on top (READ_NUM, PUSH_METHOD, ...).
//   Configuration items include:
//   - read: target count, pacing delays, book/chapter pools
//   - request: timeout and retry/backoff tuning
//   - breaker: circuit breaker threshold and cooldown
//   - session: headers, cookies, or a pasted curl command
//   - push: notification channel and credentials
//   - metrics: Prometheus monitoring configuration
//   - history: run record file and retention
//
// run Command:
//   Executes one complete reading session:
//   1. Load and validate configuration
//   2. Wire transport, resilience, notification and history components
//   3. Start Metrics HTTP server (if enabled)
//   4. Listen for system signals (SIGINT, SIGTERM)
//   5. Run the read loop; report final statistics
//
//   Examples:
//     ./readpulse run
//     ./readpulse run -c custom-config.yaml
//
// Exit Codes:
//   The process exits non-zero only for configuration errors and a
//   failed initial session renewal. Mid-run failures degrade into the
//   final statistics instead.
//
// Signal Handling:
//   run captures SIGINT and SIGTERM; the session stops before the next
//   attempt and partial statistics are reported and persisted.
//
// Metrics Service:
//   If enabled in config, starts HTTP service in separate goroutine:
//   - Default port: 9090
//   - Path: /metrics
//   - Format: Prometheus format
//
// ============================================================================

package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/luyichen/readpulse/internal/config"
	"github.com/luyichen/readpulse/internal/history"
	"github.com/luyichen/readpulse/internal/metrics"
	"github.com/luyichen/readpulse/internal/notify"
	"github.com/luyichen/readpulse/internal/orchestrator"
	"github.com/luyichen/readpulse/internal/resilience"
	"github.com/luyichen/readpulse/internal/signer"
	"github.com/luyichen/readpulse/internal/transport"
	"github.com/luyichen/readpulse/pkg/types"
)

var (
	configFile string
	verbose    bool
)

func BuildCLI() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "readpulse",
		Short: "readpulse: an automated reading-progress session runner",
		Long: `readpulse drives signed reading-progress submissions with:
- Byte-exact request signing
- Retry with exponential backoff and a circuit breaker
- Automatic session renewal
- Push notifications and Prometheus metrics`,
		Version: "2.0.0",
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if verbose {
				slog.SetLogLoggerLevel(slog.LevelDebug)
			}
		},
	}

	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "configs/default.yaml", "config file path")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")

	rootCmd.AddCommand(buildRunCommand())
	rootCmd.AddCommand(buildCheckCommand())
	rootCmd.AddCommand(buildTestPushCommand())
	rootCmd.AddCommand(buildHistoryCommand())

	return rootCmd
}

func buildRunCommand() *cobra.Command {
	var target int

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Start one reading session",
		Long:  "Run the full read loop: renew the session, submit signed reads, and report statistics",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSession(cmd.Context(), target)
		},
	}

	cmd.Flags().IntVar(&target, "reads", 0, "override read.target_count for this run")

	return cmd
}

func runSession(parent context.Context, targetOverride int) error {
	cfg, err := config.Load(configFile, true)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if targetOverride > 0 {
		cfg.Read.TargetCount = targetOverride
	}

	notifier, err := notify.NewManager(pushConfig(cfg))
	if err != nil {
		return fmt.Errorf("failed to configure notifications: %w", err)
	}

	collector := metrics.NewCollector()
	if cfg.Metrics.Enabled {
		go func() {
			slog.Info("starting metrics server", "port", cfg.Metrics.Port)
			if err := collector.StartServer(cfg.Metrics.Port); err != nil {
				slog.Error("metrics server stopped", "error", err)
			}
		}()
	}

	session := &types.Session{
		Headers: cfg.Session.Headers,
		Cookies: cfg.Session.Cookies,
	}

	orch := orchestrator.New(orchestrator.Config{
		TargetCount:  cfg.Read.TargetCount,
		InterDelay:   cfg.InterDelay(),
		FailureDelay: cfg.FailureDelay(),
		BookIDs:      cfg.Read.BookIDs,
		ChapterIDs:   cfg.Read.ChapterIDs,
	}, orchestrator.Deps{
		Session:   session,
		Signer:    signer.New(nil, nil),
		Transport: transport.New(transport.Config{Timeout: cfg.RequestTimeout()}),
		Breaker: resilience.NewCircuitBreaker(resilience.BreakerConfig{
			FailureThreshold: cfg.Breaker.FailureThreshold,
			Cooldown:         cfg.BreakerCooldown(),
			IsFailure: func(err error) bool {
				return errors.Is(err, transport.ErrTransient)
			},
		}),
		Retry: resilience.NewRetryPolicy(resilience.RetryConfig{
			MaxAttempts: cfg.Request.MaxRetries,
			BaseDelay:   cfg.RetryBaseDelay(),
			MaxDelay:    cfg.RetryMaxDelay(),
		}),
		Notifier: notifier,
		Metrics:  collector,
		History:  history.NewStore(cfg.History.Path, cfg.History.Retention),
	})

	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	stats, err := orch.Run(ctx)
	if err != nil {
		return err
	}

	fmt.Println()
	fmt.Println("Session summary")
	fmt.Printf("  Attempts:        %d\n", stats.Attempts)
	fmt.Printf("  Successes:       %d\n", stats.Successes)
	fmt.Printf("  Reading minutes: %.1f\n", stats.ReadingMinutes)
	fmt.Printf("  Success rate:    %.1f%%\n", stats.SuccessRate)
	fmt.Printf("  Duration:        %s\n", stats.FinishedAt.Sub(stats.StartedAt).Round(0))

	return nil
}

func buildCheckCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Validate configuration and show the effective settings",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configFile, true)
			if err != nil {
				return fmt.Errorf("configuration is invalid: %w", err)
			}

			fmt.Println("Configuration OK")
			fmt.Printf("  Config file:     %s\n", configFile)
			fmt.Printf("  Target reads:    %d\n", cfg.Read.TargetCount)
			fmt.Printf("  Book pool:       %d books, %d chapters\n", len(cfg.Read.BookIDs), len(cfg.Read.ChapterIDs))
			fmt.Printf("  Pacing:          %s between reads, %s after failures\n", cfg.InterDelay(), cfg.FailureDelay())
			fmt.Printf("  Retries:         %d attempts, base %s, cap %s\n",
				cfg.Request.MaxRetries, cfg.RetryBaseDelay(), cfg.RetryMaxDelay())
			fmt.Printf("  Breaker:         opens after %d failures, cooldown %s\n",
				cfg.Breaker.FailureThreshold, cfg.BreakerCooldown())
			fmt.Printf("  Session cookies: %d set\n", len(cfg.Session.Cookies))

			if cfg.Push.Method != "" {
				fmt.Printf("  Notifications:   %s\n", cfg.Push.Method)
			} else {
				fmt.Println("  Notifications:   disabled")
			}
			if cfg.Metrics.Enabled {
				fmt.Printf("  Metrics:         http://localhost:%d/metrics\n", cfg.Metrics.Port)
			} else {
				fmt.Println("  Metrics:         disabled")
			}

			return nil
		},
	}
}

func buildTestPushCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "test-push",
		Short: "Send a test message through the configured push channel",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configFile, true)
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}

			notifier, err := notify.NewManager(pushConfig(cfg))
			if err != nil {
				return fmt.Errorf("failed to configure notifications: %w", err)
			}
			if !notifier.Enabled() {
				return errors.New("no push method configured (set push.method or PUSH_METHOD)")
			}

			if !notifier.Test(cmd.Context()) {
				return errors.New("test message delivery failed")
			}
			fmt.Println("Test message delivered")
			return nil
		},
	}
}

func buildHistoryCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "history",
		Short: "Show statistics from past reading sessions",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configFile, true)
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}

			records, err := history.NewStore(cfg.History.Path, cfg.History.Retention).List()
			if err != nil {
				return fmt.Errorf("failed to read history: %w", err)
			}
			if len(records) == 0 {
				fmt.Println("No recorded sessions yet")
				return nil
			}

			fmt.Printf("%-20s  %8s  %9s  %8s  %7s\n", "STARTED", "ATTEMPTS", "SUCCESSES", "MINUTES", "RATE")
			for _, r := range records {
				fmt.Printf("%-20s  %8d  %9d  %8.1f  %6.1f%%\n",
					r.StartedAt.Format("2006-01-02 15:04:05"),
					r.Attempts, r.Successes, r.ReadingMinutes, r.SuccessRate)
			}
			return nil
		},
	}
}

// pushConfig maps the flat config section onto the notify package's
// channel configs.
func pushConfig(cfg *config.Config) notify.Config {
	return notify.Config{
		Method: cfg.Push.Method,
		PushPlus: notify.PushPlusConfig{
			Token: cfg.Push.PushPlusToken,
		},
		Telegram: notify.TelegramConfig{
			BotToken: cfg.Push.TelegramBotToken,
			ChatID:   cfg.Push.TelegramChatID,
			Proxy:    cfg.Push.TelegramProxy,
		},
		WxPusher: notify.WxPusherConfig{
			SPT: cfg.Push.WxPusherSPT,
		},
	}
}
