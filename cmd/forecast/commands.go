package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"CoinForecast/internal/notifier"
	"CoinForecast/internal/scheduler"
	"CoinForecast/internal/server"
)

const version = "0.1.0"

func newRootCmd() *cobra.Command {
	var configPath string

	rootCmd := &cobra.Command{
		Use:   "forecast",
		Short: "Generate simulated coin price forecasts",
		Long: `forecast fetches the current coin price, simulates a random-walk history and
1D/1W/1M hourly forecasts, and writes the forecasts to a JSON file for the front-end.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runOnce(cmd.Context(), configPath)
		},
	}
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "configuration file path (default configs/config.yaml)")

	rootCmd.AddCommand(newServeCmd(&configPath))
	rootCmd.AddCommand(newVersionCmd())
	return rootCmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "forecast %s\n", version)
		},
	}
}

func newServeCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serve predictions over HTTP and regenerate them on a schedule",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return serve(*configPath)
		},
	}
}

func runOnce(ctx context.Context, configPath string) error {
	if ctx == nil {
		ctx = context.Background()
	}
	cfg, err := loadConfig(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	rec := openRecorder(cfg)
	defer rec.Close()

	res, err := buildPipeline(cfg, rec).Run(ctx)
	if err != nil {
		return err
	}
	log.Printf("[INFO] %s forecast done, anchor %.2f (%s)", res.Quote.CoinID, res.Quote.Price, res.Quote.Source)
	return nil
}

func serve(configPath string) error {
	log.Println("[INFO] forecast server starting...")
	cfg, err := loadConfig(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	rec := openRecorder(cfg)
	defer rec.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var tn *notifier.TelegramNotifier
	if cfg.NotifierEnabled() {
		tn = notifier.NewTelegramNotifier(cfg.Telegram.BotToken, cfg.Telegram.ChatID, cfg.Proxy)
	}

	sched := scheduler.NewScheduler(ctx, buildPipeline(cfg, rec), tn)
	if err := sched.Register(cfg.Schedule.ForecastCron); err != nil {
		return err
	}
	sched.Start()
	defer sched.Stop()

	if tn != nil {
		go tn.StartPolling(ctx, sched.HandleCommand)
		log.Println("[INFO] Telegram polling started")
	}

	if cfg.Schedule.RunOnStart {
		log.Println("[INFO] run_on_start enabled, generating forecast now")
		go func() {
			if _, err := sched.RunNow(); err != nil {
				log.Printf("[ERROR] initial run: %v", err)
			}
		}()
	}

	srv := (&server.Server{
		Runner:        sched,
		Recorder:      rec,
		OutputPath:    cfg.Output.Path,
		AllowedOrigin: cfg.Server.AllowedOrigin,
	}).NewHTTPServer(cfg.Server.Addr)

	errCh := make(chan error, 1)
	go func() {
		log.Printf("[INFO] listening on %s", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		log.Println("[INFO] shutdown signal received, stopping...")
	case err := <-errCh:
		return fmt.Errorf("http server: %w", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("[WARN] server shutdown: %v", err)
	}
	log.Println("[INFO] forecast server stopped")
	return nil
}
