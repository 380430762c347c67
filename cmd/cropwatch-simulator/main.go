package main

import (
	"context"
	"fmt"
	"math/rand"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"cropwatch-anomaly/internal/common/logger"
	mqttcommon "cropwatch-anomaly/internal/common/mqtt"
	"cropwatch-anomaly/internal/config"
	"cropwatch-anomaly/internal/simulator"
)

var (
	transport    string
	plotIDs      []string
	interval     time.Duration
	steps        int
	anomalyRatio float64
	seed         int64
	apiBaseURL   string
	accessToken  string
	username     string
	password     string
	logLevel     string
)

var rootCmd = &cobra.Command{
	Use:   "cropwatch-simulator",
	Short: "Stream simulated sensor readings for one or more plots",
	Long: `Produces moisture, temperature and humidity readings on a diurnal model,
occasionally injecting anomalies, and sends them over MQTT or the readings API.`,
	SilenceUsage: true,
	RunE:         runSimulator,
}

func init() {
	rootCmd.Flags().StringVar(&transport, "transport", "mqtt", "Transport: mqtt or http")
	rootCmd.Flags().StringSliceVar(&plotIDs, "plots", nil, "Plot ids to simulate (comma separated)")
	rootCmd.Flags().DurationVar(&interval, "interval", 10*time.Second, "Delay between steps")
	rootCmd.Flags().IntVar(&steps, "steps", 24, "Number of steps")
	rootCmd.Flags().Float64Var(&anomalyRatio, "anomaly-ratio", 0.05, "Probability of injecting an anomaly per step")
	rootCmd.Flags().Int64Var(&seed, "seed", 0, "Random seed (0 = time based)")
	rootCmd.Flags().StringVar(&apiBaseURL, "api-base-url", getEnv("API_BASE_URL", "http://localhost:8000"), "Readings API base URL (http transport)")
	rootCmd.Flags().StringVar(&accessToken, "access-token", os.Getenv("ACCESS_TOKEN"), "Bearer token (http transport)")
	rootCmd.Flags().StringVar(&username, "username", os.Getenv("API_USERNAME"), "Login username when no token is given")
	rootCmd.Flags().StringVar(&password, "password", os.Getenv("API_PASSWORD"), "Login password when no token is given")
	rootCmd.Flags().StringVar(&logLevel, "log-level", "info", "Log level")
	_ = rootCmd.MarkFlagRequired("plots")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func runSimulator(cmd *cobra.Command, args []string) error {
	log, err := logger.NewLogger(logLevel, "console", "cropwatch-simulator")
	if err != nil {
		return fmt.Errorf("failed to init logger: %w", err)
	}
	defer log.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var publisher simulator.Publisher
	switch transport {
	case "mqtt":
		cfg, err := config.Load()
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
		cfg.MQTT.ClientID = cfg.MQTT.ClientID + "-simulator"
		client, err := mqttcommon.NewClient(&cfg.MQTT, log)
		if err != nil {
			return err
		}
		defer client.Disconnect()
		publisher = simulator.NewMQTTPublisher(client, cfg.MQTT.QoS, log)
	case "http":
		httpPublisher := simulator.NewHTTPPublisher(apiBaseURL, accessToken, log)
		if accessToken == "" {
			if username == "" || password == "" {
				return fmt.Errorf("http transport needs --access-token or --username/--password")
			}
			if err := httpPublisher.Login(ctx, username, password); err != nil {
				return err
			}
		}
		publisher = httpPublisher
	default:
		return fmt.Errorf("unknown transport %q (expected mqtt or http)", transport)
	}

	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	model := simulator.NewModel(rand.New(rand.NewSource(seed)))

	stats, err := simulator.NewSimulator(model, publisher, log).Run(ctx, simulator.RunConfig{
		PlotIDs:      plotIDs,
		Steps:        steps,
		Interval:     interval,
		AnomalyRatio: anomalyRatio,
	})
	if err != nil && ctx.Err() == nil {
		return err
	}

	log.Info("Simulator stopped",
		zap.Int("steps", stats.Steps),
		zap.Int("sent", stats.Sent),
		zap.Int("failed", stats.Failed),
		zap.Int("anomalies", stats.Anomalies),
	)
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
