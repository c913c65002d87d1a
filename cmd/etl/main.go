package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/couchcryptid/farm-survey-etl/internal/adapter/csvout"
	httpadapter "github.com/couchcryptid/farm-survey-etl/internal/adapter/http"
	kafkaadapter "github.com/couchcryptid/farm-survey-etl/internal/adapter/kafka"
	"github.com/couchcryptid/farm-survey-etl/internal/adapter/sqlitedb"
	"github.com/couchcryptid/farm-survey-etl/internal/adapter/webcsv"
	"github.com/couchcryptid/farm-survey-etl/internal/config"
	"github.com/couchcryptid/farm-survey-etl/internal/domain"
	"github.com/couchcryptid/farm-survey-etl/internal/observability"
	"github.com/couchcryptid/farm-survey-etl/internal/pipeline"
)

func main() {
	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg.LogLevel, cfg.LogFormat)
	metrics := observability.NewMetrics()

	patterns := make([]domain.Pattern, 0, len(cfg.Pipeline.Patterns))
	for _, spec := range cfg.Pipeline.Patterns {
		p, err := domain.CompilePattern(spec.Measurement, spec.Regex)
		if err != nil {
			logger.Error("invalid pattern", "error", err)
			os.Exit(1)
		}
		patterns = append(patterns, p)
	}

	db := sqlitedb.NewSource(cfg.DBPath, logger)
	csv := webcsv.NewClient(cfg.FetchTimeout, logger)

	// Kafka delivery is feature-flagged via KAFKA_ENABLED / KAFKA_BROKERS.
	var publisher pipeline.MeansPublisher
	var kafkaPublisher *kafkaadapter.Publisher
	if cfg.KafkaEnabled {
		kafkaPublisher = kafkaadapter.NewPublisher(cfg, logger)
		publisher = kafkaPublisher
		logger.Info("kafka publishing enabled", "topic", cfg.KafkaSinkTopic)
	} else {
		logger.Info("kafka publishing disabled")
	}

	field := pipeline.NewField(db, csv, &cfg.Pipeline, logger, metrics)
	weather := pipeline.NewWeather(csv, publisher, &cfg.Pipeline, patterns, logger, metrics)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var srv *httpadapter.Server
	if cfg.HTTPEnabled {
		srv = httpadapter.NewServer(cfg.HTTPAddr, map[string]httpadapter.ReadinessChecker{
			"field":   field,
			"weather": weather,
		}, logger)
		go func() {
			if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("http server error", "error", err)
			}
		}()
	}

	exitCode := 0
	if err := run(ctx, cfg, field, weather, logger); err != nil {
		logger.Error("etl run failed", "error", err)
		exitCode = 1
	}

	stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if srv != nil {
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("http server shutdown error", "error", err)
		}
	}
	if kafkaPublisher != nil {
		if err := kafkaPublisher.Close(); err != nil {
			logger.Error("kafka publisher close error", "error", err)
		}
	}

	logger.Info("shutdown complete")
	os.Exit(exitCode)
}

// run executes both pipelines and writes their CSV outputs.
func run(ctx context.Context, cfg *config.Config, field *pipeline.Field, weather *pipeline.Weather, logger *slog.Logger) error {
	survey, err := field.Run(ctx)
	if err != nil {
		return err
	}
	surveyPath := filepath.Join(cfg.OutputDir, "field_survey.csv")
	if err := csvout.WriteFrame(surveyPath, survey); err != nil {
		return err
	}
	logger.Info("survey output written", "path", surveyPath, "rows", survey.Len())

	means, processed, err := weather.Run(ctx)
	if err != nil {
		return err
	}
	messagesPath := filepath.Join(cfg.OutputDir, "weather_messages.csv")
	if err := csvout.WriteFrame(messagesPath, processed); err != nil {
		return err
	}
	meansPath := filepath.Join(cfg.OutputDir, "station_means.csv")
	if err := csvout.WriteMeans(meansPath, means); err != nil {
		return err
	}
	logger.Info("weather outputs written",
		"messages", messagesPath,
		"means", meansPath,
		"cells", len(means.Cells()),
	)

	return nil
}
