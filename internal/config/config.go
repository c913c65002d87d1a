package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all service settings, populated from environment variables and
// the YAML pipeline file.
type Config struct {
	HTTPAddr        string
	HTTPEnabled     bool
	LogLevel        string
	LogFormat       string
	ShutdownTimeout time.Duration

	DBPath       string
	PipelineFile string
	OutputDir    string
	FetchTimeout time.Duration

	// Kafka publishing configuration (optional).
	KafkaBrokers   []string
	KafkaSinkTopic string
	KafkaEnabled   bool

	Pipeline Pipeline
}

// Pipeline carries the data-shaped settings the core never hardcodes: the
// survey query, the mislabeled column pair, the alias table, the source URLs,
// and the ordered measurement pattern table.
type Pipeline struct {
	SQLQuery        string            `yaml:"sql_query"`
	SwapColumns     []string          `yaml:"swap_columns"`
	CropColumn      string            `yaml:"crop_column"`
	ElevationColumn string            `yaml:"elevation_column"`
	JoinKey         string            `yaml:"join_key"`
	CropAliases     map[string]string `yaml:"crop_aliases"`
	WeatherCSVURL   string            `yaml:"weather_csv_url"`
	StationMapURL   string            `yaml:"station_map_url"`
	Patterns        []PatternSpec     `yaml:"patterns"`
}

// PatternSpec is one uncompiled pattern table entry. YAML sequence order is
// match precedence.
type PatternSpec struct {
	Measurement string `yaml:"measurement"`
	Regex       string `yaml:"regex"`
}

// Load reads configuration from environment variables and the pipeline file,
// applying defaults where unset.
func Load() (*Config, error) {
	shutdownTimeout, err := parsePositiveDuration("SHUTDOWN_TIMEOUT", "10s")
	if err != nil {
		return nil, err
	}
	fetchTimeout, err := parsePositiveDuration("FETCH_TIMEOUT", "30s")
	if err != nil {
		return nil, err
	}

	brokers := parseBrokers(os.Getenv("KAFKA_BROKERS"))
	kafkaEnabled := len(brokers) > 0
	if v := os.Getenv("KAFKA_ENABLED"); v != "" {
		kafkaEnabled = v == "true"
	}

	httpAddr := envOrDefault("HTTP_ADDR", ":8080")
	httpEnabled := httpAddr != ""
	if v := os.Getenv("HTTP_ENABLED"); v != "" {
		httpEnabled = v == "true"
	}

	cfg := &Config{
		HTTPAddr:        httpAddr,
		HTTPEnabled:     httpEnabled,
		LogLevel:        envOrDefault("LOG_LEVEL", "info"),
		LogFormat:       envOrDefault("LOG_FORMAT", "json"),
		ShutdownTimeout: shutdownTimeout,

		DBPath:       envOrDefault("DB_PATH", "assets/mn_farm_survey_small.db"),
		PipelineFile: envOrDefault("PIPELINE_CONFIG", "config/pipeline.yaml"),
		OutputDir:    envOrDefault("OUTPUT_DIR", "data/out"),
		FetchTimeout: fetchTimeout,

		KafkaBrokers:   brokers,
		KafkaSinkTopic: envOrDefault("KAFKA_SINK_TOPIC", "farm-survey-station-means"),
		KafkaEnabled:   kafkaEnabled,
	}

	if cfg.DBPath == "" {
		return nil, errors.New("DB_PATH is required")
	}
	if cfg.KafkaEnabled && len(cfg.KafkaBrokers) == 0 {
		return nil, errors.New("KAFKA_ENABLED is true but KAFKA_BROKERS is not set")
	}
	if cfg.HTTPEnabled && cfg.HTTPAddr == "" {
		return nil, errors.New("HTTP_ENABLED is true but HTTP_ADDR is not set")
	}

	pipeline, err := LoadPipeline(cfg.PipelineFile)
	if err != nil {
		return nil, err
	}
	cfg.Pipeline = *pipeline

	return cfg, nil
}

// LoadPipeline reads and validates the YAML pipeline file.
func LoadPipeline(path string) (*Pipeline, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read pipeline config: %w", err)
	}

	var p Pipeline
	if err := yaml.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("parse pipeline config %s: %w", path, err)
	}

	if p.CropColumn == "" {
		p.CropColumn = "Crop_type"
	}
	if p.ElevationColumn == "" {
		p.ElevationColumn = "Elevation"
	}
	if p.JoinKey == "" {
		p.JoinKey = "Field_ID"
	}

	if err := p.validate(); err != nil {
		return nil, fmt.Errorf("pipeline config %s: %w", path, err)
	}
	return &p, nil
}

func (p *Pipeline) validate() error {
	if strings.TrimSpace(p.SQLQuery) == "" {
		return errors.New("sql_query is required")
	}
	if len(p.SwapColumns) != 2 {
		return fmt.Errorf("swap_columns must name exactly two columns, got %d", len(p.SwapColumns))
	}
	if p.SwapColumns[0] == p.SwapColumns[1] {
		return errors.New("swap_columns entries must differ")
	}
	if p.WeatherCSVURL == "" {
		return errors.New("weather_csv_url is required")
	}
	if p.StationMapURL == "" {
		return errors.New("station_map_url is required")
	}
	if len(p.Patterns) == 0 {
		return errors.New("at least one pattern is required")
	}
	for i, spec := range p.Patterns {
		if spec.Measurement == "" {
			return fmt.Errorf("patterns[%d]: measurement is required", i)
		}
		if spec.Regex == "" {
			return fmt.Errorf("patterns[%d] (%s): regex is required", i, spec.Measurement)
		}
	}
	return nil
}

func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func parseBrokers(raw string) []string {
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	brokers := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			brokers = append(brokers, p)
		}
	}
	return brokers
}

func parsePositiveDuration(key, fallback string) (time.Duration, error) {
	d, err := time.ParseDuration(envOrDefault(key, fallback))
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("invalid %s", key)
	}
	return d, nil
}
