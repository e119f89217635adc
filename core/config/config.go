package config

import (
	"reflect"
	"strings"
	"time"

	"mixer-report/core/database"
	"mixer-report/core/lock"
	"mixer-report/core/logger"
	"mixer-report/core/server"
	"mixer-report/core/storage"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds all configuration for the application.
// It is divided into partial configurations for better modularity.
type Config struct {
	// Server holds configuration for the HTTP server.
	Server server.Config `mapstructure:"server"`
	// Storage holds configuration for the object storage (e.g., S3, Minio).
	Storage storage.Config `mapstructure:"storage"`
	// Log holds configuration for the logger.
	Log logger.Config `mapstructure:"log"`
	// Database is the plant database holding sources, the report table and the checkpoint log.
	Database database.Config `mapstructure:"database"`
	// Upstream is the shared database the copy command reads from.
	Upstream database.Config `mapstructure:"upstream"`
	// Pipeline holds configuration for the reconciliation loop.
	Pipeline Pipeline `mapstructure:"pipeline"`
}

// Pipeline holds configuration for the reconciliation loop.
type Pipeline struct {
	// Profile is the path of the site profile (YAML or JSON).
	Profile string `mapstructure:"profile" default:"profile.yaml"`
	// IntervalSeconds is the pause after each cycle.
	IntervalSeconds int `mapstructure:"interval_seconds" default:"60"`
	// Source selects where raw streams come from (database, storage).
	Source string `mapstructure:"source" default:"database"`
	// ArchivePrefix enables the CSV delivery archive in the storage bucket when set.
	ArchivePrefix string `mapstructure:"archive_prefix" default:""`
	// Lock configures the single-active-instance lease.
	Lock lock.Config `mapstructure:"lock"`
	// Kafka configures the optional fan-out of delivered rows.
	Kafka Kafka `mapstructure:"kafka"`
}

// Kafka holds configuration for the delivered-row topic.
type Kafka struct {
	// Brokers enables publishing when non-empty (comma separated in the environment).
	Brokers []string `mapstructure:"brokers" default:""`
	// Topic receives one message per delivered row.
	Topic string `mapstructure:"topic" default:"mixer-report"`
}

const (
	SourceDatabase = "database"
	SourceStorage  = "storage"
)

// Interval returns the pause between cycles.
func (p Pipeline) Interval() time.Duration {
	return time.Duration(p.IntervalSeconds) * time.Second
}

// LoadConfig loads configuration from environment variables and .env file.
func LoadConfig(path string) (*Config, error) {
	envPath := path + "/.env"
	if path == "." {
		envPath = ".env"
	}

	// Ignore error if file doesn't exist (e.g. production)
	_ = godotenv.Overload(envPath)

	v := viper.New()

	// Recursively parse struct tags to set default values
	bindValues(v, Config{}, "")

	// Map environment variables to nested keys (e.g. PIPELINE_KAFKA_TOPIC -> pipeline.kafka.topic)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, err
	}

	return &config, nil
}

// bindValues uses reflection to iterate over the struct and set default values in Viper
// based on the 'default' and 'mapstructure' tags.
func bindValues(v *viper.Viper, iface any, prefix string) {
	t := reflect.TypeOf(iface)

	if t.Kind() == reflect.Ptr {
		t = t.Elem()
	}

	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		tag := field.Tag.Get("mapstructure")
		if tag == "" {
			continue
		}

		key := tag
		if prefix != "" {
			key = prefix + "." + tag
		}

		if field.Type.Kind() == reflect.Struct {
			bindValues(v, reflect.New(field.Type).Elem().Interface(), key)
			continue
		}

		// Always set default (even if empty) to register the key for AutomaticEnv
		v.SetDefault(key, field.Tag.Get("default"))
	}
}
