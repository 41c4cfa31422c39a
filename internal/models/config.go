package models

import (
	"fmt"
	"strings"
	"time"

	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
)

type DatabaseConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	DBName   string `mapstructure:"dbname"`
	SSLMode  string `mapstructure:"sslmode"`
	MaxConns int32  `mapstructure:"max_conns"`
}

// DSN renders the connection string understood by pgxpool.ParseConfig.
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.DBName, d.SSLMode)
}

type HTTPConfig struct {
	Enabled         bool          `mapstructure:"enabled"`
	Port            int           `mapstructure:"port"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

type KafkaConfig struct {
	BrokerList       string `mapstructure:"broker_list"`
	GroupID          string `mapstructure:"group_id"`
	SessionTimeoutMs int    `mapstructure:"session_timeout_ms"`
}

func (k KafkaConfig) Brokers() []string {
	return strings.Split(k.BrokerList, ",")
}

type RabbitMQConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	VHost    string `mapstructure:"vhost"`
	Exchange string `mapstructure:"exchange"`
	UseTLS   bool   `mapstructure:"use_tls"`
	Prefetch int    `mapstructure:"prefetch"`
}

type ConsumerConfig struct {
	Enabled bool `mapstructure:"enabled"`
}

type NightlyConfig struct {
	Enabled      bool   `mapstructure:"enabled"`
	RunAt        string `mapstructure:"run_at"`        // HH:MM in the configured time zone
	SkipAnalyzed bool   `mapstructure:"skip_analyzed"` // ignore deliveries at or before the summary watermark
}

type CloudStorageConfig struct {
	Provider   string `mapstructure:"provider"`
	BucketName string `mapstructure:"bucket_name"`
	Region     string `mapstructure:"region"`
}

type ReportConfig struct {
	Enabled           bool               `mapstructure:"enabled"`
	OutputDestination string             `mapstructure:"output_destination"` // local | cloud
	OutputPath        string             `mapstructure:"output_path"`
	OutputFolder      string             `mapstructure:"output_folder"`
	CloudStorage      CloudStorageConfig `mapstructure:"cloud_storage"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"` // json | text
}

type SeedConfig struct {
	Stores         int     `mapstructure:"stores"`
	OrdersPerStore int     `mapstructure:"orders_per_store"`
	CityLat        float64 `mapstructure:"city_latitude"`
	CityLon        float64 `mapstructure:"city_longitude"`
	UrbanRadius    float64 `mapstructure:"urban_radius"`
	MinPrepTime    int     `mapstructure:"min_prep_time"`
	MaxPrepTime    int     `mapstructure:"max_prep_time"`
	LateRatio      float64 `mapstructure:"late_ratio"`
}

type Config struct {
	Timezone                string         `mapstructure:"timezone"`
	Storage                 string         `mapstructure:"storage"` // postgres | memory
	Broker                  string         `mapstructure:"broker"`  // kafka | rabbitmq | log
	CookingCompletedMinutes int            `mapstructure:"cooking_completed_minutes"`
	HTTP                    HTTPConfig     `mapstructure:"http"`
	Database                DatabaseConfig `mapstructure:"database"`
	Kafka                   KafkaConfig    `mapstructure:"kafka"`
	RabbitMQ                RabbitMQConfig `mapstructure:"rabbitmq"`
	Consumer                ConsumerConfig `mapstructure:"consumer"`
	Nightly                 NightlyConfig  `mapstructure:"nightly"`
	Report                  ReportConfig   `mapstructure:"report"`
	Log                     LogConfig      `mapstructure:"log"`
	Seed                    SeedConfig     `mapstructure:"seed"`
}

// Location resolves the configured time zone. Peak hours and day boundaries are evaluated in it.
func (cfg *Config) Location() (*time.Location, error) {
	if cfg.Timezone == "" || cfg.Timezone == "Local" {
		return time.Local, nil
	}
	loc, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid timezone %q: %w", cfg.Timezone, err)
	}
	return loc, nil
}

// NightlyRunAt parses nightly.run_at into hour and minute.
func (cfg *Config) NightlyRunAt() (hour, minute int, err error) {
	t, err := time.Parse("15:04", cfg.Nightly.RunAt)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid nightly.run_at %q: %w", cfg.Nightly.RunAt, err)
	}
	return t.Hour(), t.Minute(), nil
}

func SetDefaults(v *viper.Viper) {
	v.SetDefault("timezone", "Local")
	v.SetDefault("storage", "postgres")
	v.SetDefault("broker", "kafka")
	v.SetDefault("cooking_completed_minutes", 20)

	v.SetDefault("http.enabled", true)
	v.SetDefault("http.port", 8080)
	v.SetDefault("http.shutdown_timeout", 5*time.Second)

	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "deli")
	v.SetDefault("database.password", "deli")
	v.SetDefault("database.dbname", "deli")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.max_conns", 10)

	v.SetDefault("kafka.broker_list", "localhost:9092")
	v.SetDefault("kafka.group_id", "smarteta-group")
	v.SetDefault("kafka.session_timeout_ms", 45000)

	v.SetDefault("rabbitmq.host", "localhost")
	v.SetDefault("rabbitmq.port", 5672)
	v.SetDefault("rabbitmq.user", "guest")
	v.SetDefault("rabbitmq.password", "guest")
	v.SetDefault("rabbitmq.vhost", "/")
	v.SetDefault("rabbitmq.exchange", "delivery_topic")
	v.SetDefault("rabbitmq.prefetch", 10)

	v.SetDefault("consumer.enabled", true)

	v.SetDefault("nightly.enabled", true)
	v.SetDefault("nightly.run_at", "00:00")
	v.SetDefault("nightly.skip_analyzed", false)

	v.SetDefault("report.enabled", false)
	v.SetDefault("report.output_destination", "local")
	v.SetDefault("report.output_path", "output")
	v.SetDefault("report.output_folder", "delay_reports")
	v.SetDefault("report.cloud_storage.provider", "s3")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	v.SetDefault("seed.stores", 20)
	v.SetDefault("seed.orders_per_store", 0)
	v.SetDefault("seed.city_latitude", 37.5665)
	v.SetDefault("seed.city_longitude", 126.9780)
	v.SetDefault("seed.urban_radius", 10.0)
	v.SetDefault("seed.min_prep_time", 10)
	v.SetDefault("seed.max_prep_time", 40)
	v.SetDefault("seed.late_ratio", 0.2)
}

// LoadConfig initializes and reads the configuration using the global Viper instance, so
// flags bound by the command line take part.
func LoadConfig(cfgFile string) (*Config, error) {
	return LoadConfigFrom(viper.GetViper(), cfgFile)
}

func LoadConfigFrom(v *viper.Viper, cfgFile string) (*Config, error) {
	SetDefaults(v)

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.AddConfigPath(".")
		v.AddConfigPath("configs")
		v.SetConfigName("deli")
		v.SetConfigType("yaml")
	}

	v.SetEnvPrefix("deli")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv() // Read in environment variables that match

	if err := v.ReadInConfig(); err != nil {
		// a missing default file is fine, defaults and env still apply
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok || cfgFile != "" {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var config Config
	decoderConfigOption := viper.DecoderConfigOption(func(config *mapstructure.DecoderConfig) {
		config.DecodeHook = mapstructure.ComposeDecodeHookFunc(
			config.DecodeHook,
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToTimeHookFunc(time.RFC3339),
		)
	})
	if err := v.Unmarshal(&config, decoderConfigOption); err != nil {
		return nil, fmt.Errorf("unable to decode into struct, %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &config, nil
}

func (cfg *Config) Validate() error {
	switch cfg.Storage {
	case "postgres", "memory":
	default:
		return fmt.Errorf("unsupported storage %q", cfg.Storage)
	}
	switch cfg.Broker {
	case "kafka", "rabbitmq", "log":
	default:
		return fmt.Errorf("unsupported broker %q", cfg.Broker)
	}
	if _, err := cfg.Location(); err != nil {
		return err
	}
	if _, _, err := cfg.NightlyRunAt(); err != nil {
		return err
	}
	if cfg.CookingCompletedMinutes < 0 {
		return fmt.Errorf("cooking_completed_minutes must not be negative")
	}
	return nil
}
