package config

import (
	"errors"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

type Config struct {
	Env string

	Database DatabaseConfig
	Redis    RedisConfig
	Log      LogConfig
	Engine   EngineConfig
	Sweeper  SweeperConfig
}

type DatabaseConfig struct {
	Host         string
	Port         int
	User         string
	Password     string
	Name         string
	SSLMode      string
	MaxOpenConns int
	MaxIdleConns int
}

type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

type LogConfig struct {
	Level  string
	Format string
}

// EngineConfig carries the defaults applied when a caller omits a value.
type EngineConfig struct {
	DefaultImporteMatricula float64
	DefaultSesionSeats      int
	DefaultSesionDuration   float64
	DefaultSesionStart      float64
	MatriculaSequence       string
	FacturaSequence         string
}

// SweeperConfig controls the scheduled overdue-invoice sweep.
type SweeperConfig struct {
	Enabled    bool
	Interval   time.Duration
	Workers    int
	MaxRetries int
	RetryDelay time.Duration
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigFile(".env")
	v.SetConfigType("env")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, err
		}
	}

	cfg := &Config{}

	cfg.Env = v.GetString("ENV")

	cfg.Database = DatabaseConfig{
		Host:         v.GetString("DB_HOST"),
		Port:         v.GetInt("DB_PORT"),
		User:         v.GetString("DB_USER"),
		Password:     v.GetString("DB_PASSWORD"),
		Name:         v.GetString("DB_NAME"),
		SSLMode:      v.GetString("DB_SSL_MODE"),
		MaxOpenConns: v.GetInt("DB_MAX_OPEN_CONNS"),
		MaxIdleConns: v.GetInt("DB_MAX_IDLE_CONNS"),
	}

	cfg.Redis = RedisConfig{
		Host:     v.GetString("REDIS_HOST"),
		Port:     v.GetInt("REDIS_PORT"),
		Password: v.GetString("REDIS_PASSWORD"),
		DB:       v.GetInt("REDIS_DB"),
	}

	cfg.Log = LogConfig{
		Level:  v.GetString("LOG_LEVEL"),
		Format: v.GetString("LOG_FORMAT"),
	}

	cfg.Engine = EngineConfig{
		DefaultImporteMatricula: v.GetFloat64("ENGINE_DEFAULT_IMPORTE_MATRICULA"),
		DefaultSesionSeats:      v.GetInt("ENGINE_DEFAULT_SESION_SEATS"),
		DefaultSesionDuration:   v.GetFloat64("ENGINE_DEFAULT_SESION_DURATION"),
		DefaultSesionStart:      v.GetFloat64("ENGINE_DEFAULT_SESION_START"),
		MatriculaSequence:       v.GetString("ENGINE_MATRICULA_SEQUENCE"),
		FacturaSequence:         v.GetString("ENGINE_FACTURA_SEQUENCE"),
	}

	cfg.Sweeper = SweeperConfig{
		Enabled:    v.GetBool("SWEEPER_ENABLED"),
		Interval:   parseDuration(v.GetString("SWEEPER_INTERVAL"), time.Hour),
		Workers:    v.GetInt("SWEEPER_WORKERS"),
		MaxRetries: v.GetInt("SWEEPER_MAX_RETRIES"),
		RetryDelay: parseDuration(v.GetString("SWEEPER_RETRY_DELAY"), 10*time.Second),
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ENV", EnvDevelopment)

	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", 5432)
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_PASSWORD", "postgres")
	v.SetDefault("DB_NAME", "academia")
	v.SetDefault("DB_SSL_MODE", "disable")
	v.SetDefault("DB_MAX_OPEN_CONNS", 10)
	v.SetDefault("DB_MAX_IDLE_CONNS", 5)

	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", 6379)
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)

	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")

	v.SetDefault("ENGINE_DEFAULT_IMPORTE_MATRICULA", 50.0)
	v.SetDefault("ENGINE_DEFAULT_SESION_SEATS", 15)
	v.SetDefault("ENGINE_DEFAULT_SESION_DURATION", 1.5)
	v.SetDefault("ENGINE_DEFAULT_SESION_START", 9.0)
	v.SetDefault("ENGINE_MATRICULA_SEQUENCE", "MAT")
	v.SetDefault("ENGINE_FACTURA_SEQUENCE", "FAC")

	v.SetDefault("SWEEPER_ENABLED", true)
	v.SetDefault("SWEEPER_INTERVAL", "1h")
	v.SetDefault("SWEEPER_WORKERS", 1)
	v.SetDefault("SWEEPER_MAX_RETRIES", 3)
	v.SetDefault("SWEEPER_RETRY_DELAY", "10s")
}

func parseDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}

	d, err := time.ParseDuration(raw)
	if err != nil {
		return fallback
	}

	return d
}
