package config

import (
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

type HTTPServer struct {
	Addr string `yaml:"address" env:"HTTP_ADDRESS" env-default:":8080"`
}

type App struct {
	// ID namespaces every cart line item: artifacts/{ID}/users/{userId}/cartItems.
	ID string `yaml:"APP_ID" env:"APP_ID" env-default:"development-app-id"`
}

type Mongo struct {
	URI            string        `yaml:"MONGODB_URI" env:"MONGODB_URI" env-required:"true"`
	Database       string        `yaml:"MONGODB_DATABASE" env:"MONGODB_DATABASE" env-default:"storefront"`
	ConnectTimeout time.Duration `yaml:"CONNECT_TIMEOUT" env:"MONGODB_CONNECT_TIMEOUT" env-default:"10s"`
}

type Database struct {
	Host            string        `yaml:"PG_HOST" env:"PG_HOST" env-default:"localhost"`
	Port            string        `yaml:"PG_PORT" env:"PG_PORT" env-default:"5432"`
	User            string        `yaml:"PG_USER" env:"PG_USER" env-required:"true"`
	Password        string        `yaml:"PG_PASSWORD" env:"PG_PASSWORD" env-required:"true"`
	Name            string        `yaml:"PG_DBNAME" env:"PG_DBNAME" env-required:"true"`
	SSLMode         string        `yaml:"PG_SSLMODE" env:"PG_SSLMODE" env-default:"require"`
	MaxOpenConns    int           `yaml:"MAX_OPEN_CONNS" env:"PG_MAX_OPEN_CONNS" env-default:"25"`
	MaxIdleConns    int           `yaml:"MAX_IDLE_CONNS" env:"PG_MAX_IDLE_CONNS" env-default:"5"`
	ConnMaxLifetime time.Duration `yaml:"CONN_MAX_LIFETIME" env:"PG_CONN_MAX_LIFETIME" env-default:"5m"`
	ConnMaxIdleTime time.Duration `yaml:"CONN_MAX_IDLE_TIME" env:"PG_CONN_MAX_IDLE_TIME" env-default:"1m"`
}

type RedisConnect struct {
	Host     string `yaml:"REDIS_HOST" env:"REDIS_HOST" env-default:"localhost"`
	Port     string `yaml:"REDIS_PORT" env:"REDIS_PORT" env-default:"6379"`
	Username string `yaml:"REDIS_USER" env:"REDIS_USER"`
	Password string `yaml:"REDIS_PASSWORD" env:"REDIS_PASSWORD"`
	DB       int    `yaml:"REDIS_DB" env:"REDIS_DB" env-default:"0"`
}

type RateConfig struct {
	MaxAttempts int64         `yaml:"MAX_ATTEMPTS" env:"MAX_ATTEMPTS" env-default:"5"`
	WindowSize  time.Duration `yaml:"WINDOW_SIZE" env:"WINDOW_SIZE" env-default:"15m"`
}

type Security struct {
	JWTKey          string `yaml:"JWT_KEY" env:"JWT_KEY" env-required:"true"`
	SessionTTLHours int    `yaml:"SESSION_TTL_HOURS" env:"SESSION_TTL_HOURS" env-default:"720"`
}

type Admin struct {
	Password string `yaml:"ADMIN_PASSWORD" env:"ADMIN_PASSWORD"`
}

type ExchangeRate struct {
	APIKey  string        `yaml:"EXCHANGE_RATE_API_KEY" env:"EXCHANGE_RATE_API_KEY"`
	BaseURL string        `yaml:"EXCHANGE_RATE_BASE_URL" env:"EXCHANGE_RATE_BASE_URL" env-default:"https://v6.exchangerate-api.com/v6"`
	Timeout time.Duration `yaml:"TIMEOUT" env:"EXCHANGE_RATE_TIMEOUT" env-default:"10s"`
}

type Currency struct {
	Canonical string `yaml:"CANONICAL_CURRENCY" env:"CANONICAL_CURRENCY" env-default:"PKR"`
	Display   string `yaml:"DISPLAY_CURRENCY" env:"DISPLAY_CURRENCY" env-default:"AUD"`
	Default   string `yaml:"DEFAULT_CURRENCY" env:"DEFAULT_CURRENCY" env-default:"PKR"`
}

type SendGrid struct {
	APIKey    string `yaml:"API_KEY" env:"SENDGRID_API_KEY"`
	FromEmail string `yaml:"FROM_EMAIL" env:"FROM_EMAIL" env-default:"no-reply@storefront.local"`
	FromName  string `yaml:"FROM_NAME" env:"FROM_NAME" env-default:"Storefront"`
}

type Session struct {
	IdleTimeout     time.Duration `yaml:"SESSION_IDLE_TIMEOUT" env:"SESSION_IDLE_TIMEOUT" env-default:"30m"`
	JanitorInterval time.Duration `yaml:"JANITOR_INTERVAL" env:"SESSION_JANITOR_INTERVAL" env-default:"1m"`
}

type Cart struct {
	Store string `yaml:"CART_STORE" env:"CART_STORE" env-default:"mongo"`
}

type Cache struct {
	DefaultTTL time.Duration `yaml:"default_ttl" env:"CACHE_DEFAULT_TTL" env-default:"5m"`
	Namespace  string        `yaml:"namespace" env:"CACHE_NAMESPACE" env-default:"storefront"`
}

type Otel struct {
	Enabled          bool    `yaml:"ENABLED" env:"OTEL_ENABLED" env-default:"false"`
	ServiceName      string  `yaml:"SERVICE_NAME" env:"OTEL_SERVICE_NAME" env-default:"storefront"`
	ExporterEndpoint string  `yaml:"EXPORTER_ENDPOINT" env:"OTEL_EXPORTER_OTLP_ENDPOINT" env-default:"localhost:4318"`
	SamplerRatio     float64 `yaml:"SAMPLER_RATIO" env:"OTEL_SAMPLER_RATIO" env-default:"1.0"`
}

type Config struct {
	Env          string `yaml:"env" env:"ENV" env-required:"true"`
	HTTPServer   `yaml:"http_server"`
	App          App          `yaml:"app"`
	Mongo        Mongo        `yaml:"mongo"`
	Database     Database     `yaml:"database"`
	RedisConnect RedisConnect `yaml:"redis"`
	RateConfig   RateConfig   `yaml:"rateConfig"`
	Security     Security     `yaml:"security"`
	Admin        Admin        `yaml:"admin"`
	ExchangeRate ExchangeRate `yaml:"exchange_rate"`
	Currency     Currency     `yaml:"currency"`
	SendGrid     SendGrid     `yaml:"sendgrid"`
	Session      Session      `yaml:"session"`
	Cart         Cart         `yaml:"cart"`
	Cache        Cache        `yaml:"cache"`
	Otel         Otel         `yaml:"otel"`
}

func MustLoad() *Config {

	configPath := os.Getenv("CONFIG_PATH")

	if configPath == "" {

		flags := flag.String("config", "", "gets the config flag value")

		flag.Parse()

		configPath = *flags

		if configPath == "" {
			configPath = "./config/local.yaml"
		}

	}

	cfg, err := LoadConfigFromPath(configPath)
	if err != nil {
		log.Fatalf("can not read config file: %s", err.Error())
	}

	return cfg
}

func LoadConfigFromPath(configPath string) (*Config, error) {

	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return nil, fmt.Errorf("config file does not exist: %s", configPath)
	}

	var cfg Config

	if err := cleanenv.ReadConfig(configPath, &cfg); err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	return &cfg, nil
}

func (d *Database) GetDSN() string {
	return fmt.Sprintf("postgresql://%s:%s@%s:%s/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.Name, d.SSLMode)
}

func (r *RedisConnect) GetDSN() string {
	return fmt.Sprintf("redis://%s:%s@%s:%s", r.Username, r.Password, r.Host, r.Port)
}

func (r *RedisConnect) Addr() string {
	return fmt.Sprintf("%s:%s", r.Host, r.Port)
}
