package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	HTTP         HTTPConfig         `yaml:"http"`
	Log          LogConfig          `yaml:"log"`
	Database     DatabaseConfig     `yaml:"database"`
	Redis        RedisConfig        `yaml:"redis"`
	Kafka        KafkaConfig        `yaml:"kafka"`
	Booking      BookingConfig      `yaml:"booking"`
	Registry     RegistryConfig     `yaml:"registry"`
	Payment      PaymentConfig      `yaml:"payment"`
	Pricing      PricingConfig      `yaml:"pricing"`
	Notification NotificationConfig `yaml:"notification"`
	SMTP         SMTPConfig         `yaml:"smtp"`
	Session      SessionConfig      `yaml:"session"`
	Audit        AuditConfig        `yaml:"audit"`
}

type HTTPConfig struct {
	Address         string        `yaml:"address"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

type DatabaseConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Name     string `yaml:"name"`
	SSLMode  string `yaml:"ssl_mode"`
}

func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s", d.Host, d.Port, d.User, d.Password, d.Name, d.SSLMode)
}

type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

type KafkaConfig struct {
	Brokers            []string `yaml:"brokers"`
	NotificationsTopic string   `yaml:"notifications_topic"`
	GroupID            string   `yaml:"group_id"`
}

// Enabled reports whether notifications should be queued rather than sent
// inline.
func (k KafkaConfig) Enabled() bool {
	return len(k.Brokers) > 0 && k.NotificationsTopic != ""
}

type BookingConfig struct {
	ReferencePrefix   string `yaml:"reference_prefix"`
	ReferenceAttempts int    `yaml:"reference_attempts"`
	Currency          string `yaml:"currency"`
}

type RegistryConfig struct {
	BaseURL  string        `yaml:"base_url"`
	APIKey   string        `yaml:"api_key"`
	Timeout  time.Duration `yaml:"timeout"`
	CacheTTL time.Duration `yaml:"cache_ttl"`
}

type PaymentConfig struct {
	SecretKey string        `yaml:"secret_key"`
	MinAmount int64         `yaml:"min_amount"`
	Timeout   time.Duration `yaml:"timeout"`
}

// Configured reports whether gateway credentials are present.
func (p PaymentConfig) Configured() bool {
	return strings.TrimSpace(p.SecretKey) != ""
}

type PricingConfig struct {
	InspectionService string                      `yaml:"inspection_service"`
	Tiers             []int                       `yaml:"tiers"`
	Services          []ServicePriceConfig        `yaml:"services"`
	ComboDiscounts    map[string]int64            `yaml:"combo_discounts"`
	FuelAdjustments   map[string]map[string]int64 `yaml:"fuel_adjustments"`
}

// ServicePriceConfig holds one price per engine tier, in minor units.
type ServicePriceConfig struct {
	Key    string  `yaml:"key"`
	Name   string  `yaml:"name"`
	Prices []int64 `yaml:"prices"`
}

type NotificationConfig struct {
	From        string        `yaml:"from"`
	GarageName  string        `yaml:"garage_name"`
	GaragePhone string        `yaml:"garage_phone"`
	GarageEmail string        `yaml:"garage_email"`
	Address     string        `yaml:"address"`
	GarageCopy  bool          `yaml:"garage_copy"`
	Timeout     time.Duration `yaml:"timeout"`
	Location    string        `yaml:"location"`
}

type SMTPConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

func (s SMTPConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

type SessionConfig struct {
	CookieName string        `yaml:"cookie_name"`
	HashKey    string        `yaml:"hash_key"`
	TTL        time.Duration `yaml:"ttl"`
	Secure     bool          `yaml:"secure"`
}

type AuditConfig struct {
	Actor   string        `yaml:"actor"`
	Timeout time.Duration `yaml:"timeout"`
}

// LoadConfig reads the YAML file at path, overlays secrets from the
// environment (and an optional .env file) and fills in defaults.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	cfg, err := Parse(data)
	if err != nil {
		return nil, err
	}

	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}
	cfg.applyEnv(os.LookupEnv)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Parse decodes YAML and applies defaults. It does not read the environment.
// A pricing map given in the file replaces the default map as a whole.
func Parse(data []byte) (*Config, error) {
	var keys struct {
		Pricing map[string]yaml.Node `yaml:"pricing"`
	}
	if err := yaml.Unmarshal(data, &keys); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg := Default()
	if _, ok := keys.Pricing["combo_discounts"]; ok {
		cfg.Pricing.ComboDiscounts = nil
	}
	if _, ok := keys.Pricing["fuel_adjustments"]; ok {
		cfg.Pricing.FuelAdjustments = nil
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	cfg.applyDefaults()
	return cfg, nil
}

func (c *Config) applyEnv(lookup func(string) (string, bool)) {
	set := func(key string, dst *string) {
		if v, ok := lookup(key); ok && strings.TrimSpace(v) != "" {
			*dst = strings.TrimSpace(v)
		}
	}
	set("DATABASE_PASSWORD", &c.Database.Password)
	set("REDIS_PASSWORD", &c.Redis.Password)
	set("REGISTRY_API_KEY", &c.Registry.APIKey)
	set("PAYMENT_SECRET_KEY", &c.Payment.SecretKey)
	set("SMTP_PASSWORD", &c.SMTP.Password)
	set("SESSION_HASH_KEY", &c.Session.HashKey)
}

func (c *Config) Validate() error {
	var problems []string
	if len(c.Pricing.Tiers) == 0 {
		problems = append(problems, "pricing.tiers must not be empty")
	}
	for i, max := range c.Pricing.Tiers {
		if i == len(c.Pricing.Tiers)-1 {
			if max != 0 {
				problems = append(problems, "pricing.tiers must end with 0 (unbounded)")
			}
			continue
		}
		if max <= 0 || (i > 0 && max <= c.Pricing.Tiers[i-1]) {
			problems = append(problems, "pricing.tiers must be strictly increasing")
			break
		}
	}
	hasInspection := false
	for _, svc := range c.Pricing.Services {
		if len(svc.Prices) != len(c.Pricing.Tiers) {
			problems = append(problems, fmt.Sprintf("pricing.services[%s] needs %d prices", svc.Key, len(c.Pricing.Tiers)))
		}
		if svc.Key == c.Pricing.InspectionService {
			hasInspection = true
		}
	}
	if !hasInspection {
		problems = append(problems, "pricing.inspection_service must name a configured service")
	}
	if len(c.Booking.ReferencePrefix) == 0 {
		problems = append(problems, "booking.reference_prefix is required")
	}
	if len(c.Booking.Currency) != 3 {
		problems = append(problems, "booking.currency must be an ISO 4217 code")
	}
	if len(problems) > 0 {
		return fmt.Errorf("invalid config: %s", strings.Join(problems, "; "))
	}
	return nil
}

func (c *Config) applyDefaults() {
	c.Booking.Currency = strings.ToLower(c.Booking.Currency)
	c.Booking.ReferencePrefix = strings.ToUpper(c.Booking.ReferencePrefix)
	if c.Booking.ReferenceAttempts <= 0 {
		c.Booking.ReferenceAttempts = 5
	}
	if c.Payment.MinAmount <= 0 {
		c.Payment.MinAmount = 50
	}
	if c.Session.TTL <= 0 {
		c.Session.TTL = 24 * time.Hour
	}
}

// Default returns the configuration used when a key is absent from the file.
func Default() *Config {
	return &Config{
		HTTP: HTTPConfig{Address: ":8080", ShutdownTimeout: 5 * time.Second},
		Log:  LogConfig{Level: "info", Format: "json"},
		Database: DatabaseConfig{
			Host: "localhost", Port: 5432, User: "garage", Name: "garage", SSLMode: "disable",
		},
		Redis: RedisConfig{Addr: "localhost:6379"},
		Kafka: KafkaConfig{GroupID: "garage-notifications"},
		Booking: BookingConfig{
			ReferencePrefix:   "GB",
			ReferenceAttempts: 5,
			Currency:          "gbp",
		},
		Registry: RegistryConfig{
			BaseURL:  "https://driver-vehicle-licensing.api.gov.uk",
			Timeout:  5 * time.Second,
			CacheTTL: 24 * time.Hour,
		},
		Payment: PaymentConfig{MinAmount: 50, Timeout: 10 * time.Second},
		Pricing: DefaultPricing(),
		Notification: NotificationConfig{
			From:       "bookings@garage.example",
			GarageName: "The Garage",
			Timeout:    10 * time.Second,
			Location:   "Europe/London",
		},
		SMTP:    SMTPConfig{Host: "localhost", Port: 25},
		Session: SessionConfig{CookieName: "garage_visitor", TTL: 24 * time.Hour},
		Audit:   AuditConfig{Actor: "system", Timeout: 2 * time.Second},
	}
}

// DefaultPricing is the stock tier table. Tier upper bounds are engine
// capacity in cc; the last tier is unbounded.
func DefaultPricing() PricingConfig {
	return PricingConfig{
		InspectionService: "mot",
		Tiers:             []int{1000, 1400, 1600, 2000, 2500, 3000, 0},
		Services: []ServicePriceConfig{
			{Key: "mot", Name: "MOT Test", Prices: []int64{4000, 4000, 4000, 4000, 4000, 4000, 4000}},
			{Key: "interim", Name: "Interim Service", Prices: []int64{8900, 9900, 10900, 11900, 13900, 15900, 17900}},
			{Key: "full", Name: "Full Service", Prices: []int64{14900, 15900, 16900, 18900, 20900, 23900, 26900}},
		},
		ComboDiscounts: map[string]int64{"interim": 1000, "full": 1500},
		FuelAdjustments: map[string]map[string]int64{
			"interim": {"diesel": 1000, "hybrid": 500, "electric": -1500},
			"full":    {"diesel": 2000, "hybrid": 1000, "electric": -2500},
		},
	}
}
