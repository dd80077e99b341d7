package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/placxborcx/Onboarding-MainPage/internal/geo"
	"github.com/placxborcx/Onboarding-MainPage/internal/validation"
)

type Config struct {
	Server      ServerConfig    `yaml:"server"`
	Database    DatabaseConfig  `yaml:"database"`
	Logging     LoggingConfig   `yaml:"logging"`
	CORS        CORSConfig      `yaml:"cors"`
	RateLimit   RateLimitConfig `yaml:"rate_limit"`
	Tracing     TracingConfig   `yaml:"tracing"`
	Geocoder    GeocoderConfig  `yaml:"geocoder"`
	Parking     ParkingConfig   `yaml:"parking"`
	Suggest     SuggestConfig   `yaml:"suggest"`
	Cache       CacheConfig     `yaml:"cache"`
	Jobs        JobsConfig      `yaml:"jobs"`
	Email       EmailConfig     `yaml:"email"`
	Environment string          `yaml:"environment"`
}

type ServerConfig struct {
	Host    string `yaml:"host"`
	Port    int    `yaml:"port"`
	BaseURL string `yaml:"base_url"`
}

// DatabaseConfig is optional. Without a URL the server runs with in-memory
// caches and signup storage.
type DatabaseConfig struct {
	URL            string `yaml:"url"`
	MaxConnections int    `yaml:"max_connections"`
	MaxIdle        int    `yaml:"max_idle"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

type CORSConfig struct {
	AllowedOrigins  []string `yaml:"allowed_origins"`
	AllowAllOrigins bool     `yaml:"-"`
}

type RateLimitConfig struct {
	PublicPerMinute   int      `yaml:"public_per_minute"`
	SignupPerMinute   int      `yaml:"signup_per_minute"`
	TrustedProxyCIDRs []string `yaml:"trusted_proxy_cidrs"`
}

type TracingConfig struct {
	Enabled      bool    `yaml:"enabled"`
	Exporter     string  `yaml:"exporter"`
	ServiceName  string  `yaml:"service_name"`
	OTLPEndpoint string  `yaml:"otlp_endpoint"`
	SampleRate   float64 `yaml:"sample_rate"`
}

// GeocoderConfig selects the forward/reverse geocoding provider.
type GeocoderConfig struct {
	Provider     string        `yaml:"provider"`
	NominatimURL string        `yaml:"nominatim_url"`
	Email        string        `yaml:"email"`
	MapboxURL    string        `yaml:"mapbox_url"`
	MapboxToken  string        `yaml:"-"`
	CountryCodes string        `yaml:"country_codes"`
	RateLimit    float64       `yaml:"rate_limit"`
	Timeout      time.Duration `yaml:"timeout"`
}

// ParkingConfig points at the City of Melbourne open data portal.
type ParkingConfig struct {
	BaseURL      string        `yaml:"base_url"`
	APIKey       string        `yaml:"-"`
	RadiusMeters int           `yaml:"radius_meters"`
	PageLimit    int           `yaml:"page_limit"`
	MaxPages     int           `yaml:"max_pages"`
	Timeout      time.Duration `yaml:"timeout"`
}

type SuggestConfig struct {
	ReferenceLat float64       `yaml:"reference_lat"`
	ReferenceLon float64       `yaml:"reference_lon"`
	MaxRadiusKm  float64       `yaml:"max_radius_km"`
	Limit        int           `yaml:"limit"`
	Debounce     time.Duration `yaml:"debounce"`
}

// Reference returns the point suggestions are ranked around.
func (c SuggestConfig) Reference() geo.Point {
	return geo.Point{Lat: c.ReferenceLat, Lon: c.ReferenceLon}
}

type CacheConfig struct {
	Backend  string        `yaml:"backend"`
	RedisURL string        `yaml:"-"`
	TTL      time.Duration `yaml:"ttl"`
}

type JobsConfig struct {
	Enabled         bool          `yaml:"enabled"`
	CleanupInterval time.Duration `yaml:"cleanup_interval"`
}

// EmailConfig controls the welcome email sent after a signup. When disabled
// the message is only logged.
type EmailConfig struct {
	Enabled      bool   `yaml:"enabled"`
	From         string `yaml:"from"`
	ResendAPIKey string `yaml:"-"`
}

// Cache backends.
const (
	CacheMemory   = "memory"
	CacheRedis    = "redis"
	CachePostgres = "postgres"
)

// Geocoder providers.
const (
	ProviderNominatim = "nominatim"
	ProviderMapbox    = "mapbox"
)

// Default returns the configuration used when neither a file nor the
// environment says otherwise.
func Default() Config {
	return Config{
		Server: ServerConfig{
			Host:    "0.0.0.0",
			Port:    8080,
			BaseURL: "http://localhost:8080",
		},
		Database: DatabaseConfig{
			MaxConnections: 10,
			MaxIdle:        2,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
		RateLimit: RateLimitConfig{
			PublicPerMinute: 120,
			SignupPerMinute: 5,
		},
		Tracing: TracingConfig{
			Exporter:     "stdout",
			ServiceName:  "parkfinder",
			OTLPEndpoint: "localhost:4317",
			SampleRate:   1.0,
		},
		Geocoder: GeocoderConfig{
			Provider:     ProviderNominatim,
			NominatimURL: "https://nominatim.openstreetmap.org",
			MapboxURL:    "https://api.mapbox.com",
			CountryCodes: "au",
			RateLimit:    1.0,
			Timeout:      10 * time.Second,
		},
		Parking: ParkingConfig{
			BaseURL:      "https://data.melbourne.vic.gov.au/api/explore/v2.1",
			RadiusMeters: 1000,
			PageLimit:    100,
			MaxPages:     5,
			Timeout:      20 * time.Second,
		},
		Suggest: SuggestConfig{
			ReferenceLat: -37.8136,
			ReferenceLon: 144.9631,
			MaxRadiusKm:  40,
			Limit:        8,
			Debounce:     150 * time.Millisecond,
		},
		Cache: CacheConfig{
			Backend: CacheMemory,
			TTL:     30 * 24 * time.Hour,
		},
		Jobs: JobsConfig{
			CleanupInterval: 24 * time.Hour,
		},
		Email: EmailConfig{
			From: "parkfinder <hello@parkfinder.dev>",
		},
		Environment: "development",
	}
}

// Load reads configuration from the environment, after loading a .env file
// from the working directory when one exists.
func Load() (Config, error) {
	return LoadFile("")
}

// LoadFile overlays an optional YAML file on the defaults, then the
// environment. Environment variables always win, and secrets are only read
// from the environment.
func LoadFile(path string) (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return Config{}, fmt.Errorf("load .env: %w", err)
	}

	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config file %s: %w", path, err)
		}
	}

	cfg.applyEnv()

	// Development and test accept any origin; production needs an explicit list.
	cfg.CORS.AllowAllOrigins = cfg.Environment == "development" || cfg.Environment == "test"

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() {
	c.Server.Host = getEnv("SERVER_HOST", c.Server.Host)
	c.Server.Port = getEnvInt("SERVER_PORT", c.Server.Port)
	c.Server.BaseURL = getEnv("SERVER_BASE_URL", c.Server.BaseURL)

	c.Database.URL = getEnv("DATABASE_URL", c.Database.URL)
	c.Database.MaxConnections = getEnvInt("DATABASE_MAX_CONNECTIONS", c.Database.MaxConnections)
	c.Database.MaxIdle = getEnvInt("DATABASE_MAX_IDLE_CONNECTIONS", c.Database.MaxIdle)

	c.Logging.Level = getEnv("LOG_LEVEL", c.Logging.Level)
	c.Logging.Format = getEnv("LOG_FORMAT", c.Logging.Format)

	c.CORS.AllowedOrigins = getEnvList("CORS_ALLOWED_ORIGINS", c.CORS.AllowedOrigins)

	c.RateLimit.PublicPerMinute = getEnvInt("RATE_LIMIT_PUBLIC", c.RateLimit.PublicPerMinute)
	c.RateLimit.SignupPerMinute = getEnvInt("RATE_LIMIT_SIGNUP", c.RateLimit.SignupPerMinute)
	c.RateLimit.TrustedProxyCIDRs = getEnvList("TRUSTED_PROXY_CIDRS", c.RateLimit.TrustedProxyCIDRs)

	c.Tracing.Enabled = getEnvBool("TRACING_ENABLED", c.Tracing.Enabled)
	c.Tracing.Exporter = getEnv("TRACING_EXPORTER", c.Tracing.Exporter)
	c.Tracing.ServiceName = getEnv("OTEL_SERVICE_NAME", c.Tracing.ServiceName)
	c.Tracing.OTLPEndpoint = getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", c.Tracing.OTLPEndpoint)
	c.Tracing.SampleRate = getEnvFloat("TRACING_SAMPLE_RATE", c.Tracing.SampleRate)

	c.Geocoder.Provider = strings.ToLower(getEnv("GEOCODER_PROVIDER", c.Geocoder.Provider))
	c.Geocoder.NominatimURL = getEnv("NOMINATIM_API_URL", c.Geocoder.NominatimURL)
	c.Geocoder.Email = getEnv("NOMINATIM_USER_EMAIL", c.Geocoder.Email)
	c.Geocoder.MapboxURL = getEnv("MAPBOX_API_URL", c.Geocoder.MapboxURL)
	c.Geocoder.MapboxToken = getEnv("MAPBOX_TOKEN", c.Geocoder.MapboxToken)
	c.Geocoder.CountryCodes = getEnv("GEOCODER_COUNTRY_CODES", c.Geocoder.CountryCodes)
	c.Geocoder.RateLimit = getEnvFloat("GEOCODER_RATE_LIMIT", c.Geocoder.RateLimit)
	c.Geocoder.Timeout = getEnvDuration("GEOCODER_TIMEOUT", c.Geocoder.Timeout)

	c.Parking.BaseURL = getEnv("MELBOURNE_API_URL", c.Parking.BaseURL)
	c.Parking.APIKey = getEnv("MELBOURNE_API_KEY", c.Parking.APIKey)
	c.Parking.RadiusMeters = getEnvInt("PARKING_RADIUS_METERS", c.Parking.RadiusMeters)
	c.Parking.PageLimit = getEnvInt("PARKING_PAGE_LIMIT", c.Parking.PageLimit)
	c.Parking.MaxPages = getEnvInt("PARKING_MAX_PAGES", c.Parking.MaxPages)
	c.Parking.Timeout = getEnvDuration("PARKING_TIMEOUT", c.Parking.Timeout)

	c.Suggest.ReferenceLat = getEnvFloat("SUGGEST_REFERENCE_LAT", c.Suggest.ReferenceLat)
	c.Suggest.ReferenceLon = getEnvFloat("SUGGEST_REFERENCE_LON", c.Suggest.ReferenceLon)
	c.Suggest.MaxRadiusKm = getEnvFloat("SUGGEST_MAX_RADIUS_KM", c.Suggest.MaxRadiusKm)
	c.Suggest.Limit = getEnvInt("SUGGEST_LIMIT", c.Suggest.Limit)
	c.Suggest.Debounce = getEnvDuration("SUGGEST_DEBOUNCE", c.Suggest.Debounce)

	c.Cache.Backend = strings.ToLower(getEnv("CACHE_BACKEND", c.Cache.Backend))
	c.Cache.RedisURL = getEnv("REDIS_URL", c.Cache.RedisURL)
	c.Cache.TTL = getEnvDuration("CACHE_TTL", c.Cache.TTL)

	c.Jobs.Enabled = getEnvBool("JOBS_ENABLED", c.Jobs.Enabled)
	c.Jobs.CleanupInterval = getEnvDuration("JOBS_CLEANUP_INTERVAL", c.Jobs.CleanupInterval)

	c.Email.Enabled = getEnvBool("EMAIL_ENABLED", c.Email.Enabled)
	c.Email.From = getEnv("EMAIL_FROM", c.Email.From)
	c.Email.ResendAPIKey = getEnv("RESEND_API_KEY", c.Email.ResendAPIKey)

	c.Environment = getEnv("ENVIRONMENT", c.Environment)
}

// Validate reports the first configuration error found.
func (c Config) Validate() error {
	if c.Environment == "production" && len(c.CORS.AllowedOrigins) == 0 {
		return fmt.Errorf("CORS_ALLOWED_ORIGINS is required in production")
	}

	production := c.Environment == "production"
	if err := validation.BaseURL(c.Server.BaseURL, "SERVER_BASE_URL"); err != nil {
		return err
	}
	if err := validation.Endpoint(c.Parking.BaseURL, "MELBOURNE_API_URL", production); err != nil {
		return err
	}

	switch c.Geocoder.Provider {
	case ProviderNominatim:
		if err := validation.Endpoint(c.Geocoder.NominatimURL, "NOMINATIM_API_URL", production); err != nil {
			return err
		}
	case ProviderMapbox:
		if c.Geocoder.MapboxToken == "" {
			return fmt.Errorf("MAPBOX_TOKEN is required when GEOCODER_PROVIDER=mapbox")
		}
		if err := validation.Endpoint(c.Geocoder.MapboxURL, "MAPBOX_API_URL", production); err != nil {
			return err
		}
	default:
		return fmt.Errorf("unsupported GEOCODER_PROVIDER %q (must be %q or %q)", c.Geocoder.Provider, ProviderNominatim, ProviderMapbox)
	}

	switch c.Cache.Backend {
	case CacheMemory:
	case CacheRedis:
		if c.Cache.RedisURL == "" {
			return fmt.Errorf("REDIS_URL is required when CACHE_BACKEND=redis")
		}
	case CachePostgres:
		if c.Database.URL == "" {
			return fmt.Errorf("DATABASE_URL is required when CACHE_BACKEND=postgres")
		}
	default:
		return fmt.Errorf("unsupported CACHE_BACKEND %q", c.Cache.Backend)
	}

	if c.Email.Enabled && c.Email.ResendAPIKey == "" {
		return fmt.Errorf("RESEND_API_KEY is required when EMAIL_ENABLED=true")
	}

	if !c.Suggest.Reference().Valid() {
		return fmt.Errorf("invalid suggestion reference point %s", c.Suggest.Reference())
	}
	if c.Suggest.MaxRadiusKm <= 0 {
		return fmt.Errorf("SUGGEST_MAX_RADIUS_KM must be positive")
	}
	if c.Parking.RadiusMeters <= 0 || c.Parking.PageLimit <= 0 || c.Parking.MaxPages <= 0 {
		return fmt.Errorf("parking radius, page limit and max pages must be positive")
	}
	return nil
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvFloat(key string, fallback float64) float64 {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvBool(key string, fallback bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := time.ParseDuration(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvList(key string, fallback []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
