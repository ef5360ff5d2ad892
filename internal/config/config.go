package config

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// App holds the runtime configuration shared by hubctl, hubsync and mockapi.
type App struct {
	Env            string        `yaml:"env"`
	APIBaseURL     string        `yaml:"api_base_url"`
	RequestTimeout time.Duration `yaml:"request_timeout"`
	LogLevel       string        `yaml:"log_level"`

	// Session persistence: "file", "redis" or "memory".
	SessionBackend string `yaml:"session_backend"`
	SessionFile    string `yaml:"session_file"`
	RedisAddr      string `yaml:"redis_addr"`
	RedisPrefix    string `yaml:"redis_prefix"`

	PollInterval time.Duration `yaml:"poll_interval"`
	MetricsAddr  string        `yaml:"metrics_addr"`
	// Fan-out of new notifications seen by hubsync: "memory" or "redis".
	QueueBackend string `yaml:"queue_backend"`
	QueueKey     string `yaml:"queue_key"`

	// Mock backend.
	HTTPPort        string        `yaml:"http_port"`
	JWTIssuer       string        `yaml:"jwt_issuer"`
	JWTSigningKey   string        `yaml:"jwt_signing_key"`
	AccessTTL       time.Duration `yaml:"access_ttl"`
	RateLimitPerMin int           `yaml:"rate_limit_per_min"`
	SeedDemoData    bool          `yaml:"seed_demo_data"`

	// Team resource uploads.
	CloudinaryCloudName string `yaml:"cloudinary_cloud_name"`
	CloudinaryAPIKey    string `yaml:"cloudinary_api_key"`
	CloudinaryAPISecret string `yaml:"cloudinary_api_secret"`
	CloudinaryFolder    string `yaml:"cloudinary_folder"`
}

// UploadsEnabled reports whether every Cloudinary credential is set.
func (a App) UploadsEnabled() bool {
	return a.CloudinaryCloudName != "" && a.CloudinaryAPIKey != "" && a.CloudinaryAPISecret != ""
}

// Defaults returns the configuration used when nothing is set.
func Defaults() App {
	return App{
		Env:              "dev",
		APIBaseURL:       "http://localhost:8081/api",
		RequestTimeout:   30 * time.Second,
		LogLevel:         "info",
		SessionBackend:   "file",
		SessionFile:      defaultSessionFile(),
		RedisAddr:        "localhost:6379",
		RedisPrefix:      "contesthub:session:",
		PollInterval:     30 * time.Second,
		QueueBackend:     "memory",
		QueueKey:         "contesthub:notifications",
		HTTPPort:         "8081",
		JWTIssuer:        "contesthub",
		JWTSigningKey:    "dev-signing-secret-change",
		AccessTTL:        24 * time.Hour,
		RateLimitPerMin:  600,
		SeedDemoData:     true,
		CloudinaryFolder: "contesthub",
	}
}

// Load returns configuration from environment variables (and a .env file
// in the working directory, if present) on top of the defaults.
func Load() App {
	_ = godotenv.Load()
	return fromEnv(Defaults())
}

// LoadFile reads a YAML profile and applies environment overrides on top of it.
func LoadFile(path string) (App, error) {
	_ = godotenv.Load()

	cfg := Defaults()
	data, err := os.ReadFile(path)
	if err != nil {
		return App{}, fmt.Errorf("config: read %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return App{}, fmt.Errorf("config: parse %s: %w", path, err)
	}
	return fromEnv(cfg), nil
}

func fromEnv(base App) App {
	return App{
		Env:                 getEnv("APP_ENV", base.Env),
		APIBaseURL:          getEnv("API_BASE_URL", base.APIBaseURL),
		RequestTimeout:      durationEnv("REQUEST_TIMEOUT", base.RequestTimeout),
		LogLevel:            getEnv("LOG_LEVEL", base.LogLevel),
		SessionBackend:      getEnv("SESSION_BACKEND", base.SessionBackend),
		SessionFile:         getEnv("SESSION_FILE", base.SessionFile),
		RedisAddr:           getEnv("REDIS_ADDR", base.RedisAddr),
		RedisPrefix:         getEnv("REDIS_PREFIX", base.RedisPrefix),
		PollInterval:        durationEnv("POLL_INTERVAL", base.PollInterval),
		MetricsAddr:         getEnv("METRICS_ADDR", base.MetricsAddr),
		QueueBackend:        getEnv("QUEUE_BACKEND", base.QueueBackend),
		QueueKey:            getEnv("QUEUE_KEY", base.QueueKey),
		HTTPPort:            getEnv("HTTP_PORT", base.HTTPPort),
		JWTIssuer:           getEnv("JWT_ISSUER", base.JWTIssuer),
		JWTSigningKey:       getEnv("JWT_SIGNING_KEY", base.JWTSigningKey),
		AccessTTL:           durationEnv("ACCESS_TTL", base.AccessTTL),
		RateLimitPerMin:     intEnv("RATE_LIMIT_PER_MIN", base.RateLimitPerMin),
		SeedDemoData:        boolEnv("SEED_DEMO_DATA", base.SeedDemoData),
		CloudinaryCloudName: getEnv("CLOUDINARY_CLOUD_NAME", base.CloudinaryCloudName),
		CloudinaryAPIKey:    getEnv("CLOUDINARY_API_KEY", base.CloudinaryAPIKey),
		CloudinaryAPISecret: getEnv("CLOUDINARY_API_SECRET", base.CloudinaryAPISecret),
		CloudinaryFolder:    getEnv("CLOUDINARY_FOLDER", base.CloudinaryFolder),
	}
}

func defaultSessionFile() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		dir = os.TempDir()
	}
	return filepath.Join(dir, "contesthub", "session.json")
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func durationEnv(key string, fallback time.Duration) time.Duration {
	if val := os.Getenv(key); val != "" {
		d, err := time.ParseDuration(val)
		if err != nil {
			log.Printf("invalid duration for %s: %v, using fallback %s", key, err, fallback)
			return fallback
		}
		return d
	}
	return fallback
}

func boolEnv(key string, fallback bool) bool {
	if val := os.Getenv(key); val != "" {
		switch strings.ToLower(val) {
		case "1", "true", "yes", "on":
			return true
		case "0", "false", "no", "off":
			return false
		}
		log.Printf("invalid bool for %s, using fallback %v", key, fallback)
	}
	return fallback
}

func intEnv(key string, fallback int) int {
	if val := os.Getenv(key); val != "" {
		var parsed int
		if _, err := fmt.Sscanf(val, "%d", &parsed); err == nil {
			return parsed
		}
		log.Printf("invalid int for %s, using fallback %d", key, fallback)
	}
	return fallback
}
