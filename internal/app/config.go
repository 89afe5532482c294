package app

import (
	"os"
	"time"

	"github.com/cristalhq/aconfig"
	"github.com/cristalhq/aconfig/aconfigyaml"
	"github.com/go-faster/errors"
)

// Config holds the complete application configuration, loadable from
// environment variables (STORE_ prefix), flags, or YAML config files.
type Config struct {
	Addr          string `default:"0.0.0.0:8080" usage:"API server listen address"`
	DatabaseURL   string `usage:"PostgreSQL connection URL (STORE_DATABASE_URL or DATABASE_URL)" flag:"database-url"`
	PublicBaseURL string `default:"" usage:"Public shop URL used in sitemap locations" flag:"public-base-url"`
	APIKeyPepper  string `usage:"HMAC pepper for admin API key hashing (STORE_API_KEY_PEPPER)" flag:"api-key-pepper"`
	// Location is the shop's time zone for dashboards, notifications and jobs.
	Location  string `default:"Asia/Dhaka" usage:"IANA time zone of the shop"`
	Session   SessionConfig
	RateLimit RateLimitConfig
	CORS      CORSConfig
	Graceful  GracefulConfig
	Pathao    PathaoConfig
	Telegram  TelegramConfig
	Visitors  VisitorsConfig
}

// SessionConfig controls the signed session cookie holding cart, wishlist
// and login state.
type SessionConfig struct {
	Secret string        `usage:"Session cookie signing secret (STORE_SESSION_SECRET)" flag:"session-secret"`
	MaxAge time.Duration `default:"336h" usage:"Session cookie lifetime" flag:"session-max-age"`
	Secure bool          `default:"false" usage:"Send the session cookie over HTTPS only" flag:"session-secure"`
}

// RateLimitConfig controls the per-client token bucket rate limiter.
type RateLimitConfig struct {
	Max    int           `default:"100" usage:"Max requests per window"`
	Window time.Duration `default:"1m"  usage:"Rate limit window duration"`
}

// CORSConfig controls Cross-Origin Resource Sharing headers.
type CORSConfig struct {
	Origins          []string `default:"*" usage:"Allowed CORS origins"`
	AllowCredentials bool     `default:"false" usage:"Allow credentials (cookies, auth headers)" flag:"cors-credentials"`
}

// GracefulConfig controls graceful shutdown timing.
type GracefulConfig struct {
	ReadinessDelay  time.Duration `default:"3s"  usage:"Delay after readiness=false before shutdown" flag:"readiness-delay"`
	ShutdownTimeout time.Duration `default:"15s" usage:"Maximum shutdown duration" flag:"shutdown-timeout"`
}

// PathaoConfig configures the courier merchant API.
type PathaoConfig struct {
	BaseURL      string        `default:"https://api-hermes.pathao.com" usage:"Pathao API base URL" flag:"pathao-base-url"`
	ClientID     string        `usage:"Pathao client id" flag:"pathao-client-id"`
	ClientSecret string        `usage:"Pathao client secret" flag:"pathao-client-secret"`
	Username     string        `usage:"Pathao merchant login" flag:"pathao-username"`
	Password     string        `usage:"Pathao merchant password" flag:"pathao-password"`
	StoreID      int           `default:"0" usage:"Pathao store id parcels are picked up from" flag:"pathao-store-id"`
	SenderName   string        `default:"" usage:"Sender name printed on parcels" flag:"pathao-sender-name"`
	SenderPhone  string        `default:"" usage:"Sender phone printed on parcels" flag:"pathao-sender-phone"`
	Timeout      time.Duration `default:"30s" usage:"Pathao request timeout" flag:"pathao-timeout"`
	AutoDispatch bool          `default:"false" usage:"Send every new order to Pathao after checkout" flag:"pathao-auto-dispatch"`
	// StatusRefresh is a cron spec; empty disables the job.
	StatusRefresh string `default:"@every 30m" usage:"Cron spec for courier status refresh" flag:"pathao-status-refresh"`
}

// TelegramConfig configures staff order notifications.
type TelegramConfig struct {
	BaseURL  string        `default:"https://api.telegram.org" usage:"Bot API base URL" flag:"telegram-base-url"`
	BotToken string        `usage:"Bot token; empty disables notifications" flag:"telegram-bot-token"`
	ChatID   string        `usage:"Chat receiving order notifications" flag:"telegram-chat-id"`
	Timeout  time.Duration `default:"10s" usage:"Bot API request timeout" flag:"telegram-timeout"`
}

// VisitorsConfig controls visit tracking.
type VisitorsConfig struct {
	Retention time.Duration `default:"8760h" usage:"How long visit rows are kept" flag:"visitors-retention"`
	Purge     string        `default:"@daily" usage:"Cron spec for purging old visits" flag:"visitors-purge"`
}

// LoadConfig loads configuration from environment variables, YAML config files,
// and applies platform-specific defaults.
func LoadConfig() (*Config, error) {
	var cfg Config
	loader := aconfig.LoaderFor(&cfg, aconfig.Config{
		EnvPrefix: "STORE",
		Files:     []string{"config.yaml", "/etc/storefront/config.yaml"},
		FileDecoders: map[string]aconfig.FileDecoder{
			".yaml": aconfigyaml.New(),
		},
	})
	if err := loader.Load(); err != nil {
		return nil, errors.Wrap(err, "load config")
	}
	cfg.applyPlatformDefaults()

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	if c.DatabaseURL == "" {
		return errors.New("database URL is required: set STORE_DATABASE_URL or DATABASE_URL")
	}
	if c.Session.Secret == "" {
		return errors.New("session secret is required: set STORE_SESSION_SECRET")
	}
	if _, err := time.LoadLocation(c.Location); err != nil {
		return errors.Wrapf(err, "location %q", c.Location)
	}
	return nil
}

// applyPlatformDefaults maps platform-provided environment variables (Railway,
// Render, etc.) that use standard names like DATABASE_URL and PORT to the
// application's STORE_-prefixed configuration.
func (c *Config) applyPlatformDefaults() {
	if c.DatabaseURL == "" {
		if v := os.Getenv("DATABASE_URL"); v != "" {
			c.DatabaseURL = v
		}
	}
	if port := os.Getenv("PORT"); port != "" && c.Addr == "0.0.0.0:8080" {
		c.Addr = "0.0.0.0:" + port
	}
}
