package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// PathEnvVar points at an optional YAML config file.
const PathEnvVar = "CONFIG_PATH"

// envKeys maps environment variables to config paths. Unlisted variables are ignored.
var envKeys = map[string]string{
	"HTTP_ADDR":              "http_addr",
	"DB_DSN":                 "db_dsn",
	"SHUTDOWN_TIMEOUT":       "shutdown_timeout",
	"PUBLIC_URL":             "public_url",
	"ASSET_BASE_URL":         "asset_base_url",
	"CORS_ORIGINS":           "cors_origins",
	"LOG_LEVEL":              "log.level",
	"LOG_FORMAT":             "log.format",
	"REDIS_ADDR":             "redis.addr",
	"REDIS_PASSWORD":         "redis.password",
	"REDIS_DB":               "redis.db",
	"CART_PERSIST_TTL":       "cart.persist_ttl",
	"CART_IDLE_TTL":          "cart.idle_ttl",
	"STRIPE_SECRET_KEY":      "stripe.secret_key",
	"STRIPE_WEBHOOK_SECRET":  "stripe.webhook_secret",
	"STRIPE_CURRENCY":        "stripe.currency",
	"CHECKOUT_REQUIRE_AUTH":  "checkout.require_auth",
	"CHECKOUT_METADATA_MAX":  "checkout.metadata_limit",
	"AUTH_JWT_SECRET":        "auth.jwt_secret",
	"SENDGRID_API_KEY":       "email.sendgrid_api_key",
	"EMAIL_FROM":             "email.from",
	"EMAIL_FROM_NAME":        "email.from_name",
	"GCS_BUCKET":             "storage.bucket",
	"SIGNED_URL_TTL":         "storage.signed_url_ttl",
	"NOTIFY_WORKERS":         "notify.workers",
	"NOTIFY_QUEUE_SIZE":      "notify.queue_size",
	"NOTIFY_WEBHOOK_TIMEOUT": "notify.webhook_timeout",
	"SWEEPER_ENABLED":        "sweeper.enabled",
	"SWEEPER_INTERVAL":       "sweeper.interval",
}

var sliceKeys = []string{"cors_origins"}

// FromEnv builds Config from defaults, the YAML file named by CONFIG_PATH (if any)
// and environment variables.
func FromEnv() (Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return Config{}, fmt.Errorf("load defaults: %w", err)
	}

	if path := os.Getenv(PathEnvVar); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return Config{}, fmt.Errorf("load config file %s: %w", path, err)
		}
	}

	if err := k.Load(env.Provider("", ".", envTransform), nil); err != nil {
		return Config{}, fmt.Errorf("load env: %w", err)
	}

	if err := splitSlices(k); err != nil {
		return Config{}, err
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks field constraints.
func (c Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// Warnings lists settings that load cleanly but leave a feature unusable.
func (c Config) Warnings() []string {
	var out []string
	if c.Stripe.WebhookSecret == "" {
		out = append(out, "STRIPE_WEBHOOK_SECRET not set, every payment webhook will be rejected")
	}
	if c.Checkout.RequireAuth && c.Auth.JWTSecret == "" {
		out = append(out, "checkout requires sign-in but AUTH_JWT_SECRET is not set, every checkout will be rejected")
	}
	return out
}

func envTransform(key string) string {
	return envKeys[key]
}

// splitSlices turns comma-separated env values into slices.
func splitSlices(k *koanf.Koanf) error {
	for _, key := range sliceKeys {
		raw, ok := k.Get(key).(string)
		if !ok {
			continue
		}
		var parts []string
		for _, p := range strings.Split(raw, ",") {
			if p = strings.TrimSpace(p); p != "" {
				parts = append(parts, p)
			}
		}
		if err := k.Set(key, parts); err != nil {
			return fmt.Errorf("set %s: %w", key, err)
		}
	}
	return nil
}
