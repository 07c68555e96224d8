package config // package config loads runtime configuration from environment variables

import (
	"errors"
	"io/fs"
	"log"
	"os"
	"time"

	"github.com/joho/godotenv"
)

// Config holds the storefront client settings.  Every field maps to an
// environment variable; defaults are chosen so that a bare checkout talks
// to the mock backend on localhost.
type Config struct {
	Env        string        // application environment (dev, prod)
	Port       string        // port of the local storefront API
	APIBaseURL string        // base URL of the external storefront API
	APITimeout time.Duration // per-request timeout of the HTTP client

	Storage  StorageConfig  // where credential, user and cart survive restarts
	Checkout CheckoutConfig // real order submission or simulated success
	Redis    RedisConfig
	Cache    CacheConfig
	Throttle RateLimitConfig
}

// StorageConfig selects the local key-value backend.
type StorageConfig struct {
	Backend string // memory | file | redis
	Path    string // JSON file used by the file backend
	Prefix  string // key namespace used by the redis backend
}

// CheckoutConfig controls how orders are submitted.
type CheckoutConfig struct {
	Mode  string        // api | simulated
	Delay time.Duration // artificial delay of the simulated mode
}

// Load reads the storefront configuration.  A .env file (or the file named
// by ENV_FILE) is applied first when present.
func Load() Config {
	loadDotenv()
	return Config{
		Env:        envStr("APP_ENV", "dev"),
		Port:       envStr("APP_PORT", "8080"),
		APIBaseURL: envStr("API_BASE_URL", "http://localhost:3001/api/"),
		APITimeout: envDur("API_TIMEOUT", 10*time.Second),
		Storage: StorageConfig{
			Backend: envStr("STORAGE_BACKEND", "file"),
			Path:    envStr("STORAGE_PATH", ".shopflow/storage.json"),
			Prefix:  envStr("STORAGE_PREFIX", "shopflow"),
		},
		Checkout: CheckoutConfig{
			Mode:  envStr("CHECKOUT_MODE", "api"),
			Delay: envDur("CHECKOUT_SIMULATED_DELAY", 2*time.Second),
		},
		Redis:    LoadRedisConfig(),
		Cache:    LoadCacheConfig(),
		Throttle: LoadRateLimitConfig(),
	}
}

// MockConfig holds the settings of the in-memory mock backend.
type MockConfig struct {
	Env          string
	Port         string
	JWTSecret    string        // secret used to sign access tokens
	AccessTTLMin int           // access token lifetime in minutes
	BcryptCost   int           // bcrypt cost for seeded and registered passwords
	Delay        time.Duration // artificial latency added to every request
	OTPTTL       time.Duration // lifetime of verification and reset codes
	AMQPURL      string        // empty disables the fulfillment queue
	BkashURL     string        // base of the simulated bKash checkout page
}

// LoadMock reads the mock backend configuration.  Outside dev the JWT
// secret is mandatory.
func LoadMock() MockConfig {
	loadDotenv()
	env := envStr("APP_ENV", "dev")
	secret := os.Getenv("JWT_SECRET")
	if secret == "" {
		if env != "dev" {
			secret = must("JWT_SECRET")
		} else {
			secret = "shopflow-dev-secret"
		}
	}
	amqpURL := os.Getenv("RABBITMQ_URL")
	if amqpURL == "" {
		amqpURL = os.Getenv("AMQP_URL")
	}
	return MockConfig{
		Env:          env,
		Port:         envStr("MOCK_PORT", "3001"),
		JWTSecret:    secret,
		AccessTTLMin: envInt("ACCESS_TOKEN_TTL_MIN", 60),
		BcryptCost:   envInt("BCRYPT_COST", 10),
		Delay:        envDur("MOCK_DELAY", 300*time.Millisecond),
		OTPTTL:       envDur("OTP_TTL", 10*time.Minute),
		AMQPURL:      amqpURL,
		BkashURL:     envStr("BKASH_CHECKOUT_URL", "http://localhost:3001/bkash/checkout"),
	}
}

func loadDotenv() {
	path := envStr("ENV_FILE", ".env")
	if err := godotenv.Load(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		log.Printf("config: cannot load %s: %v", path, err)
	}
}

// must retrieves the value of a required environment variable.  If the
// variable is unset or empty, the application logs a fatal error and exits.
func must(key string) string {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		log.Fatalf("missing required env var: %s", key)
	}
	return v
}
