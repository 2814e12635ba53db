package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"
)

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"

	UpdateMissingUpsert = "upsert"
	UpdateMissingReject = "reject"
)

// Config holds application configuration loaded from environment variables
// Provide sane defaults for local development.
type Config struct {
	AppName   string
	Env       string // development, staging, production
	Port      string
	GinMode   string
	APIPrefix string // empty serves /users at the root
	LogLevel  string

	// Registration and update policy
	RegistrationMinAge  int
	UpdateMissingPolicy string // upsert or reject

	// Seed sample users on startup
	SeedOnStart bool

	// Store
	StoreDriver string // postgres or sqlite
	SQLitePath  string

	// Database
	DBHost        string
	DBPort        string
	DBUser        string
	DBPassword    string
	DBName        string
	DBSSLMode     string
	DBMaxConns    int32
	DBMinConns    int32
	DBMaxConnLife time.Duration

	// Redis (search cache + rate limit); empty addr disables both
	RedisAddr      string
	RedisPassword  string
	RedisDB        int
	SearchCacheTTL time.Duration

	// Rate limiting on /users routes
	RateLimitPerMinute       int
	RateLimitSearchPerMinute int // per IP on /users/search, on top of the general limit
	RateLimitBypassLAN       bool

	// CORS
	CORSAllowedOrigins string // comma-separated

	// RabbitMQ; empty URL disables event publishing
	RabbitMQURL             string
	RabbitMQUserEventsQueue string

	// Elasticsearch (event worker mirror)
	ElasticsearchAddrs string // comma-separated
	ElasticsearchUser  string
	ElasticsearchPass  string
	ESUsersIndex       string

	// Mailgun (event worker welcome email)
	MailgunDomain   string
	MailgunAPIKey   string
	MailgunSender   string
	MailSendEnabled bool
	CompanyName     string

	// Debug metrics (/debug/vars)
	DebugMetricsEnabled bool

	// HTTP access log toggle (Gin logger)
	HTTPLogEnabled bool
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getbool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			log.Printf("invalid boolean for %s: %v, using default %v", key, err, def)
			return def
		}
		return b
	}
	return def
}

func getint(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		i, err := strconv.Atoi(v)
		if err != nil {
			log.Printf("invalid int for %s: %v, using default %d", key, err, def)
			return def
		}
		return i
	}
	return def
}

func getdur(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			log.Printf("invalid duration for %s: %v, using default %v", key, err, def)
			return def
		}
		return d
	}
	return def
}

func getoneof(key, def string, allowed ...string) string {
	v := strings.ToLower(strings.TrimSpace(getenv(key, def)))
	for _, a := range allowed {
		if v == a {
			return v
		}
	}
	log.Printf("invalid value for %s: %q, using default %q", key, v, def)
	return def
}

// Load loads configuration from environment variables
func Load() *Config {
	minAge := getint("REGISTRATION_MIN_AGE", 18)
	if minAge < 0 {
		log.Printf("invalid REGISTRATION_MIN_AGE %d, using default 18", minAge)
		minAge = 18
	}

	return &Config{
		AppName:   getenv("APP_NAME", "go-user-directory"),
		Env:       getenv("APP_ENV", "development"),
		Port:      getenv("PORT", "8080"),
		GinMode:   getenv("GIN_MODE", "release"),
		APIPrefix: strings.TrimRight(getenv("API_PREFIX", ""), "/"),
		LogLevel:  getenv("LOG_LEVEL", ""),

		RegistrationMinAge:  minAge,
		UpdateMissingPolicy: getoneof("USER_UPDATE_MISSING", UpdateMissingUpsert, UpdateMissingUpsert, UpdateMissingReject),

		SeedOnStart: getbool("SEED_ON_START", true),

		StoreDriver: getoneof("STORE_DRIVER", DriverPostgres, DriverPostgres, DriverSQLite),
		SQLitePath:  getenv("SQLITE_PATH", "users.db"),

		DBHost:        getenv("DB_HOST", "localhost"),
		DBPort:        getenv("DB_PORT", "5432"),
		DBUser:        getenv("DB_USER", "postgres"),
		DBPassword:    getenv("DB_PASSWORD", "postgres"),
		DBName:        getenv("DB_NAME", "appdb"),
		DBSSLMode:     getenv("DB_SSLMODE", "disable"),
		DBMaxConns:    int32(getint("DB_MAX_CONNS", 10)),
		DBMinConns:    int32(getint("DB_MIN_CONNS", 2)),
		DBMaxConnLife: getdur("DB_MAX_CONN_LIFETIME", time.Hour),

		RedisAddr:      getenv("REDIS_ADDR", ""),
		RedisPassword:  getenv("REDIS_PASSWORD", ""),
		RedisDB:        getint("REDIS_DB", 0),
		SearchCacheTTL: getdur("SEARCH_CACHE_TTL", time.Minute),

		RateLimitPerMinute:       getint("RATE_LIMIT_PER_MINUTE", 300),
		RateLimitSearchPerMinute: getint("RATE_LIMIT_SEARCH_PER_MINUTE", 60),
		RateLimitBypassLAN:       getbool("RATE_LIMIT_BYPASS_PRIVATE", false),

		CORSAllowedOrigins: getenv("CORS_ALLOWED_ORIGINS", ""),

		RabbitMQURL:             getenv("RABBITMQ_URL", ""),
		RabbitMQUserEventsQueue: getenv("RABBITMQ_USER_EVENTS_QUEUE", "user_events"),

		ElasticsearchAddrs: getenv("ELASTICSEARCH_ADDRS", "http://localhost:9200"),
		ElasticsearchUser:  getenv("ELASTICSEARCH_USERNAME", ""),
		ElasticsearchPass:  getenv("ELASTICSEARCH_PASSWORD", ""),
		ESUsersIndex:       getenv("ES_USERS_INDEX", "users"),

		MailgunDomain:   getenv("MAILGUN_DOMAIN", ""),
		MailgunAPIKey:   getenv("MAILGUN_API_KEY", ""),
		MailgunSender:   getenv("MAILGUN_SENDER", ""),
		MailSendEnabled: getbool("MAIL_SEND_ENABLED", false),
		CompanyName:     getenv("COMPANY_NAME", ""),

		DebugMetricsEnabled: getbool("DEBUG_METRICS_ENABLED", true),

		HTTPLogEnabled: getbool("HTTP_LOG_ENABLED", false),
	}
}

// PostgresDSN returns a DSN compatible with pgx
func (c *Config) PostgresDSN() string {
	return "postgres://" + c.DBUser + ":" + c.DBPassword + "@" + c.DBHost + ":" + c.DBPort + "/" + c.DBName + "?sslmode=" + c.DBSSLMode
}

// UpsertOnMissing reports whether PUT on an unknown id inserts a new user.
func (c *Config) UpsertOnMissing() bool {
	return c.UpdateMissingPolicy != UpdateMissingReject
}

// CORSOrigins returns the allowed origins as slice
func (c *Config) CORSOrigins() []string {
	return splitCSV(c.CORSAllowedOrigins)
}

// ESAddrs returns Elasticsearch addresses as a slice
func (c *Config) ESAddrs() []string {
	return splitCSV(c.ElasticsearchAddrs)
}

func splitCSV(s string) []string {
	parts := strings.Split(s, ",")
	res := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			res = append(res, p)
		}
	}
	return res
}
