package config // package config loads application configuration from environment variables

import (
	"log"     // log is used to report configuration errors and halt execution
	"os"      // os provides access to environment variables
	"strconv" // strconv converts strings to other types
	"strings"
	"time"
)

// Config holds all runtime configuration values.  Each field corresponds to
// an environment variable.  Database settings depend on DBDriver: MySQL
// needs the host/user/name triple, SQLite only a file path.
type Config struct {
	Env        string // application environment (e.g. "dev", "prod")
	Port       string // HTTP port to listen on
	DBDriver   string // "mysql" or "sqlite3"
	DBUser     string // database username
	DBPass     string // database password (optional)
	DBHost     string // database host address
	DBPort     string // database port number
	DBName     string // database name
	SQLitePath string // database file when DBDriver is sqlite3

	JWTSecret    string // secret used to sign JWTs
	AccessTTLMin int    // access token time‑to‑live in minutes
	BcryptCost   int    // bcrypt cost for password and OTP hashing

	StudentEmailDomain   string // e.g. student.ruet.ac.bd
	LibrarianEmailDomain string // e.g. library.ruet.ac.bd
	DemoStudentEmail     string // single non-institutional address allowed to log in as a student

	PhotoDir  string // directory for registration photos
	LogLevel  string // logrus level name
	LogFormat string // "json" or "text"
	AMQPURL   string // broker for library events; empty disables publishing

	ShutdownTimeout time.Duration
}

// Load reads configuration values from environment variables and returns a
// Config.  Required variables are enforced by must() and missing values
// cause the program to exit with a fatal log message.
func Load() Config {
	cfg := Config{
		Env:          must("APP_ENV"),
		Port:         envStr("APP_PORT", "8080"),
		DBDriver:     strings.ToLower(envStr("DB_DRIVER", "mysql")),
		JWTSecret:    must("JWT_SECRET"),
		AccessTTLMin: envInt("ACCESS_TOKEN_TTL_MIN", 60),
		BcryptCost:   envInt("BCRYPT_COST", 12),

		StudentEmailDomain:   strings.ToLower(envStr("STUDENT_EMAIL_DOMAIN", "student.ruet.ac.bd")),
		LibrarianEmailDomain: strings.ToLower(envStr("LIBRARIAN_EMAIL_DOMAIN", "library.ruet.ac.bd")),
		DemoStudentEmail:     strings.ToLower(os.Getenv("DEMO_STUDENT_EMAIL")),

		PhotoDir:  envStr("PHOTO_DIR", "uploads/photos"),
		LogLevel:  envStr("LOG_LEVEL", "info"),
		LogFormat: envStr("LOG_FORMAT", "json"),
		AMQPURL:   firstNonEmpty(os.Getenv("RABBITMQ_URL"), os.Getenv("AMQP_URL")),

		ShutdownTimeout: envDur("SHUTDOWN_TIMEOUT", 10*time.Second),
	}

	switch cfg.DBDriver {
	case "mysql":
		cfg.DBUser = must("DB_USER")
		cfg.DBPass = os.Getenv("DB_PASS") // empty allowed
		cfg.DBHost = must("DB_HOST")
		cfg.DBPort = envStr("DB_PORT", "3306")
		cfg.DBName = must("DB_NAME")
	case "sqlite3", "sqlite":
		cfg.DBDriver = "sqlite3"
		cfg.SQLitePath = envStr("SQLITE_PATH", "data/portal.db")
	default:
		log.Fatalf("unsupported DB_DRIVER: %q", cfg.DBDriver)
	}
	return cfg
}

// AccessTTL returns the access token lifetime as a duration.
func (c Config) AccessTTL() time.Duration {
	return time.Duration(c.AccessTTLMin) * time.Minute
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

// mustInt is like must() but converts the retrieved string into an integer.
// If conversion fails, the application logs a fatal error and exits.
func mustInt(key string) int {
	s := must(key)
	n, err := strconv.Atoi(s)
	if err != nil {
		log.Fatalf("invalid int for %s: %q", key, s)
	}
	return n
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
