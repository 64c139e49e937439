package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/spec-kit/support-sla/internal/workinghours"
)

// Config aggregates runtime configuration for the service.
type Config struct {
	App          AppConfig
	Postgres     PostgresConfig
	Redis        RedisConfig
	Logger       LoggerConfig
	Auth         AuthConfig
	SLA          SLAConfig
	Notification NotificationConfig
}

// AppConfig controls server level behavior.
type AppConfig struct {
	Name                  string
	Env                   string
	Host                  string
	Port                  string
	Version               string
	RequestTimeoutSeconds int
}

// PostgresConfig holds DB connection values.
type PostgresConfig struct {
	DSN            string
	MaxConns       int32
	MinConns       int32
	RunMigrations  bool
	ConnMaxIdleSec int32
	ConnMaxLifeSec int32
}

// RedisConfig holds Redis connection values.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// LoggerConfig configures logging behavior.
type LoggerConfig struct {
	Level string
}

// AuthConfig defines bearer token validation parameters.
type AuthConfig struct {
	JWTSecret             string
	AccessTokenTTLMinutes int
}

// SLAConfig holds response-time defaults used when rooms and members do not
// override them.
type SLAConfig struct {
	DefaultWorkingHours  workinghours.WorkingHours
	DefaultWorkDays      []time.Weekday
	WarningMinutes       int
	DeadlineMinutes      int
	SweepIntervalSeconds int
	SweepBatchSize       int
}

// NotificationConfig controls reminder delivery.
type NotificationConfig struct {
	PollIntervalSeconds int
	BatchSize           int
	StaleSendSeconds    int
	RetryDelaySeconds   int
	SlackBotToken       string
}

// Load reads configuration from environment variables, applying defaults where possible.
func Load() (*Config, error) {
	_ = godotenv.Load()

	redisDB, err := strconv.Atoi(getEnv("REDIS_DB", "0"))
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_DB: %w", err)
	}

	defaultHours, err := workinghours.Parse(getEnv("SLA_DEFAULT_WORKING_HOURS_START", "09:00") + "-" + getEnv("SLA_DEFAULT_WORKING_HOURS_END", "17:00"))
	if err != nil {
		return nil, fmt.Errorf("invalid SLA default working hours: %w", err)
	}

	workDays, err := ParseWeekdays(getEnv("SLA_DEFAULT_WORK_DAYS", "Mon,Tue,Wed,Thu,Fri"))
	if err != nil {
		return nil, fmt.Errorf("invalid SLA_DEFAULT_WORK_DAYS: %w", err)
	}

	maxConns := int32(getEnvAsInt("POSTGRES_MAX_CONNS", 10))
	minConns := int32(getEnvAsInt("POSTGRES_MIN_CONNS", 2))
	runMigrations := getEnvAsBool("POSTGRES_RUN_MIGRATIONS", true)
	connMaxIdle := int32(getEnvAsInt("POSTGRES_CONN_MAX_IDLE_SECONDS", 30))
	connMaxLife := int32(getEnvAsInt("POSTGRES_CONN_MAX_LIFE_SECONDS", 300))

	cfg := &Config{
		App: AppConfig{
			Name:                  getEnv("APP_NAME", "support-sla-service"),
			Env:                   getEnv("APP_ENV", "development"),
			Host:                  getEnv("APP_HOST", "0.0.0.0"),
			Port:                  getEnv("APP_PORT", "8080"),
			Version:               getEnv("APP_VERSION", "dev"),
			RequestTimeoutSeconds: getEnvAsInt("HTTP_REQUEST_TIMEOUT_SECONDS", 30),
		},
		Postgres: PostgresConfig{
			DSN:            os.Getenv("POSTGRES_DSN"),
			MaxConns:       maxConns,
			MinConns:       minConns,
			RunMigrations:  runMigrations,
			ConnMaxIdleSec: connMaxIdle,
			ConnMaxLifeSec: connMaxLife,
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", "127.0.0.1:6379"),
			Password: os.Getenv("REDIS_PASSWORD"),
			DB:       redisDB,
		},
		Logger: LoggerConfig{
			Level: getEnv("LOG_LEVEL", "info"),
		},
		Auth: AuthConfig{
			JWTSecret:             getEnv("AUTH_JWT_SECRET", "dev-secret"),
			AccessTokenTTLMinutes: getEnvAsInt("AUTH_ACCESS_TOKEN_TTL_MINUTES", 60),
		},
		SLA: SLAConfig{
			DefaultWorkingHours:  defaultHours,
			DefaultWorkDays:      workDays,
			WarningMinutes:       getEnvAsInt("SLA_WARNING_MINUTES", 60),
			DeadlineMinutes:      getEnvAsInt("SLA_DEADLINE_MINUTES", 120),
			SweepIntervalSeconds: getEnvAsInt("SLA_SWEEP_INTERVAL_SECONDS", 60),
			SweepBatchSize:       getEnvAsInt("SLA_SWEEP_BATCH_SIZE", 500),
		},
		Notification: NotificationConfig{
			PollIntervalSeconds: getEnvAsInt("NOTIFY_POLL_INTERVAL_SECONDS", 15),
			BatchSize:           getEnvAsInt("NOTIFY_BATCH_SIZE", 50),
			StaleSendSeconds:    getEnvAsInt("NOTIFY_STALE_SEND_SECONDS", 600),
			RetryDelaySeconds:   getEnvAsInt("NOTIFY_RETRY_DELAY_SECONDS", 300),
			SlackBotToken:       os.Getenv("SLACK_BOT_TOKEN"),
		},
	}

	if cfg.SLA.DeadlineMinutes < cfg.SLA.WarningMinutes {
		return nil, fmt.Errorf("SLA_DEADLINE_MINUTES (%d) must not be less than SLA_WARNING_MINUTES (%d)", cfg.SLA.DeadlineMinutes, cfg.SLA.WarningMinutes)
	}

	return cfg, nil
}

// Addr returns the HTTP bind address.
func (a AppConfig) Addr() string {
	return fmt.Sprintf("%s:%s", a.Host, a.Port)
}

// RequestTimeout returns the configured request timeout duration.
func (a AppConfig) RequestTimeout() time.Duration {
	if a.RequestTimeoutSeconds <= 0 {
		return 0
	}
	return time.Duration(a.RequestTimeoutSeconds) * time.Second
}

// Warning returns the default warning threshold.
func (s SLAConfig) Warning() time.Duration {
	return time.Duration(s.WarningMinutes) * time.Minute
}

// Deadline returns the default response deadline.
func (s SLAConfig) Deadline() time.Duration {
	return time.Duration(s.DeadlineMinutes) * time.Minute
}

// SweepInterval returns how often deadlines are checked.
func (s SLAConfig) SweepInterval() time.Duration {
	return seconds(s.SweepIntervalSeconds, time.Minute)
}

// PollInterval returns how often due reminders are claimed.
func (n NotificationConfig) PollInterval() time.Duration {
	return seconds(n.PollIntervalSeconds, 15*time.Second)
}

// StaleSendAfter returns how long a claimed reminder may linger before it is
// considered delivered by a worker that crashed before deleting it.
func (n NotificationConfig) StaleSendAfter() time.Duration {
	return seconds(n.StaleSendSeconds, 10*time.Minute)
}

// RetryDelay returns how long a reminder waits after a failed send.
func (n NotificationConfig) RetryDelay() time.Duration {
	return seconds(n.RetryDelaySeconds, 5*time.Minute)
}

var weekdayNames = map[string]time.Weekday{
	"sun": time.Sunday,
	"mon": time.Monday,
	"tue": time.Tuesday,
	"wed": time.Wednesday,
	"thu": time.Thursday,
	"fri": time.Friday,
	"sat": time.Saturday,
}

// ParseWeekdays reads a comma separated list such as "Mon,Tue,Wed".
func ParseWeekdays(s string) ([]time.Weekday, error) {
	var days []time.Weekday
	for _, part := range strings.Split(s, ",") {
		part = strings.ToLower(strings.TrimSpace(part))
		if part == "" {
			continue
		}
		if len(part) > 3 {
			part = part[:3]
		}
		day, ok := weekdayNames[part]
		if !ok {
			return nil, fmt.Errorf("unknown weekday %q", part)
		}
		days = append(days, day)
	}
	return days, nil
}

func seconds(v int, fallback time.Duration) time.Duration {
	if v <= 0 {
		return fallback
	}
	return time.Duration(v) * time.Second
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(val)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvAsBool(key string, fallback bool) bool {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(val)
	if err != nil {
		return fallback
	}
	return parsed
}
