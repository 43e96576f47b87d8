package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// StartConflictPolicy decides what happens when a report is started while
// another draft is still active for the same user.
type StartConflictPolicy string

const (
	ConflictDiscardPrior StartConflictPolicy = "discard_prior"
	ConflictReject       StartConflictPolicy = "reject"
	ConflictArchivePrior StartConflictPolicy = "archive_prior"
)

type Config struct {
	Server   ServerConfig
	Storage  StorageConfig
	Auth     AuthConfig
	Throttle ThrottleConfig
	Email    EmailConfig
	Audit    AuditConfig
	Report   ReportConfig
}

type ServerConfig struct {
	Port         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
	CORSOrigins  string
}

type StorageConfig struct {
	Dir string
}

type AuthConfig struct {
	JWTSecret       string
	AccessTokenTTL  time.Duration
	VerificationTTL time.Duration
}

type ThrottleConfig struct {
	RateWindow      time.Duration
	RateMax         int
	LockoutWindow   time.Duration
	LockoutMax      int
	LockoutDuration time.Duration
}

type EmailConfig struct {
	SMTPHost      string
	SMTPPort      int
	SMTPUser      string
	SMTPPass      string
	SMTPFrom      string
	SMTPUseTLS    bool
	MailerSendKey string
	FromName      string
	DevMode       bool // print codes to logs instead of sending
}

type AuditConfig struct {
	NATSURL     string
	NATSSubject string
}

type ReportConfig struct {
	OnStartConflict StartConflictPolicy
	MaxPhotos       int
	RecentLocations int
	Format          string // "html" or "docx"
	PandocPath      string
}

func Load() *Config {
	_ = godotenv.Load()

	return &Config{
		Server: ServerConfig{
			Port:         getEnv("PORT", "8080"),
			ReadTimeout:  getDuration("SERVER_READ_TIMEOUT", 5*time.Second),
			WriteTimeout: getDuration("SERVER_WRITE_TIMEOUT", 30*time.Second),
			IdleTimeout:  getDuration("SERVER_IDLE_TIMEOUT", 60*time.Second),
			CORSOrigins:  getEnv("CORS_ORIGINS", ""),
		},
		Storage: StorageConfig{
			Dir: getEnv("STORAGE_DIR", "storage"),
		},
		Auth: AuthConfig{
			JWTSecret:       getEnv("JWT_SECRET", "dev-only-secret-change-in-prod"),
			AccessTokenTTL:  getDuration("ACCESS_TOKEN_TTL", 7*24*time.Hour),
			VerificationTTL: getDuration("EMAIL_VERIFICATION_TTL", 10*time.Minute),
		},
		Throttle: ThrottleConfig{
			RateWindow:      getDuration("RATE_WINDOW", time.Minute),
			RateMax:         getInt("RATE_MAX", 5),
			LockoutWindow:   getDuration("LOCKOUT_WINDOW", 10*time.Minute),
			LockoutMax:      getInt("LOCKOUT_MAX", 5),
			LockoutDuration: getDuration("LOCKOUT_DURATION", 10*time.Minute),
		},
		Email: EmailConfig{
			SMTPHost:      getEnv("SMTP_HOST", ""),
			SMTPPort:      getInt("SMTP_PORT", 587),
			SMTPUser:      getEnv("SMTP_USER", ""),
			SMTPPass:      getEnv("SMTP_PASS", ""),
			SMTPFrom:      getEnv("SMTP_FROM", ""),
			SMTPUseTLS:    getBool("SMTP_USE_TLS", true),
			MailerSendKey: getEnv("MAILERSEND_API_KEY", ""),
			FromName:      getEnv("MAILER_FROM_NAME", "FieldReport"),
			DevMode:       getBool("EMAIL_DEV_MODE", true),
		},
		Audit: AuditConfig{
			NATSURL:     getEnv("AUDIT_NATS_URL", ""),
			NATSSubject: getEnv("AUDIT_NATS_SUBJECT", "fieldreport.audit"),
		},
		Report: ReportConfig{
			OnStartConflict: conflictPolicy(getEnv("REPORT_START_CONFLICT", string(ConflictDiscardPrior))),
			MaxPhotos:       getInt("MAX_IMAGES_PER_REPORT", 50),
			RecentLocations: getInt("RECENT_LOCATIONS_MAX", 5),
			Format:          getEnv("REPORT_FORMAT", "html"),
			PandocPath:      getEnv("PANDOC_PATH", "pandoc"),
		},
	}
}

func conflictPolicy(value string) StartConflictPolicy {
	switch StartConflictPolicy(value) {
	case ConflictReject, ConflictArchivePrior, ConflictDiscardPrior:
		return StartConflictPolicy(value)
	}
	return ConflictDiscardPrior
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getInt(key string, fallback int) int {
	if value, ok := os.LookupEnv(key); ok {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return fallback
}

func getBool(key string, fallback bool) bool {
	if value, ok := os.LookupEnv(key); ok {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return fallback
}

func getDuration(key string, fallback time.Duration) time.Duration {
	if value, ok := os.LookupEnv(key); ok {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return fallback
}
