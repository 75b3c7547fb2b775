package config

import (
	"errors"
	"io/fs"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/viper"
)

type Config struct {
	App       AppConfig
	DB        DBConfig
	Redis     RedisConfig
	JWT       JWTConfig
	SMTP      SMTPConfig
	Payment   PaymentConfig
	Queue     QueueConfig
	RateLimit RateLimitConfig
	Log       LogConfig
}

type AppConfig struct {
	Port           string
	Env            string
	BaseURL        string
	FrontendURL    string
	AllowedOrigins []string
}

type DBConfig struct {
	Host         string
	Port         string
	User         string
	Password     string
	Name         string
	SSLMode      string
	TimeZone     string
	MaxIdleConns int
	MaxOpenConns int
	AutoMigrate  bool
}

type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
}

type JWTConfig struct {
	Secret        string
	AccessExpiry  time.Duration
	RefreshExpiry time.Duration
}

type SMTPConfig struct {
	Host      string
	Port      int
	User      string
	Password  string
	FromName  string
	FromEmail string
}

type PaymentConfig struct {
	RazorpayKeyID     string
	RazorpayKeySecret string
	ConsultationFee   decimal.Decimal
	GSTPercentage     decimal.Decimal
	Currency          string
}

// QueueConfig controls booking and queue advancement.
type QueueConfig struct {
	BufferMinutes int
	// SkipCancelled makes completion promote the nearest non-cancelled
	// successor instead of stalling on a cancelled queue number.
	SkipCancelled bool
}

type RateLimitConfig struct {
	RequestsPerMinute int
	Burst             int
}

type LogConfig struct {
	Level string
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("APP_PORT", "8080")
	v.SetDefault("APP_ENV", "development")
	v.SetDefault("BASE_URL", "http://localhost:8080")
	v.SetDefault("FRONTEND_URL", "http://localhost:5173")
	v.SetDefault("ALLOWED_ORIGINS", "http://localhost:5173")

	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", "5432")
	v.SetDefault("DB_SSLMODE", "disable")
	v.SetDefault("DB_TIMEZONE", "UTC")
	v.SetDefault("DB_MAX_IDLE_CONNS", 10)
	v.SetDefault("DB_MAX_OPEN_CONNS", 100)
	v.SetDefault("DB_AUTO_MIGRATE", false)

	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", "6379")
	v.SetDefault("REDIS_DB", 0)

	v.SetDefault("SMTP_HOST", "smtp.gmail.com")
	v.SetDefault("SMTP_PORT", 587)
	v.SetDefault("SMTP_FROM_NAME", "HealthSync")

	v.SetDefault("CONSULTATION_FEE", "300")
	v.SetDefault("GST_PERCENTAGE", "0")
	v.SetDefault("PAYMENT_CURRENCY", "INR")

	v.SetDefault("QUEUE_BUFFER_MINUTES", 10)
	v.SetDefault("QUEUE_SKIP_CANCELLED", false)

	v.SetDefault("RATE_LIMIT_PER_MINUTE", 20)
	v.SetDefault("RATE_LIMIT_BURST", 5)

	v.SetDefault("LOG_LEVEL", "info")
}

// LoadConfig reads .env from the working directory when present and lets
// environment variables override it.
func LoadConfig() (*Config, error) {
	return load(".env")
}

func load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("env")
	v.AutomaticEnv()
	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, fs.ErrNotExist) {
			return nil, err
		}
	}

	accessExpiry, err := time.ParseDuration(v.GetString("JWT_ACCESS_EXPIRY"))
	if err != nil {
		accessExpiry = 15 * time.Minute
	}

	refreshExpiry, err := time.ParseDuration(v.GetString("JWT_REFRESH_EXPIRY"))
	if err != nil {
		refreshExpiry = 7 * 24 * time.Hour
	}

	fee, err := decimal.NewFromString(v.GetString("CONSULTATION_FEE"))
	if err != nil {
		return nil, errors.New("CONSULTATION_FEE must be a decimal amount")
	}

	gst, err := decimal.NewFromString(v.GetString("GST_PERCENTAGE"))
	if err != nil {
		return nil, errors.New("GST_PERCENTAGE must be a decimal percentage")
	}

	config := &Config{
		App: AppConfig{
			Port:           v.GetString("APP_PORT"),
			Env:            v.GetString("APP_ENV"),
			BaseURL:        strings.TrimRight(v.GetString("BASE_URL"), "/"),
			FrontendURL:    strings.TrimRight(v.GetString("FRONTEND_URL"), "/"),
			AllowedOrigins: splitList(v.GetString("ALLOWED_ORIGINS")),
		},
		DB: DBConfig{
			Host:         v.GetString("DB_HOST"),
			Port:         v.GetString("DB_PORT"),
			User:         v.GetString("DB_USER"),
			Password:     v.GetString("DB_PASSWORD"),
			Name:         v.GetString("DB_NAME"),
			SSLMode:      v.GetString("DB_SSLMODE"),
			TimeZone:     v.GetString("DB_TIMEZONE"),
			MaxIdleConns: v.GetInt("DB_MAX_IDLE_CONNS"),
			MaxOpenConns: v.GetInt("DB_MAX_OPEN_CONNS"),
			AutoMigrate:  v.GetBool("DB_AUTO_MIGRATE"),
		},
		Redis: RedisConfig{
			Host:     v.GetString("REDIS_HOST"),
			Port:     v.GetString("REDIS_PORT"),
			Password: v.GetString("REDIS_PASSWORD"),
			DB:       v.GetInt("REDIS_DB"),
		},
		JWT: JWTConfig{
			Secret:        v.GetString("JWT_SECRET"),
			AccessExpiry:  accessExpiry,
			RefreshExpiry: refreshExpiry,
		},
		SMTP: SMTPConfig{
			Host:      v.GetString("SMTP_HOST"),
			Port:      v.GetInt("SMTP_PORT"),
			User:      v.GetString("SMTP_USER"),
			Password:  v.GetString("SMTP_PASSWORD"),
			FromName:  v.GetString("SMTP_FROM_NAME"),
			FromEmail: v.GetString("SMTP_FROM_EMAIL"),
		},
		Payment: PaymentConfig{
			RazorpayKeyID:     v.GetString("RAZORPAY_KEY_ID"),
			RazorpayKeySecret: v.GetString("RAZORPAY_KEY_SECRET"),
			ConsultationFee:   fee,
			GSTPercentage:     gst,
			Currency:          v.GetString("PAYMENT_CURRENCY"),
		},
		Queue: QueueConfig{
			BufferMinutes: v.GetInt("QUEUE_BUFFER_MINUTES"),
			SkipCancelled: v.GetBool("QUEUE_SKIP_CANCELLED"),
		},
		RateLimit: RateLimitConfig{
			RequestsPerMinute: v.GetInt("RATE_LIMIT_PER_MINUTE"),
			Burst:             v.GetInt("RATE_LIMIT_BURST"),
		},
		Log: LogConfig{
			Level: v.GetString("LOG_LEVEL"),
		},
	}

	if config.SMTP.FromEmail == "" {
		config.SMTP.FromEmail = config.SMTP.User
	}

	return config, nil
}

func splitList(raw string) []string {
	var out []string
	for _, item := range strings.Split(raw, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
