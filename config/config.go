package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/viper"
)

type Config struct {
	App          AppConfig
	DB           DBConfig
	Redis        RedisConfig
	JWT          JWTConfig
	Clinic       ClinicConfig
	SMTP         SMTPConfig
	Notification NotificationConfig
	RateLimit    RateLimitConfig
}

type AppConfig struct {
	Port string
	Env  string
}

type DBConfig struct {
	Host        string
	Port        string
	User        string
	Password    string
	Name        string
	AutoMigrate bool
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

// ClinicConfig describes the clinic calendar. It is static for a deployment.
type ClinicConfig struct {
	TimeZone       string
	MorningStart   string
	MorningEnd     string
	AfternoonStart string
	AfternoonEnd   string
	SlotInterval   time.Duration
	ClosedDay      time.Weekday
	CancelNotice   time.Duration
	Fees           map[string]decimal.Decimal
}

type SMTPConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	From     string
}

type NotificationConfig struct {
	Timeout time.Duration
}

type RateLimitConfig struct {
	RequestsPerSecond float64
	Burst             int
}

var appointmentTypes = []string{
	"consultation", "surgery", "vaccination", "emergency",
	"checkup", "dental_cleaning", "sterilization", "review",
}

func LoadConfig() (*Config, error) {
	v := viper.New()
	v.SetConfigFile(".env")
	v.SetConfigType("env")
	v.AutomaticEnv()
	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		// A missing .env is fine, everything can come from the environment.
		var pathErr *fs.PathError
		if !errors.As(err, &pathErr) {
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

	closedDay, err := parseWeekday(v.GetString("CLINIC_CLOSED_DAY"))
	if err != nil {
		return nil, err
	}

	fees, err := loadFees(v)
	if err != nil {
		return nil, err
	}

	config := &Config{
		App: AppConfig{
			Port: v.GetString("APP_PORT"),
			Env:  v.GetString("APP_ENV"),
		},
		DB: DBConfig{
			Host:        v.GetString("DB_HOST"),
			Port:        v.GetString("DB_PORT"),
			User:        v.GetString("DB_USER"),
			Password:    v.GetString("DB_PASSWORD"),
			Name:        v.GetString("DB_NAME"),
			AutoMigrate: v.GetBool("DB_AUTO_MIGRATE"),
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
		Clinic: ClinicConfig{
			TimeZone:       v.GetString("CLINIC_TIMEZONE"),
			MorningStart:   v.GetString("CLINIC_MORNING_START"),
			MorningEnd:     v.GetString("CLINIC_MORNING_END"),
			AfternoonStart: v.GetString("CLINIC_AFTERNOON_START"),
			AfternoonEnd:   v.GetString("CLINIC_AFTERNOON_END"),
			SlotInterval:   v.GetDuration("CLINIC_SLOT_INTERVAL"),
			ClosedDay:      closedDay,
			CancelNotice:   v.GetDuration("CLINIC_CANCEL_NOTICE"),
			Fees:           fees,
		},
		SMTP: SMTPConfig{
			Host:     v.GetString("SMTP_HOST"),
			Port:     v.GetInt("SMTP_PORT"),
			User:     v.GetString("SMTP_USER"),
			Password: v.GetString("SMTP_PASS"),
			From:     v.GetString("SMTP_FROM"),
		},
		Notification: NotificationConfig{
			Timeout: v.GetDuration("NOTIFICATION_TIMEOUT"),
		},
		RateLimit: RateLimitConfig{
			RequestsPerSecond: v.GetFloat64("RATE_LIMIT_RPS"),
			Burst:             v.GetInt("RATE_LIMIT_BURST"),
		},
	}

	return config, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("APP_PORT", "8080")
	v.SetDefault("APP_ENV", "development")
	v.SetDefault("DB_AUTO_MIGRATE", true)
	v.SetDefault("REDIS_DB", 0)
	v.SetDefault("CLINIC_TIMEZONE", "America/Bogota")
	v.SetDefault("CLINIC_MORNING_START", "07:00")
	v.SetDefault("CLINIC_MORNING_END", "12:00")
	v.SetDefault("CLINIC_AFTERNOON_START", "14:00")
	v.SetDefault("CLINIC_AFTERNOON_END", "18:00")
	v.SetDefault("CLINIC_SLOT_INTERVAL", "30m")
	v.SetDefault("CLINIC_CLOSED_DAY", "sunday")
	v.SetDefault("CLINIC_CANCEL_NOTICE", "2h")
	v.SetDefault("SMTP_PORT", 587)
	v.SetDefault("NOTIFICATION_TIMEOUT", "10s")
	v.SetDefault("RATE_LIMIT_RPS", 5)
	v.SetDefault("RATE_LIMIT_BURST", 10)
}

// loadFees reads CLINIC_FEE_<TYPE> for every appointment type. Unset types cost zero.
func loadFees(v *viper.Viper) (map[string]decimal.Decimal, error) {
	fees := make(map[string]decimal.Decimal, len(appointmentTypes))
	for _, t := range appointmentTypes {
		raw := strings.TrimSpace(v.GetString("CLINIC_FEE_" + strings.ToUpper(t)))
		if raw == "" {
			fees[t] = decimal.Zero
			continue
		}
		fee, err := decimal.NewFromString(raw)
		if err != nil {
			return nil, fmt.Errorf("invalid fee for %s: %w", t, err)
		}
		if fee.IsNegative() {
			return nil, fmt.Errorf("invalid fee for %s: must not be negative", t)
		}
		fees[t] = fee
	}
	return fees, nil
}

func parseWeekday(s string) (time.Weekday, error) {
	for d := time.Sunday; d <= time.Saturday; d++ {
		if strings.EqualFold(d.String(), strings.TrimSpace(s)) {
			return d, nil
		}
	}
	return time.Sunday, fmt.Errorf("invalid CLINIC_CLOSED_DAY %q", s)
}
