package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"
)

type Config struct {
	Environment     string         `json:"environment"`
	PaymentProvider string         `json:"payment_provider"`
	Database        DatabaseConfig `json:"database"`
	Server          ServerConfig   `json:"server"`
	Stripe          StripeConfig   `json:"stripe"`
	Xendit          XenditConfig   `json:"xendit"`
	Booking         BookingConfig  `json:"booking"`
	Worker          WorkerConfig   `json:"worker"`
	Notify          NotifyConfig   `json:"notify"`
}

type DatabaseConfig struct {
	Host         string        `json:"host"`
	Port         int           `json:"port"`
	User         string        `json:"user"`
	Password     string        `json:"password"`
	DBName       string        `json:"dbname"`
	SSLMode      string        `json:"sslmode"`
	MaxOpenConns int           `json:"max_open_conns"`
	MaxIdleConns int           `json:"max_idle_conns"`
	MaxLifetime  time.Duration `json:"max_lifetime"`
	MaxIdleTime  time.Duration `json:"max_idle_time"`
	ReplicaDSNs  []string      `json:"replica_dsns"`
}

type ServerConfig struct {
	Port         string        `json:"port"`
	ReadTimeout  time.Duration `json:"read_timeout"`
	WriteTimeout time.Duration `json:"write_timeout"`
	IdleTimeout  time.Duration `json:"idle_timeout"`
}

type StripeConfig struct {
	Secret        string `json:"secret"`
	WebhookSecret string `json:"webhook_secret"`
}

type XenditConfig struct {
	Secret        string `json:"secret"`
	CallbackToken string `json:"callback_token"`
}

// BookingConfig tunes the slot-conflict guard: how often a transient
// write conflict is retried and how long one booking transaction may
// run.
type BookingConfig struct {
	MaxAttempts       int           `json:"max_attempts"`
	BaseDelay         time.Duration `json:"base_delay"`
	TxTimeout         time.Duration `json:"tx_timeout"`
	RefundCutoffHours float64       `json:"refund_cutoff_hours"`
}

type WorkerConfig struct {
	PollInterval  time.Duration `json:"poll_interval"`
	StaleAfter    time.Duration `json:"stale_after"`
	BatchSize     int           `json:"batch_size"`
	RetentionDays int           `json:"retention_days"`
}

type NotifyConfig struct {
	SMTPHost      string `json:"smtp_host"`
	SMTPPort      string `json:"smtp_port"`
	EmailFrom     string `json:"email_from"`
	SMSWebhookURL string `json:"sms_webhook_url"`
	SMSToken      string `json:"sms_token"`
}

func LoadConfig() (*Config, error) {
	config := &Config{}

	env := os.Getenv("ENVIRONMENT")
	if env == "" {
		env = "development"
	}
	config.Environment = env

	configDir, err := filepath.Abs("config")
	if err != nil {
		return nil, err
	}

	configPath := filepath.Join(configDir, "config.json")
	if _, err := os.Stat(configPath); err == nil {
		data, err := os.ReadFile(configPath)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %v", err)
		}
		if err := json.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %v", err)
		}
	}

	config.applyEnvOverrides()
	config.applyDefaults()

	return config, nil
}

func (c *Config) applyEnvOverrides() {
	setString(&c.Database.Host, "DB_HOST")
	setInt(&c.Database.Port, "DB_PORT")
	setString(&c.Database.User, "DB_USER")
	setString(&c.Database.Password, "DB_PASSWORD")
	setString(&c.Database.DBName, "DB_NAME")
	setString(&c.Database.SSLMode, "DB_SSLMODE")
	setString(&c.Server.Port, "PORT")
	setString(&c.PaymentProvider, "PAYMENT_PROVIDER")
	setString(&c.Stripe.Secret, "STRIPE_SECRET_KEY")
	setString(&c.Stripe.WebhookSecret, "STRIPE_WEBHOOK_SECRET")
	setString(&c.Xendit.Secret, "XENDIT_SECRET_KEY")
	setString(&c.Xendit.CallbackToken, "XENDIT_CALLBACK_TOKEN")
	setString(&c.Notify.SMTPHost, "SMTP_HOST")
	setString(&c.Notify.SMTPPort, "SMTP_PORT")
	setString(&c.Notify.EmailFrom, "EMAIL_FROM")
	setString(&c.Notify.SMSWebhookURL, "SMS_WEBHOOK_URL")
	setString(&c.Notify.SMSToken, "SMS_TOKEN")
}

func (c *Config) applyDefaults() {
	if c.PaymentProvider == "" {
		c.PaymentProvider = "stripe"
	}
	if c.Database.Host == "" {
		c.Database.Host = "localhost"
	}
	if c.Database.Port == 0 {
		c.Database.Port = 5432
	}
	if c.Database.SSLMode == "" {
		c.Database.SSLMode = "disable"
	}
	if c.Database.MaxOpenConns == 0 {
		c.Database.MaxOpenConns = 25
	}
	if c.Database.MaxIdleConns == 0 {
		c.Database.MaxIdleConns = 5
	}
	if c.Database.MaxLifetime == 0 {
		c.Database.MaxLifetime = 30 * time.Minute
	}
	if c.Database.MaxIdleTime == 0 {
		c.Database.MaxIdleTime = 5 * time.Minute
	}
	if c.Server.Port == "" {
		c.Server.Port = "8080"
	}
	if c.Server.ReadTimeout == 0 {
		c.Server.ReadTimeout = 15 * time.Second
	}
	if c.Server.WriteTimeout == 0 {
		c.Server.WriteTimeout = 15 * time.Second
	}
	if c.Server.IdleTimeout == 0 {
		c.Server.IdleTimeout = 60 * time.Second
	}
	if c.Booking.MaxAttempts == 0 {
		c.Booking.MaxAttempts = 5
	}
	if c.Booking.BaseDelay == 0 {
		c.Booking.BaseDelay = 100 * time.Millisecond
	}
	if c.Booking.TxTimeout == 0 {
		c.Booking.TxTimeout = 10 * time.Second
	}
	if c.Booking.RefundCutoffHours == 0 {
		c.Booking.RefundCutoffHours = 24
	}
	if c.Worker.PollInterval == 0 {
		c.Worker.PollInterval = 5 * time.Second
	}
	if c.Worker.StaleAfter == 0 {
		c.Worker.StaleAfter = 5 * time.Minute
	}
	if c.Worker.BatchSize == 0 {
		c.Worker.BatchSize = 10
	}
	if c.Worker.RetentionDays == 0 {
		c.Worker.RetentionDays = 7
	}
}

func (c *Config) GetDatabaseURL() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Database.Host, c.Database.Port, c.Database.User, c.Database.Password,
		c.Database.DBName, c.Database.SSLMode)
}

func setString(target *string, envVar string) {
	if value := os.Getenv(envVar); value != "" {
		*target = value
	}
}

func setInt(target *int, envVar string) {
	if value := os.Getenv(envVar); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			*target = parsed
		}
	}
}
