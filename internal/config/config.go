package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// ConfigPath is the default config file location.
const ConfigPath = "config.yaml"

// DefaultCaptchaVerifyURL is the Google reCAPTCHA siteverify endpoint.
const DefaultCaptchaVerifyURL = "https://www.google.com/recaptcha/api/siteverify"

// FileConfig represents configuration loaded from YAML with env overrides.
type FileConfig struct {
	Port              string   `yaml:"port"`
	LogLevel          string   `yaml:"logLevel"`
	DatabaseURL       string   `yaml:"databaseURL"`
	RedisAddr         string   `yaml:"redisAddr"`
	RedisPassword     string   `yaml:"redisPassword"`
	AllowedOrigins    []string `yaml:"allowedOrigins"`
	TrustedProxyCIDRs []string `yaml:"trustedProxyCidrs"`
	RequestTimeout    string   `yaml:"requestTimeout"`

	ContactRateLimitPerMinute int `yaml:"contactRateLimitPerMinute"`
	ChatbotRateLimitPerMinute int `yaml:"chatbotRateLimitPerMinute"`

	CaptchaEnabled   bool   `yaml:"captchaEnabled"`
	CaptchaSecret    string `yaml:"captchaSecret"`
	CaptchaVerifyURL string `yaml:"captchaVerifyURL"`

	SMTPHost     string `yaml:"smtpHost"`
	SMTPPort     int    `yaml:"smtpPort"`
	SMTPUsername string `yaml:"smtpUsername"`
	SMTPPassword string `yaml:"smtpPassword"`
	SMTPSSL      bool   `yaml:"smtpSSL"`
	MailFrom     string `yaml:"mailFrom"`
	MailTo       string `yaml:"mailTo"`
	MailSubject  string `yaml:"mailSubject"`

	ChatbotBaseURL    string `yaml:"chatbotBaseURL"`
	KeepAliveEnabled  bool   `yaml:"keepAliveEnabled"`
	KeepAliveInterval string `yaml:"keepAliveInterval"`
}

// Load reads config from path (defaults to config.yaml).
func Load(path string) (FileConfig, error) {
	cfg := FileConfig{}
	if path == "" {
		path = ConfigPath
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config: %w", err)
	}
	if v := os.Getenv("PORT"); v != "" {
		cfg.Port = strings.TrimSpace(v)
	}
	if v := os.Getenv("DATABASE_URL"); v != "" {
		cfg.DatabaseURL = v
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		cfg.RedisAddr = v
	}
	if v := os.Getenv("REDIS_PASSWORD"); v != "" {
		cfg.RedisPassword = v
	}
	if v := os.Getenv("NUVERSE_ALLOWED_ORIGINS"); v != "" {
		cfg.AllowedOrigins = splitCSV(v)
	}
	if v := os.Getenv("NUVERSE_TRUSTED_PROXY_CIDRS"); v != "" {
		cfg.TrustedProxyCIDRs = splitCSV(v)
	}
	if v := os.Getenv("NUVERSE_REQUEST_TIMEOUT"); v != "" {
		cfg.RequestTimeout = strings.TrimSpace(v)
	}
	if v := os.Getenv("NUVERSE_CONTACT_RATE_LIMIT_PER_MINUTE"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.ContactRateLimitPerMinute = n
		}
	}
	if v := os.Getenv("NUVERSE_CHATBOT_RATE_LIMIT_PER_MINUTE"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.ChatbotRateLimitPerMinute = n
		}
	}
	if v := os.Getenv("CAPTCHA_ENABLED"); v != "" {
		if b, err := strconv.ParseBool(strings.TrimSpace(v)); err == nil {
			cfg.CaptchaEnabled = b
		}
	}
	if v := os.Getenv("CAPTCHA_SECRET"); v != "" {
		cfg.CaptchaSecret = v
	}
	if v := os.Getenv("CAPTCHA_VERIFY_URL"); v != "" {
		cfg.CaptchaVerifyURL = v
	}
	if v := os.Getenv("SMTP_HOST"); v != "" {
		cfg.SMTPHost = strings.TrimSpace(v)
	}
	if v := os.Getenv("SMTP_PORT"); v != "" {
		if n, err := strconv.Atoi(strings.TrimSpace(v)); err == nil {
			cfg.SMTPPort = n
		}
	}
	if v := os.Getenv("SMTP_USERNAME"); v != "" {
		cfg.SMTPUsername = v
	}
	if v := os.Getenv("SMTP_PASSWORD"); v != "" {
		cfg.SMTPPassword = v
	}
	if v := os.Getenv("SMTP_SSL"); v != "" {
		if b, err := strconv.ParseBool(strings.TrimSpace(v)); err == nil {
			cfg.SMTPSSL = b
		}
	}
	if v := os.Getenv("MAIL_FROM"); v != "" {
		cfg.MailFrom = strings.TrimSpace(v)
	}
	if v := os.Getenv("MAIL_TO"); v != "" {
		cfg.MailTo = strings.TrimSpace(v)
	}
	if v := os.Getenv("MAIL_SUBJECT"); v != "" {
		cfg.MailSubject = v
	}
	if v := os.Getenv("CHATBOT_BASE_URL"); v != "" {
		cfg.ChatbotBaseURL = strings.TrimSpace(v)
	}
	if v := os.Getenv("CHATBOT_KEEPALIVE_ENABLED"); v != "" {
		if b, err := strconv.ParseBool(strings.TrimSpace(v)); err == nil {
			cfg.KeepAliveEnabled = b
		}
	}
	if v := os.Getenv("CHATBOT_KEEPALIVE_INTERVAL"); v != "" {
		cfg.KeepAliveInterval = strings.TrimSpace(v)
	}
	applyDefaults(&cfg)
	if err := validateConfig(cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func applyDefaults(cfg *FileConfig) {
	if cfg.CaptchaVerifyURL == "" {
		cfg.CaptchaVerifyURL = DefaultCaptchaVerifyURL
	}
	if cfg.ContactRateLimitPerMinute == 0 {
		cfg.ContactRateLimitPerMinute = 6
	}
	if cfg.ChatbotRateLimitPerMinute == 0 {
		cfg.ChatbotRateLimitPerMinute = 30
	}
	if cfg.RequestTimeout == "" {
		cfg.RequestTimeout = "30s"
	}
	if cfg.KeepAliveInterval == "" {
		cfg.KeepAliveInterval = "5m"
	}
	if cfg.MailSubject == "" {
		cfg.MailSubject = "New contact form submission"
	}
}

func validateConfig(cfg FileConfig) error {
	if cfg.Port == "" {
		return errors.New("config: port is required (set in config.yaml or PORT)")
	}
	if strings.TrimSpace(cfg.RedisAddr) == "" {
		return errors.New("config: redisAddr is required for distributed rate limiting")
	}
	if cfg.ChatbotBaseURL == "" {
		return errors.New("config: chatbotBaseURL is required (set in config.yaml or CHATBOT_BASE_URL)")
	}
	if cfg.SMTPHost == "" {
		return errors.New("config: smtpHost is required (set in config.yaml or SMTP_HOST)")
	}
	if cfg.MailFrom == "" || cfg.MailTo == "" {
		return errors.New("config: mailFrom and mailTo are required")
	}
	if cfg.CaptchaEnabled && strings.TrimSpace(cfg.CaptchaSecret) == "" {
		return errors.New("config: captchaSecret is required when captchaEnabled is true")
	}
	if cfg.ContactRateLimitPerMinute < 0 || cfg.ChatbotRateLimitPerMinute < 0 {
		return errors.New("config: rate limits must be >= 0")
	}
	return nil
}

func splitCSV(value string) []string {
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		out = append(out, part)
	}
	return out
}

// ParseRequestTimeout parses the unified per-request deadline.
func ParseRequestTimeout(raw string) (time.Duration, error) {
	if raw == "" {
		return 30 * time.Second, nil
	}
	dur, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid requestTimeout duration: %w", err)
	}
	if dur <= 0 {
		return 0, errors.New("requestTimeout must be positive")
	}
	return dur, nil
}

// ParseKeepAliveInterval parses the chatbot keep-alive ping interval.
func ParseKeepAliveInterval(raw string) (time.Duration, error) {
	if raw == "" {
		return 5 * time.Minute, nil
	}
	dur, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid keepAliveInterval duration: %w", err)
	}
	if dur < time.Second {
		return 0, errors.New("keepAliveInterval must be at least 1s")
	}
	return dur, nil
}
