package config

import (
	"errors"
	"fmt"
	"runtime"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

var ErrMissingKey = errors.New("missing required configuration")

// requiredKeys must resolve to a non-empty value, either from the
// environment or from a default registered in setDefaults.
var requiredKeys = []string{
	"DB_HOST",
	"DB_USER",
	"DB_PASSWORD",
	"DB_NAME",
	"OCR_TESSERACT_PATH",
	"CAMERA_PRIMARY",
	"CAMERA_SECONDARY",
}

type Config struct {
	HTTP     HTTPConfig
	DB       DBConfig
	Auth     AuthConfig
	Camera   CameraConfig
	OCR      OCRConfig
	Evidence EvidenceConfig
	Capture  CaptureConfig
	Log      LogConfig
}

type HTTPConfig struct {
	Addr string
}

type DBConfig struct {
	Host         string
	Port         int
	User         string
	Password     string
	Name         string
	SSLMode      string
	MaxOpenConns int
	MaxIdleConns int
	Timeout      time.Duration
}

// DSN renders the postgres connection string.
func (c DBConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Name, c.SSLMode,
	)
}

type AuthConfig struct {
	JWTSecret string
}

type CameraConfig struct {
	Model     string
	Primary   string
	Secondary string
	Timeout   time.Duration
}

type OCRConfig struct {
	TesseractPath string
	Lang          string
	PSM           int
	Timeout       time.Duration
}

type EvidenceConfig struct {
	Root string
	Ext  string
}

type CaptureConfig struct {
	Interval       time.Duration
	DebounceWindow time.Duration
	MessageTTL     time.Duration
	Location       *time.Location
}

type LogConfig struct {
	Level  string
	Format string
}

// Load reads an optional .env file and then the process environment.
func Load() (*Config, error) {
	_ = godotenv.Load()
	return load(viper.New())
}

func load(v *viper.Viper) (*Config, error) {
	v.AllowEmptyEnv(true)
	v.AutomaticEnv()
	setDefaults(v)

	var missing []string
	for _, key := range requiredKeys {
		if strings.TrimSpace(v.GetString(key)) == "" {
			missing = append(missing, key)
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("%w: %s", ErrMissingKey, strings.Join(missing, ", "))
	}

	loc := time.Local
	if tz := v.GetString("TIMEZONE"); tz != "" && tz != "Local" {
		l, err := time.LoadLocation(tz)
		if err != nil {
			return nil, fmt.Errorf("invalid TIMEZONE %q: %w", tz, err)
		}
		loc = l
	}

	cfg := &Config{
		HTTP: HTTPConfig{
			Addr: v.GetString("HTTP_ADDR"),
		},
		DB: DBConfig{
			Host:         v.GetString("DB_HOST"),
			Port:         v.GetInt("DB_PORT"),
			User:         v.GetString("DB_USER"),
			Password:     v.GetString("DB_PASSWORD"),
			Name:         v.GetString("DB_NAME"),
			SSLMode:      v.GetString("DB_SSLMODE"),
			MaxOpenConns: v.GetInt("DB_MAX_OPEN_CONNS"),
			MaxIdleConns: v.GetInt("DB_MAX_IDLE_CONNS"),
			Timeout:      v.GetDuration("DB_TIMEOUT"),
		},
		Auth: AuthConfig{
			JWTSecret: v.GetString("JWT_SECRET"),
		},
		Camera: CameraConfig{
			Model:     v.GetString("CAMERA_MODEL"),
			Primary:   strings.TrimSpace(v.GetString("CAMERA_PRIMARY")),
			Secondary: strings.TrimSpace(v.GetString("CAMERA_SECONDARY")),
			Timeout:   v.GetDuration("CAMERA_TIMEOUT"),
		},
		OCR: OCRConfig{
			TesseractPath: v.GetString("OCR_TESSERACT_PATH"),
			Lang:          v.GetString("OCR_LANG"),
			PSM:           v.GetInt("OCR_PSM"),
			Timeout:       v.GetDuration("OCR_TIMEOUT"),
		},
		Evidence: EvidenceConfig{
			Root: v.GetString("EVIDENCE_ROOT"),
			Ext:  strings.TrimPrefix(strings.ToLower(v.GetString("EVIDENCE_EXT")), "."),
		},
		Capture: CaptureConfig{
			Interval:       v.GetDuration("CAPTURE_INTERVAL"),
			DebounceWindow: v.GetDuration("DEBOUNCE_WINDOW"),
			MessageTTL:     v.GetDuration("MESSAGE_TTL"),
			Location:       loc,
		},
		Log: LogConfig{
			Level:  v.GetString("LOG_LEVEL"),
			Format: v.GetString("LOG_FORMAT"),
		},
	}

	if cfg.Capture.DebounceWindow <= 0 {
		return nil, fmt.Errorf("DEBOUNCE_WINDOW must be positive, got %s", cfg.Capture.DebounceWindow)
	}
	if cfg.Capture.Interval <= 0 {
		return nil, fmt.Errorf("CAPTURE_INTERVAL must be positive, got %s", cfg.Capture.Interval)
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("HTTP_ADDR", ":8080")
	v.SetDefault("DB_PORT", 5432)
	v.SetDefault("DB_SSLMODE", "disable")
	v.SetDefault("DB_MAX_OPEN_CONNS", 10)
	v.SetDefault("DB_MAX_IDLE_CONNS", 5)
	v.SetDefault("DB_TIMEOUT", 5*time.Second)
	v.SetDefault("CAMERA_MODEL", "generic")
	v.SetDefault("CAMERA_TIMEOUT", 3*time.Second)
	v.SetDefault("OCR_TESSERACT_PATH", defaultTesseractPath())
	v.SetDefault("OCR_LANG", "eng")
	v.SetDefault("OCR_PSM", 7)
	v.SetDefault("OCR_TIMEOUT", 5*time.Second)
	v.SetDefault("EVIDENCE_ROOT", "./evidence")
	v.SetDefault("EVIDENCE_EXT", "jpg")
	v.SetDefault("CAPTURE_INTERVAL", 200*time.Millisecond)
	v.SetDefault("DEBOUNCE_WINDOW", 2*time.Minute)
	v.SetDefault("MESSAGE_TTL", 5*time.Second)
	v.SetDefault("TIMEZONE", "Local")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")
}

func defaultTesseractPath() string {
	if runtime.GOOS == "windows" {
		return `C:\Program Files\Tesseract-OCR\tesseract.exe`
	}
	return "/usr/bin/tesseract"
}
