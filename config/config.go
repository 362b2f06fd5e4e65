package config

import (
	"encoding/json"
	"errors"
	"net/http"
	"os"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/gramasevaka/gs-portal-api/models"
)

// Config holds the project config values
type Config struct {
	URL                string
	DatabaseName       string
	BaseURL            string
	Port               string
	Environment        string
	JWTSecret          string
	AllowedOrigin      string
	UploadDir          string
	MaxUploadBytes     int64
	TokenTTL           time.Duration
	AuthCacheTTL       time.Duration
	LoginRateBurst     int
	LoginRatePerSecond float64
	SendGridAPIKey     string
	MailFrom           string
	CloudinaryURL      string
	MinioEndpoint      string
	MinioAccessKey     string
	MinioSecretKey     string
	MinioBucket        string
	MinioRegion        string
	MinioPublicURL     string
	StripeSecretKey    string
	Currency           string
}

// exposeInternalErrors controls whether raw error text is returned for 5xx responses.
var exposeInternalErrors = true

// New sets up all config related services
func New() *Config {
	env := getEnv("APP_ENV", "local")

	//setup zap logger and replace default logger
	if logger, err := setLogger(env); err == nil {
		_ = zap.ReplaceGlobals(logger)
	}
	exposeInternalErrors = env != "production"

	return &Config{
		URL:                os.Getenv("DB_URI"),
		DatabaseName:       os.Getenv("DB_NAME"),
		BaseURL:            os.Getenv("BASE_URL"),
		Port:               getEnv("PORT", "8080"),
		Environment:        env,
		JWTSecret:          os.Getenv("JWT_SECRET"),
		AllowedOrigin:      os.Getenv("CORS_ORIGIN"),
		UploadDir:          getEnv("UPLOAD_DIR", "./uploads"),
		MaxUploadBytes:     getInt64("MAX_UPLOAD_BYTES", 10<<20),
		TokenTTL:           getDuration("TOKEN_TTL", 24*time.Hour),
		AuthCacheTTL:       getDuration("AUTH_CACHE_TTL", 30*time.Second),
		LoginRateBurst:     int(getInt64("LOGIN_RATE_BURST", 10)),
		LoginRatePerSecond: getFloat("LOGIN_RATE_PER_SECOND", 0.2),
		SendGridAPIKey:     os.Getenv("SENDGRID_API_KEY"),
		MailFrom:           getEnv("MAIL_FROM", "no-reply@gramasevaka.lk"),
		CloudinaryURL:      os.Getenv("CLOUDINARY_URL"),
		MinioEndpoint:      os.Getenv("MINIO_ENDPOINT"),
		MinioAccessKey:     os.Getenv("MINIO_ACCESS_KEY"),
		MinioSecretKey:     os.Getenv("MINIO_SECRET_KEY"),
		MinioBucket:        getEnv("MINIO_BUCKET", "gs-portal-uploads"),
		MinioRegion:        os.Getenv("MINIO_REGION"),
		MinioPublicURL:     os.Getenv("MINIO_PUBLIC_URL"),
		StripeSecretKey:    os.Getenv("STRIPE_SECRET_KEY"),
		Currency:           getEnv("PAYMENT_CURRENCY", "lkr"),
	}
}

// Validate reports the first missing setting the server cannot start without.
func (c *Config) Validate() error {
	switch {
	case c.URL == "":
		return errors.New("DB_URI is not set")
	case c.DatabaseName == "":
		return errors.New("DB_NAME is not set")
	case c.JWTSecret == "":
		return errors.New("JWT_SECRET is not set")
	}
	return nil
}

// ErrorStatus is a useful function that will log, write http headers and body for a
// give message, status code and err
func ErrorStatus(message string, httpStatusCode int, w http.ResponseWriter, err error) {
	detail := ""
	if err != nil {
		detail = err.Error()
	}
	if httpStatusCode >= http.StatusInternalServerError {
		zap.S().Errorw(message, "status", httpStatusCode, "error", detail)
		if !exposeInternalErrors {
			detail = ""
		}
	} else {
		zap.S().Debugw(message, "status", httpStatusCode, "error", detail)
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(httpStatusCode)
	_ = json.NewEncoder(w).Encode(models.ErrorMessageResponse{
		Response: models.MessageError{Message: message, Error: detail},
	})
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getDuration(key string, fallback time.Duration) time.Duration {
	d, err := time.ParseDuration(os.Getenv(key))
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}

func getInt64(key string, fallback int64) int64 {
	n, err := strconv.ParseInt(os.Getenv(key), 10, 64)
	if err != nil || n <= 0 {
		return fallback
	}
	return n
}

func getFloat(key string, fallback float64) float64 {
	f, err := strconv.ParseFloat(os.Getenv(key), 64)
	if err != nil || f <= 0 {
		return fallback
	}
	return f
}
