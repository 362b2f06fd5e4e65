package config

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap/zapcore"

	"github.com/gramasevaka/gs-portal-api/models"
)

func TestNew(t *testing.T) {
	t.Setenv("DB_URI", "mongodb://127.0.0.1:27017")
	t.Setenv("DB_NAME", "test")
	t.Setenv("TOKEN_TTL", "2h")
	t.Setenv("PORT", "")
	conf := New()

	assert.Equal(t, "mongodb://127.0.0.1:27017", conf.URL)
	assert.Equal(t, "test", conf.DatabaseName)
	assert.Equal(t, "8080", conf.Port)
	assert.Equal(t, 2*time.Hour, conf.TokenTTL)
	assert.Equal(t, 30*time.Second, conf.AuthCacheTTL)
	assert.Equal(t, int64(10<<20), conf.MaxUploadBytes)
}

func TestNewIgnoresMalformedDurations(t *testing.T) {
	t.Setenv("TOKEN_TTL", "forever")
	conf := New()
	assert.Equal(t, 24*time.Hour, conf.TokenTTL)
}

func TestValidate(t *testing.T) {
	conf := &Config{URL: "mongodb://x", DatabaseName: "gs"}
	assert.EqualError(t, conf.Validate(), "JWT_SECRET is not set")

	conf.JWTSecret = "s3cret"
	assert.NoError(t, conf.Validate())

	conf.URL = ""
	assert.EqualError(t, conf.Validate(), "DB_URI is not set")
}

func TestErrorStatus(t *testing.T) {
	rr := httptest.NewRecorder()
	ErrorStatus("invalid status", http.StatusBadRequest, rr, errors.New("bad request"))

	assert.Equal(t, http.StatusBadRequest, rr.Code)
	var body models.ErrorMessageResponse
	assert.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	assert.Equal(t, "invalid status", body.Response.Message)
	assert.Equal(t, "bad request", body.Response.Error)
}

func TestErrorStatusHidesInternalDetailInProduction(t *testing.T) {
	exposeInternalErrors = false
	defer func() { exposeInternalErrors = true }()

	rr := httptest.NewRecorder()
	ErrorStatus("failed to save", http.StatusInternalServerError, rr, errors.New("connection reset"))

	var body models.ErrorMessageResponse
	assert.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	assert.Equal(t, "failed to save", body.Response.Message)
	assert.Empty(t, body.Response.Error)
}

func TestSetLoggerSetsDevelopmentLogger(t *testing.T) {
	l, err := setLogger("development")
	assert.NoError(t, err)
	assert.True(t, l.Core().Enabled(zapcore.DebugLevel))
}

func TestSetLoggerSetsProductionLogger(t *testing.T) {
	l, err := setLogger("production")
	assert.NoError(t, err)
	assert.False(t, l.Core().Enabled(zapcore.DebugLevel))
}
