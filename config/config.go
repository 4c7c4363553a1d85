package config

import (
	"encoding/json"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"go.uber.org/zap"

	"github.com/linesmerrill/legal-case-api/logging"
	"github.com/linesmerrill/legal-case-api/models"
)

// Config holds the project config values
type Config struct {
	URL            string        `envconfig:"DB_URI" default:"mongodb://127.0.0.1:27017"`
	DatabaseName   string        `envconfig:"DB_NAME" default:"legalcases"`
	BaseURL        string        `envconfig:"BASE_URL"`
	Port           string        `envconfig:"PORT" default:"5000"`
	Environment    string        `envconfig:"ENVIRONMENT" default:"development"`
	JWTSecret      string        `envconfig:"JWT_SECRET"`
	TokenTTL       time.Duration `envconfig:"TOKEN_TTL" default:"24h"`
	ClientURL      string        `envconfig:"CLIENT_URL" default:"*"`
	UploadDir      string        `envconfig:"UPLOAD_DIR" default:"uploads"`
	RequestTimeout time.Duration `envconfig:"REQUEST_TIMEOUT" default:"30s"`

	S3Bucket   string `envconfig:"S3_BUCKET"`
	S3Region   string `envconfig:"S3_REGION" default:"auto"`
	S3Endpoint string `envconfig:"S3_ENDPOINT"`

	SendgridAPIKey    string `envconfig:"SENDGRID_API_KEY"`
	ReminderFromEmail string `envconfig:"REMINDER_FROM_EMAIL" default:"no-reply@legalcases.app"`
	ReminderSchedule  string `envconfig:"REMINDER_SCHEDULE" default:"0 7 * * *"`
}

var showErrorDetail atomic.Bool

func init() {
	showErrorDetail.Store(true)
}

// New sets up all config related services
func New() (*Config, error) {
	// a missing .env is fine, the process environment wins either way
	_ = godotenv.Load()

	c := &Config{}
	if err := envconfig.Process("", c); err != nil {
		return nil, err
	}

	logger, err := setLogger(c.Environment)
	if err != nil {
		return nil, err
	}
	_ = zap.ReplaceGlobals(logger)
	SetEnvironment(c.Environment)

	return c, nil
}

// SetEnvironment controls whether 5xx responses carry the underlying error text
func SetEnvironment(env string) {
	showErrorDetail.Store(env == "development")
}

func setLogger(env string) (*zap.Logger, error) {
	return logging.New(env)
}

// ErrorStatus is a useful function that will log, write http headers and body for a
// give message, status code and err
func ErrorStatus(message string, httpStatusCode int, w http.ResponseWriter, err error) {
	writeError(httpStatusCode, w, err, models.MessageError{Message: message})
}

// ErrorStatusWithCode is ErrorStatus with a machine readable code the client can branch on
func ErrorStatusWithCode(message, code string, httpStatusCode int, w http.ResponseWriter, err error) {
	writeError(httpStatusCode, w, err, models.MessageError{Message: message, Code: code})
}

// ValidationErrorStatus writes a 400 carrying one message per offending field
func ValidationErrorStatus(message string, fields map[string]string, w http.ResponseWriter, err error) {
	writeError(http.StatusBadRequest, w, err, models.MessageError{Message: message, Code: "VALIDATION_FAILED", Fields: fields})
}

func writeError(httpStatusCode int, w http.ResponseWriter, err error, body models.MessageError) {
	zap.S().With("error", err, "status", httpStatusCode).Error(body.Message)

	if err != nil && (httpStatusCode < http.StatusInternalServerError || showErrorDetail.Load()) {
		body.Error = err.Error()
	}
	b, _ := json.Marshal(models.ErrorMessageResponse{Response: body})

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(httpStatusCode)
	_, _ = w.Write(b)
}
