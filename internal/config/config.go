package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Port             string
	GinMode          string
	Database         DatabaseConfig
	Storage          StorageConfig
	Classifier       ClassifierConfig
	Logto            LogtoConfig
	JWT              JWTConfig
	Session          SessionConfig
	MQTT             MQTTConfig
	Log              LogConfig
	SentryDSN        string
	ExportSigningKey string
	AdminUsers       []string
	TestMode         bool
}

type DatabaseConfig struct {
	URL string
}

type StorageConfig struct {
	Backend        string
	UploadDir      string
	MaxUploadBytes int64
	GCSBucket      string
	GCSProjectID   string
	GCSCredentials string
}

type ClassifierConfig struct {
	URL           string
	Timeout       time.Duration
	StaticVerdict string
}

type LogtoConfig struct {
	Endpoint      string
	AppID         string
	AppSecret     string
	RedirectURI   string
	PostLogoutURI string
}

type JWTConfig struct {
	Secret string
}

type SessionConfig struct {
	Secret string
	Secure bool
}

type MQTTConfig struct {
	Broker      string
	ClientID    string
	TopicPrefix string
}

type LogConfig struct {
	Level  string
	Format string
}

func Load() (*Config, error) {
	godotenv.Load()

	adminUsers := []string{}
	if adminUsersStr := os.Getenv("ADMIN_USERS"); adminUsersStr != "" {
		for _, u := range strings.Split(adminUsersStr, ",") {
			if u = strings.TrimSpace(u); u != "" {
				adminUsers = append(adminUsers, u)
			}
		}
	}

	return &Config{
		Port:    getEnv("PORT", "8080"),
		GinMode: getEnv("GIN_MODE", "debug"),
		Database: DatabaseConfig{
			URL: getEnv("DATABASE_URL", ""),
		},
		Storage: StorageConfig{
			Backend:        getEnv("STORAGE_BACKEND", "local"),
			UploadDir:      getEnv("UPLOAD_DIR", "uploads"),
			MaxUploadBytes: getEnvInt64("MAX_UPLOAD_BYTES", 20<<20),
			GCSBucket:      getEnv("GCS_BUCKET", ""),
			GCSProjectID:   getEnv("GCS_PROJECT_ID", ""),
			GCSCredentials: getEnv("GCS_CREDENTIALS_FILE", ""),
		},
		Classifier: ClassifierConfig{
			URL:           getEnv("CLASSIFIER_URL", ""),
			Timeout:       getEnvDuration("CLASSIFIER_TIMEOUT", 30*time.Second),
			StaticVerdict: getEnv("CLASSIFIER_STATIC_VERDICT", "healthy"),
		},
		Logto: LogtoConfig{
			Endpoint:      getEnv("LOGTO_ENDPOINT", ""),
			AppID:         getEnv("LOGTO_APP_ID", ""),
			AppSecret:     getEnv("LOGTO_APP_SECRET", ""),
			RedirectURI:   getEnv("LOGTO_REDIRECT_URI", ""),
			PostLogoutURI: getEnv("LOGTO_POST_LOGOUT_URI", ""),
		},
		JWT: JWTConfig{
			Secret: getEnv("JWT_SECRET", ""),
		},
		Session: SessionConfig{
			Secret: getEnv("SESSION_SECRET", ""),
			Secure: getEnv("SESSION_SECURE", "false") == "true",
		},
		MQTT: MQTTConfig{
			Broker:      getEnv("MQTT_BROKER", ""),
			ClientID:    getEnv("MQTT_CLIENT_ID", "agrineural"),
			TopicPrefix: getEnv("MQTT_TOPIC_PREFIX", "agrineural"),
		},
		Log: LogConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "text"),
		},
		SentryDSN:        getEnv("SENTRY_DSN", ""),
		ExportSigningKey: getEnv("EXPORT_SIGNING_KEY", ""),
		AdminUsers:       adminUsers,
		TestMode:         getEnv("TEST_MODE", "false") == "true",
	}, nil
}

func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getEnvInt64(key string, defaultValue int64) int64 {
	value, err := strconv.ParseInt(os.Getenv(key), 10, 64)
	if err != nil || value <= 0 {
		return defaultValue
	}
	return value
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	value, err := time.ParseDuration(os.Getenv(key))
	if err != nil || value <= 0 {
		return defaultValue
	}
	return value
}
