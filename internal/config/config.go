package config

import (
	"os"
	"strconv"
)

type Config struct {
	Port        int
	DatabaseDSN string
	JWTSecret   string
	RedisAddr   string

	CloudinaryCloudName    string
	CloudinaryAPIKey       string
	CloudinaryUploadPreset string

	GroupMinParticipants int
	GroupMaxParticipants int
	MessagePageLimit     int
	MessagePageMax       int
}

// Load reads configuration from the environment, falling back to defaults.
// DATABASE_DSN empty means a local sqlite file, which is what development
// and tests use; anything else is treated as a Postgres DSN.
func Load() Config {
	return Config{
		Port:        envInt("APP_PORT", 8080),
		DatabaseDSN: os.Getenv("DATABASE_DSN"),
		JWTSecret:   envStr("JWT_SECRET", "default_secret"),
		RedisAddr:   os.Getenv("REDIS_ADDR"),

		CloudinaryCloudName:    os.Getenv("CLOUDINARY_CLOUD_NAME"),
		CloudinaryAPIKey:       os.Getenv("CLOUDINARY_API_KEY"),
		CloudinaryUploadPreset: envStr("CLOUDINARY_UPLOAD_PRESET", "parley_media"),

		GroupMinParticipants: envInt("GROUP_MIN_PARTICIPANTS", 3),
		GroupMaxParticipants: envInt("GROUP_MAX_PARTICIPANTS", 100),
		MessagePageLimit:     envInt("MESSAGE_PAGE_LIMIT", 50),
		MessagePageMax:       envInt("MESSAGE_PAGE_MAX", 100),
	}
}

func envStr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}
