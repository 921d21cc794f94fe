package config

import (
	"log"
	"os"
	"strings"
)

type Config struct {
	Port string

	TelegramBotToken string

	// Upstream hosts
	DataSourceHost string // player stats source (pid/stats/token)
	BfbanHost      string // case tracking service

	// Image hosting
	ImageHostAuth string

	// Optional captcha mirror (empty = disabled)
	CaptchaHost     string
	CaptchaHostAuth string
}

func mustEnv(k string) string {
	v := os.Getenv(k)
	if v == "" {
		log.Fatalf("missing required env %s", k)
	}
	return v
}

func getEnv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func Load() *Config {
	return &Config{
		Port: getEnv("PORT", "8000"),

		TelegramBotToken: mustEnv("TELEGRAM_BOT_TOKEN"),

		DataSourceHost: strings.TrimRight(getEnv("DATA_SOURCE_HOST", "https://api.gametools.network"), "/"),
		BfbanHost:      strings.TrimRight(getEnv("BFBAN_HOST", "https://bfban.gametools.network"), "/"),

		ImageHostAuth: mustEnv("IMAGE_HOST_AUTH"),

		CaptchaHost:     strings.TrimRight(os.Getenv("CAPTCHA_HOST"), "/"),
		CaptchaHostAuth: os.Getenv("CAPTCHA_HOST_AUTH"),
	}
}
