package main

import (
	"context"
	"database/sql"
	"errors"
	"net"
	"net/url"
	"os"
	"os/signal"
	"regexp"
	"strconv"
	"strings"
	"syscall"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	_ "github.com/jackc/pgx/v5/stdlib" // pgx driver
	"github.com/rs/zerolog"

	"bfban-bot/internal/bfban"
	"bfban-bot/internal/captcha"
	"bfban-bot/internal/config"
	"bfban-bot/internal/httpserver"
	"bfban-bot/internal/imagehost"
	"bfban-bot/internal/report"
	"bfban-bot/internal/store"
	"bfban-bot/internal/telegram"
)

func main() {
	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()

	cfg := config.Load()

	// --- Postgres audit log (optional) ---
	var db *sql.DB
	var audit report.AuditLog
	if dsn := resolveDSN(); dsn != "" {
		var err error
		db, err = sql.Open("pgx", dsn)
		if err != nil {
			logger.Fatal().Err(err).Msg("sql.Open")
		}
		db.SetMaxOpenConns(10)
		db.SetMaxIdleConns(10)
		db.SetConnMaxLifetime(1 * time.Hour)

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := db.PingContext(ctx); err != nil {
			cancel()
			logger.Fatal().Err(err).Msg("db.Ping")
		}
		cancel()
		logger.Info().Str("db", safeDSNSummary(dsn)).Msg("db connected")

		repo := store.NewReportRepo(db)
		if err := repo.EnsureSchema(context.Background()); err != nil {
			logger.Fatal().Err(err).Msg("ensure schema")
		}
		audit = repo
	} else {
		logger.Info().Msg("no database configured, audit log disabled")
	}

	// --- Telegram bot ---
	bot, err := tgbotapi.NewBotAPI(cfg.TelegramBotToken)
	if err != nil {
		logger.Fatal().Err(err).Msg("telegram auth")
	}
	bot.Debug = false
	logger.Info().Str("bot", bot.Self.UserName).Msg("authorized")

	// --- Services ---
	statsCache := bfban.NewStatsCache(5 * time.Minute)
	defer statsCache.Close()

	tokenCache := bfban.NewTokenCache(bfban.NewHTTPTokenSource(cfg.DataSourceHost), 30*time.Minute, logger)
	defer tokenCache.Close()

	router := telegram.NewRouter(bot, logger)
	router.Flow = &report.Flow{
		Messenger: router,
		Stats:     bfban.NewStatsClient(cfg.DataSourceHost, statsCache, logger),
		Cases:     bfban.NewCaseClient(cfg.BfbanHost, tokenCache, logger),
		Images:    imagehost.New(cfg.ImageHostAuth, logger),
		Renderer:  captcha.NewRenderer(),
		Mirror:    mirrorOrNil(cfg),
		Sessions:  report.NewRegistry(),
		Audit:     audit,
		Log:       logger.With().Str("component", "report").Logger(),
	}

	// --- Health endpoint ---
	httpserver.Register(db)
	addr := "0.0.0.0:" + cfg.Port
	go func() {
		logger.Info().Str("addr", addr).Msg("health server listening")
		if err := httpserver.Start(addr); err != nil {
			logger.Fatal().Err(err).Msg("http server")
		}
	}()

	// --- Polling loop ---
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	runPolling(ctx, bot, logger, router.HandleUpdate)
	logger.Info().Msg("shutting down")
}

// mirrorOrNil keeps the Flow's nil-means-disabled contract: a typed nil
// *captcha.Mirror inside the interface would not compare equal to nil.
func mirrorOrNil(cfg *config.Config) report.CaptchaMirror {
	if m := captcha.NewMirror(cfg.CaptchaHost, cfg.CaptchaHostAuth); m != nil {
		return m
	}
	return nil
}

// ---------------- Polling loop -----------------

var reRetryAfter = regexp.MustCompile(`(?i)retry after\s+(\d+)`)

func retryDelayFromError(err error) time.Duration {
	if err == nil {
		return 0
	}
	s := strings.ToLower(err.Error())
	if strings.Contains(s, "too many requests") { // HTTP 429 from Telegram
		if m := reRetryAfter.FindStringSubmatch(s); len(m) == 2 {
			if n, _ := strconv.Atoi(m[1]); n > 0 {
				return time.Duration(n) * time.Second
			}
		}
		return 3 * time.Second
	}
	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return 2 * time.Second
	}
	return 1 * time.Second
}

func runPolling(ctx context.Context, bot *tgbotapi.BotAPI, logger zerolog.Logger, handle func(tgbotapi.Update)) {
	offset := 0
	baseDelay := 1 * time.Second
	maxDelay := 15 * time.Second

	for {
		select {
		case <-ctx.Done():
			logger.Info().Msg("polling: context cancelled")
			return
		default:
		}

		u := tgbotapi.NewUpdate(offset)
		u.Timeout = 30 // long polling timeout (sec)

		updates, err := bot.GetUpdates(u)
		if err != nil {
			d := retryDelayFromError(err)
			if d < baseDelay {
				d = baseDelay
			}
			if d > maxDelay {
				d = maxDelay
			}
			logger.Warn().Err(err).Dur("retry_in", d).Msg("polling error")
			time.Sleep(d)
			continue
		}

		for _, upd := range updates {
			if upd.UpdateID >= offset {
				offset = upd.UpdateID + 1
			}
			handle(upd)
		}

		if len(updates) == 0 {
			time.Sleep(200 * time.Millisecond)
		}
	}
}

// ---------------- Helpers -----------------

func resolveDSN() string {
	// Prefer DATABASE_URL if provided
	if v := strings.TrimSpace(os.Getenv("DATABASE_URL")); v != "" {
		return v
	}
	// Build DSN from POSTGRES_* / PG* env vars; empty user means no db at all
	user := strings.TrimSpace(os.Getenv("POSTGRES_USER"))
	if user == "" {
		return ""
	}
	pass := os.Getenv("POSTGRES_PASSWORD")
	host := getenvDefault("PGHOST", "db")
	port := getenvDefault("PGPORT", "5432")
	dbName := getenvDefault("POSTGRES_DB", "bfbanbot")

	u := &url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(user, pass),
		Host:     net.JoinHostPort(host, port),
		Path:     "/" + dbName,
		RawQuery: "sslmode=disable",
	}
	return u.String()
}

func getenvDefault(key, def string) string {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	return v
}

func safeDSNSummary(dsn string) string {
	u, err := url.Parse(dsn)
	if err != nil {
		return "dsn: parse error"
	}
	user := u.User.Username()
	host := u.Host
	if h, _, err := net.SplitHostPort(u.Host); err == nil {
		host = h
	}
	dbName := strings.TrimPrefix(u.Path, "/")
	return "host=" + host + " db=" + dbName + " user=" + user
}
