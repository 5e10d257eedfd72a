package main

import (
	"context"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	"nuverse/internal/app"
	"nuverse/internal/captcha"
	"nuverse/internal/chatbot"
	"nuverse/internal/config"
	"nuverse/internal/mailer"
	"nuverse/internal/server"
	"nuverse/internal/store"
	"nuverse/internal/util"
)

func main() {
	// Local development convenience; a missing .env is not an error.
	_ = godotenv.Load()

	path := os.Getenv("CONFIG_PATH")
	if path == "" {
		path = config.ConfigPath
	}
	cfg, err := config.Load(path)
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	requestTimeout, err := config.ParseRequestTimeout(cfg.RequestTimeout)
	if err != nil {
		log.Fatalf("failed to parse request timeout: %v", err)
	}
	keepAliveInterval, err := config.ParseKeepAliveInterval(cfg.KeepAliveInterval)
	if err != nil {
		log.Fatalf("failed to parse keep-alive interval: %v", err)
	}

	logger := util.InitLogger(cfg.LogLevel)

	st, err := openStore(cfg)
	if err != nil {
		log.Fatalf("failed to init store: %v", err)
	}

	verifier := captcha.New(captcha.Config{
		Enabled:   cfg.CaptchaEnabled,
		Secret:    cfg.CaptchaSecret,
		VerifyURL: cfg.CaptchaVerifyURL,
		Timeout:   requestTimeout,
	})
	notifier := mailer.New(mailer.Config{
		Host:     cfg.SMTPHost,
		Port:     cfg.SMTPPort,
		Username: cfg.SMTPUsername,
		Password: cfg.SMTPPassword,
		SSL:      cfg.SMTPSSL,
		From:     cfg.MailFrom,
		To:       cfg.MailTo,
		Subject:  cfg.MailSubject,
	})
	chatClient := chatbot.NewClient(cfg.ChatbotBaseURL)

	appCore, err := app.New(app.Config{
		Verifier:       verifier,
		Store:          st,
		Notifier:       notifier,
		RequestTimeout: requestTimeout,
	})
	if err != nil {
		log.Fatalf("failed to init app: %v", err)
	}

	httpServer, err := server.New(server.Config{
		App:                       appCore,
		Chat:                      chatClient,
		RedisAddr:                 cfg.RedisAddr,
		RedisPassword:             cfg.RedisPassword,
		ContactRateLimitPerMinute: cfg.ContactRateLimitPerMinute,
		ChatbotRateLimitPerMinute: cfg.ChatbotRateLimitPerMinute,
		TrustedProxyCIDRs:         cfg.TrustedProxyCIDRs,
		AllowedOrigins:            cfg.AllowedOrigins,
	})
	if err != nil {
		log.Fatalf("failed to init server: %v", err)
	}

	addr := ":" + cfg.Port
	srv := &http.Server{
		Addr:         addr,
		Handler:      httpServer.Router(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var keepAlive *chatbot.KeepAlive
	if cfg.KeepAliveEnabled {
		keepAlive = chatbot.NewKeepAlive(chatClient, keepAliveInterval)
		if err := keepAlive.Start(); err != nil {
			log.Fatalf("failed to start keep-alive: %v", err)
		}
	}

	group, ctx := errgroup.WithContext(ctx)
	group.Go(func() error {
		slog.Info("server listening", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	})
	group.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if keepAlive != nil {
			keepAlive.Stop(shutdownCtx)
		}
		return srv.Shutdown(shutdownCtx)
	})
	if err := group.Wait(); err != nil {
		logger.Error("server error", "err", err)
		os.Exit(1)
	}
	slog.Info("server stopped")
}

// openStore picks the submission store: Postgres when databaseURL is set,
// in-memory otherwise so the service can run without a database.
func openStore(cfg config.FileConfig) (store.Store, error) {
	if cfg.DatabaseURL == "" {
		slog.Warn("databaseURL not set, submissions will not survive restarts")
		return store.NewMemoryStore(), nil
	}
	return store.NewGormStore(cfg.DatabaseURL)
}
