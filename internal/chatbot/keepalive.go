package chatbot

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"
)

// KeepAlive pings the hosted chatbot on a fixed schedule so the upstream
// space never goes cold. Ping failures are logged and never fatal.
type KeepAlive struct {
	client       *Client
	interval     time.Duration
	initialDelay time.Duration
	pingTimeout  time.Duration
	cron         *cron.Cron
	stop         chan struct{}
}

// NewKeepAlive builds a pinger around an existing chatbot client.
func NewKeepAlive(client *Client, interval time.Duration) *KeepAlive {
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	return &KeepAlive{
		client:       client,
		interval:     interval,
		initialDelay: 10 * time.Second,
		pingTimeout:  30 * time.Second,
		stop:         make(chan struct{}),
	}
}

// Start schedules the recurring ping and fires one delayed initial ping so
// the upstream warms up shortly after boot instead of waiting a full interval.
func (k *KeepAlive) Start() error {
	if k.cron != nil {
		return fmt.Errorf("keep-alive already started")
	}
	k.cron = cron.New()
	if _, err := k.cron.AddFunc(fmt.Sprintf("@every %s", k.interval), k.ping); err != nil {
		return fmt.Errorf("schedule keep-alive: %w", err)
	}
	go func() {
		select {
		case <-time.After(k.initialDelay):
			k.ping()
		case <-k.stop:
			return
		}
	}()
	k.cron.Start()
	slog.Info("chatbot keep-alive started", "interval", k.interval.String())
	return nil
}

// Stop halts the schedule and waits for an in-flight ping to finish or the
// context to expire.
func (k *KeepAlive) Stop(ctx context.Context) {
	close(k.stop)
	if k.cron == nil {
		return
	}
	done := k.cron.Stop()
	select {
	case <-done.Done():
	case <-ctx.Done():
	}
	slog.Info("chatbot keep-alive stopped")
}

func (k *KeepAlive) ping() {
	ctx, cancel := context.WithTimeout(context.Background(), k.pingTimeout)
	defer cancel()
	start := time.Now()
	if err := k.client.Ping(ctx); err != nil {
		slog.Warn("chatbot keep-alive ping failed",
			"err", err,
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
		return
	}
	slog.Info("chatbot keep-alive ping ok",
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
}
