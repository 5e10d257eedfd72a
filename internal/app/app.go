package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"nuverse/internal/domain"
	"nuverse/internal/store"
	"nuverse/internal/util"
)

// AnonymousName replaces a blank fullName on submissions.
const AnonymousName = "Anonymous"

// Verifier decides whether a submission comes from a human.
type Verifier interface {
	Verify(ctx context.Context, token, remoteIP string) (bool, error)
}

// Notifier delivers the notification email for one submission.
type Notifier interface {
	Send(ctx context.Context, fullName, email, phone, reason string) error
}

// Config wires the orchestrator's collaborators.
type Config struct {
	Verifier       Verifier
	Store          store.Store
	Notifier       Notifier
	RequestTimeout time.Duration
}

// App sequences captcha verification, persistence, and notification for
// each contact submission, and keeps the chatbot audit trail.
type App struct {
	verifier Verifier
	store    store.Store
	notifier Notifier
	timeout  time.Duration
	now      func() time.Time
}

// New constructs the orchestrator.
func New(cfg Config) (*App, error) {
	if cfg.Verifier == nil {
		return nil, errors.New("verifier required")
	}
	if cfg.Store == nil {
		return nil, errors.New("store required")
	}
	if cfg.Notifier == nil {
		return nil, errors.New("notifier required")
	}
	timeout := cfg.RequestTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &App{
		verifier: cfg.Verifier,
		store:    cfg.Store,
		notifier: cfg.Notifier,
		timeout:  timeout,
		now:      func() time.Time { return time.Now().UTC() },
	}, nil
}

// SubmissionForm carries validated contact fields from the front door.
// Email and Reason are guaranteed non-empty by upstream validation.
type SubmissionForm struct {
	FullName     string
	Email        string
	PhoneNumber  string
	Reason       string
	CaptchaToken string
	RemoteIP     string
}

// Step failure policy. A required step failing fails the request; a
// best-effort step failing is logged and the pipeline continues.
type severity int

const (
	bestEffort severity = iota
	required
)

type pipelineStep struct {
	name     string
	severity severity
	run      func(context.Context) error
}

// Submit runs the contact pipeline: verify captcha, persist the submission
// (best-effort), send the notification email (required). All three calls
// share one deadline. Returns nil when the request should report "sent" —
// which deliberately includes the persistence-failed case.
func (a *App) Submit(ctx context.Context, form SubmissionForm) error {
	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()
	logger := util.LoggerFromContext(ctx)

	ok, err := a.verifier.Verify(ctx, form.CaptchaToken, form.RemoteIP)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrCaptchaUnavailable, err)
	}
	if !ok {
		logger.Warn("captcha verification failed", "ip", form.RemoteIP)
		return ErrCaptchaRejected
	}

	submission := a.buildSubmission(form)
	steps := []pipelineStep{
		{
			name:     "persist submission",
			severity: bestEffort,
			run: func(ctx context.Context) error {
				return a.store.AddSubmission(ctx, &submission)
			},
		},
		{
			name:     "send notification",
			severity: required,
			run: func(ctx context.Context) error {
				err := a.notifier.Send(ctx, submission.FullName, submission.Email, submission.PhoneNumber, submission.Reason)
				if err != nil {
					return fmt.Errorf("%w: %v", ErrNotifyFailed, err)
				}
				return nil
			},
		},
	}
	if err := runSteps(ctx, logger, steps); err != nil {
		return err
	}
	logger.Info("contact submission processed", "email", submission.Email)
	return nil
}

// runSteps executes steps in order and returns the first required failure.
// Best-effort failures are logged and swallowed, keeping the trade-off in
// one visible place instead of scattered across try/catch blocks.
func runSteps(ctx context.Context, logger *slog.Logger, steps []pipelineStep) error {
	for _, step := range steps {
		err := step.run(ctx)
		if err == nil {
			continue
		}
		if step.severity == bestEffort {
			logger.Error("best-effort step failed, continuing", "step", step.name, "err", err)
			continue
		}
		logger.Error("required step failed", "step", step.name, "err", err)
		return err
	}
	return nil
}

func (a *App) buildSubmission(form SubmissionForm) domain.ContactSubmission {
	fullName := strings.TrimSpace(form.FullName)
	if fullName == "" {
		fullName = AnonymousName
	}
	return domain.ContactSubmission{
		FullName:    fullName,
		Email:       form.Email,
		PhoneNumber: strings.TrimSpace(form.PhoneNumber),
		Reason:      form.Reason,
		IsSubmitted: true,
		SubmittedAt: a.now(),
	}
}

// RecordInteraction appends one chatbot exchange to the audit trail,
// best-effort: a storage failure never fails the proxied request.
func (a *App) RecordInteraction(ctx context.Context, question, answer, sessionID, category string) {
	interaction := domain.ChatInteraction{
		Question:  question,
		Answer:    answer,
		SessionID: sessionID,
		Category:  category,
		CreatedAt: a.now(),
	}
	if err := a.store.AddInteraction(ctx, &interaction); err != nil {
		util.LoggerFromContext(ctx).Error("record chatbot interaction failed", "err", err)
	}
}
