package app

import "errors"

// Pipeline outcomes surfaced to the front door. ErrCaptchaRejected and
// ErrNotifyFailed map to the user-visible status messages; anything else is
// reported as a generic internal error.
var (
	// ErrCaptchaRejected means the verification service judged the token
	// untrusted. User-correctable, no persistence or notification happened.
	ErrCaptchaRejected = errors.New("captcha verification failed")

	// ErrCaptchaUnavailable means the verification service itself could not
	// be reached or answered garbage. A hard dependency fault, distinct
	// from a rejection.
	ErrCaptchaUnavailable = errors.New("captcha service unavailable")

	// ErrNotifyFailed means the notification email could not be sent. The
	// email is the channel staff depend on, so this fails the request even
	// when the database write succeeded.
	ErrNotifyFailed = errors.New("failed to send email")
)
