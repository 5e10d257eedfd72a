package server

import (
	"net/mail"
	"regexp"
	"strings"
)

// Field limits sit at or below the store column sizes so nothing valid at
// the door gets truncated at the store.
const (
	maxFullNameLen = 100
	maxEmailLen    = 255
	maxReasonLen   = 1000
	maxQuestionLen = 500
	maxSessionLen  = 100
)

var phonePattern = regexp.MustCompile(`^\+?[0-9\s\-]+$`)

type contactRequest struct {
	FullName     string `json:"fullName"`
	Email        string `json:"email"`
	PhoneNumber  string `json:"phoneNumber"`
	Reason       string `json:"reason"`
	CaptchaToken string `json:"captchaToken"`
}

// validate returns a user-facing message and false when the form is invalid.
func (c contactRequest) validate() (string, bool) {
	if len(c.FullName) > maxFullNameLen {
		return "full name must be at most 100 characters", false
	}
	email := strings.TrimSpace(c.Email)
	if email == "" {
		return "email is required", false
	}
	if len(email) > maxEmailLen {
		return "email must be at most 255 characters", false
	}
	if _, err := mail.ParseAddress(email); err != nil {
		return "email is not a valid address", false
	}
	if phone := strings.TrimSpace(c.PhoneNumber); phone != "" && !phonePattern.MatchString(phone) {
		return "phone number may only contain digits, spaces, dashes and a leading +", false
	}
	if strings.TrimSpace(c.Reason) == "" {
		return "reason is required", false
	}
	if len(c.Reason) > maxReasonLen {
		return "reason must be at most 1000 characters", false
	}
	return "", true
}

type chatbotRequest struct {
	Question  string `json:"question"`
	SessionID string `json:"sessionId"`
}

func (c chatbotRequest) validate() (string, bool) {
	if strings.TrimSpace(c.Question) == "" {
		return "question is required", false
	}
	if len(c.Question) > maxQuestionLen {
		return "question must be at most 500 characters", false
	}
	if len(c.SessionID) > maxSessionLen {
		return "sessionId must be at most 100 characters", false
	}
	return "", true
}

type clearMemoryRequest struct {
	SessionID string `json:"sessionId"`
}
