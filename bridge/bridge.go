// Package bridge carries login state from the product's main application
// into this site.
//
// The browser loads a hidden iframe from the trusted origin and posts an
// auth_check message into it every second. The iframe answers with an
// auth_status message; accepted answers are forwarded to the server and kept
// in the visitor's session cookie. There is no sequencing, acknowledgement or
// timeout: the latest answer wins.
package bridge

import (
	"encoding/json"
	"strings"
	"time"
)

// PollInterval is how often the browser asks the iframe for login state.
const PollInterval = time.Second

// Message types exchanged with the iframe.
const (
	TypeAuthCheck  = "auth_check"
	TypeAuthStatus = "auth_status"
)

// Session is the login state reported by the main application.
type Session struct {
	IsLoggedIn  bool   `json:"isLoggedIn"`
	Email       string `json:"email,omitempty"`
	DisplayName string `json:"displayName,omitempty"`
	PhotoURL    string `json:"photoURL,omitempty"`
}

// Name returns the display name, falling back to the email's local part.
func (s Session) Name() string {
	if s.DisplayName != "" {
		return s.DisplayName
	}
	if i := strings.IndexByte(s.Email, '@'); i > 0 {
		return s.Email[:i]
	}
	return s.Email
}

// AuthCheck is the request message posted into the iframe.
type AuthCheck struct {
	Type string `json:"type"`
}

// NewAuthCheck returns the auth_check request.
func NewAuthCheck() AuthCheck {
	return AuthCheck{Type: TypeAuthCheck}
}

type statusMessage struct {
	Type        string  `json:"type"`
	IsLoggedIn  *bool   `json:"isLoggedIn"`
	Email       *string `json:"email"`
	DisplayName *string `json:"displayName"`
	PhotoURL    *string `json:"photoURL"`
}

// ParseStatus is the type guard for auth_status messages. It accepts data only
// when origin matches trustedOrigin, the message type is auth_status and
// isLoggedIn is a boolean. Optional string fields default to empty; a logged
// out status carries no identity.
func ParseStatus(trustedOrigin, origin string, data []byte) (Session, bool) {
	if trustedOrigin == "" || !SameOrigin(trustedOrigin, origin) {
		return Session{}, false
	}
	var msg statusMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return Session{}, false
	}
	if msg.Type != TypeAuthStatus || msg.IsLoggedIn == nil {
		return Session{}, false
	}
	if !*msg.IsLoggedIn {
		return Session{}, true
	}
	return Session{
		IsLoggedIn:  true,
		Email:       deref(msg.Email),
		DisplayName: deref(msg.DisplayName),
		PhotoURL:    deref(msg.PhotoURL),
	}, true
}

// SameOrigin compares two origins ignoring case and a trailing slash.
func SameOrigin(a, b string) bool {
	return strings.EqualFold(strings.TrimSuffix(a, "/"), strings.TrimSuffix(b, "/"))
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
