package handlers

import (
	"crypto/sha1"

	"github.com/gorilla/securecookie"
	"github.com/gorilla/sessions"
	"golang.org/x/crypto/pbkdf2"
)

const (
	sessionName      = "tide-forecast"
	sessionResult    = "result-id"
	sessionStartDate = "start-date"
	sessionEndDate   = "end-date"
	// See https://developer.chrome.com/blog/cookie-max-age-expires.
	defaultMaxAge = 60 * 60 * 24 * 400 // 400 days in seconds.
)

// SessionOptions configures the cookie store.
type SessionOptions struct {
	// HashKey authenticates the cookie. Password is stretched into the
	// encryption key.
	HashKey  string
	Password string
	Secure   bool
}

// NewSessionStore builds the cookie store used to remember each browser's
// latest result.
func NewSessionStore(opts SessionOptions) *sessions.CookieStore {
	hashKey := []byte(opts.HashKey)
	if len(hashKey) == 0 {
		hashKey = []byte("deadbeef")
	}
	password := opts.Password
	if password == "" {
		password = "deadbeef"
	}

	store := &sessions.CookieStore{
		Codecs: securecookie.CodecsFromPairs(
			hashKey,
			encryptionKey(password),
		),
		Options: &sessions.Options{
			Path:     "/",
			MaxAge:   defaultMaxAge,
			Secure:   opts.Secure,
			HttpOnly: true,
		},
	}
	store.MaxAge(defaultMaxAge)
	return store
}

func encryptionKey(password string) []byte {
	return pbkdf2.Key([]byte(password), []byte{}, 4096, 32, sha1.New)
}
