package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/hrdesk/apiserver/types"
)

const (
	sessionCookieName = "hrdesk_session"
	sessionIssuer     = "hrdesk"
)

var errInvalidSessionCookie = errors.New("invalid session cookie")

type sessionClaims struct {
	UserID     int    `json:"user_id"`
	Username   string `json:"username"`
	Role       string `json:"role"`
	EmployeeID *int   `json:"employee_id,omitempty"`
	jwt.RegisteredClaims
}

// SessionCookies signs and reads the session cookie. The cookie carries
// only the session id; the server-side row decides whether it is still valid.
type SessionCookies struct {
	secret []byte
	secure bool
	now    func() time.Time
}

// NewSessionCookies constructs a cookie codec. secret must not be empty.
func NewSessionCookies(secret string, secure bool) (*SessionCookies, error) {
	secret = strings.TrimSpace(secret)
	if secret == "" {
		return nil, errors.New("session secret is required")
	}
	return &SessionCookies{secret: []byte(secret), secure: secure, now: time.Now}, nil
}

// Issue writes the cookie for session. Remembered sessions get a persistent
// cookie; others last until the browser closes.
func (c *SessionCookies) Issue(w http.ResponseWriter, session types.Session, identity types.Identity) error {
	now := c.now()
	claims := sessionClaims{
		UserID:     identity.UserID,
		Username:   identity.Username,
		Role:       identity.Role,
		EmployeeID: identity.EmployeeID,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:       session.ID,
			Subject:  strconv.Itoa(session.UserID),
			Issuer:   sessionIssuer,
			IssuedAt: jwt.NewNumericDate(now),
		},
	}
	if session.Remember {
		claims.ExpiresAt = jwt.NewNumericDate(session.ExpiresAt)
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(c.secret)
	if err != nil {
		return err
	}

	cookie := &http.Cookie{
		Name:     sessionCookieName,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		Secure:   c.secure,
		SameSite: http.SameSiteLaxMode,
	}
	if session.Remember {
		cookie.Expires = session.ExpiresAt
		cookie.MaxAge = int(session.ExpiresAt.Sub(now).Seconds())
	}
	http.SetCookie(w, cookie)
	return nil
}

// Read returns the session id from the request cookie.
func (c *SessionCookies) Read(r *http.Request) (string, error) {
	cookie, err := r.Cookie(sessionCookieName)
	if err != nil {
		return "", err
	}
	claims := sessionClaims{}
	token, err := jwt.ParseWithClaims(cookie.Value, &claims, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("invalid signing method")
		}
		return c.secret, nil
	}, jwt.WithIssuer(sessionIssuer), jwt.WithTimeFunc(c.now))
	if err != nil {
		return "", err
	}
	if !token.Valid || strings.TrimSpace(claims.ID) == "" {
		return "", errInvalidSessionCookie
	}
	return claims.ID, nil
}

// Clear expires the cookie in the browser.
func (c *SessionCookies) Clear(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		Expires:  time.Unix(0, 0),
		HttpOnly: true,
		Secure:   c.secure,
		SameSite: http.SameSiteLaxMode,
	})
}
