// Package session carries the opaque session token in an HTTP cookie.
package session

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
)

type Carrier struct {
	Name   string
	MaxAge time.Duration
	Secure bool
}

func NewCarrier(name string, maxAge time.Duration, secure bool) Carrier {
	return Carrier{Name: name, MaxAge: maxAge, Secure: secure}
}

// Token returns the raw cookie value, or "" when the cookie is absent.
func (s Carrier) Token(c echo.Context) string {
	ck, err := c.Cookie(s.Name)
	if err != nil {
		return ""
	}
	return ck.Value
}

// Set issues the session cookie for token.
func (s Carrier) Set(c echo.Context, token string) {
	c.SetCookie(&http.Cookie{
		Name:     s.Name,
		Value:    token,
		Path:     "/",
		MaxAge:   int(s.MaxAge / time.Second),
		Expires:  time.Now().Add(s.MaxAge),
		HttpOnly: true,
		Secure:   s.Secure,
		SameSite: http.SameSiteStrictMode,
	})
}

// Clear expires the session cookie in the browser.
func (s Carrier) Clear(c echo.Context) {
	c.SetCookie(&http.Cookie{
		Name:     s.Name,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		Expires:  time.Unix(0, 0),
		HttpOnly: true,
		Secure:   s.Secure,
		SameSite: http.SameSiteStrictMode,
	})
}
