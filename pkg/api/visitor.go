package api

import (
	"net/http"

	"github.com/google/uuid"
	echo "github.com/labstack/echo/v5"
)

const (
	visitorCookieName = "visitor_id"
	visitorContextKey = "visitor_id"

	// visitorCookieMaxAge keeps anonymous identities for a year.
	visitorCookieMaxAge = 365 * 24 * 60 * 60
)

// visitorCookie returns middleware that establishes the anonymous visitor
// identity. A missing or malformed cookie gets replaced with a fresh UUID;
// every conversation query downstream is scoped by this value.
func visitorCookie(secure bool) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c *echo.Context) error {
			id := ""
			if cookie, err := c.Request().Cookie(visitorCookieName); err == nil {
				if _, parseErr := uuid.Parse(cookie.Value); parseErr == nil {
					id = cookie.Value
				}
			}
			if id == "" {
				id = uuid.New().String()
				c.SetCookie(&http.Cookie{
					Name:     visitorCookieName,
					Value:    id,
					Path:     "/",
					MaxAge:   visitorCookieMaxAge,
					HttpOnly: true,
					Secure:   secure,
					SameSite: http.SameSiteLaxMode,
				})
			}
			c.Set(visitorContextKey, id)
			return next(c)
		}
	}
}

// visitorID returns the identity established by visitorCookie.
func visitorID(c *echo.Context) string {
	id, _ := c.Get(visitorContextKey).(string)
	return id
}
