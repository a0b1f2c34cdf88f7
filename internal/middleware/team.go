package middleware

import (
	"context"
	"crypto/subtle"
	"errors"
	"strings"
	"time"

	"posterboard/internal/observability"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
)

const (
	teamSubject = "team"
	teamLocal   = "team"
)

// ErrWrongSecret is returned by Unlock when the presented secret does not match.
var ErrWrongSecret = errors.New("wrong team secret")

// TeamGate turns the shared team secret into short-lived bearer tokens and
// checks those tokens on privileged routes. The secret never leaves the server.
type TeamGate struct {
	jwtSecret  []byte
	teamSecret string
	ttl        time.Duration
	now        func() time.Time
}

// NewTeamGate creates a gate. teamSecret may be a bcrypt hash or the plain secret.
func NewTeamGate(jwtSecret, teamSecret string, ttl time.Duration) *TeamGate {
	if ttl <= 0 {
		ttl = 12 * time.Hour
	}
	return &TeamGate{
		jwtSecret:  []byte(jwtSecret),
		teamSecret: teamSecret,
		ttl:        ttl,
		now:        time.Now,
	}
}

func (g *TeamGate) matches(secret string) bool {
	if strings.HasPrefix(g.teamSecret, "$2") {
		return bcrypt.CompareHashAndPassword([]byte(g.teamSecret), []byte(secret)) == nil
	}
	return subtle.ConstantTimeCompare([]byte(g.teamSecret), []byte(secret)) == 1
}

// Unlock verifies secret and issues a team token with its expiry.
func (g *TeamGate) Unlock(secret string) (string, time.Time, error) {
	if secret == "" || !g.matches(secret) {
		return "", time.Time{}, ErrWrongSecret
	}

	now := g.now()
	expires := now.Add(g.ttl)
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   teamSubject,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(expires),
	})
	signed, err := token.SignedString(g.jwtSecret)
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, expires, nil
}

// Verify reports whether tokenString is a valid, unexpired team token.
func (g *TeamGate) Verify(tokenString string) bool {
	claims := &jwt.RegisteredClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fiber.NewError(fiber.StatusUnauthorized, "Invalid signing method")
		}
		return g.jwtSecret, nil
	}, jwt.WithTimeFunc(g.now))
	if err != nil || !token.Valid {
		return false
	}
	return claims.Subject == teamSubject
}

func bearer(c *fiber.Ctx) string {
	parts := strings.Split(c.Get("Authorization"), " ")
	if len(parts) == 2 && parts[0] == "Bearer" {
		return parts[1]
	}
	return ""
}

// Detect marks the request as team when it carries a valid token but never
// rejects it. Routes with per-request policies read IsTeam afterwards.
func (g *TeamGate) Detect() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if tok := bearer(c); tok != "" && g.Verify(tok) {
			c.Locals(teamLocal, true)
			c.SetUserContext(context.WithValue(c.UserContext(), observability.TeamKey, true))
		}
		return c.Next()
	}
}

// Required rejects requests without a valid team token.
func (g *TeamGate) Required() fiber.Handler {
	return func(c *fiber.Ctx) error {
		tok := bearer(c)
		if tok == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "Team token required",
				"code":  "UNAUTHORIZED",
			})
		}
		if !g.Verify(tok) {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "Invalid or expired team token",
				"code":  "UNAUTHORIZED",
			})
		}
		c.Locals(teamLocal, true)
		c.SetUserContext(context.WithValue(c.UserContext(), observability.TeamKey, true))
		return c.Next()
	}
}

// IsTeam reports whether an earlier gate handler marked the request as team.
func IsTeam(c *fiber.Ctx) bool {
	team, _ := c.Locals(teamLocal).(bool)
	return team
}
