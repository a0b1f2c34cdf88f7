package server

import (
	"context"
	"time"

	"posterboard/internal/database"

	"github.com/gofiber/fiber/v2"
)

const (
	healthy   = "healthy"
	unhealthy = "unhealthy"
	disabled  = "disabled"
)

type probe struct {
	name     string
	optional bool
	check    func(context.Context) error
}

// probes lists what readiness depends on. A nil check marks an optional
// dependency that is not configured.
func (s *Server) probes() []probe {
	ps := []probe{
		{name: "database", check: func(ctx context.Context) error { return database.Ping(ctx, s.db) }},
		{name: "blob", check: s.blobs.Ping},
		{name: "redis", optional: true},
	}
	if s.redis != nil {
		ps[2].check = func(ctx context.Context) error { return s.redis.Ping(ctx).Err() }
	}
	return ps
}

// LivenessCheck answers as long as the process can serve requests.
func (s *Server) LivenessCheck(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"status": "up", "time": time.Now()})
}

// ReadinessCheck pings the database, the blob store and redis when
// configured. Any failing dependency makes the instance unready.
func (s *Server) ReadinessCheck(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.UserContext(), 5*time.Second)
	defer cancel()

	checks := fiber.Map{}
	overall, code := healthy, fiber.StatusOK
	for _, p := range s.probes() {
		if p.check == nil {
			checks[p.name] = disabled
			continue
		}
		if err := p.check(ctx); err != nil {
			checks[p.name] = unhealthy
			overall, code = unhealthy, fiber.StatusServiceUnavailable
			continue
		}
		checks[p.name] = healthy
	}

	return c.Status(code).JSON(fiber.Map{
		"status": overall,
		"checks": checks,
		"time":   time.Now(),
	})
}
