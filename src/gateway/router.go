package gateway

import (
	"context"
	"fmt"
	"time"
)

// Router sends each role to its configured provider and bounds every call
// with a timeout so a stuck provider surfaces as a failed operation instead
// of hanging the session.
type Router struct {
	backends map[Role]Generator
	timeout  time.Duration
}

func NewRouter(timeout time.Duration) *Router {
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &Router{
		backends: make(map[Role]Generator),
		timeout:  timeout,
	}
}

// Bind assigns the provider answering a role. Later binds replace earlier
// ones.
func (r *Router) Bind(role Role, g Generator) {
	r.backends[role] = g
}

func (r *Router) Generate(ctx context.Context, role Role, system, user string) (string, error) {
	g, ok := r.backends[role]
	if !ok {
		return "", fmt.Errorf("no provider bound for role %q", role)
	}
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()
	return g.Generate(ctx, role, system, user)
}
