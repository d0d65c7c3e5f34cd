// Package gateway holds the text-generation providers the studio calls for
// planning, code generation, and review. The core only sees the Generator
// interface; which provider answers which role is wiring decided by the
// Router.
package gateway

import (
	"context"
	"fmt"
)

// Role tags what a generation call is for.
type Role string

const (
	RolePlanning Role = "planning"
	RoleCode     Role = "code"
	RoleReview   Role = "review"
)

// Generator is the capability the core needs from any provider: prompt in,
// text out. The system instruction may be empty for providers that take a
// single prompt.
type Generator interface {
	Generate(ctx context.Context, role Role, system, user string) (string, error)
}

// GatewayError is a failed provider call. The core never looks past
// success/failure; Status and Body exist for logs.
type GatewayError struct {
	Provider string
	Status   int
	Body     string
	Err      error
}

func (e *GatewayError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s request failed: %v", e.Provider, e.Err)
	}
	return fmt.Sprintf("%s request failed with status %d: %s", e.Provider, e.Status, e.Body)
}

func (e *GatewayError) Unwrap() error { return e.Err }
