// Package identity describes who is performing a request: the actor type,
// its id and its role. Authentication middleware stores the Actor in the
// request context; services and the audit log read it back.
package identity

import (
	"context"
	"fmt"
)

// Role is a user or API key permission level.
type Role string

// Roles from most to least privileged.
const (
	RoleAdmin      Role = "admin"
	RoleManager    Role = "manager"
	RoleTechnician Role = "technician"
	RoleViewer     Role = "viewer"
)

var roleRank = map[Role]int{
	RoleAdmin:      4,
	RoleManager:    3,
	RoleTechnician: 2,
	RoleViewer:     1,
}

// ParseRole validates s as a role name.
func ParseRole(s string) (Role, error) {
	r := Role(s)
	if !r.Valid() {
		return "", fmt.Errorf("unknown role %q", s)
	}
	return r, nil
}

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	_, ok := roleRank[r]
	return ok
}

// AtLeast reports whether r grants everything min grants.
func (r Role) AtLeast(min Role) bool {
	return roleRank[r] >= roleRank[min] && r.Valid()
}

// ActorType distinguishes how an actor authenticated.
type ActorType string

const (
	ActorUser   ActorType = "user"
	ActorAPIKey ActorType = "api_key"
	ActorSystem ActorType = "system"
)

// Actor is the authenticated principal of a request.
type Actor struct {
	ID   string    `json:"id"`
	Type ActorType `json:"type"`
	Role Role      `json:"role"`
	Name string    `json:"name,omitempty"`
}

// System is the actor used by background jobs such as the maintenance
// scheduler.
var System = Actor{ID: "system", Type: ActorSystem, Role: RoleAdmin, Name: "system"}

type contextKey int

const (
	actorKey contextKey = iota
	clientIPKey
)

// WithActor stores the actor in the context.
func WithActor(ctx context.Context, a Actor) context.Context {
	return context.WithValue(ctx, actorKey, a)
}

// FromContext returns the actor stored in the context.
func FromContext(ctx context.Context) (Actor, bool) {
	a, ok := ctx.Value(actorKey).(Actor)
	return a, ok
}

// ActorOrSystem returns the context actor, or System when there is none.
func ActorOrSystem(ctx context.Context) Actor {
	if a, ok := FromContext(ctx); ok {
		return a
	}
	return System
}

// WithClientIP stores the caller's address in the context.
func WithClientIP(ctx context.Context, ip string) context.Context {
	return context.WithValue(ctx, clientIPKey, ip)
}

// ClientIP returns the caller's address stored in the context.
func ClientIP(ctx context.Context) string {
	ip, _ := ctx.Value(clientIPKey).(string)
	return ip
}
