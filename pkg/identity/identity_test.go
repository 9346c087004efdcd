package identity

import (
	"context"
	"testing"
)

func TestRole_AtLeast(t *testing.T) {
	tests := []struct {
		role Role
		min  Role
		want bool
	}{
		{RoleAdmin, RoleManager, true},
		{RoleManager, RoleManager, true},
		{RoleTechnician, RoleManager, false},
		{RoleViewer, RoleViewer, true},
		{Role("root"), RoleViewer, false},
	}
	for _, tt := range tests {
		if got := tt.role.AtLeast(tt.min); got != tt.want {
			t.Errorf("%s.AtLeast(%s) = %v, want %v", tt.role, tt.min, got, tt.want)
		}
	}
}

func TestParseRole(t *testing.T) {
	if r, err := ParseRole("technician"); err != nil || r != RoleTechnician {
		t.Errorf("ParseRole(technician) = %v, %v", r, err)
	}
	if _, err := ParseRole("owner"); err == nil {
		t.Error("ParseRole(owner) should fail")
	}
}

func TestActorContext(t *testing.T) {
	ctx := context.Background()
	if got := ActorOrSystem(ctx); got != System {
		t.Errorf("ActorOrSystem() without actor = %+v, want System", got)
	}

	a := Actor{ID: "u1", Type: ActorUser, Role: RoleManager}
	ctx = WithClientIP(WithActor(ctx, a), "10.0.0.4")

	got, ok := FromContext(ctx)
	if !ok || got != a {
		t.Errorf("FromContext() = %+v, %v", got, ok)
	}
	if ClientIP(ctx) != "10.0.0.4" {
		t.Errorf("ClientIP() = %q", ClientIP(ctx))
	}
}
