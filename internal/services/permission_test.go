package services

import (
	"testing"

	"github.com/confhub/confhub/internal/models"
)

func createGroup(t *testing.T, env *testEnv, name string, roles []string) {
	t.Helper()
	if err := env.db.Create(&models.Group{Name: name, Roles: roles}).Error; err != nil {
		t.Fatalf("failed to create group %s: %v", name, err)
	}
}

func TestResolveRolesUnionsGroups(t *testing.T) {
	env := newTestEnv(t)
	createGroup(t, env, "readers", []string{"configuration.view"})
	createGroup(t, env, "writers", []string{"configuration.view", "configuration.modify"})

	set, err := env.perms.ResolveRoles(&models.Member{
		Username: "alice",
		Groups:   []string{"readers", "writers"},
	})
	if err != nil {
		t.Fatalf("resolve failed: %v", err)
	}

	if len(set) != 2 {
		t.Errorf("expected 2 roles, got %d: %v", len(set), set)
	}
	if !set.Has("configuration.view") || !set.Has("configuration.modify") {
		t.Errorf("missing expected roles: %v", set)
	}
	if set.IsAdmin() {
		t.Error("regular member resolved as admin")
	}
}

func TestResolveRolesAdminGetsEverything(t *testing.T) {
	env := newTestEnv(t)
	env.addRole(t, "baseConfigurations.environment.view")

	set, err := env.perms.ResolveRoles(&models.Member{Username: models.AdminUsername})
	if err != nil {
		t.Fatalf("resolve failed: %v", err)
	}
	if !set.IsAdmin() {
		t.Fatal("admin account did not resolve as admin")
	}
	// Every registered role is granted, including ones no group carries.
	if !set.Has("baseConfigurations.environment.view") {
		t.Error("admin missing registered role")
	}
	if !set.Has("configuration.view") || !set.Has("configurationModel.modify") {
		t.Error("admin missing seeded roles")
	}
}

func TestResolveRolesAdminViaGroup(t *testing.T) {
	env := newTestEnv(t)
	createGroup(t, env, "operators", []string{models.RoleAdmin})

	set, err := env.perms.ResolveRoles(&models.Member{Username: "bob", Groups: []string{"operators"}})
	if err != nil {
		t.Fatalf("resolve failed: %v", err)
	}
	if !set.IsAdmin() {
		t.Error("admin role through group membership not recognized")
	}
	if !set.Has("configuration.view") {
		t.Error("group admin missing registered roles")
	}
}

func TestResolveRolesUnknownGroupIgnored(t *testing.T) {
	env := newTestEnv(t)

	set, err := env.perms.ResolveRoles(&models.Member{Username: "carol", Groups: []string{"ghosts"}})
	if err != nil {
		t.Fatalf("resolve failed: %v", err)
	}
	if len(set) != 0 {
		t.Errorf("expected empty set, got %v", set)
	}
}

func TestResolveRolesByIDAnonymous(t *testing.T) {
	env := newTestEnv(t)

	for _, id := range []uint{0, 12345} {
		set, err := env.perms.ResolveRolesByID(id)
		if err != nil {
			t.Fatalf("resolve by id %d failed: %v", id, err)
		}
		if len(set) != 0 {
			t.Errorf("expected empty set for id %d, got %v", id, set)
		}
	}
}

func TestResolveRolesByID(t *testing.T) {
	env := newTestEnv(t)
	createGroup(t, env, "readers", []string{"configuration.view"})
	member := models.Member{Username: "dave", Groups: []string{"readers"}}
	if err := env.db.Create(&member).Error; err != nil {
		t.Fatalf("failed to create member: %v", err)
	}

	set, err := env.perms.ResolveRolesByID(member.ID)
	if err != nil {
		t.Fatalf("resolve failed: %v", err)
	}
	if !set.Has("configuration.view") {
		t.Errorf("expected configuration.view, got %v", set)
	}
}

func TestRoleExists(t *testing.T) {
	env := newTestEnv(t)
	env.addRole(t, "configurationModel.environment.shop.view")

	exists, err := env.perms.RoleExists("configurationModel.environment.shop.view")
	if err != nil || !exists {
		t.Errorf("expected role to exist, got %v %v", exists, err)
	}
	exists, err = env.perms.RoleExists("configurationModel.environment.cart.view")
	if err != nil || exists {
		t.Errorf("expected role to not exist, got %v %v", exists, err)
	}
}

// Before Start has primed the cache, role lookups must read the database
// rather than treating the empty cache as authoritative.
func TestRoleLookupsBeforeStart(t *testing.T) {
	env := newTestEnv(t)
	env.addLevel(t, "environment")
	env.addRole(t, "configurationModel.environment.db.view")

	if !env.perms.Degraded() {
		t.Fatal("a freshly constructed service must read through to the database")
	}
	exists, err := env.perms.RoleExists("configurationModel.environment.db.view")
	if err != nil {
		t.Fatalf("RoleExists failed: %v", err)
	}
	if !exists {
		t.Error("declared role reported as unregistered before Start")
	}

	// A declared view role must already hide its model from non-holders.
	model := env.addModel(t, "environment", "db")
	visible, err := env.registry.Visible(model, roleSet("configuration.view"))
	if err != nil {
		t.Fatalf("Visible failed: %v", err)
	}
	if visible {
		t.Error("model with a declared view role visible to a caller not holding it")
	}
}

func TestStartTrustsCacheOnlyAfterSubscribe(t *testing.T) {
	env := newTestEnv(t)
	if err := env.perms.Start(t.Context()); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	if env.perms.Degraded() {
		t.Error("expected cache mode after a successful load and subscription")
	}
}
