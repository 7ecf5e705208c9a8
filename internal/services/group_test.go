package services

import (
	"net/http"
	"testing"

	"github.com/confhub/confhub/internal/models"
)

func TestGroupLifecycle(t *testing.T) {
	env := newTestEnv(t)
	svc := NewGroupService(env.db)

	group, err := svc.Create("readers", []string{"configuration.view"})
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}

	_, err = svc.Create("readers", nil)
	wantStatus(t, err, http.StatusConflict)
	_, err = svc.Create("", nil)
	wantStatus(t, err, http.StatusBadRequest)

	if err := svc.Delete(group.ID); err != nil {
		t.Fatalf("delete failed: %v", err)
	}
	wantStatus(t, svc.Delete(group.ID), http.StatusNotFound)
}

func TestGroupRoleAssignment(t *testing.T) {
	env := newTestEnv(t)
	svc := NewGroupService(env.db)

	group, err := svc.Create("readers", nil)
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}

	// Only registered roles can be granted.
	_, err = svc.AddRole(group.ID, "made.up")
	wantStatus(t, err, http.StatusBadRequest)

	granted, err := svc.AddRole(group.ID, "configuration.view")
	if err != nil || len(granted.Roles) != 1 {
		t.Fatalf("add role failed: %v %v", granted, err)
	}
	// Granting twice is idempotent.
	granted, err = svc.AddRole(group.ID, "configuration.view")
	if err != nil || len(granted.Roles) != 1 {
		t.Errorf("duplicate grant changed roles: %v %v", granted, err)
	}

	stripped, err := svc.RemoveRole(group.ID, "configuration.view")
	if err != nil || len(stripped.Roles) != 0 {
		t.Errorf("remove role failed: %v %v", stripped, err)
	}

	_, err = svc.AddRole(9999, "configuration.view")
	wantStatus(t, err, http.StatusNotFound)
}

func TestDeleteRoleWithdrawsFromGroups(t *testing.T) {
	env := newTestEnv(t)
	svc := NewGroupService(env.db)

	role, err := svc.CreateRole("baseConfigurations.environment.view")
	if err != nil {
		t.Fatalf("create role failed: %v", err)
	}
	_, err = svc.CreateRole("baseConfigurations.environment.view")
	wantStatus(t, err, http.StatusConflict)

	if _, err := svc.Create("ops", []string{role.Name, "configuration.view"}); err != nil {
		t.Fatalf("create group failed: %v", err)
	}

	if err := svc.DeleteRole(role.ID); err != nil {
		t.Fatalf("delete role failed: %v", err)
	}

	var group models.Group
	if err := env.db.Where("name = ?", "ops").First(&group).Error; err != nil {
		t.Fatalf("load group failed: %v", err)
	}
	if len(group.Roles) != 1 || group.Roles[0] != "configuration.view" {
		t.Errorf("deleted role not withdrawn: %v", group.Roles)
	}

	var count int64
	env.db.Model(&models.Role{}).Where("name = ?", role.Name).Count(&count)
	if count != 0 {
		t.Error("role record survived deletion")
	}
}
