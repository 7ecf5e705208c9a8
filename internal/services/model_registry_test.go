package services

import (
	"net/http"
	"testing"
	"time"

	"github.com/confhub/confhub/internal/models"
)

func TestValidateWritePermissions(t *testing.T) {
	env := newTestEnv(t)
	env.addLevel(t, "environment")
	env.addRole(t, "baseConfigurations.environment.view")
	env.addRole(t, "configurationModel.environment.shop.modify")
	env.addRole(t, "configurationModel.environment.shop.view")

	blanket := []string{"configurationModel.view", "configurationModel.modify"}

	tests := []struct {
		name  string
		level string
		model string
		roles RoleSet
		want  bool
	}{
		{"admin bypasses all checks", "environment", "shop", roleSet(models.RoleAdmin), true},
		{"no blanket roles", "environment", "shop", roleSet("configuration.modify"), false},
		{"view without modify", "environment", "shop", roleSet("configurationModel.view"), false},
		{
			"declared level view not held", "environment", "cart",
			roleSet(blanket...), false,
		},
		{
			"declared level view held, no specific roles declared", "environment", "cart",
			roleSet(append(blanket, "baseConfigurations.environment.view")...), true,
		},
		{
			"declared specific modify not held", "environment", "shop",
			roleSet(append(blanket, "baseConfigurations.environment.view")...), false,
		},
		{
			"specific modify without its view", "environment", "shop",
			roleSet(append(blanket,
				"baseConfigurations.environment.view",
				"configurationModel.environment.shop.modify")...),
			false,
		},
		{
			"specific modify with view", "environment", "shop",
			roleSet(append(blanket,
				"baseConfigurations.environment.view",
				"configurationModel.environment.shop.view",
				"configurationModel.environment.shop.modify")...),
			true,
		},
		{
			"undeclared level skips the level check", "staging", "shop",
			roleSet(blanket...), true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := env.registry.ValidateWritePermissions(tt.level, tt.model, tt.roles)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("ValidateWritePermissions(%s, %s) = %v, want %v", tt.level, tt.model, got, tt.want)
			}
		})
	}
}

func TestModelCreateValidation(t *testing.T) {
	env := newTestEnv(t)
	env.addLevel(t, "environment")
	admin := roleSet(models.RoleAdmin)

	if _, err := env.registry.Create(&models.ConfigurationModel{Base: "environment"}, admin); err == nil {
		t.Error("expected error for empty name")
	}
	_, err := env.registry.Create(&models.ConfigurationModel{ID: 7, Base: "environment", Name: "shop"}, admin)
	wantStatus(t, err, http.StatusBadRequest)

	_, err = env.registry.Create(&models.ConfigurationModel{Base: "nowhere", Name: "shop"}, admin)
	wantStatus(t, err, http.StatusBadRequest)

	_, err = env.registry.Create(&models.ConfigurationModel{Base: "environment", Name: "shop"}, roleSet())
	wantStatus(t, err, http.StatusForbidden)
}

func TestModelCreateDuplicate(t *testing.T) {
	env := newTestEnv(t)
	env.addLevel(t, "environment")
	env.addModel(t, "environment", "shop")

	_, err := env.registry.Create(&models.ConfigurationModel{Base: "environment", Name: "shop"}, roleSet(models.RoleAdmin))
	wantStatus(t, err, http.StatusConflict)
}

func TestModelDeleteAndRevive(t *testing.T) {
	env := newTestEnv(t)
	env.addLevel(t, "environment")
	admin := roleSet(models.RoleAdmin)
	created := env.addModel(t, "environment", "shop")

	if err := env.registry.Delete(created.ID, admin); err != nil {
		t.Fatalf("delete failed: %v", err)
	}

	// Gone from default listings, still present when tombstones are included.
	found, err := env.registry.FindWithPermissions(ModelFilter{Base: "environment"}, admin)
	if err != nil {
		t.Fatalf("find failed: %v", err)
	}
	if len(found) != 0 {
		t.Errorf("deleted model still listed: %v", found)
	}
	found, err = env.registry.FindWithPermissions(ModelFilter{Base: "environment", IncludeDeleted: true}, admin)
	if err != nil {
		t.Fatalf("find failed: %v", err)
	}
	if len(found) != 1 || !found[0].Deleted {
		t.Errorf("tombstone not listed: %v", found)
	}

	// Re-creating the same (base, name) revives the tombstone in place.
	revived, err := env.registry.Create(&models.ConfigurationModel{Base: "environment", Name: "shop"}, admin)
	if err != nil {
		t.Fatalf("revive failed: %v", err)
	}
	if revived.ID != created.ID {
		t.Errorf("revived model id %d, want original %d", revived.ID, created.ID)
	}
	if revived.Deleted {
		t.Error("revived model still marked deleted")
	}
}

func TestModelVisibility(t *testing.T) {
	env := newTestEnv(t)
	env.addLevel(t, "environment")
	env.addModel(t, "environment", "shop")
	env.addModel(t, "environment", "cart")
	env.addRole(t, "configurationModel.environment.shop.view")

	// Declaring the view role hides the model from everyone not holding it.
	found, err := env.registry.FindWithPermissions(ModelFilter{Base: "environment"}, roleSet("configuration.view"))
	if err != nil {
		t.Fatalf("find failed: %v", err)
	}
	if len(found) != 1 || found[0].Name != "cart" {
		t.Errorf("expected only cart visible, got %v", found)
	}

	found, err = env.registry.FindWithPermissions(ModelFilter{Base: "environment"},
		roleSet("configurationModel.environment.shop.view"))
	if err != nil {
		t.Fatalf("find failed: %v", err)
	}
	if len(found) != 2 {
		t.Errorf("expected both models for role holder, got %v", found)
	}
}

func TestModelRuleLifecycle(t *testing.T) {
	env := newTestEnv(t)
	env.addLevel(t, "environment")
	admin := roleSet(models.RoleAdmin)
	created := env.addModel(t, "environment", "shop")

	withRule, err := env.registry.AddRule(created.ID, models.Rule{
		Name:  "timeout",
		Value: "value > 0",
		Error: "timeout must be positive",
	}, admin)
	if err != nil {
		t.Fatalf("add rule failed: %v", err)
	}
	if len(withRule.Rules) != 1 || withRule.Rules[0].ID == "" {
		t.Fatalf("rule not stored with generated id: %v", withRule.Rules)
	}

	ruleID := withRule.Rules[0].ID
	modified, err := env.registry.ModifyRule(created.ID, models.Rule{
		ID:    ruleID,
		Name:  "timeout",
		Value: "value > 10",
	}, admin)
	if err != nil {
		t.Fatalf("modify rule failed: %v", err)
	}
	if modified.Rules[0].Value != "value > 10" {
		t.Errorf("rule not modified: %v", modified.Rules)
	}

	_, err = env.registry.ModifyRule(created.ID, models.Rule{ID: "missing", Name: "x", Value: "y"}, admin)
	wantStatus(t, err, http.StatusNotFound)

	stripped, err := env.registry.RemoveRule(created.ID, ruleID, admin)
	if err != nil {
		t.Fatalf("remove rule failed: %v", err)
	}
	if len(stripped.Rules) != 0 {
		t.Errorf("rule not removed: %v", stripped.Rules)
	}
}

func TestModelRestrictions(t *testing.T) {
	env := newTestEnv(t)
	env.addLevel(t, "environment")
	admin := roleSet(models.RoleAdmin)
	created := env.addModel(t, "environment", "shop")

	if _, err := env.registry.ModifyModelOptions(created.ID, models.ModelOptions{HasRestrictions: true}, admin); err != nil {
		t.Fatalf("modify options failed: %v", err)
	}
	restricted, err := env.registry.AddRestriction(created.ID, "frontend", admin)
	if err != nil {
		t.Fatalf("add restriction failed: %v", err)
	}
	if !restricted.PermitsChild("frontend") || restricted.PermitsChild("backend") {
		t.Errorf("restriction list not enforced: %v", restricted.Restrictions)
	}

	// Adding the same child twice stays idempotent.
	again, err := env.registry.AddRestriction(created.ID, "frontend", admin)
	if err != nil {
		t.Fatalf("add restriction failed: %v", err)
	}
	if len(again.Restrictions) != 1 {
		t.Errorf("duplicate restriction stored: %v", again.Restrictions)
	}

	cleared, err := env.registry.RemoveRestriction(created.ID, "frontend", admin)
	if err != nil {
		t.Fatalf("remove restriction failed: %v", err)
	}
	if cleared.PermitsChild("frontend") {
		t.Error("removed restriction still permits child")
	}
}

func TestModelDefaultValues(t *testing.T) {
	env := newTestEnv(t)
	env.addLevel(t, "environment")
	env.addModel(t, "environment", "shop")

	sets := []models.ConstantVariableSet{
		{
			EffectiveDate: time.Now(),
			Levels:        models.LevelMap{"environment": "shop"},
			Variables: []models.Variable{
				{Name: "timeout", Type: "number", Value: "30"},
				{Name: "region", Type: "string", Value: "eu"},
			},
		},
		{
			EffectiveDate: time.Now(),
			Levels:        models.LevelMap{"environment": "shop"},
			Variables:     []models.Variable{{Name: "timeout", Type: "number", Value: "60"}},
		},
		{
			EffectiveDate: time.Now(),
			Levels:        models.LevelMap{"environment": "other"},
			Variables:     []models.Variable{{Name: "stray", Type: "string", Value: "x"}},
		},
	}
	for i := range sets {
		if err := env.db.Create(&sets[i]).Error; err != nil {
			t.Fatalf("failed to create constant set: %v", err)
		}
	}

	found, err := env.registry.FindWithPermissions(ModelFilter{Base: "environment", Name: "shop"}, roleSet(models.RoleAdmin))
	if err != nil {
		t.Fatalf("find failed: %v", err)
	}
	if len(found) != 1 {
		t.Fatalf("expected one model, got %d", len(found))
	}

	defaults := make(map[string]string)
	for _, v := range found[0].DefaultValues {
		defaults[v.Name] = v.Value
	}
	if defaults["timeout"] != "60" {
		t.Errorf("later set should win, got timeout=%s", defaults["timeout"])
	}
	if defaults["region"] != "eu" {
		t.Errorf("missing default region, got %v", defaults)
	}
	if _, ok := defaults["stray"]; ok {
		t.Error("default values leaked from another model's set")
	}
}

func TestModelUpsert(t *testing.T) {
	env := newTestEnv(t)
	env.addLevel(t, "environment")
	model := env.addModel(t, "environment", "dev")
	admin := roleSet(models.RoleAdmin)

	updated, err := env.registry.Upsert(model.ID, ModelPatch{
		Rules:        []models.Rule{{Name: "ports", Value: "^[0-9]+$"}},
		Restrictions: []string{"billing"},
	}, admin)
	if err != nil {
		t.Fatalf("upsert failed: %v", err)
	}
	if len(updated.Rules) != 1 || updated.Rules[0].ID == "" {
		t.Errorf("expected one rule with a generated id, got %+v", updated.Rules)
	}
	if len(updated.Restrictions) != 1 || updated.Restrictions[0] != "billing" {
		t.Errorf("unexpected restrictions: %v", updated.Restrictions)
	}
	if updated.Options.HasRestrictions {
		t.Error("options should be untouched when the patch omits them")
	}

	// A patch without rules must not clobber the stored ones.
	updated, err = env.registry.Upsert(model.ID, ModelPatch{
		Options: &models.ModelOptions{HasRestrictions: true},
	}, admin)
	if err != nil {
		t.Fatalf("options upsert failed: %v", err)
	}
	if !updated.Options.HasRestrictions {
		t.Error("expected options to be replaced")
	}
	if len(updated.Rules) != 1 {
		t.Errorf("expected stored rules to survive, got %v", updated.Rules)
	}

	if _, err := env.registry.Upsert(9999, ModelPatch{}, admin); err == nil {
		t.Error("expected unknown model to fail")
	} else {
		wantStatus(t, err, http.StatusNotFound)
	}
	if _, err := env.registry.Upsert(model.ID, ModelPatch{Restrictions: []string{}}, roleSet("configuration.view")); err == nil {
		t.Error("expected missing permission to fail")
	} else {
		wantStatus(t, err, http.StatusForbidden)
	}
}
