package services

import (
	"net/http"
	"testing"
	"time"

	"github.com/confhub/confhub/internal/models"
)

func newConstantService(t *testing.T, env *testEnv) *ConstantVariableService {
	t.Helper()
	return NewConstantVariableService(env.db, env.levels, env.registry)
}

func addConstantSet(t *testing.T, env *testEnv, effective time.Time, levels models.LevelMap, vars ...models.Variable) {
	t.Helper()
	set := models.ConstantVariableSet{
		EffectiveDate: effective,
		Levels:        levels,
		Variables:     vars,
	}
	if err := env.db.Create(&set).Error; err != nil {
		t.Fatalf("failed to create constant set: %v", err)
	}
}

func variable(name, value string) models.Variable {
	return models.Variable{Name: name, Type: "string", Value: value}
}

func resolved(t *testing.T, vars []models.Variable) map[string]models.Variable {
	t.Helper()
	out := make(map[string]models.Variable, len(vars))
	for _, v := range vars {
		if _, dup := out[v.Name]; dup {
			t.Errorf("variable %s resolved twice", v.Name)
		}
		out[v.Name] = v
	}
	return out
}

func TestConstantVariableCreate(t *testing.T) {
	env := newTestEnv(t)
	seedHierarchy(t, env)
	svc := newConstantService(t, env)
	admin := roleSet(models.RoleAdmin)

	created, err := svc.Create(&models.ConstantVariableSet{
		Levels:    models.LevelMap{"environment": "dev"},
		Variables: []models.Variable{variable("timeout", "30")},
	}, admin, 7)
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}
	if created.CreatedBy != 7 {
		t.Errorf("creator not stamped: %d", created.CreatedBy)
	}
	if created.EffectiveDate.IsZero() {
		t.Error("effective date not server-stamped")
	}
}

func TestConstantVariableCreateValidation(t *testing.T) {
	env := newTestEnv(t)
	seedHierarchy(t, env)
	svc := newConstantService(t, env)
	admin := roleSet(models.RoleAdmin)

	// No bound level resolves to a model.
	_, err := svc.Create(&models.ConstantVariableSet{
		Levels: models.LevelMap{},
	}, admin, 1)
	wantStatus(t, err, http.StatusBadRequest)

	_, err = svc.Create(&models.ConstantVariableSet{
		Levels: models.LevelMap{"environment": "nowhere"},
	}, admin, 1)
	wantStatus(t, err, http.StatusBadRequest)

	// Visible model but no write permission at the level.
	_, err = svc.Create(&models.ConstantVariableSet{
		Levels: models.LevelMap{"environment": "dev"},
	}, roleSet("configuration.view"), 1)
	wantStatus(t, err, http.StatusForbidden)
}

func TestFindForDateOverridesAcrossLevels(t *testing.T) {
	env := newTestEnv(t)
	seedHierarchy(t, env)
	svc := newConstantService(t, env)
	admin := roleSet(models.RoleAdmin)

	base := time.Now().Add(-24 * time.Hour)
	addConstantSet(t, env, base, models.LevelMap{"environment": "dev"},
		variable("timeout", "30"), variable("region", "eu"))
	addConstantSet(t, env, base, models.LevelMap{"environment": "dev", "application": "shop"},
		variable("timeout", "10"))

	vars, err := svc.FindLatest(models.LevelMap{"environment": "dev", "application": "shop"}, admin)
	if err != nil {
		t.Fatalf("resolve failed: %v", err)
	}
	got := resolved(t, vars)

	// The deeper level overrides timeout; region survives from the parent.
	if got["timeout"].Value != "10" || got["timeout"].Source != "application" {
		t.Errorf("timeout = %s from %s, want 10 from application", got["timeout"].Value, got["timeout"].Source)
	}
	if got["region"].Value != "eu" || got["region"].Source != "environment" {
		t.Errorf("region = %s from %s, want eu from environment", got["region"].Value, got["region"].Source)
	}
}

func TestFindForDateLatestSetWinsWithinGroup(t *testing.T) {
	env := newTestEnv(t)
	seedHierarchy(t, env)
	svc := newConstantService(t, env)
	admin := roleSet(models.RoleAdmin)

	addConstantSet(t, env, time.Now().Add(-48*time.Hour), models.LevelMap{"environment": "dev"},
		variable("timeout", "30"))
	addConstantSet(t, env, time.Now().Add(-24*time.Hour), models.LevelMap{"environment": "dev"},
		variable("timeout", "45"))

	vars, err := svc.FindLatest(models.LevelMap{"environment": "dev"}, admin)
	if err != nil {
		t.Fatalf("resolve failed: %v", err)
	}
	got := resolved(t, vars)
	if got["timeout"].Value != "45" {
		t.Errorf("timeout = %s, want the later set's 45", got["timeout"].Value)
	}
}

func TestFindForDateTimeRestriction(t *testing.T) {
	env := newTestEnv(t)
	seedHierarchy(t, env)
	svc := newConstantService(t, env)
	admin := roleSet(models.RoleAdmin)

	addConstantSet(t, env, time.Now().Add(-48*time.Hour), models.LevelMap{"environment": "dev"},
		variable("timeout", "30"))
	addConstantSet(t, env, time.Now().Add(-1*time.Hour), models.LevelMap{"environment": "dev"},
		variable("timeout", "45"))

	asOf := time.Now().Add(-24 * time.Hour)
	vars, err := svc.FindForDate(models.LevelMap{"environment": "dev"}, &asOf, admin)
	if err != nil {
		t.Fatalf("resolve failed: %v", err)
	}
	got := resolved(t, vars)
	if got["timeout"].Value != "30" {
		t.Errorf("timeout = %s, want 30 as of 24h ago", got["timeout"].Value)
	}
}

func TestFindForDateMismatchedLevelDisqualifies(t *testing.T) {
	env := newTestEnv(t)
	seedHierarchy(t, env)
	svc := newConstantService(t, env)
	admin := roleSet(models.RoleAdmin)

	base := time.Now().Add(-24 * time.Hour)
	// Matches environment but contradicts the application filter; the whole
	// set is out, its environment match does not count either.
	addConstantSet(t, env, base, models.LevelMap{"environment": "dev", "application": "billing"},
		variable("timeout", "99"))
	addConstantSet(t, env, base, models.LevelMap{"environment": "dev"},
		variable("timeout", "30"))

	vars, err := svc.FindLatest(models.LevelMap{"environment": "dev", "application": "shop"}, admin)
	if err != nil {
		t.Fatalf("resolve failed: %v", err)
	}
	got := resolved(t, vars)
	if got["timeout"].Value != "30" {
		t.Errorf("timeout = %s, want 30 from the clean parent set", got["timeout"].Value)
	}
}

func TestFindForDateInvalidFilter(t *testing.T) {
	env := newTestEnv(t)
	seedHierarchy(t, env)
	svc := newConstantService(t, env)

	_, err := svc.FindLatest(models.LevelMap{"nowhere": "dev"}, roleSet(models.RoleAdmin))
	wantStatus(t, err, http.StatusBadRequest)
}

func TestConstantVariableVisibility(t *testing.T) {
	env := newTestEnv(t)
	seedHierarchy(t, env)
	env.addRole(t, "configurationModel.environment.dev.view")
	svc := newConstantService(t, env)

	base := time.Now().Add(-24 * time.Hour)
	addConstantSet(t, env, base, models.LevelMap{"environment": "dev"}, variable("secretTimeout", "5"))
	addConstantSet(t, env, base, models.LevelMap{"environment": "staging"}, variable("timeout", "30"))
	// A level with no registered models stays open to everyone.
	addConstantSet(t, env, base, models.LevelMap{"datacenter": "west"}, variable("zone", "w1"))

	sets, err := svc.FindWithPermissions(roleSet("configuration.view"))
	if err != nil {
		t.Fatalf("find failed: %v", err)
	}
	if len(sets) != 2 {
		t.Fatalf("expected 2 visible sets, got %d", len(sets))
	}
	for _, set := range sets {
		if set.Levels["environment"] == "dev" {
			t.Error("set bound to a hidden model was returned")
		}
	}
}
