package services

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/confhub/confhub/internal/feed"
	"github.com/confhub/confhub/internal/models"
	"github.com/confhub/confhub/pkg/logger"
	"github.com/confhub/confhub/pkg/response"
)

// ModelFilter narrows configuration model lookups. Zero-valued fields do not
// restrict.
type ModelFilter struct {
	Base           string
	Name           string
	IncludeDeleted bool
}

// ModelRegistryService owns the configuration model registry: creation with
// revive-on-tombstone semantics, per-level write permission validation and
// visibility-filtered reads. Models are cached in memory and refreshed from
// the change feed, falling back to direct reads when the feed is down.
type ModelRegistryService struct {
	db    *gorm.DB
	feed  feed.Feed
	perms *PermissionService

	mu       sync.RWMutex
	cache    []models.ConfigurationModel
	degraded bool
}

func NewModelRegistryService(db *gorm.DB, f feed.Feed, perms *PermissionService) *ModelRegistryService {
	return &ModelRegistryService{db: db, feed: f, perms: perms, degraded: true}
}

// Start primes the model cache and follows the change feed. Without a feed
// the registry stays in direct-read mode.
func (s *ModelRegistryService) Start(ctx context.Context) error {
	if err := s.reload(); err != nil {
		return err
	}

	sub, err := s.feed.Subscribe(ctx, models.ConfigurationModel{}.TableName())
	if err != nil {
		logger.Warn().Err(err).Msg("Change feed unavailable, model cache disabled")
		return nil
	}
	s.setDegraded(false)

	go func() {
		defer sub.Close()
		for {
			select {
			case <-ctx.Done():
				return
			case _, ok := <-sub.Events:
				if !ok {
					s.setDegraded(true)
					return
				}
				if err := s.reload(); err != nil {
					logger.Error().Err(err).Msg("Failed to refresh model cache")
				}
			case <-sub.Errs:
				s.setDegraded(true)
				return
			}
		}
	}()
	return nil
}

func (s *ModelRegistryService) setDegraded(v bool) {
	s.mu.Lock()
	s.degraded = v
	s.mu.Unlock()
}

func (s *ModelRegistryService) reload() error {
	var all []models.ConfigurationModel
	if err := s.db.Find(&all).Error; err != nil {
		return err
	}
	s.mu.Lock()
	s.cache = all
	s.mu.Unlock()
	return nil
}

func (s *ModelRegistryService) allModels() ([]models.ConfigurationModel, error) {
	s.mu.RLock()
	degraded := s.degraded
	cached := s.cache
	s.mu.RUnlock()

	if !degraded {
		return cached, nil
	}
	var all []models.ConfigurationModel
	if err := s.db.Find(&all).Error; err != nil {
		return nil, err
	}
	return all, nil
}

// Visible reports whether the role set may see the model. A model is visible
// by default; declaring a configurationModel.<base>.<name>.view role makes
// it visible only to holders of that role.
func (s *ModelRegistryService) Visible(m *models.ConfigurationModel, set RoleSet) (bool, error) {
	if set.IsAdmin() {
		return true, nil
	}
	viewRole := models.ModelViewRole(m.Base, m.Name)
	exists, err := s.perms.RoleExists(viewRole)
	if err != nil {
		return false, err
	}
	if !exists {
		return true, nil
	}
	return set.Has(viewRole), nil
}

// ValidateWritePermissions decides whether the role set may mutate the model
// registry at (level, modelName).
//
// The caller needs both blanket configurationModel roles. On top of that,
// a declared baseConfigurations.<level>.view role must be held, and a
// declared configurationModel.<level>.<model>.modify role must be held
// together with its view counterpart. Undeclared specific roles skip their
// step entirely.
func (s *ModelRegistryService) ValidateWritePermissions(level, modelName string, set RoleSet) (bool, error) {
	if set.IsAdmin() {
		return true, nil
	}

	viewAll := models.RoleName{Resource: models.ResourceConfigurationModel, Action: models.ActionView}.String()
	modifyAll := models.RoleName{Resource: models.ResourceConfigurationModel, Action: models.ActionModify}.String()
	if !set.Has(viewAll) || !set.Has(modifyAll) {
		return false, nil
	}

	levelView := models.LevelViewRole(level)
	exists, err := s.perms.RoleExists(levelView)
	if err != nil {
		return false, err
	}
	if exists && !set.Has(levelView) {
		return false, nil
	}

	specificModify := models.ModelModifyRole(level, modelName)
	exists, err = s.perms.RoleExists(specificModify)
	if err != nil {
		return false, err
	}
	if exists {
		return set.Has(specificModify) && set.Has(models.ModelViewRole(level, modelName)), nil
	}
	return true, nil
}

// Create registers a configuration model. Re-creating a soft-deleted
// (base, name) pair revives the tombstone under its original id.
func (s *ModelRegistryService) Create(model *models.ConfigurationModel, set RoleSet) (*models.ConfigurationModel, error) {
	if model.Name == "" {
		return nil, response.NewBadRequest("model name is required")
	}
	if model.ID != 0 {
		return nil, response.NewBadRequest("model id must not be set on create")
	}

	var levelCount int64
	if err := s.db.Model(&models.BaseLevel{}).Where("name = ?", model.Base).Count(&levelCount).Error; err != nil {
		return nil, err
	}
	if levelCount == 0 {
		return nil, response.NewBadRequest("unknown hierarchy level: " + model.Base)
	}

	ok, err := s.ValidateWritePermissions(model.Base, model.Name, set)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, response.NewForbidden("no permission to modify models at this level")
	}

	for i := range model.Rules {
		model.Rules[i].ID = uuid.NewString()
	}
	model.Deleted = false

	var existing models.ConfigurationModel
	err = s.db.Where("base = ? AND name = ?", model.Base, model.Name).First(&existing).Error
	switch {
	case err == nil && !existing.Deleted:
		return nil, response.NewConflict("model already exists")
	case err == nil:
		// Revive the tombstone in place.
		model.ID = existing.ID
		model.CreatedAt = existing.CreatedAt
		if err := s.db.Save(model).Error; err != nil {
			return nil, err
		}
	case err == gorm.ErrRecordNotFound:
		if err := s.db.Create(model).Error; err != nil {
			return nil, err
		}
	default:
		return nil, err
	}

	logger.Info().Str("base", model.Base).Str("model", model.Name).Msg("Configuration model saved")
	return model, nil
}

// ModelPatch carries a partial update for an existing model. Nil fields
// leave the stored value alone.
type ModelPatch struct {
	Rules        []models.Rule        `json:"rules"`
	Restrictions []string             `json:"restrictions"`
	Options      *models.ModelOptions `json:"options"`
}

// Upsert partially updates an existing model in one write. Supplied
// collections replace their stored counterparts wholesale, and rules
// arriving without an identifier get a fresh one.
func (s *ModelRegistryService) Upsert(id uint, patch ModelPatch, set RoleSet) (*models.ConfigurationModel, error) {
	model, err := s.loadForWrite(id, set)
	if err != nil {
		return nil, err
	}

	// Column updates of serializer:json fields must go through a
	// struct-based Updates with an explicit Select so gorm runs the
	// serializer; map assignments reach the driver unserialized.
	columns := []string{}
	if patch.Rules != nil {
		for i := range patch.Rules {
			if patch.Rules[i].ID == "" {
				patch.Rules[i].ID = uuid.NewString()
			}
		}
		model.Rules = patch.Rules
		columns = append(columns, "rules")
	}
	if patch.Restrictions != nil {
		model.Restrictions = patch.Restrictions
		columns = append(columns, "restrictions")
	}
	if patch.Options != nil {
		model.Options = *patch.Options
		columns = append(columns, "options")
	}
	if len(columns) == 0 {
		return model, nil
	}
	if err := s.db.Model(model).Select(columns).Updates(model).Error; err != nil {
		return nil, err
	}
	return model, nil
}

// FindWithPermissions lists models the role set may see. Deleted models are
// excluded unless the filter opts in. Each returned model carries its
// computed default values, never persisted back.
func (s *ModelRegistryService) FindWithPermissions(filter ModelFilter, set RoleSet) ([]models.ConfigurationModel, error) {
	all, err := s.allModels()
	if err != nil {
		return nil, err
	}

	out := make([]models.ConfigurationModel, 0, len(all))
	for _, m := range all {
		if m.Deleted && !filter.IncludeDeleted {
			continue
		}
		if filter.Base != "" && m.Base != filter.Base {
			continue
		}
		if filter.Name != "" && m.Name != filter.Name {
			continue
		}
		visible, err := s.Visible(&m, set)
		if err != nil {
			return nil, err
		}
		if visible {
			out = append(out, m)
		}
	}

	if err := s.attachDefaultValues(out); err != nil {
		return nil, err
	}
	return out, nil
}

// FindOneWithPermissions returns the first visible match or nil.
func (s *ModelRegistryService) FindOneWithPermissions(filter ModelFilter, set RoleSet) (*models.ConfigurationModel, error) {
	found, err := s.FindWithPermissions(filter, set)
	if err != nil {
		return nil, err
	}
	if len(found) == 0 {
		return nil, nil
	}
	return &found[0], nil
}

// attachDefaultValues fills DefaultValues on each model from the constant
// variable sets bound to exactly that (base, name). Later sets override
// earlier values of the same variable name.
func (s *ModelRegistryService) attachDefaultValues(list []models.ConfigurationModel) error {
	if len(list) == 0 {
		return nil
	}
	var sets []models.ConstantVariableSet
	if err := s.db.Order("id ASC").Find(&sets).Error; err != nil {
		return err
	}

	for i := range list {
		byName := make(map[string]int)
		var defaults []models.Variable
		for _, set := range sets {
			if set.Levels[list[i].Base] != list[i].Name {
				continue
			}
			for _, v := range set.Variables {
				if idx, ok := byName[v.Name]; ok {
					defaults[idx] = v
				} else {
					byName[v.Name] = len(defaults)
					defaults = append(defaults, v)
				}
			}
		}
		list[i].DefaultValues = defaults
	}
	return nil
}

func (s *ModelRegistryService) loadForWrite(id uint, set RoleSet) (*models.ConfigurationModel, error) {
	var model models.ConfigurationModel
	if err := s.db.First(&model, id).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, response.NewNotFound("model not found")
		}
		return nil, err
	}
	ok, err := s.ValidateWritePermissions(model.Base, model.Name, set)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, response.NewForbidden("no permission to modify this model")
	}
	return &model, nil
}

// AddRule appends a validation rule to the model.
func (s *ModelRegistryService) AddRule(id uint, rule models.Rule, set RoleSet) (*models.ConfigurationModel, error) {
	if rule.Name == "" || rule.Value == "" {
		return nil, response.NewBadRequest("rule name and value are required")
	}
	model, err := s.loadForWrite(id, set)
	if err != nil {
		return nil, err
	}
	rule.ID = uuid.NewString()
	model.Rules = append(model.Rules, rule)
	if err := s.db.Model(model).Select("rules").Updates(model).Error; err != nil {
		return nil, err
	}
	return model, nil
}

// RemoveRule deletes a rule by its identifier.
func (s *ModelRegistryService) RemoveRule(id uint, ruleID string, set RoleSet) (*models.ConfigurationModel, error) {
	model, err := s.loadForWrite(id, set)
	if err != nil {
		return nil, err
	}
	kept := model.Rules[:0]
	for _, r := range model.Rules {
		if r.ID != ruleID {
			kept = append(kept, r)
		}
	}
	model.Rules = kept
	if err := s.db.Model(model).Select("rules").Updates(model).Error; err != nil {
		return nil, err
	}
	return model, nil
}

// ModifyRule replaces the rule with the same identifier.
func (s *ModelRegistryService) ModifyRule(id uint, rule models.Rule, set RoleSet) (*models.ConfigurationModel, error) {
	if rule.ID == "" {
		return nil, response.NewBadRequest("rule id is required")
	}
	model, err := s.loadForWrite(id, set)
	if err != nil {
		return nil, err
	}
	found := false
	for i := range model.Rules {
		if model.Rules[i].ID == rule.ID {
			model.Rules[i] = rule
			found = true
			break
		}
	}
	if !found {
		return nil, response.NewNotFound("rule not found")
	}
	if err := s.db.Model(model).Select("rules").Updates(model).Error; err != nil {
		return nil, err
	}
	return model, nil
}

// ModifyModelOptions replaces the model's behaviour switches.
func (s *ModelRegistryService) ModifyModelOptions(id uint, options models.ModelOptions, set RoleSet) (*models.ConfigurationModel, error) {
	model, err := s.loadForWrite(id, set)
	if err != nil {
		return nil, err
	}
	model.Options = options
	if err := s.db.Model(model).Select("options").Updates(model).Error; err != nil {
		return nil, err
	}
	return model, nil
}

// AddRestriction allows one more child model name under a restricted model.
func (s *ModelRegistryService) AddRestriction(id uint, child string, set RoleSet) (*models.ConfigurationModel, error) {
	if child == "" {
		return nil, response.NewBadRequest("restriction name is required")
	}
	model, err := s.loadForWrite(id, set)
	if err != nil {
		return nil, err
	}
	for _, r := range model.Restrictions {
		if r == child {
			return model, nil
		}
	}
	model.Restrictions = append(model.Restrictions, child)
	if err := s.db.Model(model).Select("restrictions").Updates(model).Error; err != nil {
		return nil, err
	}
	return model, nil
}

// RemoveRestriction withdraws a child model name from the restriction list.
func (s *ModelRegistryService) RemoveRestriction(id uint, child string, set RoleSet) (*models.ConfigurationModel, error) {
	model, err := s.loadForWrite(id, set)
	if err != nil {
		return nil, err
	}
	kept := model.Restrictions[:0]
	for _, r := range model.Restrictions {
		if r != child {
			kept = append(kept, r)
		}
	}
	model.Restrictions = kept
	if err := s.db.Model(model).Select("restrictions").Updates(model).Error; err != nil {
		return nil, err
	}
	return model, nil
}

// Delete soft-deletes the model. The row stays behind as a tombstone so a
// later create on the same (base, name) revives it.
func (s *ModelRegistryService) Delete(id uint, set RoleSet) error {
	model, err := s.loadForWrite(id, set)
	if err != nil {
		return err
	}
	if err := s.db.Model(model).Update("deleted", true).Error; err != nil {
		return err
	}
	logger.Info().Str("base", model.Base).Str("model", model.Name).Msg("Configuration model deleted")
	return nil
}
