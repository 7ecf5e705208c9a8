package services

import (
	"sort"
	"strconv"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/confhub/confhub/internal/models"
	"github.com/confhub/confhub/internal/secret"
	"github.com/confhub/confhub/pkg/logger"
	"github.com/confhub/confhub/pkg/response"
)

// VariableTypePassword marks variables whose values are encrypted at rest.
const VariableTypePassword = "password"

// ConfigurationService stores versioned configuration instances bound to
// hierarchy paths. Reads are visibility filtered per referenced model and
// decrypt password variables; writes validate the restriction chain and
// encrypt password variables before persisting.
type ConfigurationService struct {
	db       *gorm.DB
	levels   *BaseLevelService
	registry *ModelRegistryService
	secrets  *secret.Manager
}

func NewConfigurationService(db *gorm.DB, levels *BaseLevelService, registry *ModelRegistryService, secrets *secret.Manager) *ConfigurationService {
	return &ConfigurationService{db: db, levels: levels, registry: registry, secrets: secrets}
}

// ConfigurationFilter narrows instance lookups. Levels uses superset
// matching: an instance qualifies when it carries every listed pair,
// whatever else it populates.
type ConfigurationFilter struct {
	ID       uint
	Levels   models.LevelMap
	Promoted *bool
}

func (f ConfigurationFilter) matches(c *models.ConfigurationInstance) bool {
	if f.ID != 0 && c.ID != f.ID {
		return false
	}
	if f.Promoted != nil && c.Promoted != *f.Promoted {
		return false
	}
	return c.MatchesLevels(f.Levels)
}

// Create validates and persists a new instance. Every populated level must
// reference a model visible to the caller, the restriction chain between
// consecutive populated levels must permit the child, and variables must
// carry a name, a type and type-conformant values. Password values are
// stored encrypted. The version number is one more than the count of
// existing instances sharing the level combination.
func (s *ConfigurationService) Create(instance *models.ConfigurationInstance, set RoleSet, userID uint) (*models.ConfigurationInstance, error) {
	levels, err := s.levels.List()
	if err != nil {
		return nil, err
	}

	populated := make([]string, 0, len(levels))
	for _, level := range levels {
		name, ok := instance.Levels[level.Name]
		if !ok {
			continue
		}
		model, err := s.registry.FindOneWithPermissions(ModelFilter{Base: level.Name, Name: name}, set)
		if err != nil {
			return nil, err
		}
		if model == nil {
			return nil, response.NewBadRequest("configuration model " + name + " does not exist")
		}
		populated = append(populated, level.Name)
	}

	for i := 1; i < len(populated); i++ {
		parent, err := s.registry.FindOneWithPermissions(ModelFilter{
			Base: populated[i-1],
			Name: instance.Levels[populated[i-1]],
		}, set)
		if err != nil {
			return nil, err
		}
		if parent != nil && !parent.PermitsChild(instance.Levels[populated[i]]) {
			return nil, response.NewConflict("model restrictions forbid this configuration")
		}
	}

	for i := range instance.Variables {
		v := &instance.Variables[i]
		if v.Name == "" {
			return nil, response.NewBadRequest("invalid variable: name not valid")
		}
		if v.Type == "" {
			return nil, response.NewBadRequest("invalid variable: type not valid")
		}
		if v.Type == VariableTypePassword && v.Value != "" {
			encrypted, err := s.secrets.Encrypt(v.Value)
			if err != nil {
				return nil, response.NewSecretError(err.Error())
			}
			v.Value = encrypted
		}
		if v.Type == "number" {
			if _, err := strconv.ParseFloat(v.Value, 64); err != nil {
				return nil, response.NewBadRequest("invalid variable: value is not a number")
			}
		}
		v.ID = uuid.NewString()
	}

	version, err := s.countMatching(instance.Levels)
	if err != nil {
		return nil, err
	}

	instance.ID = 0
	instance.Version = version + 1
	instance.CreatedBy = userID
	instance.Promoted = false
	instance.EffectiveDate = nil
	instance.Deleted = false

	if err := s.db.Create(instance).Error; err != nil {
		return nil, err
	}

	logger.Info().Int("version", instance.Version).Uint("id", instance.ID).Msg("Configuration created")
	return instance, nil
}

func (s *ConfigurationService) countMatching(want models.LevelMap) (int, error) {
	var all []models.ConfigurationInstance
	if err := s.db.Find(&all).Error; err != nil {
		return 0, err
	}
	count := 0
	for i := range all {
		if all[i].MatchesLevels(want) {
			count++
		}
	}
	return count, nil
}

// FindWithPermissions returns the instances matching the filter whose every
// referenced model is visible to the caller, with password variables
// decrypted. Model lookups are memoized per call since instances repeat the
// same (level, model) pairs heavily.
func (s *ConfigurationService) FindWithPermissions(filter ConfigurationFilter, set RoleSet) ([]models.ConfigurationInstance, error) {
	var all []models.ConfigurationInstance
	if err := s.db.Order("id ASC").Find(&all).Error; err != nil {
		return nil, err
	}

	memo := make(map[string]bool)
	visible := func(level, name string) (bool, error) {
		key := level + "\x00" + name
		if v, ok := memo[key]; ok {
			return v, nil
		}
		model, err := s.registry.FindOneWithPermissions(ModelFilter{Base: level, Name: name}, set)
		if err != nil {
			return false, err
		}
		memo[key] = model != nil
		return model != nil, nil
	}

	out := make([]models.ConfigurationInstance, 0)
	for i := range all {
		c := all[i]
		if !filter.matches(&c) {
			continue
		}

		allowed := true
		for level, name := range c.Levels {
			ok, err := visible(level, name)
			if err != nil {
				return nil, err
			}
			if !ok {
				allowed = false
				break
			}
		}
		if !allowed {
			continue
		}

		for j := range c.Variables {
			v := &c.Variables[j]
			if v.Type == VariableTypePassword && v.Value != "" {
				plain, err := s.secrets.Decrypt(v.Value)
				if err != nil {
					return nil, response.NewSecretError(err.Error())
				}
				v.Value = plain
			}
		}
		out = append(out, c)
	}
	return out, nil
}

// Promote marks an instance as the accepted configuration for its path.
// Instances invisible to the caller promote as if they did not exist.
func (s *ConfigurationService) Promote(id uint, set RoleSet) (*models.ConfigurationInstance, error) {
	found, err := s.FindWithPermissions(ConfigurationFilter{ID: id}, set)
	if err != nil {
		return nil, err
	}
	if len(found) == 0 {
		return nil, response.NewBadRequest("invalid configuration id")
	}

	if err := s.db.Model(&models.ConfigurationInstance{}).Where("id = ?", id).
		Update("promoted", true).Error; err != nil {
		return nil, err
	}
	found[0].Promoted = true
	logger.Info().Uint("id", id).Msg("Configuration promoted")
	return &found[0], nil
}

// FindPromotionCandidates lists the promoted instances an instance could
// have been promoted from, following the promotion edges of each populated
// level, most recently effective first.
func (s *ConfigurationService) FindPromotionCandidates(instance *models.ConfigurationInstance, set RoleSet) ([]models.ConfigurationInstance, error) {
	if len(instance.Levels) == 0 {
		return nil, response.NewBadRequest("invalid configuration")
	}

	var edges []models.Promotion
	if err := s.db.Find(&edges).Error; err != nil {
		return nil, err
	}

	matching := make([]models.Promotion, 0)
	for _, edge := range edges {
		target, ok := instance.Levels[edge.Base]
		if ok && edge.Targets(target) {
			matching = append(matching, edge)
		}
	}
	if len(matching) == 0 {
		return []models.ConfigurationInstance{}, nil
	}

	promoted := true
	seen := make(map[uint]struct{})
	var out []models.ConfigurationInstance
	for _, edge := range matching {
		want := make(models.LevelMap, len(instance.Levels))
		for level, name := range instance.Levels {
			want[level] = name
		}
		want[edge.Base] = edge.FromModel

		found, err := s.FindWithPermissions(ConfigurationFilter{Levels: want, Promoted: &promoted}, set)
		if err != nil {
			return nil, err
		}
		for i := range found {
			if _, ok := seen[found[i].ID]; ok {
				continue
			}
			seen[found[i].ID] = struct{}{}
			out = append(out, found[i])
		}
	}

	sort.SliceStable(out, func(i, j int) bool {
		return laterEffective(out[i].EffectiveDate, out[j].EffectiveDate)
	})
	return out, nil
}

// laterEffective orders timestamps descending with nil last.
func laterEffective(a, b *time.Time) bool {
	if a == nil {
		return false
	}
	if b == nil {
		return true
	}
	return a.After(*b)
}
