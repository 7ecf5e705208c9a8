package services

import (
	"time"

	"gorm.io/gorm"

	"github.com/confhub/confhub/internal/models"
	"github.com/confhub/confhub/pkg/logger"
	"github.com/confhub/confhub/pkg/response"
)

// ConstantVariableService stores effective-dated constant variable sets and
// resolves the merged "effective value" view across the hierarchy, most
// specific and most recent winning.
type ConstantVariableService struct {
	db       *gorm.DB
	levels   *BaseLevelService
	registry *ModelRegistryService
}

func NewConstantVariableService(db *gorm.DB, levels *BaseLevelService, registry *ModelRegistryService) *ConstantVariableService {
	return &ConstantVariableService{db: db, levels: levels, registry: registry}
}

// Create stores a new dated set of constant variables. Every bound level
// must reference a model visible to the caller and writable at that level.
// The effective date is always server-stamped.
func (s *ConstantVariableService) Create(set *models.ConstantVariableSet, roles RoleSet, userID uint) (*models.ConstantVariableSet, error) {
	levels, err := s.levels.List()
	if err != nil {
		return nil, err
	}

	bound := make(models.LevelMap)
	for _, level := range levels {
		name, ok := set.Levels[level.Name]
		if !ok {
			continue
		}
		model, err := s.registry.FindOneWithPermissions(ModelFilter{Base: level.Name, Name: name}, roles)
		if err != nil {
			return nil, err
		}
		if model == nil {
			return nil, response.NewBadRequest("invalid model name")
		}
		allowed, err := s.registry.ValidateWritePermissions(level.Name, name, roles)
		if err != nil {
			return nil, err
		}
		if !allowed {
			return nil, response.NewForbidden("no permission to modify variables at this level")
		}
		bound[level.Name] = name
	}

	if len(bound) == 0 {
		return nil, response.NewBadRequest("constant variable should have at least one model")
	}

	created := &models.ConstantVariableSet{
		CreatedBy:     userID,
		EffectiveDate: time.Now(),
		Variables:     set.Variables,
		Levels:        bound,
	}
	if err := s.db.Create(created).Error; err != nil {
		return nil, err
	}

	logger.Info().Uint("id", created.ID).Msg("Constant variable set created")
	return created, nil
}

// FindWithPermissions lists the sets the caller may see. A set stays visible
// as long as any of its bound levels references a model visible to the
// caller, or a level with no registered models at all.
func (s *ConstantVariableService) FindWithPermissions(roles RoleSet) ([]models.ConstantVariableSet, error) {
	var all []models.ConstantVariableSet
	if err := s.db.Order("id ASC").Find(&all).Error; err != nil {
		return nil, err
	}
	return s.filterVisible(all, roles)
}

func (s *ConstantVariableService) filterVisible(all []models.ConstantVariableSet, roles RoleSet) ([]models.ConstantVariableSet, error) {
	visibleModels, err := s.registry.FindWithPermissions(ModelFilter{}, roles)
	if err != nil {
		return nil, err
	}

	byBase := make(map[string]map[string]struct{})
	for _, m := range visibleModels {
		if byBase[m.Base] == nil {
			byBase[m.Base] = make(map[string]struct{})
		}
		byBase[m.Base][m.Name] = struct{}{}
	}

	// Also collect bases that have models registered at all, including ones
	// invisible to this caller. Levels without any registered model stay
	// open to everyone.
	allKnown, err := s.registry.allModels()
	if err != nil {
		return nil, err
	}
	basesWithModels := make(map[string]struct{})
	for _, m := range allKnown {
		basesWithModels[m.Base] = struct{}{}
	}

	out := make([]models.ConstantVariableSet, 0, len(all))
	for _, set := range all {
		keep := false
		for level, name := range set.Levels {
			if _, known := basesWithModels[level]; !known {
				keep = true
				break
			}
			if _, ok := byBase[level][name]; ok {
				keep = true
				break
			}
		}
		if keep {
			out = append(out, set)
		}
	}
	return out, nil
}

// FindForDate resolves the effective variables for a hierarchy path as of a
// point in time. Sets are grouped by which filter levels they match exactly;
// walking the hierarchy parent to child, the most recent group covering each
// level contributes its variables tagged with that level as source, and
// deeper levels override same-named variables from shallower ones. A nil
// asOf places no time restriction.
func (s *ConstantVariableService) FindForDate(filter models.LevelMap, asOf *time.Time, roles RoleSet) ([]models.Variable, error) {
	levels, err := s.levels.List()
	if err != nil {
		return nil, err
	}

	filterCovers := false
	for _, level := range levels {
		if _, ok := filter[level.Name]; ok {
			filterCovers = true
			break
		}
	}
	if !filterCovers {
		return nil, response.NewBadRequest("invalid filter")
	}

	var all []models.ConstantVariableSet
	if err := s.db.Order("id ASC").Find(&all).Error; err != nil {
		return nil, err
	}

	candidates := make([]models.ConstantVariableSet, 0, len(all))
	for _, set := range all {
		if asOf != nil && !set.EffectiveDate.Before(*asOf) {
			continue
		}
		matchesAny := false
		for _, level := range levels {
			want, ok := filter[level.Name]
			if ok && set.Levels[level.Name] == want {
				matchesAny = true
				break
			}
		}
		if matchesAny {
			candidates = append(candidates, set)
		}
	}

	candidates, err = s.filterVisible(candidates, roles)
	if err != nil {
		return nil, err
	}

	// Group candidates by the exact set of filter levels they match. A set
	// missing a level in the middle of the hierarchy stops matching below
	// the gap, and any mismatch against the filter disqualifies it outright.
	type group struct {
		covered map[string]struct{}
		sets    []models.ConstantVariableSet
	}
	var groups []*group
	groupIndex := make(map[string]int)

	for _, set := range candidates {
		key := ""
		covered := make(map[string]struct{})
		noGo := false
		undefParent := false
		for _, level := range levels {
			if _, populated := set.Levels[level.Name]; populated {
				want, filtered := filter[level.Name]
				if !filtered {
					continue
				}
				if want == set.Levels[level.Name] && !undefParent {
					key += level.Name + ","
					covered[level.Name] = struct{}{}
				} else {
					noGo = true
				}
			} else {
				undefParent = true
			}
		}
		if key == "" || noGo {
			continue
		}
		if idx, ok := groupIndex[key]; ok {
			groups[idx].sets = append(groups[idx].sets, set)
		} else {
			groupIndex[key] = len(groups)
			groups = append(groups, &group{covered: covered, sets: []models.ConstantVariableSet{set}})
		}
	}

	var order []string
	merged := make(map[string]models.Variable)

	for _, level := range levels {
		for _, g := range groups {
			if _, ok := g.covered[level.Name]; !ok {
				continue
			}
			latest := g.sets[len(g.sets)-1]
			for _, v := range latest.Variables {
				v.Source = level.Name
				if _, seen := merged[v.Name]; !seen {
					order = append(order, v.Name)
				}
				merged[v.Name] = v
			}
		}
	}

	out := make([]models.Variable, 0, len(order))
	for _, name := range order {
		out = append(out, merged[name])
	}
	return out, nil
}

// FindLatest is FindForDate without a time restriction.
func (s *ConstantVariableService) FindLatest(filter models.LevelMap, roles RoleSet) ([]models.Variable, error) {
	return s.FindForDate(filter, nil, roles)
}
