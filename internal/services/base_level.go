package services

import (
	"strings"

	"gorm.io/gorm"

	"github.com/confhub/confhub/internal/models"
	"github.com/confhub/confhub/pkg/logger"
	"github.com/confhub/confhub/pkg/response"
)

// ReservedLevelName cannot be used as a hierarchy level because it collides
// with the synthetic version field exposed on configuration reads.
const ReservedLevelName = "version"

// BaseLevelService maintains the ordered hierarchy level registry. Sequence
// numbers stay dense 0..N-1 across every insert, reorder and delete.
type BaseLevelService struct {
	db *gorm.DB
}

func NewBaseLevelService(db *gorm.DB) *BaseLevelService {
	return &BaseLevelService{db: db}
}

// List returns every level in hierarchy order, parent first.
func (s *BaseLevelService) List() ([]models.BaseLevel, error) {
	var levels []models.BaseLevel
	if err := s.db.Order("sequence_number ASC").Find(&levels).Error; err != nil {
		return nil, err
	}
	return levels, nil
}

// Create appends a new level at the end of the hierarchy.
func (s *BaseLevelService) Create(name, icon string) (*models.BaseLevel, error) {
	if name == "" {
		return nil, response.NewBadRequest("level name is required")
	}
	if name == ReservedLevelName {
		return nil, response.NewBadRequest("level name 'version' is reserved")
	}

	var count int64
	if err := s.db.Model(&models.BaseLevel{}).Count(&count).Error; err != nil {
		return nil, err
	}

	level := &models.BaseLevel{
		Name:           name,
		SequenceNumber: int(count),
		Icon:           icon,
	}
	if err := s.db.Create(level).Error; err != nil {
		return nil, response.NewConflict("level already exists")
	}

	logger.Info().Str("level", name).Int("sequence", level.SequenceNumber).Msg("Hierarchy level created")
	return level, nil
}

// Reorder moves a level to newSequence and renumbers the whole hierarchy so
// sequence numbers stay a contiguous 0..N-1 permutation.
func (s *BaseLevelService) Reorder(id uint, newSequence int) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		var levels []models.BaseLevel
		if err := tx.Order("sequence_number ASC").Find(&levels).Error; err != nil {
			return err
		}

		idx := -1
		for i := range levels {
			if levels[i].ID == id {
				idx = i
				break
			}
		}
		if idx < 0 {
			return response.NewNotFound("level not found")
		}

		moved := levels[idx]
		levels = append(levels[:idx], levels[idx+1:]...)
		if newSequence < 0 {
			newSequence = 0
		}
		if newSequence > len(levels) {
			newSequence = len(levels)
		}
		levels = append(levels[:newSequence], append([]models.BaseLevel{moved}, levels[newSequence:]...)...)

		for i := range levels {
			if levels[i].SequenceNumber == i {
				continue
			}
			if err := tx.Model(&models.BaseLevel{}).Where("id = ?", levels[i].ID).
				Update("sequence_number", i).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

// Delete removes a level, renumbers the remaining levels densely and
// cascades deletion over every role named under the level's prefix.
func (s *BaseLevelService) Delete(id uint) error {
	return s.db.Transaction(func(tx *gorm.DB) error {
		var level models.BaseLevel
		if err := tx.First(&level, id).Error; err != nil {
			return response.NewNotFound("level not found")
		}

		var remaining []models.BaseLevel
		if err := tx.Where("id <> ?", id).Order("sequence_number ASC").Find(&remaining).Error; err != nil {
			return err
		}
		for i := range remaining {
			if remaining[i].SequenceNumber == i {
				continue
			}
			if err := tx.Model(&models.BaseLevel{}).Where("id = ?", remaining[i].ID).
				Update("sequence_number", i).Error; err != nil {
				return err
			}
		}

		// Prefix matching happens in Go so level names containing SQL
		// wildcard characters cannot widen the cascade.
		var roles []models.Role
		if err := tx.Find(&roles).Error; err != nil {
			return err
		}
		prefix := models.LevelRolePrefix(level.Name)
		var doomed []uint
		for _, r := range roles {
			if strings.HasPrefix(r.Name, prefix) {
				doomed = append(doomed, r.ID)
			}
		}
		if len(doomed) > 0 {
			if err := tx.Delete(&models.Role{}, doomed).Error; err != nil {
				return err
			}
		}

		if err := tx.Delete(&level).Error; err != nil {
			return err
		}

		logger.Info().Str("level", level.Name).Msg("Hierarchy level deleted")
		return nil
	})
}
