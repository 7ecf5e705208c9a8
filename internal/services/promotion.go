package services

import (
	"gorm.io/gorm"

	"github.com/confhub/confhub/internal/models"
	"github.com/confhub/confhub/pkg/response"
)

// PromotionService maintains the promotion edge table consumed by the
// instance store's candidate resolver.
type PromotionService struct {
	db *gorm.DB
}

func NewPromotionService(db *gorm.DB) *PromotionService {
	return &PromotionService{db: db}
}

func (s *PromotionService) List() ([]models.Promotion, error) {
	var edges []models.Promotion
	if err := s.db.Order("base ASC, from_model ASC").Find(&edges).Error; err != nil {
		return nil, err
	}
	return edges, nil
}

// Save creates or replaces the edge for (base, fromModel).
func (s *PromotionService) Save(edge *models.Promotion) (*models.Promotion, error) {
	if edge.Base == "" || edge.FromModel == "" {
		return nil, response.NewBadRequest("base and fromModel are required")
	}

	var levelCount int64
	if err := s.db.Model(&models.BaseLevel{}).Where("name = ?", edge.Base).Count(&levelCount).Error; err != nil {
		return nil, err
	}
	if levelCount == 0 {
		return nil, response.NewBadRequest("unknown hierarchy level: " + edge.Base)
	}

	var existing models.Promotion
	err := s.db.Where("base = ? AND from_model = ?", edge.Base, edge.FromModel).First(&existing).Error
	switch {
	case err == nil:
		existing.ToModels = edge.ToModels
		if err := s.db.Save(&existing).Error; err != nil {
			return nil, err
		}
		return &existing, nil
	case err == gorm.ErrRecordNotFound:
		edge.ID = 0
		if err := s.db.Create(edge).Error; err != nil {
			return nil, err
		}
		return edge, nil
	default:
		return nil, err
	}
}

func (s *PromotionService) Delete(id uint) error {
	res := s.db.Delete(&models.Promotion{}, id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return response.NewNotFound("promotion not found")
	}
	return nil
}
