package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/confhub/confhub/internal/models"
	"github.com/confhub/confhub/internal/services"
	"github.com/confhub/confhub/pkg/response"
)

type PromotionHandler struct {
	promotions *services.PromotionService
}

func NewPromotionHandler(promotions *services.PromotionService) *PromotionHandler {
	return &PromotionHandler{promotions: promotions}
}

func (h *PromotionHandler) List(c *gin.Context) {
	edges, err := h.promotions.List()
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, edges)
}

func (h *PromotionHandler) Save(c *gin.Context) {
	var edge models.Promotion
	if err := c.ShouldBindJSON(&edge); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	saved, err := h.promotions.Save(&edge)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, saved)
}

func (h *PromotionHandler) Delete(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	if err := h.promotions.Delete(id); err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, nil)
}
