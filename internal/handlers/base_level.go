package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/confhub/confhub/internal/services"
	"github.com/confhub/confhub/pkg/response"
)

type BaseLevelHandler struct {
	levels *services.BaseLevelService
}

func NewBaseLevelHandler(levels *services.BaseLevelService) *BaseLevelHandler {
	return &BaseLevelHandler{levels: levels}
}

func (h *BaseLevelHandler) List(c *gin.Context) {
	levels, err := h.levels.List()
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, levels)
}

type createLevelRequest struct {
	Name string `json:"name" binding:"required"`
	Icon string `json:"icon"`
}

func (h *BaseLevelHandler) Create(c *gin.Context) {
	var req createLevelRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	level, err := h.levels.Create(req.Name, req.Icon)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, level)
}

type reorderLevelRequest struct {
	SequenceNumber int `json:"sequenceNumber"`
}

func (h *BaseLevelHandler) Reorder(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	var req reorderLevelRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	if err := h.levels.Reorder(id, req.SequenceNumber); err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, nil)
}

func (h *BaseLevelHandler) Delete(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}
	if err := h.levels.Delete(id); err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, nil)
}
