package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/confhub/confhub/internal/models"
	"github.com/confhub/confhub/internal/services"
	"github.com/confhub/confhub/pkg/response"
)

type ConfigurationModelHandler struct {
	registry *services.ModelRegistryService
	perms    *services.PermissionService
	gate     *services.AccessGate
}

func NewConfigurationModelHandler(registry *services.ModelRegistryService, perms *services.PermissionService, gate *services.AccessGate) *ConfigurationModelHandler {
	return &ConfigurationModelHandler{registry: registry, perms: perms, gate: gate}
}

func (h *ConfigurationModelHandler) List(c *gin.Context) {
	set, ok := callerRoles(c, h.perms)
	if !ok {
		return
	}
	if !h.gate.AllowedWithRoles(set, models.ResourceConfigurationModel, models.ActionView) {
		response.Forbidden(c, "no permission to view configuration models")
		return
	}

	filter := services.ModelFilter{
		Base:           c.Query("base"),
		Name:           c.Query("name"),
		IncludeDeleted: c.Query("deleted") == "true",
	}
	found, err := h.registry.FindWithPermissions(filter, set)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, found)
}

func (h *ConfigurationModelHandler) Create(c *gin.Context) {
	set, ok := callerRoles(c, h.perms)
	if !ok {
		return
	}

	var model models.ConfigurationModel
	if err := c.ShouldBindJSON(&model); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	created, err := h.registry.Create(&model, set)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, created)
}

func (h *ConfigurationModelHandler) Update(c *gin.Context) {
	set, ok := callerRoles(c, h.perms)
	if !ok {
		return
	}
	id, ok := pathID(c)
	if !ok {
		return
	}

	var patch services.ModelPatch
	if err := c.ShouldBindJSON(&patch); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	model, err := h.registry.Upsert(id, patch, set)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, model)
}

func (h *ConfigurationModelHandler) Delete(c *gin.Context) {
	set, ok := callerRoles(c, h.perms)
	if !ok {
		return
	}
	id, ok := pathID(c)
	if !ok {
		return
	}
	if err := h.registry.Delete(id, set); err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, nil)
}

func (h *ConfigurationModelHandler) AddRule(c *gin.Context) {
	set, ok := callerRoles(c, h.perms)
	if !ok {
		return
	}
	id, ok := pathID(c)
	if !ok {
		return
	}

	var rule models.Rule
	if err := c.ShouldBindJSON(&rule); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	model, err := h.registry.AddRule(id, rule, set)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, model)
}

func (h *ConfigurationModelHandler) RemoveRule(c *gin.Context) {
	set, ok := callerRoles(c, h.perms)
	if !ok {
		return
	}
	id, ok := pathID(c)
	if !ok {
		return
	}

	model, err := h.registry.RemoveRule(id, c.Param("ruleId"), set)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, model)
}

func (h *ConfigurationModelHandler) ModifyRule(c *gin.Context) {
	set, ok := callerRoles(c, h.perms)
	if !ok {
		return
	}
	id, ok := pathID(c)
	if !ok {
		return
	}

	var rule models.Rule
	if err := c.ShouldBindJSON(&rule); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	model, err := h.registry.ModifyRule(id, rule, set)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, model)
}

func (h *ConfigurationModelHandler) ModifyOptions(c *gin.Context) {
	set, ok := callerRoles(c, h.perms)
	if !ok {
		return
	}
	id, ok := pathID(c)
	if !ok {
		return
	}

	var options models.ModelOptions
	if err := c.ShouldBindJSON(&options); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	model, err := h.registry.ModifyModelOptions(id, options, set)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, model)
}

type restrictionRequest struct {
	Name string `json:"name" binding:"required"`
}

func (h *ConfigurationModelHandler) AddRestriction(c *gin.Context) {
	set, ok := callerRoles(c, h.perms)
	if !ok {
		return
	}
	id, ok := pathID(c)
	if !ok {
		return
	}

	var req restrictionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	model, err := h.registry.AddRestriction(id, req.Name, set)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, model)
}

func (h *ConfigurationModelHandler) RemoveRestriction(c *gin.Context) {
	set, ok := callerRoles(c, h.perms)
	if !ok {
		return
	}
	id, ok := pathID(c)
	if !ok {
		return
	}

	var req restrictionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	model, err := h.registry.RemoveRestriction(id, req.Name, set)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, model)
}
