package handlers

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/confhub/confhub/internal/middleware"
	"github.com/confhub/confhub/internal/models"
	"github.com/confhub/confhub/internal/services"
	"github.com/confhub/confhub/pkg/response"
)

type ConstantVariableHandler struct {
	constants *services.ConstantVariableService
	perms     *services.PermissionService
	gate      *services.AccessGate
}

func NewConstantVariableHandler(constants *services.ConstantVariableService, perms *services.PermissionService, gate *services.AccessGate) *ConstantVariableHandler {
	return &ConstantVariableHandler{constants: constants, perms: perms, gate: gate}
}

type createConstantVariableRequest struct {
	Levels    models.LevelMap   `json:"levels" binding:"required"`
	Variables []models.Variable `json:"variables"`
}

func (h *ConstantVariableHandler) Create(c *gin.Context) {
	set, ok := callerRoles(c, h.perms)
	if !ok {
		return
	}

	var req createConstantVariableRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	created, err := h.constants.Create(&models.ConstantVariableSet{
		Levels:    req.Levels,
		Variables: req.Variables,
	}, set, middleware.GetUserID(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, created)
}

func (h *ConstantVariableHandler) List(c *gin.Context) {
	set, ok := callerRoles(c, h.perms)
	if !ok {
		return
	}
	if !h.gate.AllowedWithRoles(set, models.ResourceConfiguration, models.ActionView) {
		response.Forbidden(c, "no permission to view constant variables")
		return
	}

	found, err := h.constants.FindWithPermissions(set)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, found)
}

// Resolve answers the effective variables for a hierarchy path, optionally
// as of a point in time given in RFC 3339 via the "date" query parameter.
func (h *ConstantVariableHandler) Resolve(c *gin.Context) {
	set, ok := callerRoles(c, h.perms)
	if !ok {
		return
	}
	if !h.gate.AllowedWithRoles(set, models.ResourceConfiguration, models.ActionView) {
		response.Forbidden(c, "no permission to view constant variables")
		return
	}

	filter := models.LevelMap{}
	var asOf *time.Time
	for key, values := range c.Request.URL.Query() {
		if len(values) == 0 {
			continue
		}
		if key == "date" {
			parsed, err := time.Parse(time.RFC3339, values[0])
			if err != nil {
				response.BadRequest(c, "invalid date")
				return
			}
			asOf = &parsed
			continue
		}
		filter[key] = values[0]
	}

	variables, err := h.constants.FindForDate(filter, asOf, set)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, variables)
}
