package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/confhub/confhub/internal/services"
	"github.com/confhub/confhub/pkg/response"
)

type ConnectionHandler struct {
	connections *services.ConnectionService
}

func NewConnectionHandler(connections *services.ConnectionService) *ConnectionHandler {
	return &ConnectionHandler{connections: connections}
}

func (h *ConnectionHandler) Get(c *gin.Context) {
	conn, err := h.connections.FindRedacted(c.Param("system"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, conn)
}

func (h *ConnectionHandler) Save(c *gin.Context) {
	var update services.ConnectionUpdate
	if err := c.ShouldBindJSON(&update); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	conn, err := h.connections.Save(c.Param("system"), &update)
	if err != nil {
		response.Error(c, err)
		return
	}

	conn.BindCredentials = ""
	conn.GlobalToken = ""
	for i := range conn.Tokens {
		conn.Tokens[i].Token = ""
	}
	response.Success(c, conn)
}

func (h *ConnectionHandler) Test(c *gin.Context) {
	if err := h.connections.Test(c.Request.Context(), c.Param("system")); err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, gin.H{"reachable": true})
}
