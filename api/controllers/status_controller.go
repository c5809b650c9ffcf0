package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/shareflow/shareflow-go/session"
	"github.com/shareflow/shareflow-go/tool"
)

// StatusController reports liveness for the web UI and health checks.
type StatusController struct {
	store *session.Store
}

// NewStatusController wires the controller to the session store.
func NewStatusController(store *session.Store) *StatusController {
	return &StatusController{store: store}
}

// HandleStatus returns a small health blob.
// GET /api/shareflow/v1/status
func (ctrl *StatusController) HandleStatus(c *gin.Context) {
	c.JSON(http.StatusOK, tool.FastReturnSuccessWithData(gin.H{
		"running":  true,
		"sessions": ctrl.store.Len(),
	}))
}
