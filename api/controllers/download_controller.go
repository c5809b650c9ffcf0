package controllers

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/shareflow/shareflow-go/api/notifyhub"
	"github.com/shareflow/shareflow-go/blob"
	"github.com/shareflow/shareflow-go/session"
	"github.com/shareflow/shareflow-go/tool"
	"github.com/shareflow/shareflow-go/types"
)

// DownloadController serves session metadata and file content to
// whoever presents a valid token.
type DownloadController struct {
	mediator *session.Mediator
	blobs    blob.Store
	hub      *notifyhub.Hub
}

// NewDownloadController wires the controller to its collaborators.
func NewDownloadController(mediator *session.Mediator, blobs blob.Store, hub *notifyhub.Hub) *DownloadController {
	return &DownloadController{
		mediator: mediator,
		blobs:    blobs,
		hub:      hub,
	}
}

// HandleSessionMetadata returns the file manifest and expiry for a
// session. Owners additionally get the session state and creator
// context; recipients never see either.
// GET /api/shareflow/v1/session?token=xxx
func (ctrl *DownloadController) HandleSessionMetadata(c *gin.Context) {
	token := strings.TrimSpace(c.Query("token"))
	if token == "" {
		c.JSON(http.StatusBadRequest, tool.FastReturnError("Missing required parameter: token"))
		return
	}

	decision := ctrl.mediator.Authorize(token, session.OpViewMetadata)
	if !decision.Allowed {
		writeDenial(c, decision)
		return
	}

	sess := decision.Session
	resp := types.SessionMetadataResponse{
		SessionId: sess.SessionId,
		Role:      decision.Role,
		Files:     sess.Files,
		CreatedAt: sess.CreatedAt,
		ExpiresAt: sess.ExpiresAt,
	}
	if decision.Role == types.RoleOwner {
		resp.State = sess.State
		creator := sess.Creator
		resp.Creator = &creator
	}
	c.JSON(http.StatusOK, tool.FastReturnSuccessWithData(resp))
}

// HandleDownload streams one file of the session.
// GET /api/shareflow/v1/download?token=xxx&file=0
func (ctrl *DownloadController) HandleDownload(c *gin.Context) {
	token := strings.TrimSpace(c.Query("token"))
	if token == "" {
		c.JSON(http.StatusBadRequest, tool.FastReturnError("Missing required parameter: token"))
		return
	}

	decision := ctrl.mediator.Authorize(token, session.OpDownload)
	if !decision.Allowed {
		writeDenial(c, decision)
		return
	}
	sess := decision.Session

	index := 0
	if raw := c.Query("file"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 || n >= len(sess.Files) {
			c.JSON(http.StatusBadRequest, tool.FastReturnError("Invalid file index"))
			return
		}
		index = n
	}
	file := sess.Files[index]

	content, err := ctrl.blobs.Open(file.ContentRef)
	if err != nil {
		tool.DefaultLogger.Errorf("[Download] Failed to open blob %s for session %s: %v", file.ContentRef, sess.SessionId, err)
		c.JSON(http.StatusNotFound, tool.FastReturnError("Session not found or expired"))
		return
	}
	defer content.Close()

	tool.DefaultLogger.Infof("[Download] Serving %q (%d bytes) from session %s as %s", file.Name, file.Size, sess.SessionId, decision.Role)
	if ctrl.hub != nil {
		ctrl.hub.Broadcast(&types.Notification{
			Type:      types.NotifyFileDownloaded,
			SessionId: sess.SessionId,
			Data: map[string]any{
				"fileName": file.Name,
				"file":     index,
			},
		})
	}

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", file.Name))
	mimeType := file.MimeType
	if mimeType == "" || mimeType == tool.UnknownMimeType {
		mimeType = "application/octet-stream"
	}
	c.Header("Content-Type", mimeType)
	http.ServeContent(c.Writer, c.Request, file.Name, sess.CreatedAt, content)
}
