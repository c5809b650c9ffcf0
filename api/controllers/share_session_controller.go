package controllers

import (
	"fmt"
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/shareflow/shareflow-go/api/notifyhub"
	"github.com/shareflow/shareflow-go/blob"
	"github.com/shareflow/shareflow-go/session"
	"github.com/shareflow/shareflow-go/tool"
	"github.com/shareflow/shareflow-go/types"
)

// ShareController handles session creation and owner cancellation.
type ShareController struct {
	store    *session.Store
	mediator *session.Mediator
	blobs    blob.Store
	hub      *notifyhub.Hub
	baseURL  string
	maxBytes int64
}

// NewShareController wires the controller to its collaborators.
func NewShareController(store *session.Store, mediator *session.Mediator, blobs blob.Store, hub *notifyhub.Hub, baseURL string, maxBytes int64) *ShareController {
	return &ShareController{
		store:    store,
		mediator: mediator,
		blobs:    blobs,
		hub:      hub,
		baseURL:  baseURL,
		maxBytes: maxBytes,
	}
}

// HandleCreateShareSession creates a share session.
// POST /api/shareflow/v1/create-share-session
// Supports multipart/form-data (file parts under the "files" field, in
// display order) or application/json (manifest with pre-staged
// contentRefs).
func (ctrl *ShareController) HandleCreateShareSession(c *gin.Context) {
	contentType := c.GetHeader("Content-Type")
	if strings.HasPrefix(contentType, "multipart/form-data") {
		ctrl.handleCreateMultipart(c)
		return
	}

	var request types.CreateShareSessionRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		c.JSON(http.StatusBadRequest, tool.FastReturnError("Invalid request body: "+err.Error()))
		return
	}
	if len(request.Files) == 0 {
		c.JSON(http.StatusBadRequest, tool.FastReturnError("files is required and must not be empty"))
		return
	}

	records := make([]types.FileRecord, 0, len(request.Files))
	for _, entry := range request.Files {
		if entry.ContentRef == "" {
			c.JSON(http.StatusBadRequest, tool.FastReturnError(fmt.Sprintf("contentRef is required for %q", entry.Name)))
			return
		}
		// never accept a manifest we cannot later resolve to bytes
		rc, err := ctrl.blobs.Open(entry.ContentRef)
		if err != nil {
			c.JSON(http.StatusBadRequest, tool.FastReturnError(fmt.Sprintf("contentRef for %q does not resolve", entry.Name)))
			return
		}
		_ = rc.Close()
		if entry.Size < 0 {
			c.JSON(http.StatusBadRequest, tool.FastReturnError(fmt.Sprintf("negative size for %q", entry.Name)))
			return
		}
		records = append(records, types.FileRecord{
			Name:        entry.Name,
			Size:        entry.Size,
			MimeType:    tool.DetectMimeType(entry.MimeType, entry.Name),
			ContentRef:  entry.ContentRef,
			Fingerprint: entry.Fingerprint,
		})
	}

	ctrl.finishCreate(c, records)
}

func (ctrl *ShareController) handleCreateMultipart(c *gin.Context) {
	if ctrl.maxBytes > 0 {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, ctrl.maxBytes)
	}
	form, err := c.MultipartForm()
	if err != nil {
		c.JSON(http.StatusBadRequest, tool.FastReturnError("Invalid multipart form: "+err.Error()))
		return
	}

	headers := form.File["files"]
	if len(headers) == 0 {
		c.JSON(http.StatusBadRequest, tool.FastReturnError("files is required and must not be empty"))
		return
	}

	records := make([]types.FileRecord, 0, len(headers))
	for _, header := range headers {
		record, err := ctrl.stageUpload(header)
		if err != nil {
			// roll back blobs staged so far; no session exists yet
			for _, r := range records {
				_ = ctrl.blobs.Release(r.ContentRef)
			}
			c.JSON(http.StatusInternalServerError, tool.FastReturnError("Failed to store file: "+err.Error()))
			return
		}
		records = append(records, record)
	}

	ctrl.finishCreate(c, records)
}

func (ctrl *ShareController) stageUpload(header *multipart.FileHeader) (types.FileRecord, error) {
	src, err := header.Open()
	if err != nil {
		return types.FileRecord{}, err
	}
	defer src.Close()

	ref, fingerprint, size, err := ctrl.blobs.Put(src)
	if err != nil {
		return types.FileRecord{}, err
	}
	return types.FileRecord{
		Name:        header.Filename,
		Size:        size,
		MimeType:    tool.DetectMimeType(header.Header.Get("Content-Type"), header.Filename),
		ContentRef:  ref,
		Fingerprint: fingerprint,
	}, nil
}

func (ctrl *ShareController) finishCreate(c *gin.Context, records []types.FileRecord) {
	creator := types.CreatorContext{
		RemoteAddr: c.ClientIP(),
		UserAgent:  c.Request.UserAgent(),
	}
	sess, err := ctrl.store.Create(records, creator)
	if err != nil {
		c.JSON(http.StatusBadRequest, tool.FastReturnError(err.Error()))
		return
	}

	downloadUrl, err := tool.BuildDownloadURL(ctrl.baseURL, sess.SessionId, sess.PublicToken)
	if err != nil {
		c.JSON(http.StatusInternalServerError, tool.FastReturnError("Failed to build download URL: "+err.Error()))
		return
	}

	tool.DefaultLogger.Infof("[Share] Created session %s with %d files, expires %s", sess.SessionId, len(sess.Files), sess.ExpiresAt.Format("2006-01-02 15:04:05"))
	c.JSON(http.StatusOK, tool.FastReturnSuccessWithData(types.CreateShareSessionResponse{
		SessionId:   sess.SessionId,
		OwnerToken:  sess.OwnerToken,
		PublicToken: sess.PublicToken,
		DownloadUrl: downloadUrl,
		ExpiresAt:   sess.ExpiresAt,
	}))
}

// HandleCancelShareSession cancels a session early. Owner only.
// DELETE /api/shareflow/v1/cancel?token=xxx
func (ctrl *ShareController) HandleCancelShareSession(c *gin.Context) {
	token := strings.TrimSpace(c.Query("token"))
	if token == "" {
		c.JSON(http.StatusBadRequest, tool.FastReturnError("Missing required parameter: token"))
		return
	}

	decision := ctrl.mediator.Authorize(token, session.OpCancel)
	if !decision.Allowed {
		writeDenial(c, decision)
		return
	}

	sessionId := decision.Session.SessionId
	switch err := ctrl.store.Cancel(sessionId); err {
	case nil:
		tool.DefaultLogger.Infof("[Share] Session cancelled by owner: %s", sessionId)
		if ctrl.hub != nil {
			ctrl.hub.Broadcast(&types.Notification{
				Type:      types.NotifySessionCancelled,
				SessionId: sessionId,
			})
		}
		c.JSON(http.StatusOK, tool.FastReturnSuccess())
	case session.ErrAlreadyTerminal:
		// lost the race to the sweeper between authorize and cancel;
		// the owner may see the real state
		c.JSON(http.StatusConflict, tool.FastReturnErrorWithData("Session already ended", map[string]any{
			"state": currentState(ctrl.store, sessionId),
		}))
	default:
		c.JSON(http.StatusNotFound, tool.FastReturnError("Session not found or expired"))
	}
}

func currentState(store *session.Store, sessionId string) types.SessionState {
	sess, err := store.Get(sessionId)
	if err != nil {
		return ""
	}
	return sess.State
}

// writeDenial maps a mediator denial to an HTTP response. Recipients
// get the blurred message; owners additionally see the terminal state.
func writeDenial(c *gin.Context, decision session.Decision) {
	switch decision.Reason {
	case session.DenyInsufficientRole:
		c.JSON(http.StatusForbidden, tool.FastReturnError(decision.Message()))
	case session.DenySessionTerminal:
		if decision.TerminalState != "" {
			c.JSON(http.StatusGone, tool.FastReturnErrorWithData(decision.Message(), map[string]any{
				"state": decision.TerminalState,
			}))
			return
		}
		c.JSON(http.StatusNotFound, tool.FastReturnError(decision.Message()))
	default:
		c.JSON(http.StatusNotFound, tool.FastReturnError(decision.Message()))
	}
}
