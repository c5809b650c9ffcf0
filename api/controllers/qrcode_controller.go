package controllers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/skip2/go-qrcode"

	"github.com/shareflow/shareflow-go/session"
	"github.com/shareflow/shareflow-go/tool"
)

const (
	defaultQRSize = 200
	maxQRSize     = 512
)

// QRCodeController renders share links as scannable PNG QR codes.
type QRCodeController struct {
	mediator *session.Mediator
	baseURL  string
}

// NewQRCodeController wires the controller to its collaborators.
func NewQRCodeController(mediator *session.Mediator, baseURL string) *QRCodeController {
	return &QRCodeController{mediator: mediator, baseURL: baseURL}
}

// HandleCreateQRCode returns a PNG QR code of the session's download
// link. Either token works; the encoded link always carries the public
// token so scanning it never leaks owner privileges.
// GET /api/shareflow/v1/create-qr-code?token=xxx&size=200x200
func (ctrl *QRCodeController) HandleCreateQRCode(c *gin.Context) {
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

	downloadUrl, err := tool.BuildDownloadURL(ctrl.baseURL, decision.Session.SessionId, decision.Session.PublicToken)
	if err != nil {
		c.JSON(http.StatusInternalServerError, tool.FastReturnError("Failed to build download URL: "+err.Error()))
		return
	}

	size := parseSize(c.Query("size"))
	if size <= 0 {
		size = defaultQRSize
	}
	if size > maxQRSize {
		size = maxQRSize
	}

	png, err := qrcode.Encode(downloadUrl, qrcode.Medium, size)
	if err != nil {
		c.JSON(http.StatusInternalServerError, tool.FastReturnError("Failed to encode QR code: "+err.Error()))
		return
	}

	c.Data(http.StatusOK, "image/png", png)
}

// parseSize parses size from "200x200" or "200" and returns the pixel dimension.
func parseSize(s string) int {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0
	}
	if idx := strings.Index(s, "x"); idx > 0 {
		s = strings.TrimSpace(s[:idx])
	}
	n, err := strconv.Atoi(s)
	if err != nil || n <= 0 {
		return 0
	}
	return n
}
