package handlers

import (
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/veridoc/veridoc/internal/document"
	"github.com/veridoc/veridoc/internal/document/service"
)

// maxAttachmentBytes caps a single uploaded file.
const maxAttachmentBytes = 25 << 20

// DocumentHandler exposes the document-control engine over HTTP: lifecycle,
// approvals, versioning, promotion and attachments.
type DocumentHandler struct {
	svc *service.Service
}

func NewDocumentHandler(svc *service.Service) *DocumentHandler {
	return &DocumentHandler{svc: svc}
}

// Register routes under /documents (plus /lineages for number-keyed reads).
func (h *DocumentHandler) Register(rg *gin.RouterGroup) {
	g := rg.Group("/documents")
	g.POST("", h.Create)
	g.GET("/:id", h.Get)
	g.PATCH("/:id", h.UpdateDraft)
	g.DELETE("/:id", h.Delete)
	g.GET("/:id/audit", h.AuditTrail)

	g.POST("/:id/approvers", h.AddApprover)
	g.DELETE("/:id/approvers/:approverId", h.RemoveApprover)

	g.POST("/:id/submit", h.Submit)
	g.POST("/:id/withdraw", h.Withdraw)
	g.POST("/:id/decision", h.Decide)
	g.POST("/:id/release", h.Release)

	g.POST("/:id/versions", h.NewVersion)
	g.POST("/:id/promote", h.Promote)

	g.POST("/:id/attachments", h.Upload)
	g.GET("/:id/attachments/:filename/url", h.AttachmentURL)
	g.DELETE("/:id/attachments/:filename", h.RemoveAttachment)

	rg.GET("/lineages/:number", h.Lineage)
}

// Create opens a new prototype lineage at its first version.
func (h *DocumentHandler) Create(c *gin.Context) {
	actor, ok := actorFrom(c)
	if !ok {
		return
	}
	var req struct {
		TypeID      string `json:"typeId" binding:"required"`
		Title       string `json:"title" binding:"required"`
		Description string `json:"description"`
		ProjectCode string `json:"projectCode"`
		Production  bool   `json:"production"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	d, err := h.svc.Create(c.Request.Context(), actor, service.CreateInput{
		TypeID:      req.TypeID,
		Title:       req.Title,
		Description: req.Description,
		ProjectCode: req.ProjectCode,
		Production:  req.Production,
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, d)
}

// Get returns a document version together with its approver rows.
func (h *DocumentHandler) Get(c *gin.Context) {
	actor, ok := actorFrom(c)
	if !ok {
		return
	}
	d, approvers, err := h.svc.Get(c.Request.Context(), actor, c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"document": d, "approvers": approvers})
}

// Lineage returns every version row sharing a document number, oldest first.
func (h *DocumentHandler) Lineage(c *gin.Context) {
	actor, ok := actorFrom(c)
	if !ok {
		return
	}
	docs, err := h.svc.Lineage(c.Request.Context(), actor, c.Param("number"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, docs)
}

// AuditTrail returns the append-only audit log for one version.
func (h *DocumentHandler) AuditTrail(c *gin.Context) {
	actor, ok := actorFrom(c)
	if !ok {
		return
	}
	entries, err := h.svc.AuditTrail(c.Request.Context(), actor, c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, entries)
}

// UpdateDraft edits content fields while the document is still a draft.
func (h *DocumentHandler) UpdateDraft(c *gin.Context) {
	actor, ok := actorFrom(c)
	if !ok {
		return
	}
	var req struct {
		Title       *string `json:"title"`
		Description *string `json:"description"`
		ProjectCode *string `json:"projectCode"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	d, err := h.svc.UpdateDraft(c.Request.Context(), actor, c.Param("id"), service.UpdateInput{
		Title:       req.Title,
		Description: req.Description,
		ProjectCode: req.ProjectCode,
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, d)
}

// Delete removes a draft. Its allocated number is never reused.
func (h *DocumentHandler) Delete(c *gin.Context) {
	actor, ok := actorFrom(c)
	if !ok {
		return
	}
	if err := h.svc.Delete(c.Request.Context(), actor, c.Param("id")); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *DocumentHandler) AddApprover(c *gin.Context) {
	actor, ok := actorFrom(c)
	if !ok {
		return
	}
	var req struct {
		UserID    string `json:"userId" binding:"required"`
		UserEmail string `json:"userEmail"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	a, err := h.svc.AddApprover(c.Request.Context(), actor, c.Param("id"), req.UserID, req.UserEmail)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, a)
}

func (h *DocumentHandler) RemoveApprover(c *gin.Context) {
	actor, ok := actorFrom(c)
	if !ok {
		return
	}
	if err := h.svc.RemoveApprover(c.Request.Context(), actor, c.Param("id"), c.Param("approverId")); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// Submit moves a draft into approval and resets every approver to pending.
func (h *DocumentHandler) Submit(c *gin.Context) {
	actor, ok := actorFrom(c)
	if !ok {
		return
	}
	if err := h.svc.Submit(c.Request.Context(), actor, c.Param("id")); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"id": c.Param("id"), "status": document.StatusInApproval})
}

// Withdraw pulls a document out of approval back to draft. Decisions already
// cast keep their audit entries; live approver rows are untouched until the
// next submit.
func (h *DocumentHandler) Withdraw(c *gin.Context) {
	actor, ok := actorFrom(c)
	if !ok {
		return
	}
	if err := h.svc.Withdraw(c.Request.Context(), actor, c.Param("id")); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"id": c.Param("id"), "status": document.StatusDraft})
}

// Decide records one approver's verdict. A unanimous approval releases the
// document in the same request.
func (h *DocumentHandler) Decide(c *gin.Context) {
	actor, ok := actorFrom(c)
	if !ok {
		return
	}
	var req struct {
		ApproverID string `json:"approverId" binding:"required"`
		Decision   string `json:"decision" binding:"required"`
		Comments   string `json:"comments"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	dec := document.Decision(req.Decision)
	if dec != document.DecisionApproved && dec != document.DecisionRejected {
		c.JSON(http.StatusBadRequest, gin.H{"error": "decision must be approved or rejected"})
		return
	}
	allApproved, err := h.svc.RecordDecision(c.Request.Context(), actor, c.Param("id"), req.ApproverID, dec, req.Comments)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"id": c.Param("id"), "decision": dec, "released": allApproved})
}

// Release performs a direct release from draft, optionally bypassing an
// assigned approval round (prototypes only).
func (h *DocumentHandler) Release(c *gin.Context) {
	actor, ok := actorFrom(c)
	if !ok {
		return
	}
	var req struct {
		BypassApproval bool `json:"bypassApproval"`
	}
	// body optional
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
	}
	d, err := h.svc.ReleaseDirect(c.Request.Context(), actor, c.Param("id"), req.BypassApproval)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, d)
}

// NewVersion opens the next version of a released document as a fresh draft.
func (h *DocumentHandler) NewVersion(c *gin.Context) {
	actor, ok := actorFrom(c)
	if !ok {
		return
	}
	d, err := h.svc.NewVersion(c.Request.Context(), actor, c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, d)
}

// Promote creates a production lineage from a released prototype.
func (h *DocumentHandler) Promote(c *gin.Context) {
	actor, ok := actorFrom(c)
	if !ok {
		return
	}
	d, err := h.svc.Promote(c.Request.Context(), actor, c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, d)
}

// Upload stores one multipart file ("file" field) against a draft version.
func (h *DocumentHandler) Upload(c *gin.Context) {
	actor, ok := actorFrom(c)
	if !ok {
		return
	}
	fh, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "multipart field 'file' required"})
		return
	}
	if fh.Size > maxAttachmentBytes {
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "file too large"})
		return
	}
	f, err := fh.Open()
	if err != nil {
		writeError(c, err)
		return
	}
	defer f.Close()
	data, err := io.ReadAll(io.LimitReader(f, maxAttachmentBytes+1))
	if err != nil {
		writeError(c, err)
		return
	}
	if len(data) > maxAttachmentBytes {
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "file too large"})
		return
	}
	contentType := fh.Header.Get("Content-Type")
	key, err := h.svc.Attach(c.Request.Context(), actor, c.Param("id"), fh.Filename, contentType, data)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"filename": fh.Filename, "key": key, "size": len(data)})
}

// AttachmentURL returns a short-lived presigned download URL.
func (h *DocumentHandler) AttachmentURL(c *gin.Context) {
	actor, ok := actorFrom(c)
	if !ok {
		return
	}
	url, err := h.svc.AttachmentURL(c.Request.Context(), actor, c.Param("id"), c.Param("filename"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"url": url})
}

func (h *DocumentHandler) RemoveAttachment(c *gin.Context) {
	actor, ok := actorFrom(c)
	if !ok {
		return
	}
	if err := h.svc.RemoveAttachment(c.Request.Context(), actor, c.Param("id"), c.Param("filename")); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
