package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/pulseops/pulseops/backend/auth-core/internal/documents"
	"github.com/pulseops/pulseops/backend/auth-core/pkg/middleware"
)

// DocumentsHandler exposes the document-expiration collaborator surface.
// Per the core's contract it consumes only the authenticated subject id.
type DocumentsHandler struct {
	svc     *documents.Service
	repo    documents.Repository
	storage *documents.ObjectStorage // nil when object storage is not configured
}

func NewDocumentsHandler(svc *documents.Service, repo documents.Repository, storage *documents.ObjectStorage) *DocumentsHandler {
	return &DocumentsHandler{svc: svc, repo: repo, storage: storage}
}

// Register mounts the document routes behind the auth middleware.
func (h *DocumentsHandler) Register(rg *gin.RouterGroup, auth gin.HandlerFunc) {
	d := rg.Group("/documents", auth)
	d.GET("/status", h.Status)
	d.GET("/alerts", h.Alerts)
	d.POST("", h.Upload)
}

// Status returns the aggregate document health for the caller.
func (h *DocumentsHandler) Status(c *gin.Context) {
	sub := middleware.SubjectFromContext(c)
	if sub == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "no subject in token"})
		return
	}
	st, err := h.svc.Status(c.Request.Context(), sub)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "document status lookup failed"})
		return
	}
	c.JSON(http.StatusOK, st)
}

// Alerts returns the caller's active expiration alerts, most urgent first.
func (h *DocumentsHandler) Alerts(c *gin.Context) {
	sub := middleware.SubjectFromContext(c)
	if sub == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "no subject in token"})
		return
	}
	alerts, err := h.svc.Alerts(c.Request.Context(), sub)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "alert lookup failed"})
		return
	}
	if alerts == nil {
		alerts = []documents.ExpirationAlert{}
	}
	c.JSON(http.StatusOK, alerts)
}

// Upload accepts a multipart credentialing document, stores the content in
// object storage and records metadata.
func (h *DocumentsHandler) Upload(c *gin.Context) {
	sub := middleware.SubjectFromContext(c)
	if sub == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "no subject in token"})
		return
	}
	if h.storage == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "document storage not configured"})
		return
	}
	docType := c.PostForm("documentType")
	if docType == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "documentType is required"})
		return
	}
	file, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "file is required"})
		return
	}

	var expiration *time.Time
	if raw := c.PostForm("expirationDate"); raw != "" {
		t, err := time.Parse("2006-01-02", raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "expirationDate must be YYYY-MM-DD"})
			return
		}
		expiration = &t
	}

	src, err := file.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "cannot read upload"})
		return
	}
	defer src.Close()

	key := documents.Key(sub, docType, file.Filename)
	contentType := file.Header.Get("Content-Type")
	if err := h.storage.Upload(c.Request.Context(), key, src, file.Size, contentType); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "upload failed"})
		return
	}
	doc := &documents.Document{
		UserID:         sub,
		DocumentType:   docType,
		FileName:       file.Filename,
		ObjectKey:      key,
		ContentType:    contentType,
		ExpirationDate: expiration,
	}
	if err := h.repo.Insert(c.Request.Context(), doc); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "metadata insert failed"})
		return
	}
	c.JSON(http.StatusCreated, gin.H{"objectKey": key})
}
