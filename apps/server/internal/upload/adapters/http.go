package adapters

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/kessler/gitstow/apps/server/internal/upload"
	"github.com/kessler/gitstow/pkg/api"
)

// Handler translates HTTP requests into calls on the upload.Service.
type Handler struct {
	svc   *upload.Service
	creds upload.CredentialStore
	hub   *Hub
	log   *slog.Logger
}

// RegisterRoutes mounts the gitstow API onto the given Gin engine.
func RegisterRoutes(r *gin.Engine, svc *upload.Service, creds upload.CredentialStore, hub *Hub, log *slog.Logger) {
	h := &Handler{svc: svc, creds: creds, hub: hub, log: log}

	r.GET("/health", h.Health)

	// Batch lifecycle + observer reattachment
	r.POST("/batches", h.RunBatch)
	r.GET("/session", h.Session)
	r.DELETE("/session", h.ClearSession)
	r.GET("/progress", h.Progress)

	// Credential slot (login / logout)
	r.PUT("/credential", h.SetCredential)
	r.DELETE("/credential", h.ClearCredential)
}

// Health handles GET /health.
func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// RunBatch handles POST /batches — runs the whole batch and responds with
// the final report. The call blocks until the file list is exhausted;
// observers that want live progress attach to GET /progress or poll
// GET /session.
func (h *Handler) RunBatch(c *gin.Context) {
	var req api.BatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	// The batch must survive the initiating client disconnecting: once
	// started it runs the file list to completion and keeps persisting
	// snapshots, so a reattaching observer sees authoritative state.
	ctx := context.WithoutCancel(c.Request.Context())
	report, err := h.svc.Run(ctx, req)
	if err != nil {
		var active upload.BatchActiveError
		var invalid upload.InvalidBatchError
		switch {
		case errors.As(err, &active):
			c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		case errors.As(err, &invalid):
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		default:
			h.log.Error("batch failed to run", "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		}
		return
	}

	c.JSON(http.StatusOK, report)
}

// Session handles GET /session — returns the persisted snapshot so a
// reattaching observer can rebuild its progress view.
func (h *Handler) Session(c *gin.Context) {
	snap, err := h.svc.Session(c.Request.Context())
	if err != nil {
		h.log.Error("failed to load session", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if snap == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "no session"})
		return
	}
	c.JSON(http.StatusOK, snap)
}

// ClearSession handles DELETE /session.
func (h *Handler) ClearSession(c *gin.Context) {
	if err := h.svc.ClearSession(c.Request.Context()); err != nil {
		h.log.Error("failed to clear session", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.Status(http.StatusNoContent)
}

// Progress handles GET /progress — streams per-file progress events over
// SSE until the client disconnects.
func (h *Handler) Progress(c *gin.Context) {
	events, cancel := h.hub.Subscribe()
	defer cancel()

	c.Writer.Header().Set("Content-Type", "text/event-stream")
	c.Writer.Header().Set("Cache-Control", "no-cache")
	c.Writer.Header().Set("Connection", "keep-alive")

	c.Stream(func(io.Writer) bool {
		select {
		case ev, ok := <-events:
			if !ok {
				return false
			}
			c.SSEvent("progress", ev)
			return true
		case <-c.Request.Context().Done():
			return false
		}
	})
}

// SetCredential handles PUT /credential — stores the bearer token used for
// GitHub calls. The token is opaque here; only GitHub validates it.
func (h *Handler) SetCredential(c *gin.Context) {
	var req api.CredentialRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := h.creds.Set(c.Request.Context(), req.Token); err != nil {
		h.log.Error("failed to store credential", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.Status(http.StatusNoContent)
}

// ClearCredential handles DELETE /credential — logout.
func (h *Handler) ClearCredential(c *gin.Context) {
	if err := h.creds.Clear(c.Request.Context()); err != nil {
		h.log.Error("failed to clear credential", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.Status(http.StatusNoContent)
}
