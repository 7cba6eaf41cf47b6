package api

import (
	"database/sql"
	"errors"
	"log"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"casedesk/internal/apperr"
	"casedesk/internal/artifacts"
	"casedesk/internal/auth"
	"casedesk/internal/dispatch"
	"casedesk/internal/models"
	"casedesk/internal/storage"
)

const (
	defaultListLimit = 20
	maxListLimit     = 100
	maxUploadBytes   = 50 << 20 // 50 MiB
)

var allowedContentTypes = []string{
	"text/plain",
	"text/markdown",
	"text/csv",
	"application/pdf",
	"application/json",
	"application/msword",
	"application/vnd.openxmlformats-officedocument.wordprocessingml.document",
	"image/",
}

func isAllowedContentType(ct string) bool {
	for _, allowed := range allowedContentTypes {
		if strings.HasPrefix(ct, allowed) {
			return true
		}
	}
	return false
}

// Handler wires HTTP routes to the job pipeline and upload registry.
type Handler struct {
	auth       *auth.Service
	dispatcher *dispatch.Dispatcher
	jobs       *storage.JobStore
	files      *storage.FileStore
	gateway    *artifacts.Gateway
	signer     artifacts.URLSigner
	cache      *storage.JobCache
	bucket     string
}

// NewHandler constructs a Handler instance.
func NewHandler(authSvc *auth.Service, dispatcher *dispatch.Dispatcher, jobs *storage.JobStore,
	files *storage.FileStore, gateway *artifacts.Gateway, signer artifacts.URLSigner,
	cache *storage.JobCache, bucket string) *Handler {
	return &Handler{
		auth:       authSvc,
		dispatcher: dispatcher,
		jobs:       jobs,
		files:      files,
		gateway:    gateway,
		signer:     signer,
		cache:      cache,
		bucket:     bucket,
	}
}

// RegisterRoutes attaches all HTTP routes to the router. Every team-scoped
// route sits behind the identity middleware; only the auth strategy's own
// endpoints are reachable anonymously.
func (h *Handler) RegisterRoutes(router *gin.Engine) {
	api := router.Group("/api")
	h.auth.Mount(api.Group("/auth"))

	team := api.Group("")
	team.Use(h.auth.Require())
	team.GET("/me", h.me)
	team.POST("/jobs", h.submitJob)
	team.GET("/jobs", h.listJobs)
	team.GET("/jobs/:job_id", h.getJob)
	team.GET("/jobs/:job_id/artifact-url", h.artifactURL)
	team.POST("/uploads", h.registerUpload)
	team.POST("/uploads/:file_id/complete", h.completeUpload)
	team.POST("/uploads/:file_id/fail", h.failUpload)
}

func (h *Handler) workspace(c *gin.Context) (*models.WorkspaceContext, bool) {
	ws, ok := auth.WorkspaceFromContext(c)
	if !ok || ws == nil {
		respondError(c, apperr.Unauthorized())
		return nil, false
	}
	return ws, true
}

func respondError(c *gin.Context, err error) {
	var ae *apperr.Error
	if errors.As(err, &ae) {
		c.JSON(ae.Status, gin.H{"error": ae.Message, "code": ae.Code})
		return
	}
	log.Printf("unhandled error on %s %s: %v", c.Request.Method, c.Request.URL.Path, err)
	c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error", "code": apperr.CodeInternal})
}

func (h *Handler) me(c *gin.Context) {
	ws, ok := h.workspace(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, gin.H{"team_id": ws.TeamID, "member_name": ws.MemberName})
}

func (h *Handler) submitJob(c *gin.Context) {
	ws, ok := h.workspace(c)
	if !ok {
		return
	}
	var req dispatch.SubmitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, apperr.BadRequest("invalid request body"))
		return
	}
	job, err := h.dispatcher.Submit(c.Request.Context(), ws, req)
	if err != nil {
		respondError(c, err)
		return
	}
	// The id is fresh, but a stale entry under it must never be served.
	h.cache.Invalidate(c.Request.Context(), ws.TeamID, job.JobID)
	c.JSON(http.StatusCreated, gin.H{"job_id": job.JobID})
}

func (h *Handler) getJob(c *gin.Context) {
	ws, ok := h.workspace(c)
	if !ok {
		return
	}
	jobID := c.Param("job_id")
	ctx := c.Request.Context()
	if job, hit := h.cache.Load(ctx, ws.TeamID, jobID); hit {
		c.JSON(http.StatusOK, gin.H{"job": job})
		return
	}
	job, err := h.jobs.Get(ctx, ws.TeamID, jobID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			respondError(c, apperr.NotFound("job %s not found", jobID))
			return
		}
		respondError(c, err)
		return
	}
	h.cache.Store(ctx, job)
	c.JSON(http.StatusOK, gin.H{"job": job})
}

func (h *Handler) listJobs(c *gin.Context) {
	ws, ok := h.workspace(c)
	if !ok {
		return
	}
	limit := defaultListLimit
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			respondError(c, apperr.BadRequest("invalid limit"))
			return
		}
		limit = parsed
	}
	if limit > maxListLimit {
		limit = maxListLimit
	}
	jobs, err := h.jobs.ListRecent(c.Request.Context(), ws.TeamID, limit)
	if err != nil {
		respondError(c, err)
		return
	}
	if jobs == nil {
		jobs = make([]*models.Job, 0)
	}
	c.JSON(http.StatusOK, gin.H{"jobs": jobs})
}

func (h *Handler) artifactURL(c *gin.Context) {
	ws, ok := h.workspace(c)
	if !ok {
		return
	}
	jobID := c.Param("job_id")
	artifactID := c.Query("artifact_id")
	if artifactID == "" {
		respondError(c, apperr.BadRequest("artifact_id is required"))
		return
	}
	url, err := h.gateway.ArtifactURL(c.Request.Context(), ws, jobID, artifactID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"url": url})
}

type registerUploadRequest struct {
	FileName    string `json:"file_name"`
	ContentType string `json:"content_type"`
	Size        int64  `json:"size"`
}

func (h *Handler) registerUpload(c *gin.Context) {
	ws, ok := h.workspace(c)
	if !ok {
		return
	}
	var req registerUploadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, apperr.BadRequest("invalid request body"))
		return
	}
	fileName := filepath.Base(strings.TrimSpace(req.FileName))
	if fileName == "" || fileName == "." || fileName == string(filepath.Separator) {
		respondError(c, apperr.BadRequest("file_name is required"))
		return
	}
	if req.Size <= 0 || req.Size > maxUploadBytes {
		respondError(c, apperr.BadRequest("size must be between 1 and %d bytes", maxUploadBytes))
		return
	}
	if !isAllowedContentType(req.ContentType) {
		respondError(c, apperr.BadRequest("unsupported content type %q", req.ContentType))
		return
	}
	if h.bucket == "" {
		respondError(c, apperr.MissingAWSConfig("s3_bucket"))
		return
	}

	ctx := c.Request.Context()
	fileID := uuid.NewString()
	objectKey := "uploads/" + ws.TeamID + "/" + fileID + "/" + fileName
	file := &models.UploadFile{
		FileID:      fileID,
		TeamID:      ws.TeamID,
		FileName:    fileName,
		ContentType: req.ContentType,
		Size:        req.Size,
		Status:      models.FileStatusPending,
		Bucket:      h.bucket,
		ObjectKey:   objectKey,
		CreatedAt:   time.Now().UTC(),
	}
	if err := h.files.Create(ctx, file); err != nil {
		respondError(c, apperr.Internal(err))
		return
	}
	uploadURL, err := h.signer.PresignPut(ctx, h.bucket, objectKey, req.ContentType)
	if err != nil {
		respondError(c, apperr.Internal(err))
		return
	}
	c.JSON(http.StatusCreated, gin.H{
		"file_id":    fileID,
		"upload_url": uploadURL,
		"expires_in": int(artifacts.URLTTL.Seconds()),
	})
}

func (h *Handler) completeUpload(c *gin.Context) {
	h.setUploadStatus(c, models.FileStatusUploaded)
}

func (h *Handler) failUpload(c *gin.Context) {
	h.setUploadStatus(c, models.FileStatusFailed)
}

func (h *Handler) setUploadStatus(c *gin.Context, status string) {
	ws, ok := h.workspace(c)
	if !ok {
		return
	}
	fileID := c.Param("file_id")
	if err := h.files.SetStatus(c.Request.Context(), ws.TeamID, fileID, status); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			respondError(c, apperr.FileNotFound(fileID))
			return
		}
		respondError(c, apperr.Internal(err))
		return
	}
	c.Status(http.StatusNoContent)
}
