package handlers

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/MacJediWizard/learning-credentials/internal/credentials"
	"github.com/MacJediWizard/learning-credentials/internal/models"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// AdminService is the subset of the credentials service used by the staff
// endpoints.
type AdminService interface {
	ListConfigurations(ctx context.Context) ([]*models.CredentialConfiguration, error)
	SetConfigurationEnabled(ctx context.Context, id int64, enabled bool) (*models.CredentialConfiguration, error)
	EnqueueConfigurationGeneration(ctx context.Context, configurationID int64) (*models.Job, error)
	EnqueueUserGeneration(ctx context.Context, configurationID, userID int64) (*models.Job, error)
	EnqueueAllGeneration(ctx context.Context) (*models.Job, error)
	GetCredential(ctx context.Context, id uuid.UUID) (*models.Credential, error)
	InvalidateCredential(ctx context.Context, id uuid.UUID, reason string) (*models.Credential, error)
	Reissue(ctx context.Context, c *models.Credential, reason string) (*models.Credential, error)
	SaveAsset(ctx context.Context, a *models.CredentialAsset, filename string, body io.Reader) error
}

// JobSummarizer reports job queue statistics.
type JobSummarizer interface {
	Summary(ctx context.Context) (*models.JobQueueSummary, error)
}

// GenerateRequest optionally limits a configuration run to one user.
type GenerateRequest struct {
	UserID int64 `json:"user_id,omitempty"`
}

// ReasonRequest carries an invalidation reason.
type ReasonRequest struct {
	Reason string `json:"reason"`
}

// JobAcceptedResponse is returned when a job has been enqueued.
type JobAcceptedResponse struct {
	JobID   string `json:"job_id"`
	JobType string `json:"job_type"`
	Status  string `json:"status"`
}

// AdminHandler serves the staff-only management endpoints.
type AdminHandler struct {
	service AdminService
	jobs    JobSummarizer
	logger  zerolog.Logger
}

// NewAdminHandler creates a new AdminHandler.
func NewAdminHandler(service AdminService, jobs JobSummarizer, logger zerolog.Logger) *AdminHandler {
	return &AdminHandler{
		service: service,
		jobs:    jobs,
		logger:  logger.With().Str("component", "admin_handler").Logger(),
	}
}

// RegisterRoutes registers admin routes. The group must already enforce staff access.
func (h *AdminHandler) RegisterRoutes(r *gin.RouterGroup) {
	admin := r.Group("/admin")
	{
		admin.GET("/configurations/", h.ListConfigurations)
		admin.POST("/configurations/:id/enable/", h.EnableConfiguration)
		admin.POST("/configurations/:id/disable/", h.DisableConfiguration)
		admin.POST("/configurations/:id/generate/", h.GenerateConfiguration)
		admin.POST("/generate/", h.GenerateAll)
		admin.POST("/credentials/:uuid/invalidate/", h.InvalidateCredential)
		admin.POST("/credentials/:uuid/reissue/", h.ReissueCredential)
		admin.POST("/assets/", h.UploadAsset)
		admin.GET("/jobs/summary/", h.JobSummary)
	}
}

func jobAccepted(job *models.Job) JobAcceptedResponse {
	return JobAcceptedResponse{
		JobID:   job.ID.String(),
		JobType: string(job.JobType),
		Status:  string(job.Status),
	}
}

func (h *AdminHandler) configurationID(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		detail(c, http.StatusBadRequest, "Invalid configuration ID.")
		return 0, false
	}
	return id, true
}

func (h *AdminHandler) credentialUUID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("uuid"))
	if err != nil {
		detail(c, http.StatusBadRequest, "Invalid credential ID.")
		return uuid.Nil, false
	}
	return id, true
}

// ListConfigurations returns every credential configuration.
//
//	@Summary		List configurations
//	@Description	Lists every credential configuration with its credential type.
//	@Tags			Admin
//	@Produce		json
//	@Success		200	{array}		models.CredentialConfiguration
//	@Failure		403	{object}	map[string]string
//	@Router			/learning_credentials/v1/admin/configurations/ [get]
func (h *AdminHandler) ListConfigurations(c *gin.Context) {
	configs, err := h.service.ListConfigurations(c.Request.Context())
	if err != nil {
		h.logger.Error().Err(err).Msg("failed to list configurations")
		detail(c, http.StatusInternalServerError, "Failed to list credential configurations.")
		return
	}
	if configs == nil {
		configs = []*models.CredentialConfiguration{}
	}
	c.JSON(http.StatusOK, configs)
}

// EnableConfiguration enables a configuration and its periodic task.
//
//	@Summary		Enable configuration
//	@Tags			Admin
//	@Produce		json
//	@Param			id	path		int	true	"Configuration ID"
//	@Success		200	{object}	models.CredentialConfiguration
//	@Failure		404	{object}	map[string]string
//	@Router			/learning_credentials/v1/admin/configurations/{id}/enable/ [post]
func (h *AdminHandler) EnableConfiguration(c *gin.Context) {
	h.setEnabled(c, true)
}

// DisableConfiguration disables a configuration and its periodic task.
//
//	@Summary		Disable configuration
//	@Tags			Admin
//	@Produce		json
//	@Param			id	path		int	true	"Configuration ID"
//	@Success		200	{object}	models.CredentialConfiguration
//	@Failure		404	{object}	map[string]string
//	@Router			/learning_credentials/v1/admin/configurations/{id}/disable/ [post]
func (h *AdminHandler) DisableConfiguration(c *gin.Context) {
	h.setEnabled(c, false)
}

func (h *AdminHandler) setEnabled(c *gin.Context, enabled bool) {
	id, ok := h.configurationID(c)
	if !ok {
		return
	}
	cfg, err := h.service.SetConfigurationEnabled(c.Request.Context(), id, enabled)
	if err != nil {
		if errors.Is(err, credentials.ErrNotFound) {
			detail(c, http.StatusNotFound, "Credential configuration not found.")
			return
		}
		h.logger.Error().Err(err).Int64("configuration_id", id).Msg("failed to update configuration")
		detail(c, http.StatusInternalServerError, "Failed to update credential configuration.")
		return
	}

	h.logger.Info().Int64("configuration_id", id).Bool("enabled", enabled).Msg("configuration toggled")
	c.JSON(http.StatusOK, cfg)
}

// GenerateConfiguration enqueues generation for a configuration, or for one
// user of it when user_id is given.
//
//	@Summary		Generate credentials for a configuration
//	@Tags			Admin
//	@Accept			json
//	@Produce		json
//	@Param			id		path		int				true	"Configuration ID"
//	@Param			request	body		GenerateRequest	false	"Optional user"
//	@Success		202		{object}	JobAcceptedResponse
//	@Failure		400		{object}	map[string]string
//	@Router			/learning_credentials/v1/admin/configurations/{id}/generate/ [post]
func (h *AdminHandler) GenerateConfiguration(c *gin.Context) {
	id, ok := h.configurationID(c)
	if !ok {
		return
	}

	var req GenerateRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			detail(c, http.StatusBadRequest, "Invalid request body.")
			return
		}
	}

	var (
		job *models.Job
		err error
	)
	if req.UserID != 0 {
		job, err = h.service.EnqueueUserGeneration(c.Request.Context(), id, req.UserID)
	} else {
		job, err = h.service.EnqueueConfigurationGeneration(c.Request.Context(), id)
	}
	if err != nil {
		h.logger.Error().Err(err).Int64("configuration_id", id).Msg("failed to enqueue generation")
		detail(c, http.StatusInternalServerError, "Failed to enqueue credential generation.")
		return
	}
	c.JSON(http.StatusAccepted, jobAccepted(job))
}

// GenerateAll enqueues generation for every enabled configuration.
//
//	@Summary		Generate all credentials
//	@Tags			Admin
//	@Produce		json
//	@Success		202	{object}	JobAcceptedResponse
//	@Router			/learning_credentials/v1/admin/generate/ [post]
func (h *AdminHandler) GenerateAll(c *gin.Context) {
	job, err := h.service.EnqueueAllGeneration(c.Request.Context())
	if err != nil {
		h.logger.Error().Err(err).Msg("failed to enqueue generation")
		detail(c, http.StatusInternalServerError, "Failed to enqueue credential generation.")
		return
	}
	c.JSON(http.StatusAccepted, jobAccepted(job))
}

// InvalidateCredential marks a credential invalidated with a reason.
//
//	@Summary		Invalidate credential
//	@Tags			Admin
//	@Accept			json
//	@Produce		json
//	@Param			uuid	path		string			true	"Credential UUID"
//	@Param			request	body		ReasonRequest	true	"Invalidation reason"
//	@Success		200		{object}	models.Credential
//	@Failure		400		{object}	map[string]string
//	@Failure		404		{object}	map[string]string
//	@Failure		409		{object}	map[string]string
//	@Router			/learning_credentials/v1/admin/credentials/{uuid}/invalidate/ [post]
func (h *AdminHandler) InvalidateCredential(c *gin.Context) {
	id, ok := h.credentialUUID(c)
	if !ok {
		return
	}
	var req ReasonRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Reason == "" {
		detail(c, http.StatusBadRequest, "An invalidation reason is required.")
		return
	}

	cred, err := h.service.InvalidateCredential(c.Request.Context(), id, req.Reason)
	if err != nil {
		if errors.Is(err, credentials.ErrNotFound) {
			detail(c, http.StatusNotFound, "Credential not found.")
			return
		}
		if errors.Is(err, credentials.ErrCredentialGenerating) {
			detail(c, http.StatusConflict, "Credential is still generating.")
			return
		}
		h.logger.Error().Err(err).Str("credential_uuid", id.String()).Msg("failed to invalidate credential")
		detail(c, http.StatusInternalServerError, "Failed to invalidate credential.")
		return
	}
	c.JSON(http.StatusOK, cred)
}

// ReissueCredential invalidates a credential and generates a replacement.
//
//	@Summary		Reissue credential
//	@Tags			Admin
//	@Accept			json
//	@Produce		json
//	@Param			uuid	path		string			true	"Credential UUID"
//	@Param			request	body		ReasonRequest	false	"Invalidation reason"
//	@Success		201		{object}	models.Credential
//	@Failure		404		{object}	map[string]string
//	@Failure		409		{object}	map[string]string
//	@Router			/learning_credentials/v1/admin/credentials/{uuid}/reissue/ [post]
func (h *AdminHandler) ReissueCredential(c *gin.Context) {
	id, ok := h.credentialUUID(c)
	if !ok {
		return
	}
	var req ReasonRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			detail(c, http.StatusBadRequest, "Invalid request body.")
			return
		}
	}

	ctx := c.Request.Context()
	cred, err := h.service.GetCredential(ctx, id)
	if err != nil {
		if errors.Is(err, credentials.ErrNotFound) {
			detail(c, http.StatusNotFound, "Credential not found.")
			return
		}
		h.logger.Error().Err(err).Str("credential_uuid", id.String()).Msg("failed to get credential")
		detail(c, http.StatusInternalServerError, "Failed to reissue credential.")
		return
	}

	fresh, err := h.service.Reissue(ctx, cred, req.Reason)
	if err != nil {
		if errors.Is(err, credentials.ErrCredentialGenerating) {
			detail(c, http.StatusConflict, "Credential is still generating.")
			return
		}
		h.logger.Error().Err(err).Str("credential_uuid", id.String()).Msg("failed to reissue credential")
		detail(c, http.StatusInternalServerError, "Failed to reissue credential.")
		return
	}
	c.JSON(http.StatusCreated, fresh)
}

// UploadAsset stores a template asset from a multipart upload.
//
//	@Summary		Upload asset
//	@Description	Creates or replaces a credential template asset identified by slug.
//	@Tags			Admin
//	@Accept			multipart/form-data
//	@Produce		json
//	@Param			slug		formData	string	true	"Asset slug"
//	@Param			description	formData	string	false	"Asset description"
//	@Param			file		formData	file	true	"Asset file"
//	@Success		201			{object}	models.CredentialAsset
//	@Failure		400			{object}	map[string]string
//	@Failure		413			{object}	map[string]string
//	@Router			/learning_credentials/v1/admin/assets/ [post]
func (h *AdminHandler) UploadAsset(c *gin.Context) {
	slug := c.PostForm("slug")
	if slug == "" {
		detail(c, http.StatusBadRequest, "Asset slug is required.")
		return
	}
	fh, err := c.FormFile("file")
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			detail(c, http.StatusRequestEntityTooLarge, "Request body too large.")
			return
		}
		detail(c, http.StatusBadRequest, "Asset file is required.")
		return
	}
	f, err := fh.Open()
	if err != nil {
		h.logger.Error().Err(err).Msg("failed to open uploaded asset")
		detail(c, http.StatusBadRequest, "Failed to read asset file.")
		return
	}
	defer f.Close()

	asset := &models.CredentialAsset{Slug: slug, Description: c.PostForm("description")}
	if err := h.service.SaveAsset(c.Request.Context(), asset, fh.Filename, f); err != nil {
		h.logger.Error().Err(err).Str("slug", slug).Msg("failed to save asset")
		detail(c, http.StatusInternalServerError, "Failed to save asset.")
		return
	}
	c.JSON(http.StatusCreated, asset)
}

// JobSummary returns job queue statistics.
//
//	@Summary		Job queue summary
//	@Tags			Admin
//	@Produce		json
//	@Success		200	{object}	models.JobQueueSummary
//	@Router			/learning_credentials/v1/admin/jobs/summary/ [get]
func (h *AdminHandler) JobSummary(c *gin.Context) {
	summary, err := h.jobs.Summary(c.Request.Context())
	if err != nil {
		h.logger.Error().Err(err).Msg("failed to get job queue summary")
		detail(c, http.StatusInternalServerError, "Failed to get job queue summary.")
		return
	}
	c.JSON(http.StatusOK, summary)
}
