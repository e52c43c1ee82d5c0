// Package handlers implements the HTTP endpoints of the credentials API.
package handlers

import (
	"context"
	"errors"
	"net/http"
	"reflect"
	"strconv"
	"time"

	"github.com/MacJediWizard/learning-credentials/internal/api/middleware"
	"github.com/MacJediWizard/learning-credentials/internal/auth"
	"github.com/MacJediWizard/learning-credentials/internal/credentials"
	"github.com/MacJediWizard/learning-credentials/internal/eligibility"
	"github.com/MacJediWizard/learning-credentials/internal/models"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// CredentialService is the subset of the credentials service used by the
// learner-facing endpoints.
type CredentialService interface {
	ListConfigurationsByContext(ctx context.Context, key models.LearningContextKey) ([]*models.CredentialConfiguration, error)
	GetConfigurationByContextAndType(ctx context.Context, key models.LearningContextKey, typeID int64) (*models.CredentialConfiguration, error)
	GetCredentialByVerifyUUID(ctx context.Context, verifyUUID uuid.UUID) (*models.Credential, error)
	GetUserEligibilityDetails(ctx context.Context, cfg *models.CredentialConfiguration, userID int64) (eligibility.Detail, error)
	ExistingCredential(ctx context.Context, cfg *models.CredentialConfiguration, userID int64) (*models.Credential, error)
	EnqueueUserGeneration(ctx context.Context, configurationID, userID int64) (*models.Job, error)
	ListUserCredentials(ctx context.Context, userID int64, key *models.LearningContextKey) ([]credentials.UserCredential, error)
	GetUserByUsername(ctx context.Context, username string) (*models.User, error)
}

// ContextAccess decides whether a user may see a learning context.
type ContextAccess interface {
	CanAccess(ctx context.Context, user *auth.SessionUser, key models.LearningContextKey) (bool, error)
}

// ConfigurationCheckResponse reports whether a learning context has credentials configured.
type ConfigurationCheckResponse struct {
	HasCredentials  bool `json:"has_credentials"`
	CredentialCount int  `json:"credential_count"`
}

// CredentialMetadataResponse is the public verification view of a credential.
type CredentialMetadataResponse struct {
	UserFullName        string    `json:"user_full_name"`
	Created             time.Time `json:"created"`
	LearningContextName string    `json:"learning_context_name"`
	Status              string    `json:"status"`
	InvalidationReason  string    `json:"invalidation_reason"`
}

// EligibilityResponse lists the eligibility of a user for every credential
// configured in a learning context. Each entry carries credential_type_id,
// name and is_eligible plus the evidence of the retrieval function.
type EligibilityResponse struct {
	ContextKey  string           `json:"context_key"`
	Credentials []map[string]any `json:"credentials"`
}

// CredentialListItem is one entry of a user's credential list.
type CredentialListItem struct {
	CredentialID   string    `json:"credential_id"`
	CredentialType string    `json:"credential_type"`
	ContextKey     string    `json:"context_key"`
	Status         string    `json:"status"`
	CreatedDate    time.Time `json:"created_date"`
	DownloadURL    string    `json:"download_url"`
}

// CredentialListResponse is the response of the credential list endpoint.
type CredentialListResponse struct {
	Credentials []CredentialListItem `json:"credentials"`
}

// CredentialsHandler serves the learner-facing credential endpoints.
type CredentialsHandler struct {
	service CredentialService
	access  ContextAccess
	logger  zerolog.Logger
}

// NewCredentialsHandler creates a new CredentialsHandler.
func NewCredentialsHandler(service CredentialService, access ContextAccess, logger zerolog.Logger) *CredentialsHandler {
	return &CredentialsHandler{
		service: service,
		access:  access,
		logger:  logger.With().Str("component", "credentials_handler").Logger(),
	}
}

// RegisterPublicRoutes registers routes that don't require authentication.
func (h *CredentialsHandler) RegisterPublicRoutes(r *gin.RouterGroup) {
	r.GET("/metadata/:verify_uuid/", h.Metadata)
}

// RegisterRoutes registers routes that require an authenticated user.
func (h *CredentialsHandler) RegisterRoutes(r *gin.RouterGroup) {
	r.GET("/configured/:learning_context_key/", h.Configured)
	r.GET("/eligibility/:learning_context_key/", h.Eligibility)
	r.POST("/eligibility/:learning_context_key/:credential_type_id/", h.Generate)
	r.GET("/credentials/", h.List)
}

func detail(c *gin.Context, status int, msg string) {
	c.AbortWithStatusJSON(status, gin.H{"detail": msg})
}

// contextKey parses the learning context key path parameter and checks that
// the user can see it. It writes the error response and returns false on failure.
func (h *CredentialsHandler) contextKey(c *gin.Context, user *auth.SessionUser) (models.LearningContextKey, bool) {
	key, err := models.ParseLearningContextKey(c.Param("learning_context_key"))
	if err != nil {
		detail(c, http.StatusBadRequest, models.ErrInvalidContextKey.Error())
		return "", false
	}

	ok, err := h.access.CanAccess(c.Request.Context(), user, key)
	if err != nil {
		h.logger.Error().Err(err).Str("learning_context_key", key.String()).Msg("failed to check learning context access")
		detail(c, http.StatusInternalServerError, "Failed to check access.")
		return "", false
	}
	if !ok {
		if key.IsLearningPath() {
			detail(c, http.StatusNotFound, "Learning path not found or user does not have access")
		} else {
			detail(c, http.StatusNotFound, "Course not found or user does not have access")
		}
		return "", false
	}
	return key, true
}

// targetUserID resolves the optional username query parameter. Only staff may
// act for another user.
func (h *CredentialsHandler) targetUserID(c *gin.Context, user *auth.SessionUser) (int64, bool) {
	username := c.Query("username")
	if username == "" || username == user.Username {
		return user.ID, true
	}
	if !user.IsStaff {
		detail(c, http.StatusForbidden, "You do not have permission to perform this action.")
		return 0, false
	}
	target, err := h.service.GetUserByUsername(c.Request.Context(), username)
	if err != nil {
		if errors.Is(err, credentials.ErrNotFound) {
			detail(c, http.StatusNotFound, "User not found.")
			return 0, false
		}
		h.logger.Error().Err(err).Msg("failed to look up user")
		detail(c, http.StatusInternalServerError, "Failed to look up user.")
		return 0, false
	}
	return target.ID, true
}

// Configured reports whether any credential is configured for a learning context.
//
//	@Summary		Check credential configuration
//	@Description	Reports whether credentials are configured for a course or learning path.
//	@Tags			Credentials
//	@Produce		json
//	@Param			learning_context_key	path		string	true	"Course or learning path key"
//	@Success		200						{object}	ConfigurationCheckResponse
//	@Failure		400						{object}	map[string]string
//	@Failure		403						{object}	map[string]string
//	@Failure		404						{object}	map[string]string
//	@Router			/learning_credentials/v1/configured/{learning_context_key}/ [get]
func (h *CredentialsHandler) Configured(c *gin.Context) {
	user := middleware.RequireUser(c)
	if user == nil {
		return
	}
	key, ok := h.contextKey(c, user)
	if !ok {
		return
	}

	configs, err := h.service.ListConfigurationsByContext(c.Request.Context(), key)
	if err != nil {
		h.logger.Error().Err(err).Str("learning_context_key", key.String()).Msg("failed to list configurations")
		detail(c, http.StatusInternalServerError, "Failed to list credential configurations.")
		return
	}

	c.JSON(http.StatusOK, ConfigurationCheckResponse{
		HasCredentials:  len(configs) > 0,
		CredentialCount: len(configs),
	})
}

// Metadata returns the public verification view of a credential.
//
//	@Summary		Credential metadata
//	@Description	Returns the public metadata of a credential for verification.
//	@Tags			Credentials
//	@Produce		json
//	@Param			verify_uuid	path		string	true	"Verification UUID"
//	@Success		200			{object}	CredentialMetadataResponse
//	@Failure		404			{object}	map[string]string
//	@Router			/learning_credentials/v1/metadata/{verify_uuid}/ [get]
func (h *CredentialsHandler) Metadata(c *gin.Context) {
	notFound := func() {
		c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "Credential not found."})
	}

	verifyUUID, err := uuid.Parse(c.Param("verify_uuid"))
	if err != nil {
		notFound()
		return
	}

	cred, err := h.service.GetCredentialByVerifyUUID(c.Request.Context(), verifyUUID)
	if err != nil {
		if errors.Is(err, credentials.ErrNotFound) {
			notFound()
			return
		}
		h.logger.Error().Err(err).Msg("failed to get credential metadata")
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Failed to get credential."})
		return
	}

	c.JSON(http.StatusOK, CredentialMetadataResponse{
		UserFullName:        cred.UserFullName,
		Created:             cred.CreatedAt,
		LearningContextName: cred.LearningContextName,
		Status:              string(cred.Status),
		InvalidationReason:  cred.InvalidationReason,
	})
}

// Eligibility returns the eligibility of a user for every credential of a
// learning context.
//
//	@Summary		Credential eligibility
//	@Description	Lists eligibility details for each credential configured in a learning context. Staff may pass username to inspect another learner.
//	@Tags			Credentials
//	@Produce		json
//	@Param			learning_context_key	path		string	true	"Course or learning path key"
//	@Param			username				query		string	false	"Learner username (staff only)"
//	@Success		200						{object}	EligibilityResponse
//	@Failure		400						{object}	map[string]string
//	@Failure		403						{object}	map[string]string
//	@Failure		404						{object}	map[string]string
//	@Router			/learning_credentials/v1/eligibility/{learning_context_key}/ [get]
func (h *CredentialsHandler) Eligibility(c *gin.Context) {
	user := middleware.RequireUser(c)
	if user == nil {
		return
	}
	userID, ok := h.targetUserID(c, user)
	if !ok {
		return
	}
	key, ok := h.contextKey(c, user)
	if !ok {
		return
	}

	ctx := c.Request.Context()
	configs, err := h.service.ListConfigurationsByContext(ctx, key)
	if err != nil {
		h.logger.Error().Err(err).Str("learning_context_key", key.String()).Msg("failed to list configurations")
		detail(c, http.StatusInternalServerError, "Failed to list credential configurations.")
		return
	}

	items := make([]map[string]any, 0, len(configs))
	for _, cfg := range configs {
		d, err := h.service.GetUserEligibilityDetails(ctx, cfg, userID)
		if err != nil {
			h.logger.Error().Err(err).
				Int64("configuration_id", cfg.ID).
				Int64("user_id", userID).
				Msg("failed to retrieve eligibility")
			detail(c, http.StatusInternalServerError, "Failed to retrieve eligibility.")
			return
		}
		existing, err := h.service.ExistingCredential(ctx, cfg, userID)
		if err != nil {
			h.logger.Error().Err(err).Int64("configuration_id", cfg.ID).Msg("failed to look up existing credential")
			detail(c, http.StatusInternalServerError, "Failed to retrieve eligibility.")
			return
		}
		items = append(items, eligibilityItem(cfg, d, existing))
	}

	c.JSON(http.StatusOK, EligibilityResponse{ContextKey: key.String(), Credentials: items})
}

func eligibilityItem(cfg *models.CredentialConfiguration, d eligibility.Detail, existing *models.Credential) map[string]any {
	item := make(map[string]any, len(d)+4)
	for k, v := range d {
		item[k] = v
	}
	item["credential_type_id"] = cfg.CredentialTypeID
	item["name"] = ""
	if cfg.CredentialType != nil {
		item["name"] = cfg.CredentialType.Name
	}
	item[eligibility.KeyIsEligible] = d.IsEligible()
	if existing != nil {
		item["existing_credential"] = existing.UUID.String()
		item["existing_credential_url"] = existing.DownloadURL
	}

	for k, v := range item {
		if isBlank(v) {
			delete(item, k)
		}
	}
	return item
}

// isBlank reports nil values and empty maps, which are omitted from responses.
func isBlank(v any) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Map:
		return rv.Len() == 0
	case reflect.Pointer, reflect.Interface:
		return rv.IsNil()
	}
	return false
}

// Generate starts generation of a credential for the requesting user.
//
//	@Summary		Generate credential
//	@Description	Starts asynchronous generation of a credential for an eligible learner. Staff may pass username to act for another learner.
//	@Tags			Credentials
//	@Produce		json
//	@Param			learning_context_key	path		string	true	"Course or learning path key"
//	@Param			credential_type_id		path		int		true	"Credential type ID"
//	@Param			username				query		string	false	"Learner username (staff only)"
//	@Success		201						{object}	map[string]string
//	@Failure		400						{object}	map[string]string
//	@Failure		403						{object}	map[string]string
//	@Failure		404						{object}	map[string]string
//	@Failure		409						{object}	map[string]string
//	@Router			/learning_credentials/v1/eligibility/{learning_context_key}/{credential_type_id}/ [post]
func (h *CredentialsHandler) Generate(c *gin.Context) {
	user := middleware.RequireUser(c)
	if user == nil {
		return
	}
	typeID, err := strconv.ParseInt(c.Param("credential_type_id"), 10, 64)
	if err != nil {
		detail(c, http.StatusNotFound, "Credential configuration not found.")
		return
	}
	userID, ok := h.targetUserID(c, user)
	if !ok {
		return
	}
	key, ok := h.contextKey(c, user)
	if !ok {
		return
	}

	ctx := c.Request.Context()
	cfg, err := h.service.GetConfigurationByContextAndType(ctx, key, typeID)
	if err != nil {
		if errors.Is(err, credentials.ErrNotFound) {
			detail(c, http.StatusNotFound, "Credential configuration not found.")
			return
		}
		h.logger.Error().Err(err).Msg("failed to get configuration")
		detail(c, http.StatusInternalServerError, "Failed to get credential configuration.")
		return
	}

	existing, err := h.service.ExistingCredential(ctx, cfg, userID)
	if err != nil {
		h.logger.Error().Err(err).Int64("configuration_id", cfg.ID).Msg("failed to look up existing credential")
		detail(c, http.StatusInternalServerError, "Failed to start credential generation.")
		return
	}
	if existing != nil {
		detail(c, http.StatusConflict, "User already has a credential of this type.")
		return
	}

	d, err := h.service.GetUserEligibilityDetails(ctx, cfg, userID)
	if err != nil {
		h.logger.Error().Err(err).Int64("configuration_id", cfg.ID).Msg("failed to retrieve eligibility")
		detail(c, http.StatusInternalServerError, "Failed to start credential generation.")
		return
	}
	if !d.IsEligible() {
		detail(c, http.StatusBadRequest, "User is not eligible for this credential.")
		return
	}

	job, err := h.service.EnqueueUserGeneration(ctx, cfg.ID, userID)
	if err != nil {
		h.logger.Error().Err(err).Int64("configuration_id", cfg.ID).Msg("failed to enqueue credential generation")
		detail(c, http.StatusInternalServerError, "Failed to start credential generation.")
		return
	}

	h.logger.Info().
		Int64("configuration_id", cfg.ID).
		Int64("user_id", userID).
		Str("job_id", job.ID.String()).
		Msg("credential generation requested")

	c.JSON(http.StatusCreated, gin.H{"detail": "Credential generation started."})
}

// List returns the credentials of the requesting user.
//
//	@Summary		List credentials
//	@Description	Lists a learner's credentials, newest first. Staff may pass username to list another learner's credentials.
//	@Tags			Credentials
//	@Produce		json
//	@Param			learning_context_key	query		string	false	"Limit to one course or learning path"
//	@Param			username				query		string	false	"Learner username (staff only)"
//	@Success		200						{object}	CredentialListResponse
//	@Failure		400						{object}	map[string]string
//	@Failure		403						{object}	map[string]string
//	@Failure		404						{object}	map[string]string
//	@Router			/learning_credentials/v1/credentials/ [get]
func (h *CredentialsHandler) List(c *gin.Context) {
	user := middleware.RequireUser(c)
	if user == nil {
		return
	}

	var filter *models.LearningContextKey
	if raw := c.Query("learning_context_key"); raw != "" {
		key, err := models.ParseLearningContextKey(raw)
		if err != nil {
			detail(c, http.StatusBadRequest, models.ErrInvalidContextKey.Error())
			return
		}
		filter = &key
	}

	userID, ok := h.targetUserID(c, user)
	if !ok {
		return
	}

	creds, err := h.service.ListUserCredentials(c.Request.Context(), userID, filter)
	if err != nil {
		h.logger.Error().Err(err).Int64("user_id", userID).Msg("failed to list credentials")
		detail(c, http.StatusInternalServerError, "Failed to list credentials.")
		return
	}

	items := make([]CredentialListItem, 0, len(creds))
	for _, uc := range creds {
		typeName := ""
		if uc.Configuration.CredentialType != nil {
			typeName = uc.Configuration.CredentialType.Name
		}
		items = append(items, CredentialListItem{
			CredentialID:   uc.Credential.UUID.String(),
			CredentialType: typeName,
			ContextKey:     uc.Configuration.LearningContextKey.String(),
			Status:         string(uc.Credential.Status),
			CreatedDate:    uc.Credential.CreatedAt,
			DownloadURL:    uc.Credential.DownloadURL,
		})
	}

	c.JSON(http.StatusOK, CredentialListResponse{Credentials: items})
}
