package handlers

import (
	"bytes"
	"context"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/MacJediWizard/learning-credentials/internal/credentials"
	"github.com/MacJediWizard/learning-credentials/internal/models"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

type mockAdminService struct {
	configs     map[int64]*models.CredentialConfiguration
	credentials map[uuid.UUID]*models.Credential
	enqueued    []models.JobType
	lastUserID  int64
	reason      string
	savedAsset  *models.CredentialAsset
	assetBody   string
	assetName   string
}

func newMockAdminService() *mockAdminService {
	return &mockAdminService{
		configs:     map[int64]*models.CredentialConfiguration{1: testConfiguration(1, 10, testCourse)},
		credentials: map[uuid.UUID]*models.Credential{},
	}
}

func (m *mockAdminService) ListConfigurations(context.Context) ([]*models.CredentialConfiguration, error) {
	out := make([]*models.CredentialConfiguration, 0, len(m.configs))
	for _, cfg := range m.configs {
		out = append(out, cfg)
	}
	return out, nil
}

func (m *mockAdminService) SetConfigurationEnabled(_ context.Context, id int64, enabled bool) (*models.CredentialConfiguration, error) {
	cfg, ok := m.configs[id]
	if !ok {
		return nil, credentials.ErrNotFound
	}
	cfg.Enabled = enabled
	return cfg, nil
}

func (m *mockAdminService) job(t models.JobType) *models.Job {
	m.enqueued = append(m.enqueued, t)
	return &models.Job{ID: uuid.New(), JobType: t, Status: models.JobStatusPending}
}

func (m *mockAdminService) EnqueueConfigurationGeneration(context.Context, int64) (*models.Job, error) {
	return m.job(models.JobTypeGenerateCredentialsForConfig), nil
}

func (m *mockAdminService) EnqueueUserGeneration(_ context.Context, _ int64, userID int64) (*models.Job, error) {
	m.lastUserID = userID
	return m.job(models.JobTypeGenerateCredentialForUser), nil
}

func (m *mockAdminService) EnqueueAllGeneration(context.Context) (*models.Job, error) {
	return m.job(models.JobTypeGenerateAllCredentials), nil
}

func (m *mockAdminService) GetCredential(_ context.Context, id uuid.UUID) (*models.Credential, error) {
	if c, ok := m.credentials[id]; ok {
		return c, nil
	}
	return nil, credentials.ErrNotFound
}

func (m *mockAdminService) InvalidateCredential(ctx context.Context, id uuid.UUID, reason string) (*models.Credential, error) {
	c, err := m.GetCredential(ctx, id)
	if err != nil {
		return nil, err
	}
	if c.Status == models.CredentialStatusGenerating {
		return nil, credentials.ErrCredentialGenerating
	}
	c.AppendInvalidationReason(reason)
	c.Status = models.CredentialStatusInvalidated
	return c, nil
}

func (m *mockAdminService) Reissue(_ context.Context, c *models.Credential, reason string) (*models.Credential, error) {
	if c.Status == models.CredentialStatusGenerating {
		return nil, credentials.ErrCredentialGenerating
	}
	m.reason = reason
	return models.NewCredential(c.UserID, c.ConfigurationID), nil
}

func (m *mockAdminService) SaveAsset(_ context.Context, a *models.CredentialAsset, filename string, body io.Reader) error {
	data, err := io.ReadAll(body)
	if err != nil {
		return err
	}
	a.ID = 7
	a.Asset = models.AssetPath(a.ID, filename)
	m.savedAsset = a
	m.assetBody = string(data)
	m.assetName = filename
	return nil
}

type staticSummary models.JobQueueSummary

func (s staticSummary) Summary(context.Context) (*models.JobQueueSummary, error) {
	summary := models.JobQueueSummary(s)
	return &summary, nil
}

func newAdminRouter(svc AdminService) *gin.Engine {
	h := NewAdminHandler(svc, staticSummary{TotalPending: 3}, zerolog.Nop())
	r := gin.New()
	h.RegisterRoutes(r.Group(apiPrefix))
	return r
}

func serveBody(r *gin.Engine, method, path, contentType string, body io.Reader) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(method, path, body)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	r.ServeHTTP(w, req)
	return w
}

func TestAdmin_Configurations(t *testing.T) {
	svc := newMockAdminService()
	r := newAdminRouter(svc)

	w := serve(r, http.MethodGet, apiPrefix+"/admin/configurations/")
	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), testCourse.String()) {
		t.Errorf("expected configuration in body, got %s", w.Body.String())
	}

	w = serve(r, http.MethodPost, apiPrefix+"/admin/configurations/1/enable/")
	if w.Code != http.StatusOK || !svc.configs[1].Enabled {
		t.Errorf("expected configuration to be enabled, got %d", w.Code)
	}
	w = serve(r, http.MethodPost, apiPrefix+"/admin/configurations/1/disable/")
	if w.Code != http.StatusOK || svc.configs[1].Enabled {
		t.Errorf("expected configuration to be disabled, got %d", w.Code)
	}

	w = serve(r, http.MethodPost, apiPrefix+"/admin/configurations/42/enable/")
	if w.Code != http.StatusNotFound {
		t.Errorf("expected status 404, got %d", w.Code)
	}
	w = serve(r, http.MethodPost, apiPrefix+"/admin/configurations/abc/enable/")
	if w.Code != http.StatusBadRequest {
		t.Errorf("expected status 400, got %d", w.Code)
	}
}

func TestAdmin_Generate(t *testing.T) {
	svc := newMockAdminService()
	r := newAdminRouter(svc)

	w := serve(r, http.MethodPost, apiPrefix+"/admin/configurations/1/generate/")
	if w.Code != http.StatusAccepted {
		t.Fatalf("expected status 202, got %d", w.Code)
	}
	w = serveBody(r, http.MethodPost, apiPrefix+"/admin/configurations/1/generate/", "application/json", strings.NewReader(`{"user_id": 5}`))
	if w.Code != http.StatusAccepted {
		t.Fatalf("expected status 202, got %d", w.Code)
	}
	if svc.lastUserID != 5 {
		t.Errorf("expected user 5, got %d", svc.lastUserID)
	}
	w = serve(r, http.MethodPost, apiPrefix+"/admin/generate/")
	if w.Code != http.StatusAccepted {
		t.Fatalf("expected status 202, got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), string(models.JobTypeGenerateAllCredentials)) {
		t.Errorf("expected job type in body, got %s", w.Body.String())
	}

	want := []models.JobType{
		models.JobTypeGenerateCredentialsForConfig,
		models.JobTypeGenerateCredentialForUser,
		models.JobTypeGenerateAllCredentials,
	}
	if len(svc.enqueued) != len(want) {
		t.Fatalf("expected %d jobs, got %v", len(want), svc.enqueued)
	}
	for i := range want {
		if svc.enqueued[i] != want[i] {
			t.Errorf("job %d: expected %s, got %s", i, want[i], svc.enqueued[i])
		}
	}
}

func TestAdmin_CredentialLifecycle(t *testing.T) {
	svc := newMockAdminService()
	cred := models.NewCredential(1, 1)
	cred.MarkAvailable("https://media.example.com/c.png")
	svc.credentials[cred.UUID] = cred
	pending := models.NewCredential(2, 1)
	svc.credentials[pending.UUID] = pending
	r := newAdminRouter(svc)

	t.Run("generating credential conflicts", func(t *testing.T) {
		w := serveBody(r, http.MethodPost, apiPrefix+"/admin/credentials/"+pending.UUID.String()+"/invalidate/", "application/json", strings.NewReader(`{"reason":"Duplicate"}`))
		if w.Code != http.StatusConflict {
			t.Errorf("expected status 409 for invalidate, got %d", w.Code)
		}
		w = serve(r, http.MethodPost, apiPrefix+"/admin/credentials/"+pending.UUID.String()+"/reissue/")
		if w.Code != http.StatusConflict {
			t.Errorf("expected status 409 for reissue, got %d", w.Code)
		}
	})

	t.Run("invalidate requires reason", func(t *testing.T) {
		w := serveBody(r, http.MethodPost, apiPrefix+"/admin/credentials/"+cred.UUID.String()+"/invalidate/", "application/json", strings.NewReader(`{}`))
		if w.Code != http.StatusBadRequest {
			t.Errorf("expected status 400, got %d", w.Code)
		}
	})

	t.Run("invalidate", func(t *testing.T) {
		w := serveBody(r, http.MethodPost, apiPrefix+"/admin/credentials/"+cred.UUID.String()+"/invalidate/", "application/json", strings.NewReader(`{"reason":"Plagiarism"}`))
		if w.Code != http.StatusOK {
			t.Fatalf("expected status 200, got %d", w.Code)
		}
		if cred.InvalidationReason != "Plagiarism" {
			t.Errorf("expected reason Plagiarism, got %q", cred.InvalidationReason)
		}
	})

	t.Run("invalidate unknown credential", func(t *testing.T) {
		w := serveBody(r, http.MethodPost, apiPrefix+"/admin/credentials/"+uuid.NewString()+"/invalidate/", "application/json", strings.NewReader(`{"reason":"x"}`))
		if w.Code != http.StatusNotFound {
			t.Errorf("expected status 404, got %d", w.Code)
		}
	})

	t.Run("reissue", func(t *testing.T) {
		w := serve(r, http.MethodPost, apiPrefix+"/admin/credentials/"+cred.UUID.String()+"/reissue/")
		if w.Code != http.StatusCreated {
			t.Fatalf("expected status 201, got %d", w.Code)
		}
		if svc.reason != "" {
			t.Errorf("expected default reason to be left to the service, got %q", svc.reason)
		}
	})

	t.Run("reissue malformed uuid", func(t *testing.T) {
		w := serve(r, http.MethodPost, apiPrefix+"/admin/credentials/nope/reissue/")
		if w.Code != http.StatusBadRequest {
			t.Errorf("expected status 400, got %d", w.Code)
		}
	})
}

func TestAdmin_UploadAsset(t *testing.T) {
	svc := newMockAdminService()
	r := newAdminRouter(svc)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	_ = mw.WriteField("slug", "logo")
	_ = mw.WriteField("description", "Platform logo")
	fw, err := mw.CreateFormFile("file", "logo.png")
	if err != nil {
		t.Fatalf("create form file: %v", err)
	}
	_, _ = fw.Write([]byte("png-bytes"))
	_ = mw.Close()

	w := serveBody(r, http.MethodPost, apiPrefix+"/admin/assets/", mw.FormDataContentType(), &buf)
	if w.Code != http.StatusCreated {
		t.Fatalf("expected status 201, got %d: %s", w.Code, w.Body.String())
	}
	if svc.savedAsset == nil || svc.savedAsset.Slug != "logo" || svc.savedAsset.Description != "Platform logo" {
		t.Fatalf("unexpected asset %+v", svc.savedAsset)
	}
	if svc.assetName != "logo.png" || svc.assetBody != "png-bytes" {
		t.Errorf("unexpected upload %s: %q", svc.assetName, svc.assetBody)
	}
	if !strings.Contains(w.Body.String(), "learning_credentials_template_assets/7/logo.png") {
		t.Errorf("expected asset path in body, got %s", w.Body.String())
	}

	w = serveBody(r, http.MethodPost, apiPrefix+"/admin/assets/", "application/x-www-form-urlencoded", strings.NewReader("slug=logo"))
	if w.Code != http.StatusBadRequest {
		t.Errorf("expected status 400 without file, got %d", w.Code)
	}
}

func TestAdmin_JobSummary(t *testing.T) {
	w := serve(newAdminRouter(newMockAdminService()), http.MethodGet, apiPrefix+"/admin/jobs/summary/")
	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", w.Code)
	}
	if !strings.Contains(w.Body.String(), `"total_pending":3`) {
		t.Errorf("unexpected body %s", w.Body.String())
	}
}
