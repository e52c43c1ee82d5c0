// Package memstore is an in-memory implementation of the persistence
// interfaces, mirroring the PostgreSQL constraints. It backs tests and
// local development without a database.
package memstore

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/MacJediWizard/learning-credentials/internal/credentials"
	"github.com/MacJediWizard/learning-credentials/internal/models"
	"github.com/MacJediWizard/learning-credentials/internal/options"
	"github.com/google/uuid"
)

// Store holds every table in maps guarded by a single mutex.
type Store struct {
	mu sync.RWMutex

	users           map[int64]*models.User
	credentialTypes map[int64]*models.CredentialType
	periodicTasks   map[int64]*models.PeriodicTask
	configurations  map[int64]*models.CredentialConfiguration
	credentials     map[uuid.UUID]*models.Credential
	assets          map[int64]*models.CredentialAsset
	paths           map[models.LearningContextKey]*models.LearningPath
	pathEnrollments map[models.LearningContextKey]map[int64]*models.LearningPathEnrollment
	jobs            map[uuid.UUID]*models.Job

	nextID int64
}

// New creates an empty Store.
func New() *Store {
	return &Store{
		users:           make(map[int64]*models.User),
		credentialTypes: make(map[int64]*models.CredentialType),
		periodicTasks:   make(map[int64]*models.PeriodicTask),
		configurations:  make(map[int64]*models.CredentialConfiguration),
		credentials:     make(map[uuid.UUID]*models.Credential),
		assets:          make(map[int64]*models.CredentialAsset),
		paths:           make(map[models.LearningContextKey]*models.LearningPath),
		pathEnrollments: make(map[models.LearningContextKey]map[int64]*models.LearningPathEnrollment),
		jobs:            make(map[uuid.UUID]*models.Job),
	}
}

func (s *Store) id() int64 {
	s.nextID++
	return s.nextID
}

func notFound(what string, key any) error {
	return fmt.Errorf("%s %v: %w", what, key, credentials.ErrNotFound)
}

// Users

// UpsertUser creates or replaces a user.
func (s *Store) UpsertUser(_ context.Context, u *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, existing := range s.users {
		if existing.Username == u.Username && id != u.ID {
			return fmt.Errorf("username %q already taken", u.Username)
		}
	}
	cp := *u
	s.users[u.ID] = &cp
	return nil
}

// GetUserByID returns a user by id.
func (s *Store) GetUserByID(_ context.Context, id int64) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[id]
	if !ok {
		return nil, notFound("user", id)
	}
	cp := *u
	return &cp, nil
}

// GetUserByUsername returns a user by username.
func (s *Store) GetUserByUsername(_ context.Context, username string) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, u := range s.users {
		if u.Username == username {
			cp := *u
			return &cp, nil
		}
	}
	return nil, notFound("user", username)
}

// GetUsersByUsernames returns the known users keyed by username.
func (s *Store) GetUsersByUsernames(_ context.Context, usernames []string) (map[string]*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	wanted := make(map[string]struct{}, len(usernames))
	for _, name := range usernames {
		wanted[name] = struct{}{}
	}
	out := make(map[string]*models.User, len(usernames))
	for _, u := range s.users {
		if _, ok := wanted[u.Username]; ok {
			cp := *u
			out[u.Username] = &cp
		}
	}
	return out, nil
}

// Credential types

func copyType(t *models.CredentialType) *models.CredentialType {
	cp := *t
	cp.CustomOptions = options.Merge(t.CustomOptions, nil)
	return &cp
}

// CreateCredentialType inserts a credential type and assigns its id.
func (s *Store) CreateCredentialType(_ context.Context, t *models.CredentialType) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.credentialTypes {
		if existing.Name == t.Name {
			return credentials.ErrCredentialTypeExists
		}
	}
	t.ID = s.id()
	s.credentialTypes[t.ID] = copyType(t)
	return nil
}

// UpdateCredentialType replaces a credential type.
func (s *Store) UpdateCredentialType(_ context.Context, t *models.CredentialType) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.credentialTypes[t.ID]; !ok {
		return notFound("credential type", t.ID)
	}
	for id, existing := range s.credentialTypes {
		if existing.Name == t.Name && id != t.ID {
			return credentials.ErrCredentialTypeExists
		}
	}
	s.credentialTypes[t.ID] = copyType(t)
	return nil
}

// GetCredentialType returns a credential type by id.
func (s *Store) GetCredentialType(_ context.Context, id int64) (*models.CredentialType, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.credentialTypes[id]
	if !ok {
		return nil, notFound("credential type", id)
	}
	return copyType(t), nil
}

// GetCredentialTypeByName returns a credential type by name.
func (s *Store) GetCredentialTypeByName(_ context.Context, name string) (*models.CredentialType, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, t := range s.credentialTypes {
		if t.Name == name {
			return copyType(t), nil
		}
	}
	return nil, notFound("credential type", name)
}

// ListCredentialTypes returns every credential type ordered by id.
func (s *Store) ListCredentialTypes(_ context.Context) ([]*models.CredentialType, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*models.CredentialType, 0, len(s.credentialTypes))
	for _, t := range s.credentialTypes {
		out = append(out, copyType(t))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// Periodic tasks

func copyTask(t *models.PeriodicTask) *models.PeriodicTask {
	cp := *t
	cp.Args = append([]int64(nil), t.Args...)
	return &cp
}

// CreatePeriodicTask inserts a periodic task and assigns its id.
func (s *Store) CreatePeriodicTask(_ context.Context, t *models.PeriodicTask) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.periodicTasks {
		if existing.Name == t.Name {
			return fmt.Errorf("periodic task %q already exists", t.Name)
		}
	}
	t.ID = s.id()
	s.periodicTasks[t.ID] = copyTask(t)
	return nil
}

// UpdatePeriodicTask replaces a periodic task.
func (s *Store) UpdatePeriodicTask(_ context.Context, t *models.PeriodicTask) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.periodicTasks[t.ID]; !ok {
		return notFound("periodic task", t.ID)
	}
	s.periodicTasks[t.ID] = copyTask(t)
	return nil
}

// GetPeriodicTask returns a periodic task by id.
func (s *Store) GetPeriodicTask(_ context.Context, id int64) (*models.PeriodicTask, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.periodicTasks[id]
	if !ok {
		return nil, notFound("periodic task", id)
	}
	return copyTask(t), nil
}

// ListEnabledPeriodicTasks returns the enabled periodic tasks ordered by id.
func (s *Store) ListEnabledPeriodicTasks(_ context.Context) ([]*models.PeriodicTask, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*models.PeriodicTask
	for _, t := range s.periodicTasks {
		if t.Enabled {
			out = append(out, copyTask(t))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// MarkPeriodicTaskRun records the last run time of a task.
func (s *Store) MarkPeriodicTaskRun(_ context.Context, id int64, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.periodicTasks[id]
	if !ok {
		return notFound("periodic task", id)
	}
	t.LastRunAt = &at
	return nil
}

// DeletePeriodicTask deletes a task and, like the foreign key cascade, the
// configuration that references it. Credentials still block the cascade.
func (s *Store) DeletePeriodicTask(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.periodicTasks[id]; !ok {
		return notFound("periodic task", id)
	}
	for cfgID, cfg := range s.configurations {
		if cfg.PeriodicTaskID != id {
			continue
		}
		if s.hasCredentials(cfgID) {
			return credentials.ErrConfigurationInUse
		}
		delete(s.configurations, cfgID)
	}
	delete(s.periodicTasks, id)
	return nil
}

// Configurations

func (s *Store) loadConfiguration(c *models.CredentialConfiguration) *models.CredentialConfiguration {
	cp := *c
	cp.CustomOptions = options.Merge(c.CustomOptions, nil)
	if t, ok := s.credentialTypes[c.CredentialTypeID]; ok {
		cp.CredentialType = copyType(t)
	}
	return &cp
}

func (s *Store) storeConfiguration(c *models.CredentialConfiguration) {
	cp := *c
	cp.CustomOptions = options.Merge(c.CustomOptions, nil)
	cp.CredentialType = nil
	s.configurations[c.ID] = &cp
}

func (s *Store) checkConfiguration(c *models.CredentialConfiguration) error {
	if _, ok := s.credentialTypes[c.CredentialTypeID]; !ok {
		return notFound("credential type", c.CredentialTypeID)
	}
	if _, ok := s.periodicTasks[c.PeriodicTaskID]; !ok {
		return notFound("periodic task", c.PeriodicTaskID)
	}
	for id, existing := range s.configurations {
		if id == c.ID {
			continue
		}
		if existing.LearningContextKey == c.LearningContextKey && existing.CredentialTypeID == c.CredentialTypeID {
			return credentials.ErrConfigurationExists
		}
		if existing.PeriodicTaskID == c.PeriodicTaskID {
			return fmt.Errorf("periodic task %d already owned by configuration %d", c.PeriodicTaskID, id)
		}
	}
	return nil
}

// CreateConfiguration inserts a configuration and assigns its id.
func (s *Store) CreateConfiguration(_ context.Context, c *models.CredentialConfiguration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkConfiguration(c); err != nil {
		return err
	}
	c.ID = s.id()
	s.storeConfiguration(c)
	return nil
}

// UpdateConfiguration replaces a configuration.
func (s *Store) UpdateConfiguration(_ context.Context, c *models.CredentialConfiguration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.configurations[c.ID]; !ok {
		return notFound("configuration", c.ID)
	}
	if err := s.checkConfiguration(c); err != nil {
		return err
	}
	s.storeConfiguration(c)
	return nil
}

// GetConfiguration returns a configuration by id.
func (s *Store) GetConfiguration(_ context.Context, id int64) (*models.CredentialConfiguration, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.configurations[id]
	if !ok {
		return nil, notFound("configuration", id)
	}
	return s.loadConfiguration(c), nil
}

// GetConfigurationByPeriodicTask returns the configuration owning a task.
func (s *Store) GetConfigurationByPeriodicTask(_ context.Context, taskID int64) (*models.CredentialConfiguration, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, c := range s.configurations {
		if c.PeriodicTaskID == taskID {
			return s.loadConfiguration(c), nil
		}
	}
	return nil, notFound("configuration for periodic task", taskID)
}

// GetConfigurationByContextAndType returns the configuration of a type in a context.
func (s *Store) GetConfigurationByContextAndType(_ context.Context, key models.LearningContextKey, typeID int64) (*models.CredentialConfiguration, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, c := range s.configurations {
		if c.LearningContextKey == key && c.CredentialTypeID == typeID {
			return s.loadConfiguration(c), nil
		}
	}
	return nil, notFound("configuration", fmt.Sprintf("%s/%d", key, typeID))
}

func (s *Store) listConfigurations(match func(*models.CredentialConfiguration) bool) []*models.CredentialConfiguration {
	out := make([]*models.CredentialConfiguration, 0)
	for _, c := range s.configurations {
		if match(c) {
			out = append(out, s.loadConfiguration(c))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// ListConfigurations returns every configuration ordered by id.
func (s *Store) ListConfigurations(_ context.Context) ([]*models.CredentialConfiguration, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.listConfigurations(func(*models.CredentialConfiguration) bool { return true }), nil
}

// ListConfigurationsByContext returns the configurations of a learning context.
func (s *Store) ListConfigurationsByContext(_ context.Context, key models.LearningContextKey) ([]*models.CredentialConfiguration, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.listConfigurations(func(c *models.CredentialConfiguration) bool {
		return c.LearningContextKey == key
	}), nil
}

// ListEnabledConfigurations returns the enabled configurations.
func (s *Store) ListEnabledConfigurations(_ context.Context) ([]*models.CredentialConfiguration, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.listConfigurations(func(c *models.CredentialConfiguration) bool { return c.Enabled }), nil
}

func (s *Store) hasCredentials(configurationID int64) bool {
	for _, c := range s.credentials {
		if c.ConfigurationID == configurationID {
			return true
		}
	}
	return false
}

// DeleteConfiguration deletes a configuration unless credentials reference it.
// The owned periodic task is left for the caller.
func (s *Store) DeleteConfiguration(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.configurations[id]; !ok {
		return notFound("configuration", id)
	}
	if s.hasCredentials(id) {
		return credentials.ErrConfigurationInUse
	}
	delete(s.configurations, id)
	return nil
}

// Credentials

func copyCredential(c *models.Credential) *models.Credential {
	cp := *c
	if c.InvalidatedAt != nil {
		at := *c.InvalidatedAt
		cp.InvalidatedAt = &at
	}
	if c.LegacyID != nil {
		id := *c.LegacyID
		cp.LegacyID = &id
	}
	return &cp
}

// CreateCredential inserts a credential.
func (s *Store) CreateCredential(_ context.Context, c *models.Credential) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.configurations[c.ConfigurationID]; !ok {
		return notFound("configuration", c.ConfigurationID)
	}
	if _, ok := s.credentials[c.UUID]; ok {
		return fmt.Errorf("credential %s already exists", c.UUID)
	}
	for _, existing := range s.credentials {
		if existing.VerifyUUID == c.VerifyUUID {
			return fmt.Errorf("verify uuid %s already used", c.VerifyUUID)
		}
	}
	if !c.IsInvalidated() && s.currentCredential(c.UserID, c.ConfigurationID) != nil {
		return credentials.ErrCredentialExists
	}
	s.credentials[c.UUID] = copyCredential(c)
	return nil
}

// UpsertGeneratingCredential resets the pair's current row to generating or
// inserts c, under one lock.
func (s *Store) UpsertGeneratingCredential(_ context.Context, c *models.Credential) (*models.Credential, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.configurations[c.ConfigurationID]; !ok {
		return nil, notFound("configuration", c.ConfigurationID)
	}
	if current := s.currentCredential(c.UserID, c.ConfigurationID); current != nil {
		current.StartGeneration(c.UserFullName, c.LearningContextName, c.GenerationTaskID)
		current.UpdatedAt = c.UpdatedAt
		return copyCredential(current), nil
	}
	s.credentials[c.UUID] = copyCredential(c)
	return copyCredential(c), nil
}

// currentCredential returns the non-invalidated row of a pair. Callers hold mu.
func (s *Store) currentCredential(userID, configurationID int64) *models.Credential {
	for _, c := range s.credentials {
		if c.UserID == userID && c.ConfigurationID == configurationID && !c.IsInvalidated() {
			return c
		}
	}
	return nil
}

// UpdateCredential replaces a credential.
func (s *Store) UpdateCredential(_ context.Context, c *models.Credential) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.credentials[c.UUID]; !ok {
		return notFound("credential", c.UUID)
	}
	s.credentials[c.UUID] = copyCredential(c)
	return nil
}

// GetCredential returns a credential by uuid.
func (s *Store) GetCredential(_ context.Context, id uuid.UUID) (*models.Credential, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.credentials[id]
	if !ok {
		return nil, notFound("credential", id)
	}
	return copyCredential(c), nil
}

// GetCredentialByVerifyUUID returns a credential by its verification uuid.
func (s *Store) GetCredentialByVerifyUUID(_ context.Context, verifyUUID uuid.UUID) (*models.Credential, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, c := range s.credentials {
		if c.VerifyUUID == verifyUUID {
			return copyCredential(c), nil
		}
	}
	return nil, notFound("credential", verifyUUID)
}

func (s *Store) listCredentials(match func(*models.Credential) bool) []*models.Credential {
	out := make([]*models.Credential, 0)
	for _, c := range s.credentials {
		if match(c) {
			out = append(out, copyCredential(c))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].UUID.String() < out[j].UUID.String()
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out
}

// ListCredentialsByConfiguration returns a configuration's credentials, newest first.
func (s *Store) ListCredentialsByConfiguration(_ context.Context, configurationID int64) ([]*models.Credential, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.listCredentials(func(c *models.Credential) bool { return c.ConfigurationID == configurationID }), nil
}

// ListCredentialsByUser returns a user's credentials, newest first.
func (s *Store) ListCredentialsByUser(_ context.Context, userID int64) ([]*models.Credential, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.listCredentials(func(c *models.Credential) bool { return c.UserID == userID }), nil
}

// Assets

// CreateAsset inserts an asset and assigns its id.
func (s *Store) CreateAsset(_ context.Context, a *models.CredentialAsset) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.assets {
		if existing.Slug == a.Slug {
			return credentials.ErrAssetExists
		}
	}
	a.ID = s.id()
	cp := *a
	s.assets[a.ID] = &cp
	return nil
}

// UpdateAsset replaces an asset.
func (s *Store) UpdateAsset(_ context.Context, a *models.CredentialAsset) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.assets[a.ID]; !ok {
		return notFound("asset", a.ID)
	}
	cp := *a
	s.assets[a.ID] = &cp
	return nil
}

// GetAssetBySlug returns an asset by slug.
func (s *Store) GetAssetBySlug(_ context.Context, slug string) (*models.CredentialAsset, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, a := range s.assets {
		if a.Slug == slug {
			cp := *a
			return &cp, nil
		}
	}
	return nil, notFound("asset", slug)
}

// Learning paths

// CreateLearningPath inserts or replaces a learning path.
func (s *Store) CreateLearningPath(_ context.Context, p *models.LearningPath) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *p
	cp.Steps = append([]models.LearningPathStep(nil), p.Steps...)
	s.paths[p.Key] = &cp
	return nil
}

// GetLearningPath returns a learning path by key.
func (s *Store) GetLearningPath(_ context.Context, key models.LearningContextKey) (*models.LearningPath, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.paths[key]
	if !ok {
		return nil, notFound("learning path", key)
	}
	cp := *p
	cp.Steps = append([]models.LearningPathStep(nil), p.Steps...)
	return &cp, nil
}

// ListLearningPathsByCourse returns the learning paths containing a course.
func (s *Store) ListLearningPathsByCourse(_ context.Context, courseKey models.LearningContextKey) ([]*models.LearningPath, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*models.LearningPath
	for _, p := range s.paths {
		if p.HasCourse(courseKey) {
			cp := *p
			cp.Steps = append([]models.LearningPathStep(nil), p.Steps...)
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out, nil
}

// UpsertLearningPathEnrollment creates or replaces a path enrollment.
func (s *Store) UpsertLearningPathEnrollment(_ context.Context, e *models.LearningPathEnrollment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.paths[e.LearningPathKey]; !ok {
		return notFound("learning path", e.LearningPathKey)
	}
	byUser, ok := s.pathEnrollments[e.LearningPathKey]
	if !ok {
		byUser = make(map[int64]*models.LearningPathEnrollment)
		s.pathEnrollments[e.LearningPathKey] = byUser
	}
	cp := *e
	byUser[e.UserID] = &cp
	return nil
}

// ListLearningPathEnrollments returns the enrollments of a path.
func (s *Store) ListLearningPathEnrollments(_ context.Context, key models.LearningContextKey) ([]models.LearningPathEnrollment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.LearningPathEnrollment, 0, len(s.pathEnrollments[key]))
	for _, e := range s.pathEnrollments[key] {
		out = append(out, *e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UserID < out[j].UserID })
	return out, nil
}

// GetLearningPathEnrollment returns one user's enrollment in a path.
func (s *Store) GetLearningPathEnrollment(_ context.Context, userID int64, key models.LearningContextKey) (*models.LearningPathEnrollment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.pathEnrollments[key][userID]
	if !ok {
		return nil, notFound("learning path enrollment", fmt.Sprintf("%s/%d", key, userID))
	}
	cp := *e
	return &cp, nil
}
