package models

import "time"

// CredentialType is a reusable credential definition: how eligibility is
// retrieved, how the document is generated, and the default options.
type CredentialType struct {
	ID             int64          `json:"id"`
	Name           string         `json:"name"`
	RetrievalFunc  string         `json:"retrieval_func"`
	GenerationFunc string         `json:"generation_func"`
	CustomOptions  map[string]any `json:"custom_options"`
	CreatedAt      time.Time      `json:"created_at"`
	UpdatedAt      time.Time      `json:"updated_at"`
}

// NewCredentialType creates a new CredentialType.
func NewCredentialType(name, retrievalFunc, generationFunc string, opts map[string]any) *CredentialType {
	now := time.Now()
	if opts == nil {
		opts = map[string]any{}
	}
	return &CredentialType{
		Name:           name,
		RetrievalFunc:  retrievalFunc,
		GenerationFunc: generationFunc,
		CustomOptions:  opts,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
}
