package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"
)

// ConfigDocument is a structured stage or trial configuration.
// The orchestration core treats it as an opaque document: it is stored,
// hashed, and handed to external jobs, never interpreted. Configurations are
// documents rather than file paths so a task record is self-contained.
type ConfigDocument map[string]any

// ParseConfigDocument decodes a YAML document into a ConfigDocument.
// An empty input yields a nil document, which is valid (the stage runs with
// its defaults).
func ParseConfigDocument(data []byte) (ConfigDocument, error) {
	if len(data) == 0 {
		return nil, nil
	}

	var doc ConfigDocument
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decode config document: %w", err)
	}
	return doc, nil
}

// Encode renders the document as canonical YAML.
// Encoding an empty document returns nil.
func (c ConfigDocument) Encode() ([]byte, error) {
	if len(c) == 0 {
		return nil, nil
	}

	out, err := yaml.Marshal(map[string]any(c))
	if err != nil {
		return nil, fmt.Errorf("encode config document: %w", err)
	}
	return out, nil
}

// Hash returns a deterministic SHA-256 hash of the canonical YAML encoding.
// Two documents with equal content hash equally regardless of how they were
// constructed; the hash ties validation results to the exact configuration
// snapshot they were produced with.
func (c ConfigDocument) Hash() string {
	encoded, err := c.Encode()
	if err != nil {
		// Marshal of map[string]any built from YAML input cannot fail;
		// hash the error text so a corrupt document never aliases a real one.
		encoded = []byte("!hash-error:" + err.Error())
	}

	sum := sha256.Sum256(encoded)
	return hex.EncodeToString(sum[:])
}

// Clone returns a shallow copy of the document's top level.
// Stage configurations are handed across goroutine boundaries, so stored
// records never share their top-level map with callers.
func (c ConfigDocument) Clone() ConfigDocument {
	if c == nil {
		return nil
	}
	cp := make(ConfigDocument, len(c))
	for k, v := range c {
		cp[k] = v
	}
	return cp
}

// TrialConfig is a named, immutable configuration snapshot attached to a
// trial. Configuration mutation is append-only: setting a new configuration
// creates a new version rather than overwriting, and at most one version per
// trial carries the default flag at a time.
type TrialConfig struct {
	// ID uniquely identifies this configuration version.
	ID string `json:"id" validate:"required,uuid"`

	// ProjectID identifies the owning project.
	ProjectID string `json:"project_id" validate:"required"`

	// TrialID identifies the trial this configuration belongs to.
	TrialID string `json:"trial_id" validate:"required"`

	// Name is the caller-supplied label for this version.
	Name string `json:"name,omitempty"`

	// ConfigYAML is the configuration document itself.
	ConfigYAML ConfigDocument `json:"config_yaml,omitempty"`

	// IsDefault marks the version run stages use when no explicit
	// configuration accompanies a start request.
	IsDefault bool `json:"is_default"`

	// Metadata carries optional caller-supplied key-value annotations.
	Metadata map[string]string `json:"metadata,omitempty"`

	// CreatedAt records when this version was appended.
	CreatedAt time.Time `json:"created_at" validate:"required"`
}

// NewTrialConfig creates a configuration version with a generated ID.
func NewTrialConfig(projectID, trialID, name string, config ConfigDocument, metadata map[string]string) (*TrialConfig, error) {
	tc := &TrialConfig{
		ID:         uuid.New().String(),
		ProjectID:  projectID,
		TrialID:    trialID,
		Name:       name,
		ConfigYAML: config.Clone(),
		Metadata:   cloneStringMap(metadata),
		CreatedAt:  time.Now(),
	}

	if err := validate.Struct(tc); err != nil {
		return nil, err
	}

	return tc, nil
}

// Clone returns a deep copy of the configuration version.
func (tc *TrialConfig) Clone() *TrialConfig {
	if tc == nil {
		return nil
	}
	cp := *tc
	cp.ConfigYAML = tc.ConfigYAML.Clone()
	cp.Metadata = cloneStringMap(tc.Metadata)
	return &cp
}
