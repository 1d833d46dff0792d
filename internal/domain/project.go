package domain

import (
	"time"

	"github.com/google/uuid"
)

// ProjectStatus represents a project's visibility state.
type ProjectStatus string

const (
	// ProjectActive is the default state; active projects appear in listings.
	ProjectActive ProjectStatus = "active"

	// ProjectArchived hides a project from default listings without
	// deleting it or its trials.
	ProjectArchived ProjectStatus = "archived"
)

// Valid reports whether the status is one of the defined project states.
func (s ProjectStatus) Valid() bool {
	return s == ProjectActive || s == ProjectArchived
}

// Project is a named container isolating trials. Project names are unique
// across the system; archiving hides a project but preserves everything
// under it.
type Project struct {
	// ID uniquely identifies this project using UUID format.
	ID string `json:"id" validate:"required,uuid"`

	// Name uniquely identifies the project to humans.
	Name string `json:"name" validate:"required,min=1,max=128"`

	// Description is an optional free-text summary.
	Description string `json:"description,omitempty"`

	// Status controls listing visibility.
	Status ProjectStatus `json:"status" validate:"required,oneof=active archived"`

	// CreatedAt records when the project was created.
	CreatedAt time.Time `json:"created_at" validate:"required"`
}

// NewProject creates an active project with a generated ID.
func NewProject(name, description string) (*Project, error) {
	p := &Project{
		ID:          uuid.New().String(),
		Name:        name,
		Description: description,
		Status:      ProjectActive,
		CreatedAt:   time.Now(),
	}

	if err := validate.Struct(p); err != nil {
		return nil, err
	}

	return p, nil
}
