// Package repository holds the published dataset snapshot and the persisted
// favorites list.
package repository

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/mdaly0277/marketintel/internal/domain/columns"
	"github.com/mdaly0277/marketintel/internal/domain/model"
)

// Dataset is one completed load. It is never modified after Publish.
type Dataset struct {
	ID         uuid.UUID
	Generation uint64
	Source     string
	Header     []string
	Mapping    columns.Mapping
	Records    []model.Record
	Ranked     int
	LoadedAt   time.Time
}

// Len returns the number of records.
func (d *Dataset) Len() int {
	if d == nil {
		return 0
	}
	return len(d.Records)
}

// Status is the load state of the view.
type Status string

const (
	StatusIdle    Status = "idle"
	StatusLoading Status = "loading"
	StatusReady   Status = "ready"
	StatusError   Status = "error"
)

// State describes the store for health and API responses.
type State struct {
	Status    Status    `json:"status"`
	Requested uint64    `json:"requested_generation"`
	Published uint64    `json:"published_generation"`
	Error     string    `json:"error,omitempty"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Store tracks load generations and the published dataset. Only the most
// recently begun generation may publish or fail; anything older is
// discarded on arrival.
type Store interface {
	// Begin registers a new load and returns its generation.
	Begin(ctx context.Context) uint64
	// Publish installs ds if gen is still the latest. It reports whether
	// ds was installed.
	Publish(ctx context.Context, gen uint64, ds *Dataset) bool
	// Fail records err as the load error if gen is still the latest.
	Fail(ctx context.Context, gen uint64, err error) bool
	// Current returns the published dataset, nil before the first publish.
	Current(ctx context.Context) *Dataset
	// State returns the current load state.
	State(ctx context.Context) State
}

// Favorites persists the favorited ticker list under one key.
type Favorites interface {
	// Load returns the stored tickers; a missing key is an empty list.
	Load(ctx context.Context) ([]string, error)
	// Save overwrites the stored list.
	Save(ctx context.Context, tickers []string) error
	Close() error
}
