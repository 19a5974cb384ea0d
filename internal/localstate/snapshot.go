package localstate

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/roach88/mealsync/internal/model"
)

// DefaultNamespace is the key the snapshot is stored under.
const DefaultNamespace = "MealTracker"

// snapshotVersion is bumped when Snapshot changes incompatibly.
const snapshotVersion = 0

// ErrNotFound is returned by a Backend when no record exists for a namespace.
var ErrNotFound = errors.New("local snapshot not found")

// Snapshot is the durable anonymous-mode state.
type Snapshot struct {
	Vendors             []model.Vendor   `json:"vendors"`
	MealLogs            []model.MealLog  `json:"mealLogs"`
	Activities          []model.Activity `json:"activities"`
	OnboardingCompleted bool             `json:"onboardingCompleted"`
	CurrentMonth        model.Date       `json:"currentMonth"`
}

type envelope struct {
	State   Snapshot `json:"state"`
	Version int      `json:"version"`
}

// Backend stores opaque records by namespace.
type Backend interface {
	Load(ctx context.Context, namespace string) ([]byte, error)
	Save(ctx context.Context, namespace string, data []byte) error
	Remove(ctx context.Context, namespace string) error
}

// Store reads and writes Snapshots through a Backend.
type Store struct {
	backend   Backend
	namespace string
}

// New returns a Store for namespace (DefaultNamespace when empty).
func New(backend Backend, namespace string) *Store {
	if namespace == "" {
		namespace = DefaultNamespace
	}
	return &Store{backend: backend, namespace: namespace}
}

// Namespace returns the key snapshots are stored under.
func (s *Store) Namespace() string { return s.namespace }

// Load returns the stored snapshot. found is false when nothing was stored yet.
func (s *Store) Load(ctx context.Context) (snap Snapshot, found bool, err error) {
	data, err := s.backend.Load(ctx, s.namespace)
	if errors.Is(err, ErrNotFound) {
		return Snapshot{}, false, nil
	}
	if err != nil {
		return Snapshot{}, false, fmt.Errorf("load snapshot: %w", err)
	}
	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return Snapshot{}, false, fmt.Errorf("decode snapshot: %w", err)
	}
	if env.Version > snapshotVersion {
		return Snapshot{}, false, fmt.Errorf("decode snapshot: unsupported version %d", env.Version)
	}
	return env.State, true, nil
}

// Save replaces the stored snapshot.
func (s *Store) Save(ctx context.Context, snap Snapshot) error {
	data, err := json.Marshal(envelope{State: snap, Version: snapshotVersion})
	if err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}
	if err := s.backend.Save(ctx, s.namespace, data); err != nil {
		return fmt.Errorf("save snapshot: %w", err)
	}
	return nil
}

// Clear removes the stored snapshot. Clearing a missing snapshot is not an error.
func (s *Store) Clear(ctx context.Context) error {
	if err := s.backend.Remove(ctx, s.namespace); err != nil && !errors.Is(err, ErrNotFound) {
		return fmt.Errorf("clear snapshot: %w", err)
	}
	return nil
}
