package engine

import (
	"context"
	"errors"
	"log/slog"
	"slices"
	"sync"

	"github.com/roach88/mealsync/internal/localstate"
	"github.com/roach88/mealsync/internal/model"
)

// Store is the single source of truth for vendors, meal logs, activities,
// the onboarding flag and the current-month cursor of one client session.
//
// Thread-safety model:
//   - Accessors are safe from any goroutine.
//   - Mutations follow a single-writer model: callers await each mutation
//     before issuing the next. The lock is never held across a network
//     call, so a hung remote call does not block readers.
//   - UpsertMeals is the only operation that issues concurrent remote calls.
//
// INVARIANTS:
//   - At most one MealLog per natural key in local mode
//   - Activities are appended only by the audit reducer, newest first
//   - A failed remote mutation leaves the view unchanged
type Store struct {
	mu     sync.Mutex
	mode   Mode
	local  LocalMode
	remote RemoteFactory
	quota  QuotaGuard
	audit  auditLog
	ids    IDGenerator
	clock  Clock
	logger *slog.Logger

	vendors             []model.Vendor
	mealLogs            []model.MealLog
	activities          []model.Activity
	onboardingCompleted bool
	currentMonth        model.Date
	hydrated            bool
}

// Option configures a Store.
type Option func(*Store)

// WithRemote sets the factory used when an identity appears.
func WithRemote(f RemoteFactory) Option {
	return func(s *Store) { s.remote = f }
}

// WithIDGenerator overrides the UUIDv7 id generator.
func WithIDGenerator(g IDGenerator) Option {
	return func(s *Store) { s.ids = g }
}

// WithClock overrides the system clock.
func WithClock(c Clock) Option {
	return func(s *Store) { s.clock = c }
}

// WithLogger sets the logger (default slog.Default()).
func WithLogger(l *slog.Logger) Option {
	return func(s *Store) { s.logger = l }
}

// WithQuotaCap overrides AnonymousMealCap.
func WithQuotaCap(limit int) Option {
	return func(s *Store) { s.quota = NewQuotaGuard(limit) }
}

// New creates a Store in local mode backed by the given snapshot store.
// The store is not hydrated until Hydrate is called.
func New(local *localstate.Store, opts ...Option) *Store {
	s := &Store{
		local:  LocalMode{State: local},
		quota:  NewQuotaGuard(AnonymousMealCap),
		ids:    UUIDv7Generator{},
		clock:  SystemClock{},
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.mode = s.local
	s.audit = auditLog{ids: s.ids, clock: s.clock}
	s.currentMonth = model.DateOf(s.clock.Now()).StartOfMonth()
	return s
}

// Mode returns the current persistence mode.
func (s *Store) Mode() Mode {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.mode
}

// Identity returns the current identity, or "" when anonymous.
func (s *Store) Identity() string { return s.Mode().Identity() }

// Hydrate loads the view from the current mode's backing store and marks the
// store hydrated. Quota checks are not trusted before hydration.
func (s *Store) Hydrate(ctx context.Context) error {
	switch m := s.Mode().(type) {
	case LocalMode:
		return s.hydrateLocal(ctx, m)
	case RemoteMode:
		return s.refreshRemote(ctx, m)
	}
	return nil
}

// Refresh reloads vendors and meal logs from the backing store.
func (s *Store) Refresh(ctx context.Context) error { return s.Hydrate(ctx) }

func (s *Store) hydrateLocal(ctx context.Context, m LocalMode) error {
	snap, found, err := m.State.Load(ctx)
	if err != nil {
		return NewError(KindStorage, "hydrate", "", err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if found {
		s.vendors = snap.Vendors
		s.mealLogs = snap.MealLogs
		s.activities = snap.Activities
		s.onboardingCompleted = snap.OnboardingCompleted
		if !snap.CurrentMonth.IsZero() {
			s.currentMonth = snap.CurrentMonth.StartOfMonth()
		}
	}
	s.hydrated = true
	s.logger.Debug("local state hydrated", "namespace", m.State.Namespace(), "found", found,
		"vendors", len(s.vendors), "meal_logs", len(s.mealLogs))
	return nil
}

func (s *Store) refreshRemote(ctx context.Context, m RemoteMode) error {
	vendors, err := m.API.ListVendors(ctx)
	if err != nil {
		return err
	}
	logs, err := m.API.ListMealLogs(ctx)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.mode != Mode(m) {
		// identity changed while fetching
		return nil
	}
	s.vendors = vendors
	s.mealLogs = logs
	s.hydrated = true
	s.logger.Debug("remote state refreshed", "identity", m.ID, "vendors", len(vendors), "meal_logs", len(logs))
	return nil
}

// SetIdentity switches the persistence mode. An empty identity selects local
// mode and rehydrates from the local snapshot; a non-empty identity selects
// remote mode and fetches that identity's vendors and meal logs.
//
// Records created in local mode are not migrated to the remote store, and the
// local snapshot is left untouched so the anonymous view returns on logout.
// Setting the current identity again is a no-op.
func (s *Store) SetIdentity(ctx context.Context, identity string) error {
	s.mu.Lock()
	if s.mode.Identity() == identity {
		s.mu.Unlock()
		return nil
	}
	var next Mode = s.local
	if identity != "" {
		if s.remote == nil {
			s.mu.Unlock()
			return NewError(KindAuth, "set identity", "no remote backing store configured", nil)
		}
		api, err := s.remote(identity)
		if err != nil {
			s.mu.Unlock()
			return NewError(KindAuth, "set identity", "", err)
		}
		next = RemoteMode{API: api, ID: identity}
	}
	s.mode = next
	s.vendors = nil
	s.mealLogs = nil
	s.activities = nil
	s.onboardingCompleted = false
	s.hydrated = false
	s.mu.Unlock()

	s.logger.Info("identity changed", "authenticated", identity != "")
	return s.Hydrate(ctx)
}

// Hydrated reports whether the view has been loaded since the last mode switch.
func (s *Store) Hydrated() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.hydrated
}

// Vendors returns a copy of the vendor list.
func (s *Store) Vendors() []model.Vendor {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.vendors)
}

// Vendor returns the vendor with the given id.
func (s *Store) Vendor(id string) (model.Vendor, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.vendorIndex(id)
	if i < 0 {
		return model.Vendor{}, false
	}
	return s.vendors[i], true
}

// MealLogs returns a copy of the meal logs.
func (s *Store) MealLogs() []model.MealLog {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.mealLogs)
}

// Activities returns the activity log, newest first.
func (s *Store) Activities() []model.Activity {
	s.mu.Lock()
	defer s.mu.Unlock()
	return slices.Clone(s.activities)
}

// OnboardingCompleted reports the onboarding flag.
func (s *Store) OnboardingCompleted() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.onboardingCompleted
}

// SetOnboardingCompleted sets the onboarding flag.
func (s *Store) SetOnboardingCompleted(ctx context.Context, done bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onboardingCompleted = done
	s.persistLocked(ctx)
}

// CurrentMonth returns the month cursor (always the first of a month).
func (s *Store) CurrentMonth() model.Date {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.currentMonth
}

// SetCurrentMonth moves the month cursor to the month containing d.
func (s *Store) SetCurrentMonth(ctx context.Context, d model.Date) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.currentMonth = d.StartOfMonth()
	s.persistLocked(ctx)
}

// CanLogMeal reports whether the Quota Guard allows one more meal log.
// Before hydration an anonymous session is never allowed to log.
func (s *Store) CanLogMeal(authenticated bool) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !authenticated && !s.hydrated {
		return false
	}
	return s.quota.CanLog(authenticated, len(s.mealLogs))
}

// RemainingMeals returns the remaining allowance, Unlimited when authenticated.
func (s *Store) RemainingMeals(authenticated bool) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !authenticated && !s.hydrated {
		return 0
	}
	return s.quota.Remaining(authenticated, len(s.mealLogs))
}

// NewMealCount returns how many meal logs the batches would create: the
// distinct natural keys of known vendors that the view does not hold yet.
// Entries for held keys update in place and use no allowance.
func (s *Store) NewMealCount(batches []VendorBatch) int {
	owner := s.Identity()
	s.mu.Lock()
	defer s.mu.Unlock()
	seen := make(map[model.MealKey]bool)
	n := 0
	for _, b := range batches {
		if s.vendorIndex(b.VendorID) < 0 {
			continue
		}
		for _, e := range b.Meals {
			key := model.MealKey{OwnerID: owner, VendorID: b.VendorID, MealType: e.MealType, Date: e.Date}
			if seen[key] || s.mealIndex(key) >= 0 {
				continue
			}
			seen[key] = true
			n++
		}
	}
	return n
}

// CanLogMeals reports whether the Quota Guard allows writing every batch:
// the logs they would create must fit in the remaining allowance.
func (s *Store) CanLogMeals(authenticated bool, batches []VendorBatch) bool {
	if authenticated {
		return true
	}
	if !s.Hydrated() {
		return false
	}
	return s.NewMealCount(batches) <= s.RemainingMeals(false)
}

// QuotaCap returns the anonymous lifetime cap.
func (s *Store) QuotaCap() int { return s.quota.Cap() }

// Reset clears the whole view including activities. The store stays
// hydrated. In local mode the local snapshot is removed too; in remote mode
// it is left untouched, like any other remote-mode change, and server data
// is never deleted.
func (s *Store) Reset(ctx context.Context) error {
	mode := s.Mode()
	s.mu.Lock()
	defer s.mu.Unlock()
	s.vendors = nil
	s.mealLogs = nil
	s.activities = nil
	s.onboardingCompleted = false
	s.currentMonth = model.DateOf(s.clock.Now()).StartOfMonth()
	s.hydrated = true
	if m, ok := mode.(LocalMode); ok {
		if err := m.State.Clear(ctx); err != nil {
			return NewError(KindStorage, "reset", "", err)
		}
	}
	return nil
}

// commitLocked records effects in the activity log and persists the view
// when in local mode. Callers hold s.mu.
func (s *Store) commitLocked(ctx context.Context, effects []Effect) {
	s.activities = s.audit.apply(s.activities, effects)
	s.persistLocked(ctx)
}

// persistLocked writes the local snapshot. Failures are logged, never
// returned: local mode always succeeds synchronously.
func (s *Store) persistLocked(ctx context.Context) {
	if _, ok := s.mode.(LocalMode); !ok {
		return
	}
	err := s.local.State.Save(ctx, localstate.Snapshot{
		Vendors:             s.vendors,
		MealLogs:            s.mealLogs,
		Activities:          s.activities,
		OnboardingCompleted: s.onboardingCompleted,
		CurrentMonth:        s.currentMonth,
	})
	if err != nil {
		s.logger.Warn("local snapshot not saved", "error", err)
	}
}

func (s *Store) vendorIndex(id string) int {
	return slices.IndexFunc(s.vendors, func(v model.Vendor) bool { return v.ID == id })
}

func (s *Store) mealIndex(key model.MealKey) int {
	return slices.IndexFunc(s.mealLogs, func(l model.MealLog) bool { return l.Key() == key })
}

// remoteOp wraps a non-*Error failure from a RemoteAPI as a storage error.
func remoteOp(op string, err error) error {
	var e *Error
	if errors.As(err, &e) {
		return err
	}
	return NewError(KindStorage, op, "", err)
}
