package engine

import (
	"context"

	"github.com/roach88/mealsync/internal/localstate"
	"github.com/roach88/mealsync/internal/model"
)

// RemoteAPI is the authoritative backing store as seen from a client
// session. Implemented by client.Client.
//
// Every method is scoped to the identity the API was created for; errors are
// *Error values so the store can tell validation, auth, storage, not-found and
// network failures apart.
type RemoteAPI interface {
	CreateVendor(ctx context.Context, v model.Vendor) (model.Vendor, error)
	ListVendors(ctx context.Context) ([]model.Vendor, error)
	UpdateVendor(ctx context.Context, v model.Vendor) (model.Vendor, error)
	DeleteVendor(ctx context.Context, id string) error

	LogMeals(ctx context.Context, vendorID string, meals []model.MealEntry) ([]model.MealLog, error)
	UpsertMeals(ctx context.Context, vendorID string, meals []model.MealEntry) ([]model.TaggedLog, error)
	ListMealLogs(ctx context.Context) ([]model.MealLog, error)
	DeleteMealLog(ctx context.Context, key model.MealKey) error
}

// RemoteFactory builds a RemoteAPI for an authenticated identity.
type RemoteFactory func(identity string) (RemoteAPI, error)

// Mode is the persistence mode of a Store: LocalMode or RemoteMode.
// The store dispatches every mutation on the concrete mode instead of
// checking identity presence ad hoc.
type Mode interface {
	// Identity returns the authenticated identity, or "" in local mode.
	Identity() string
	isMode()
}

// LocalMode keeps state in memory and in a durable local snapshot.
// Anonymous sessions run in this mode and are quota limited.
type LocalMode struct {
	State *localstate.Store
}

func (LocalMode) Identity() string { return "" }
func (LocalMode) isMode()          {}

// RemoteMode forwards mutations to the authoritative backing store for an
// authenticated identity.
type RemoteMode struct {
	API RemoteAPI
	ID  string
}

func (m RemoteMode) Identity() string { return m.ID }
func (RemoteMode) isMode()            {}

// Authenticated reports whether m carries an identity.
func Authenticated(m Mode) bool {
	_, ok := m.(RemoteMode)
	return ok
}
