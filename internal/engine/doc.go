// Package engine implements the client-side state store of mealsync.
//
// The Store holds one session's vendors, meal logs, activity log, onboarding
// flag and month cursor, and routes every mutation to the active persistence
// mode:
//
//   - LocalMode: anonymous sessions. Mutations apply synchronously in memory
//     and the view is written to a durable snapshot (see package localstate).
//     A QuotaGuard caps the lifetime number of meal logs.
//   - RemoteMode: authenticated sessions. Mutations are forwarded to the
//     authoritative backing store through a RemoteAPI and the view is
//     updated only after the call succeeds.
//
// The mode is selected by SetIdentity. Switching modes clears the view and
// rehydrates it from the new mode; records are never migrated between modes.
//
// ACTIVITY LOG:
//
// Mutations produce Effects. A single reducer (auditLog) turns effects into
// Activity entries and prepends them, so the log is always newest first and
// grows only through store mutations.
//
// CONCURRENCY:
//
// The store lock guards the view and is never held across a network call.
// UpsertMeals fans batches out to the backing store concurrently, waits for
// every batch to settle and merges the successful ones one at a time, so a
// partial failure reports exactly which vendors were not saved.
package engine
