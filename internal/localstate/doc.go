// Package localstate persists the anonymous-mode view of the store.
//
// The whole view (vendors, meal logs, activities, onboarding flag and month
// cursor) is written as one JSON record under an application namespace,
// "MealTracker" by default. Records are wrapped in a versioned envelope so
// older snapshots can be migrated on load.
//
// Backends:
//   - File:   <dir>/<namespace>.json, replaced atomically via rename
//   - S3:     s3://<bucket>/<prefix><namespace>.json (AWS S3 or MinIO)
//   - Memory: process-local, for tests and ephemeral sessions
package localstate
