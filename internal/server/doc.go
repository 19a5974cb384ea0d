// Package server exposes the authoritative backing store over HTTP.
//
// Routes (all but /healthz and /metrics require a bearer token whose
// subject is the caller's identity):
//
//	POST   /meallog          append meal logs for one vendor
//	GET    /meallog          list the caller's meal logs joined with vendor names
//	DELETE /meallog          delete one meal log by natural key
//	POST   /meallog/upsert   create-or-update meal logs by natural key
//	POST   /vendor           create a vendor, or return the existing one by name
//	GET    /vendor           list vendors with their offered meals
//	PUT    /vendor?id=       update a vendor, replacing offerings when sent
//	DELETE /vendor?id=       delete a vendor and its meal logs
//
// Errors are JSON objects with a "message" field. Status codes: 400 for
// malformed input, 401 for a missing or invalid token, 404 for records that
// do not exist for the caller, 500 for storage failures.
package server
