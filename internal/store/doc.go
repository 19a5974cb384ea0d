// Package store provides SQL-backed durable storage for the mealsync server.
//
// The store holds, per identity:
//   - Vendors: unique by (user_id, name)
//   - Vendor meals: one offering per (vendor_id, meal_type)
//   - Meal logs: unique by natural key (user_id, vendor_id, meal_type, date)
//
// # Natural Key Integrity
//
// The natural key is enforced by a UNIQUE constraint, not by application
// code. Upserts are a single INSERT ... ON CONFLICT DO NOTHING followed by an
// UPDATE when no row was inserted, inside one transaction per batch, so two
// concurrent requests for the same key can never both insert.
//
// Deleting a vendor cascades to its offerings and meal logs through
// ON DELETE CASCADE foreign keys.
//
// # Drivers
//
//   - sqlite3 (mattn/go-sqlite3): WAL mode, busy_timeout=5000,
//     foreign_keys=ON, a single connection
//   - pgx (jackc/pgx/v5/stdlib): PostgreSQL through database/sql; queries are
//     written with ? placeholders and rebound to $n
//
// Every read and write is scoped to a user id. A vendor owned by another
// identity is reported exactly like a missing one.
package store
