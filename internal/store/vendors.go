package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/roach88/mealsync/internal/model"
)

// CreateVendor inserts a vendor and its offerings for userID.
// Uses ON CONFLICT(user_id, name) DO NOTHING: when the identity already owns
// a vendor with the same name, the existing vendor is returned and
// created=false.
func (s *Store) CreateVendor(ctx context.Context, userID string, v model.Vendor) (vendor model.Vendor, created bool, err error) {
	v.Name = model.NormalizeName(v.Name)
	if v.Status == "" {
		v.Status = model.StatusActive
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return model.Vendor{}, false, fmt.Errorf("create vendor: begin tx: %w", err)
	}
	defer tx.Rollback() // No-op if committed

	id := s.newID()
	result, err := tx.ExecContext(ctx, s.q(`
		INSERT INTO vendors (id, user_id, name, status)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(user_id, name) DO NOTHING
	`), id, userID, v.Name, string(v.Status))
	if err != nil {
		return model.Vendor{}, false, fmt.Errorf("create vendor: insert: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return model.Vendor{}, false, fmt.Errorf("create vendor: rows affected: %w", err)
	}

	if rows == 0 {
		err = tx.QueryRowContext(ctx, s.q(`
			SELECT id FROM vendors WHERE user_id = ? AND name = ?
		`), userID, v.Name).Scan(&id)
		if err != nil {
			return model.Vendor{}, false, fmt.Errorf("create vendor: select existing: %w", err)
		}
	} else {
		if err := s.writeOfferings(ctx, tx, id, v.Offerings); err != nil {
			return model.Vendor{}, false, fmt.Errorf("create vendor: %w", err)
		}
		created = true
	}

	vendor, err = s.getVendor(ctx, tx, userID, id, false)
	if err != nil {
		return model.Vendor{}, false, fmt.Errorf("create vendor: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return model.Vendor{}, false, fmt.Errorf("create vendor: commit: %w", err)
	}
	return vendor, created, nil
}

// UpdateVendor replaces the name and status of a vendor. Offerings are
// replaced only when v carries at least one.
func (s *Store) UpdateVendor(ctx context.Context, userID string, v model.Vendor) (model.Vendor, error) {
	v.Name = model.NormalizeName(v.Name)
	if v.Status == "" {
		v.Status = model.StatusActive
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return model.Vendor{}, fmt.Errorf("update vendor: begin tx: %w", err)
	}
	defer tx.Rollback()

	var taken int
	err = tx.QueryRowContext(ctx, s.q(`
		SELECT COUNT(*) FROM vendors WHERE user_id = ? AND name = ? AND id <> ?
	`), userID, v.Name, v.ID).Scan(&taken)
	if err != nil {
		return model.Vendor{}, fmt.Errorf("update vendor: check name: %w", err)
	}
	if taken > 0 {
		return model.Vendor{}, ErrVendorNameTaken
	}

	result, err := tx.ExecContext(ctx, s.q(`
		UPDATE vendors SET name = ?, status = ? WHERE id = ? AND user_id = ?
	`), v.Name, string(v.Status), v.ID, userID)
	if err != nil {
		return model.Vendor{}, fmt.Errorf("update vendor: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return model.Vendor{}, fmt.Errorf("update vendor: rows affected: %w", err)
	}
	if rows == 0 {
		return model.Vendor{}, ErrVendorNotFound
	}

	if len(v.Offerings) > 0 {
		if _, err := tx.ExecContext(ctx, s.q(`DELETE FROM vendor_meals WHERE vendor_id = ?`), v.ID); err != nil {
			return model.Vendor{}, fmt.Errorf("update vendor: clear offerings: %w", err)
		}
		if err := s.writeOfferings(ctx, tx, v.ID, v.Offerings); err != nil {
			return model.Vendor{}, fmt.Errorf("update vendor: %w", err)
		}
	}

	updated, err := s.getVendor(ctx, tx, userID, v.ID, false)
	if err != nil {
		return model.Vendor{}, fmt.Errorf("update vendor: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return model.Vendor{}, fmt.Errorf("update vendor: commit: %w", err)
	}
	return updated, nil
}

// DeleteVendor removes a vendor owned by userID. Offerings and meal logs are
// removed by ON DELETE CASCADE. Returns the number of meal logs removed.
func (s *Store) DeleteVendor(ctx context.Context, userID, id string) (int64, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("delete vendor: begin tx: %w", err)
	}
	defer tx.Rollback()

	var logs int64
	err = tx.QueryRowContext(ctx, s.q(`
		SELECT COUNT(*) FROM meal_logs WHERE vendor_id = ? AND user_id = ?
	`), id, userID).Scan(&logs)
	if err != nil {
		return 0, fmt.Errorf("delete vendor: count logs: %w", err)
	}

	result, err := tx.ExecContext(ctx, s.q(`DELETE FROM vendors WHERE id = ? AND user_id = ?`), id, userID)
	if err != nil {
		return 0, fmt.Errorf("delete vendor: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("delete vendor: rows affected: %w", err)
	}
	if rows == 0 {
		return 0, ErrVendorNotFound
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("delete vendor: commit: %w", err)
	}
	return logs, nil
}

// GetVendor returns a vendor owned by userID with all of its offerings.
func (s *Store) GetVendor(ctx context.Context, userID, id string) (model.Vendor, error) {
	return s.getVendor(ctx, s.db, userID, id, false)
}

// ListVendors returns the vendors owned by userID ordered by name. Only
// offered meals are included.
func (s *Store) ListVendors(ctx context.Context, userID string) ([]model.Vendor, error) {
	rows, err := s.db.QueryContext(ctx, s.q(`
		SELECT id, user_id, name, status
		FROM vendors
		WHERE user_id = ?
		ORDER BY name ASC, id ASC
	`), userID)
	if err != nil {
		return nil, fmt.Errorf("list vendors: %w", err)
	}
	defer rows.Close()

	vendors := []model.Vendor{}
	for rows.Next() {
		v, err := scanVendor(rows)
		if err != nil {
			return nil, fmt.Errorf("list vendors: %w", err)
		}
		vendors = append(vendors, v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list vendors: %w", err)
	}
	rows.Close()

	for i := range vendors {
		offerings, err := s.readOfferings(ctx, s.db, vendors[i].ID, true)
		if err != nil {
			return nil, fmt.Errorf("list vendors: %w", err)
		}
		vendors[i].Offerings = offerings
	}
	return vendors, nil
}

// queryer is satisfied by *sql.DB and *sql.Tx.
type queryer interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (s *Store) getVendor(ctx context.Context, q queryer, userID, id string, offeredOnly bool) (model.Vendor, error) {
	row := q.QueryRowContext(ctx, s.q(`
		SELECT id, user_id, name, status
		FROM vendors
		WHERE id = ? AND user_id = ?
	`), id, userID)
	v, err := scanVendor(row)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Vendor{}, ErrVendorNotFound
	}
	if err != nil {
		return model.Vendor{}, fmt.Errorf("get vendor: %w", err)
	}
	v.Offerings, err = s.readOfferings(ctx, q, id, offeredOnly)
	if err != nil {
		return model.Vendor{}, err
	}
	return v, nil
}

func (s *Store) readOfferings(ctx context.Context, q queryer, vendorID string, offeredOnly bool) ([]model.Offering, error) {
	query := `
		SELECT meal_type, offered, price
		FROM vendor_meals
		WHERE vendor_id = ?`
	if offeredOnly {
		query += ` AND offered = TRUE`
	}
	query += `
		ORDER BY CASE meal_type WHEN 'breakfast' THEN 0 WHEN 'lunch' THEN 1 ELSE 2 END`

	rows, err := q.QueryContext(ctx, s.q(query), vendorID)
	if err != nil {
		return nil, fmt.Errorf("read offerings: %w", err)
	}
	defer rows.Close()

	var offerings []model.Offering
	for rows.Next() {
		var o model.Offering
		var mealType string
		if err := rows.Scan(&mealType, &o.Offered, &o.Price); err != nil {
			return nil, fmt.Errorf("read offerings: scan: %w", err)
		}
		o.MealType = model.MealType(mealType)
		offerings = append(offerings, o)
	}
	return offerings, rows.Err()
}

func (s *Store) writeOfferings(ctx context.Context, tx *sql.Tx, vendorID string, offerings []model.Offering) error {
	for _, o := range offerings {
		_, err := tx.ExecContext(ctx, s.q(`
			INSERT INTO vendor_meals (vendor_id, meal_type, offered, price)
			VALUES (?, ?, ?, ?)
		`), vendorID, string(o.MealType), o.Offered, o.Price)
		if err != nil {
			return fmt.Errorf("write offering %s: %w", o.MealType, err)
		}
	}
	return nil
}

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanVendor(r rowScanner) (model.Vendor, error) {
	var v model.Vendor
	var status string
	if err := r.Scan(&v.ID, &v.OwnerID, &v.Name, &status); err != nil {
		return model.Vendor{}, err
	}
	v.Status = model.VendorStatus(status)
	return v, nil
}
