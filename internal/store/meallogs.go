package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/roach88/mealsync/internal/model"
)

// InsertMealLogs appends meal logs for a vendor owned by userID.
// Uses ON CONFLICT DO NOTHING on the natural key: entries whose key already
// exists are skipped, and only the inserted logs are returned.
func (s *Store) InsertMealLogs(ctx context.Context, userID, vendorID string, entries []model.MealEntry) ([]model.MealLog, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("insert meal logs: begin tx: %w", err)
	}
	defer tx.Rollback()

	vendor, err := s.getVendor(ctx, tx, userID, vendorID, false)
	if err != nil {
		return nil, err
	}

	logs := []model.MealLog{}
	for _, e := range entries {
		l, err := newLog(userID, vendor, e)
		if err != nil {
			return nil, err
		}
		l.ID = s.newID()
		inserted, err := s.insertLog(ctx, tx, l)
		if err != nil {
			return nil, fmt.Errorf("insert meal logs: %w", err)
		}
		if inserted {
			logs = append(logs, l)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("insert meal logs: commit: %w", err)
	}
	return logs, nil
}

// UpsertMealLogs creates or updates meal logs by natural key in one
// transaction. Each result is tagged created or updated. Replaying a batch
// returns the same records tagged updated.
func (s *Store) UpsertMealLogs(ctx context.Context, userID, vendorID string, entries []model.MealEntry) ([]model.TaggedLog, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("upsert meal logs: begin tx: %w", err)
	}
	defer tx.Rollback()

	vendor, err := s.getVendor(ctx, tx, userID, vendorID, false)
	if err != nil {
		return nil, err
	}

	results := make([]model.TaggedLog, 0, len(entries))
	for _, e := range entries {
		l, err := newLog(userID, vendor, e)
		if err != nil {
			return nil, err
		}
		l.ID = s.newID()

		// Insert first; the unique constraint decides whether the key exists.
		inserted, err := s.insertLog(ctx, tx, l)
		if err != nil {
			return nil, fmt.Errorf("upsert meal logs: %w", err)
		}
		action := model.ActionCreated
		if !inserted {
			_, err := tx.ExecContext(ctx, s.q(`
				UPDATE meal_logs SET price = ?, quantity = ?
				WHERE user_id = ? AND vendor_id = ? AND meal_type = ? AND date = ?
			`), l.Price, l.Quantity, userID, vendorID, string(l.MealType), l.Date)
			if err != nil {
				return nil, fmt.Errorf("upsert meal logs: update: %w", err)
			}
			action = model.ActionUpdated
		}

		stored, err := s.getLog(ctx, tx, l.Key())
		if err != nil {
			return nil, fmt.Errorf("upsert meal logs: %w", err)
		}
		stored.VendorName = vendor.Name
		results = append(results, model.TaggedLog{MealLog: stored, Action: action})
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("upsert meal logs: commit: %w", err)
	}
	return results, nil
}

// ListMealLogs returns every meal log of userID joined with its vendor name,
// ordered by date.
func (s *Store) ListMealLogs(ctx context.Context, userID string) ([]model.MealLog, error) {
	rows, err := s.db.QueryContext(ctx, s.q(`
		SELECT l.id, l.user_id, l.vendor_id, l.meal_type, l.date, l.price, l.quantity, v.name
		FROM meal_logs l
		JOIN vendors v ON v.id = l.vendor_id
		WHERE l.user_id = ?
		ORDER BY l.date ASC, v.name ASC, l.meal_type ASC, l.id ASC
	`), userID)
	if err != nil {
		return nil, fmt.Errorf("list meal logs: %w", err)
	}
	defer rows.Close()

	logs := []model.MealLog{}
	for rows.Next() {
		var l model.MealLog
		var mealType string
		if err := rows.Scan(&l.ID, &l.OwnerID, &l.VendorID, &mealType, &l.Date, &l.Price, &l.Quantity, &l.VendorName); err != nil {
			return nil, fmt.Errorf("list meal logs: scan: %w", err)
		}
		l.MealType = model.MealType(mealType)
		logs = append(logs, l)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list meal logs: %w", err)
	}
	return logs, nil
}

// DeleteMealLog removes the meal log with the given natural key.
func (s *Store) DeleteMealLog(ctx context.Context, key model.MealKey) error {
	result, err := s.db.ExecContext(ctx, s.q(`
		DELETE FROM meal_logs
		WHERE user_id = ? AND vendor_id = ? AND meal_type = ? AND date = ?
	`), key.OwnerID, key.VendorID, string(key.MealType), key.Date)
	if err != nil {
		return fmt.Errorf("delete meal log: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete meal log: rows affected: %w", err)
	}
	if rows == 0 {
		return ErrMealLogNotFound
	}
	return nil
}

// newLog builds a log for an entry, taking the vendor's offering price when
// the entry has none.
func newLog(userID string, vendor model.Vendor, e model.MealEntry) (model.MealLog, error) {
	price := e.Price.Decimal
	if !e.Price.Valid {
		o, ok := vendor.Offering(e.MealType)
		if !ok {
			return model.MealLog{}, fmt.Errorf("%s on %s: %w", e.MealType, e.Date, ErrPriceRequired)
		}
		price = o.Price
	}
	return model.MealLog{
		OwnerID:    userID,
		VendorID:   vendor.ID,
		MealType:   e.MealType,
		Date:       e.Date,
		Price:      price,
		Quantity:   e.Quantity,
		VendorName: vendor.Name,
	}, nil
}

func (s *Store) insertLog(ctx context.Context, tx *sql.Tx, l model.MealLog) (bool, error) {
	result, err := tx.ExecContext(ctx, s.q(`
		INSERT INTO meal_logs (id, user_id, vendor_id, meal_type, date, price, quantity)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(user_id, vendor_id, meal_type, date) DO NOTHING
	`), l.ID, l.OwnerID, l.VendorID, string(l.MealType), l.Date, l.Price, l.Quantity)
	if err != nil {
		return false, fmt.Errorf("insert: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return rows > 0, nil
}

func (s *Store) getLog(ctx context.Context, q queryer, key model.MealKey) (model.MealLog, error) {
	var l model.MealLog
	var mealType string
	err := q.QueryRowContext(ctx, s.q(`
		SELECT id, user_id, vendor_id, meal_type, date, price, quantity
		FROM meal_logs
		WHERE user_id = ? AND vendor_id = ? AND meal_type = ? AND date = ?
	`), key.OwnerID, key.VendorID, string(key.MealType), key.Date).
		Scan(&l.ID, &l.OwnerID, &l.VendorID, &mealType, &l.Date, &l.Price, &l.Quantity)
	if errors.Is(err, sql.ErrNoRows) {
		return model.MealLog{}, ErrMealLogNotFound
	}
	if err != nil {
		return model.MealLog{}, fmt.Errorf("get meal log: %w", err)
	}
	l.MealType = model.MealType(mealType)
	return l, nil
}
