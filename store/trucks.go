package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"
)

// Trucks looks up fleet assets by license plate.
type Trucks struct {
	db *sqlx.DB
}

// FindByPlate resolves a plate to its truck row. The match is trimmed and
// case-insensitive. Returns ErrTruckNotFound on a miss.
func (r *Trucks) FindByPlate(ctx context.Context, plate string) (*Truck, error) {
	normalized := strings.ToUpper(strings.TrimSpace(plate))
	if normalized == "" {
		return nil, ErrTruckNotFound
	}

	const q = `SELECT * FROM trucks WHERE UPPER(license_plate) = $1`
	var truck Truck
	if err := r.db.GetContext(ctx, &truck, q, normalized); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrTruckNotFound
		}
		return nil, fmt.Errorf("trucks find by plate: %w", err)
	}
	return &truck, nil
}

// Count returns the number of truck rows.
func (r *Trucks) Count(ctx context.Context) (int, error) {
	var n int
	if err := r.db.GetContext(ctx, &n, `SELECT COUNT(*) FROM trucks`); err != nil {
		return 0, fmt.Errorf("trucks count: %w", err)
	}
	return n, nil
}

// Insert creates a truck row, ignoring plates that already exist.
func (r *Trucks) Insert(ctx context.Context, t *Truck) error {
	const q = `
		INSERT INTO trucks (license_plate, driver_name, model, year, status, last_maintenance, additional_info)
		VALUES (:license_plate, :driver_name, :model, :year, :status, :last_maintenance, :additional_info)
		ON CONFLICT (license_plate) DO NOTHING`
	if _, err := r.db.NamedExecContext(ctx, q, t); err != nil {
		return fmt.Errorf("trucks insert: %w", err)
	}
	return nil
}
