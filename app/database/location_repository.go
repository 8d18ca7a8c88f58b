package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/lysyi3m/tracker-relay/app/tracker"
)

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// LocationsTable implements LocationRepository over the locations table
type LocationsTable struct {
	db *DB
}

// NewLocationsTable creates a new location repository
func NewLocationsTable(db *DB) *LocationsTable {
	return &LocationsTable{db: db}
}

// GetSeenTimes returns every recorded fix epoch once, oldest first.
func (r *LocationsTable) GetSeenTimes(ctx context.Context) ([]int64, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT DISTINCT fix_time FROM locations ORDER BY fix_time`)
	if err != nil {
		return nil, fmt.Errorf("failed to query location times: %w", err)
	}
	defer rows.Close()

	var times []int64
	for rows.Next() {
		var ts int64
		if err := rows.Scan(&ts); err != nil {
			return nil, fmt.Errorf("failed to scan location time: %w", err)
		}
		times = append(times, ts)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate location times: %w", err)
	}

	return times, nil
}

func (r *LocationsTable) GetLocationCount(ctx context.Context) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(DISTINCT fix_time) FROM locations`).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to get location count: %w", err)
	}
	return count, nil
}

// GetLatestLocation returns the most recent fix, or nil when none are recorded.
func (r *LocationsTable) GetLatestLocation(ctx context.Context) (*tracker.LocationFix, error) {
	var (
		fix      tracker.LocationFix
		isSample int
	)
	err := r.db.QueryRowContext(ctx, `
		SELECT fix_time, latitude, longitude, course, boat_speed,
			true_wind_angle, true_wind_direction, true_wind_speed, gust, is_sample
		FROM locations
		ORDER BY fix_time DESC, id DESC
		LIMIT 1
	`).Scan(&fix.Time, &fix.Latitude, &fix.Longitude, &fix.Course, &fix.BoatSpeed,
		&fix.TrueWindAngle, &fix.TrueWindDirection, &fix.TrueWindSpeed, &fix.Gust, &isSample)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get latest location: %w", err)
	}

	fix.IsSample = isSample != 0
	return &fix, nil
}

func insertLocations(ctx context.Context, ex execer, fixes []tracker.LocationFix, recordedAt time.Time) error {
	for _, fix := range fixes {
		isSample := 0
		if fix.IsSample {
			isSample = 1
		}

		_, err := ex.ExecContext(ctx, `
			INSERT INTO locations (
				fix_time, latitude, longitude, course, boat_speed,
				true_wind_angle, true_wind_direction, true_wind_speed, gust,
				is_sample, recorded_at
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		`, fix.Time, fix.Latitude, fix.Longitude, fix.Course, fix.BoatSpeed,
			fix.TrueWindAngle, fix.TrueWindDirection, fix.TrueWindSpeed, fix.Gust,
			isSample, recordedAt.Unix())
		if err != nil {
			return fmt.Errorf("failed to insert location %d: %w", fix.Time, err)
		}
	}
	return nil
}
