// Package sqlstore holds the location queries shared by the SQL backends.
package sqlstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/unibus/tracker/cli/tracker/types"
	"github.com/unibus/tracker/libs/live"
)

// Dialect carries the backend specific statements. Placeholders are in the
// backend's own style; column order is fixed by the Store methods.
type Dialect struct {
	Schema       string
	Upsert       string
	UpdateStatus string
	SelectOne    string
	SelectAll    string
}

type Store struct {
	DB      *sql.DB
	Dialect Dialect
}

func (s *Store) Migrate(ctx context.Context) error {
	if _, err := s.DB.ExecContext(ctx, s.Dialect.Schema); err != nil {
		return fmt.Errorf("не удалось создать таблицу местоположений: %w", err)
	}
	return nil
}

func (s *Store) Upsert(ctx context.Context, loc types.Location) error {
	route := sql.NullString{String: loc.RouteRef, Valid: loc.RouteRef != ""}
	_, err := s.DB.ExecContext(ctx, s.Dialect.Upsert,
		loc.BusRef, loc.BusCode, route, loc.Latitude, loc.Longitude, loc.Speed, loc.Status, loc.CapturedAt)
	if err != nil {
		return fmt.Errorf("не удалось сохранить местоположение %s: %w", loc.BusRef, err)
	}
	return nil
}

func (s *Store) UpdateStatus(ctx context.Context, busRef string, status live.Status, at time.Time) error {
	res, err := s.DB.ExecContext(ctx, s.Dialect.UpdateStatus, status, at, busRef)
	if err != nil {
		return fmt.Errorf("не удалось обновить статус %s: %w", busRef, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("не удалось обновить статус %s: %w", busRef, err)
	}
	if n == 0 {
		return types.ErrLocationNotFound
	}
	return nil
}

func (s *Store) Get(ctx context.Context, busRef string) (types.Location, error) {
	row := s.DB.QueryRowContext(ctx, s.Dialect.SelectOne, busRef)
	loc, err := scan(row)
	if errors.Is(err, sql.ErrNoRows) {
		return types.Location{}, types.ErrLocationNotFound
	}
	return loc, err
}

func (s *Store) List(ctx context.Context) ([]types.Location, error) {
	rows, err := s.DB.QueryContext(ctx, s.Dialect.SelectAll)
	if err != nil {
		return nil, fmt.Errorf("не удалось получить местоположения: %w", err)
	}
	defer rows.Close()

	var out []types.Location
	for rows.Next() {
		loc, err := scan(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, loc)
	}
	return out, rows.Err()
}

func (s *Store) Close() error {
	if s.DB == nil {
		return nil
	}
	return s.DB.Close()
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scan(r scanner) (types.Location, error) {
	var (
		loc   types.Location
		code  sql.NullString
		route sql.NullString
	)
	err := r.Scan(&loc.BusRef, &code, &route, &loc.Latitude, &loc.Longitude, &loc.Speed, &loc.Status, &loc.CapturedAt, &loc.UpdatedAt)
	if err != nil {
		return types.Location{}, err
	}
	loc.BusCode = code.String
	loc.RouteRef = route.String
	return loc, nil
}
