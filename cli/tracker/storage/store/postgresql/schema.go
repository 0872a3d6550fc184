package postgresql

import (
	"fmt"

	"github.com/unibus/tracker/cli/tracker/storage/store/sqlstore"
)

const columns = "bus_ref, bus_code, route_ref, latitude, longitude, speed, status, captured_at, updated_at"

func dialect(table string) sqlstore.Dialect {
	return sqlstore.Dialect{
		Schema: fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
	bus_ref     VARCHAR(64) PRIMARY KEY,
	bus_code    VARCHAR(64),
	route_ref   VARCHAR(64),
	latitude    DOUBLE PRECISION NOT NULL,
	longitude   DOUBLE PRECISION NOT NULL,
	speed       DOUBLE PRECISION NOT NULL DEFAULT 0,
	status      VARCHAR(16) NOT NULL,
	captured_at TIMESTAMPTZ NOT NULL,
	updated_at  TIMESTAMPTZ NOT NULL DEFAULT now()
)`, table),
		Upsert: fmt.Sprintf(`INSERT INTO %[1]s (bus_ref, bus_code, route_ref, latitude, longitude, speed, status, captured_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, now())
ON CONFLICT (bus_ref) DO UPDATE SET
	bus_code = EXCLUDED.bus_code,
	route_ref = COALESCE(EXCLUDED.route_ref, %[1]s.route_ref),
	latitude = EXCLUDED.latitude,
	longitude = EXCLUDED.longitude,
	speed = EXCLUDED.speed,
	status = EXCLUDED.status,
	captured_at = EXCLUDED.captured_at,
	updated_at = now()`, table),
		UpdateStatus: fmt.Sprintf(`UPDATE %s SET status = $1, captured_at = $2, updated_at = now() WHERE bus_ref = $3`, table),
		SelectOne:    fmt.Sprintf(`SELECT %s FROM %s WHERE bus_ref = $1`, columns, table),
		SelectAll:    fmt.Sprintf(`SELECT %s FROM %s ORDER BY bus_ref`, columns, table),
	}
}
