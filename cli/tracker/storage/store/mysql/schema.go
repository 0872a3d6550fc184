package mysql

import (
	"fmt"

	"github.com/unibus/tracker/cli/tracker/storage/store/sqlstore"
)

const columns = "bus_ref, bus_code, route_ref, latitude, longitude, speed, status, captured_at, updated_at"

func dialect(table string) sqlstore.Dialect {
	return sqlstore.Dialect{
		Schema: fmt.Sprintf("CREATE TABLE IF NOT EXISTS `%s` ("+`
	bus_ref     VARCHAR(64) NOT NULL PRIMARY KEY,
	bus_code    VARCHAR(64) NULL,
	route_ref   VARCHAR(64) NULL,
	latitude    DOUBLE NOT NULL,
	longitude   DOUBLE NOT NULL,
	speed       DOUBLE NOT NULL DEFAULT 0,
	status      VARCHAR(16) NOT NULL,
	captured_at DATETIME(3) NOT NULL,
	updated_at  DATETIME(3) NOT NULL
)`, table),
		Upsert: fmt.Sprintf("INSERT INTO `%s` "+`(bus_ref, bus_code, route_ref, latitude, longitude, speed, status, captured_at, updated_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, NOW(3))
ON DUPLICATE KEY UPDATE
	bus_code = VALUES(bus_code),
	route_ref = COALESCE(VALUES(route_ref), route_ref),
	latitude = VALUES(latitude),
	longitude = VALUES(longitude),
	speed = VALUES(speed),
	status = VALUES(status),
	captured_at = VALUES(captured_at),
	updated_at = NOW(3)`, table),
		UpdateStatus: fmt.Sprintf("UPDATE `%s` SET status = ?, captured_at = ?, updated_at = NOW(3) WHERE bus_ref = ?", table),
		SelectOne:    fmt.Sprintf("SELECT %s FROM `%s` WHERE bus_ref = ?", columns, table),
		SelectAll:    fmt.Sprintf("SELECT %s FROM `%s` ORDER BY bus_ref", columns, table),
	}
}
