package mysql

/*
Настройки для подключения хранилища:

host = "localhost"
port = "3306"
user = "root"
password = "secret"
database = "bustrack"
table = "bus_location"
*/

import (
	"context"
	"database/sql"
	"fmt"

	driver "github.com/go-sql-driver/mysql"
	"github.com/unibus/tracker/cli/tracker/storage/store/sqlstore"
)

const defaultTable = "bus_location"

type Connector struct {
	sqlstore.Store
	config map[string]string
}

func (c *Connector) Init(cfg map[string]string) error {
	if cfg == nil {
		return fmt.Errorf("некорректная ссылка на конфигурацию")
	}
	c.config = cfg

	table := cfg["table"]
	if table == "" {
		table = defaultTable
	}

	db, err := sql.Open("mysql", dsnConfig(cfg).FormatDSN())
	if err != nil {
		return fmt.Errorf("ошибка подключения к MySQL: %v", err)
	}
	if err = db.Ping(); err != nil {
		return fmt.Errorf("MySQL недоступен: %v", err)
	}

	c.Store = sqlstore.Store{DB: db, Dialect: dialect(table)}
	return c.Migrate(context.Background())
}

// dsnConfig reports matched rather than changed rows so a status update that
// changes nothing is not mistaken for a missing location.
func dsnConfig(cfg map[string]string) *driver.Config {
	dsn := driver.NewConfig()
	dsn.User = cfg["user"]
	dsn.Passwd = cfg["password"]
	dsn.Net = "tcp"
	dsn.Addr = fmt.Sprintf("%s:%s", cfg["host"], cfg["port"])
	dsn.DBName = cfg["database"]
	dsn.ParseTime = true
	dsn.ClientFoundRows = true
	return dsn
}
