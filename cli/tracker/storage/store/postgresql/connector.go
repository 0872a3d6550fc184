package postgresql

/*
Настройки, которые могут (а не которые – должны) быть в конфиге для подключения хранилища:

host = "localhost"
port = "5432"
user = "postgres"
password = "postgres"
database = "bustrack"
table = "bus_location"
sslmode = "disable"
*/

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/lib/pq"
	log "github.com/sirupsen/logrus"
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
		log.Warnf("Ключ 'table' не найден в конфигурации хранилища. Используется значение по умолчанию '%s'.", defaultTable)
		table = defaultTable
	}

	connStr := fmt.Sprintf("dbname=%s host=%s port=%s user=%s password=%s sslmode=%s",
		cfg["database"], cfg["host"], cfg["port"], cfg["user"], cfg["password"], valueOr(cfg["sslmode"], "disable"))

	db, err := sql.Open("postgres", connStr)
	if err != nil {
		return fmt.Errorf("ошибка подключения к PostgreSQL: %v", err)
	}
	if err = db.Ping(); err != nil {
		return fmt.Errorf("PostgreSQL недоступен: %v", err)
	}

	c.Store = sqlstore.Store{DB: db, Dialect: dialect(table)}
	return c.Migrate(context.Background())
}

func valueOr(v, def string) string {
	if v == "" {
		return def
	}
	return v
}
