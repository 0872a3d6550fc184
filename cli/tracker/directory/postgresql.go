package directory

import (
	"context"
	"errors"
	"fmt"

	"github.com/unibus/tracker/cli/tracker/types"
	"github.com/unibus/tracker/libs/live"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const defaultBusTable = "bus"

type busRow struct {
	ID      string `gorm:"column:id"`
	Code    string `gorm:"column:code"`
	Name    string `gorm:"column:name"`
	Plate   string `gorm:"column:plate"`
	RouteID string `gorm:"column:route_id"`
	Status  string `gorm:"column:status"`
}

func (r busRow) toBus() types.Bus {
	status, err := live.ParseStatus(r.Status)
	if err != nil {
		status = ""
	}
	return types.Bus{
		Ref:      r.ID,
		Code:     r.Code,
		Name:     r.Name,
		Plate:    r.Plate,
		RouteRef: r.RouteID,
		Status:   status,
	}
}

// Postgres reads buses from the fleet administration table.
type Postgres struct {
	db    *gorm.DB
	table string
}

func OpenPostgres(dsn, table string) (*Postgres, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	if err != nil {
		return nil, fmt.Errorf("не удалось подключиться к справочнику автобусов: %w", err)
	}
	return NewPostgres(db, table), nil
}

func NewPostgres(db *gorm.DB, table string) *Postgres {
	if table == "" {
		table = defaultBusTable
	}
	return &Postgres{db: db, table: table}
}

func (p *Postgres) query(ctx context.Context) *gorm.DB {
	return p.db.WithContext(ctx).Table(p.table).Select("id, code, name, plate, route_id, status")
}

func (p *Postgres) BusByCode(ctx context.Context, code string) (types.Bus, error) {
	var row busRow
	err := p.query(ctx).Where("code = ?", code).Take(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return types.Bus{}, ErrUnknownBus
	}
	if err != nil {
		return types.Bus{}, fmt.Errorf("не удалось найти автобус %s: %w", code, err)
	}
	return row.toBus(), nil
}

func (p *Postgres) AllBuses(ctx context.Context) ([]types.Bus, error) {
	var rows []busRow
	if err := p.query(ctx).Scan(&rows).Error; err != nil {
		return nil, fmt.Errorf("не удалось получить список автобусов: %w", err)
	}
	out := make([]types.Bus, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.toBus())
	}
	return out, nil
}

func (p *Postgres) Close() error {
	sqlDB, err := p.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
