package metastore

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/dialect/sqlitedialect"
)

const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// Open connects to a relational metadata database and verifies it is reachable.
func Open(ctx context.Context, driver, dsn string) (*bun.DB, error) {
	var db *bun.DB
	switch driver {
	case DriverSQLite:
		sqldb, err := sql.Open("sqlite3", dsn)
		if err != nil {
			return nil, Error.Wrap(err)
		}
		// sqlite serialises writers; a single connection also keeps
		// ":memory:" databases alive across queries.
		sqldb.SetMaxOpenConns(1)
		db = bun.NewDB(sqldb, sqlitedialect.New())
	case DriverPostgres:
		sqldb, err := sql.Open("postgres", dsn)
		if err != nil {
			return nil, Error.Wrap(err)
		}
		db = bun.NewDB(sqldb, pgdialect.New())
	default:
		return nil, Error.New("unsupported driver %q", driver)
	}

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, Error.New("ping %s: %v", driver, err)
	}
	return db, nil
}

// TableOptions names the columns a BunTable filters and sorts on.
type TableOptions struct {
	IDColumn      string
	ParentColumn  string
	OrderColumn   string
	CreatedColumn string
}

func (o TableOptions) withDefaults() TableOptions {
	if o.IDColumn == "" {
		o.IDColumn = "id"
	}
	if o.OrderColumn == "" {
		o.OrderColumn = "order"
	}
	if o.CreatedColumn == "" {
		o.CreatedColumn = "created_at"
	}
	return o
}

// BunTable is a Table backed by a bun database handle. E must be a pointer
// to a bun model struct.
type BunTable[E Record] struct {
	db        bun.IDB
	newRecord func() E
	opts      TableOptions
	now       func() time.Time
}

var (
	_ Table[Record]   = (*BunTable[Record])(nil)
	_ Updater[Record] = (*BunTable[Record])(nil)
)

func NewBunTable[E Record](db bun.IDB, newRecord func() E, opts TableOptions) *BunTable[E] {
	return &BunTable[E]{
		db:        db,
		newRecord: newRecord,
		opts:      opts.withDefaults(),
		now:       time.Now,
	}
}

// CreateTable creates the backing table when it does not exist yet.
func (t *BunTable[E]) CreateTable(ctx context.Context) error {
	_, err := t.db.NewCreateTable().
		Model(t.newRecord()).
		IfNotExists().
		Exec(ctx)
	return Error.Wrap(err)
}

func (t *BunTable[E]) Insert(ctx context.Context, record E) (string, error) {
	if record.GetID() == "" {
		record.SetID(uuid.NewString())
	}
	record.Touch(stamp(t.now), true)

	if _, err := t.db.NewInsert().Model(record).Exec(ctx); err != nil {
		return "", Error.Wrap(err)
	}
	return record.GetID(), nil
}

func (t *BunTable[E]) Get(ctx context.Context, id string) (E, bool, error) {
	record := t.newRecord()
	err := t.db.NewSelect().
		Model(record).
		Where("? = ?", bun.Ident(t.opts.IDColumn), id).
		Limit(1).
		Scan(ctx)
	if err != nil {
		var zero E
		if errors.Is(err, sql.ErrNoRows) {
			return zero, false, nil
		}
		return zero, false, Error.Wrap(err)
	}
	return record, true, nil
}

func (t *BunTable[E]) List(ctx context.Context, filter Filter) ([]E, error) {
	records := make([]E, 0)
	q := t.db.NewSelect().Model(&records)
	q = t.applyFilter(q, filter)

	order := bun.Ident(t.opts.OrderColumn)
	q = q.OrderExpr("? IS NULL ASC, ? ASC", order, order).
		OrderExpr("? ASC", bun.Ident(t.opts.CreatedColumn))

	if err := q.Scan(ctx); err != nil {
		return nil, Error.Wrap(err)
	}
	return records, nil
}

func (t *BunTable[E]) Update(ctx context.Context, record E) (bool, error) {
	record.Touch(stamp(t.now), false)

	res, err := t.db.NewUpdate().
		Model(record).
		WherePK().
		Exec(ctx)
	if err != nil {
		return false, Error.Wrap(err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, Error.Wrap(err)
	}
	return affected > 0, nil
}

func (t *BunTable[E]) Delete(ctx context.Context, id string) error {
	_, err := t.db.NewDelete().
		Model(t.newRecord()).
		Where("? = ?", bun.Ident(t.opts.IDColumn), id).
		Exec(ctx)
	return Error.Wrap(err)
}

func (t *BunTable[E]) DeleteWhere(ctx context.Context, filter Filter) (int, error) {
	q := t.db.NewDelete().Model(t.newRecord())
	filtered := false
	if filter.ParentID != "" && t.opts.ParentColumn != "" {
		q = q.Where("? = ?", bun.Ident(t.opts.ParentColumn), filter.ParentID)
		filtered = true
	}
	if len(filter.IDs) > 0 {
		q = q.Where("? IN (?)", bun.Ident(t.opts.IDColumn), bun.In(filter.IDs))
		filtered = true
	}
	if !filtered {
		// bun refuses unconditional deletes
		q = q.Where("1 = 1")
	}

	res, err := q.Exec(ctx)
	if err != nil {
		return 0, Error.Wrap(err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, Error.Wrap(err)
	}
	return int(affected), nil
}

func (t *BunTable[E]) applyFilter(q *bun.SelectQuery, filter Filter) *bun.SelectQuery {
	if filter.ParentID != "" && t.opts.ParentColumn != "" {
		q = q.Where("? = ?", bun.Ident(t.opts.ParentColumn), filter.ParentID)
	}
	if len(filter.IDs) > 0 {
		q = q.Where("? IN (?)", bun.Ident(t.opts.IDColumn), bun.In(filter.IDs))
	}
	return q
}
