package meta

import (
	"time"

	"github.com/goliatone/go-metacache/repositorycache"
	"github.com/uptrace/bun"
)

// Connection types accepted for external data sources.
const (
	TypePostgres   = "pg"
	TypeMySQL      = "mysql2"
	TypeSQLite     = "sqlite3"
	TypeMSSQL      = "mssql"
	TypeSnowflake  = "snowflake"
	TypeDatabricks = "databricks"
)

var connectionTypes = []any{
	TypePostgres,
	TypeMySQL,
	TypeSQLite,
	TypeMSSQL,
	TypeSnowflake,
	TypeDatabricks,
}

// Connection is an external data source registered under a project.
// Config holds the sealed connection settings; use
// Connections.ConnectionConfig to read them.
type Connection struct {
	bun.BaseModel `bun:"table:nc_bases,alias:b" json:"-" msgpack:"-"`

	ID               string    `bun:"id,pk" json:"id"`
	ProjectID        string    `bun:"project_id,notnull" json:"project_id"`
	Alias            string    `bun:"alias" json:"alias"`
	Type             string    `bun:"type" json:"type"`
	IsMeta           bool      `bun:"is_meta" json:"is_meta"`
	Config           string    `bun:"config" json:"-" msgpack:"config"`
	InflectionColumn string    `bun:"inflection_column" json:"inflection_column"`
	InflectionTable  string    `bun:"inflection_table" json:"inflection_table"`
	Order            int       `bun:"order,nullzero" json:"order"`
	Enabled          bool      `bun:"enabled" json:"enabled"`
	CreatedAt        time.Time `bun:"created_at" json:"created_at"`
	UpdatedAt        time.Time `bun:"updated_at" json:"updated_at"`
}

var _ repositorycache.Entity = (*Connection)(nil)

func NewConnection() *Connection { return &Connection{} }

func (c *Connection) GetID() string                { return c.ID }
func (c *Connection) SetID(id string)              { c.ID = id }
func (c *Connection) GetParentID() string          { return c.ProjectID }
func (c *Connection) SetParentID(projectID string) { c.ProjectID = projectID }
func (c *Connection) GetOrder() int                { return c.Order }
func (c *Connection) SetOrder(order int)           { c.Order = order }

func (c *Connection) Touch(now time.Time, inserting bool) {
	if inserting && c.CreatedAt.IsZero() {
		c.CreatedAt = now
	}
	c.UpdatedAt = now
}

// TableAlias returns the display name of a table of this connection.
func (c *Connection) TableAlias(tableName string) string {
	return Inflect(c.InflectionTable, tableName)
}

// ColumnAlias returns the display name of a column of this connection.
func (c *Connection) ColumnAlias(columnName string) string {
	return Inflect(c.InflectionColumn, columnName)
}
