package meta

import (
	"time"

	"github.com/goliatone/go-metacache/repositorycache"
	"github.com/uptrace/bun"
)

// Model kinds.
const (
	ModelTable = "table"
	ModelView  = "view"
)

// Model is the metadata of one table or view exposed by a connection. Models
// are ordered among the models of their connection.
type Model struct {
	bun.BaseModel `bun:"table:nc_models,alias:m" json:"-" msgpack:"-"`

	ID           string    `bun:"id,pk" json:"id"`
	ProjectID    string    `bun:"project_id" json:"project_id"`
	ConnectionID string    `bun:"base_id,notnull" json:"base_id"`
	TableName    string    `bun:"table_name,notnull" json:"table_name"`
	Title        string    `bun:"title" json:"title"`
	Type         string    `bun:"type" json:"type"`
	Order        int       `bun:"order,nullzero" json:"order"`
	Enabled      bool      `bun:"enabled" json:"enabled"`
	CreatedAt    time.Time `bun:"created_at" json:"created_at"`
	UpdatedAt    time.Time `bun:"updated_at" json:"updated_at"`
}

var _ repositorycache.Entity = (*Model)(nil)

func NewModel() *Model { return &Model{} }

func (m *Model) GetID() string                   { return m.ID }
func (m *Model) SetID(id string)                 { m.ID = id }
func (m *Model) GetParentID() string             { return m.ConnectionID }
func (m *Model) SetParentID(connectionID string) { m.ConnectionID = connectionID }
func (m *Model) GetOrder() int                   { return m.Order }
func (m *Model) SetOrder(order int)              { m.Order = order }

func (m *Model) Touch(now time.Time, inserting bool) {
	if inserting && m.CreatedAt.IsZero() {
		m.CreatedAt = now
	}
	m.UpdatedAt = now
}
