package meta

import (
	"context"

	"github.com/goliatone/go-metacache/repositorycache"
	"go.uber.org/zap"
)

// Models manages the table and view metadata of connections.
type Models struct {
	repo *repositorycache.Repository[*Model]
	log  *zap.Logger
}

func NewModels(repo *repositorycache.Repository[*Model], logger *zap.Logger) *Models {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Models{repo: repo, log: logger.Named("models")}
}

// Create adds a model to conn. The title defaults to the table name run
// through the connection's table inflection.
func (s *Models) Create(ctx context.Context, conn *Connection, fields ModelFields) (*Model, error) {
	if err := fields.validate(true); err != nil {
		return nil, repositorycache.ErrInvalid.Wrap(err)
	}

	tableName := *fields.TableName
	model := &Model{
		ProjectID:    conn.ProjectID,
		ConnectionID: conn.ID,
		TableName:    tableName,
		Title:        stringValue(fields.Title, conn.TableAlias(tableName)),
		Type:         stringValue(fields.Type, ModelTable),
		Order:        intValue(fields.Order, 0),
		Enabled:      boolValue(fields.Enabled, true),
	}

	created, err := s.repo.Create(ctx, model)
	if err != nil {
		return nil, err
	}
	s.log.Debug("model created",
		zap.String("id", created.ID),
		zap.String("connection_id", conn.ID),
		zap.String("table_name", tableName),
	)
	return created, nil
}

func (s *Models) Update(ctx context.Context, id string, fields ModelFields) (*Model, error) {
	if err := fields.validate(false); err != nil {
		return nil, repositorycache.ErrInvalid.Wrap(err)
	}
	return s.repo.Update(ctx, id, "", func(model *Model) error {
		model.TableName = stringValue(fields.TableName, model.TableName)
		model.Title = stringValue(fields.Title, model.Title)
		model.Type = stringValue(fields.Type, model.Type)
		model.Order = intValue(fields.Order, model.Order)
		model.Enabled = boolValue(fields.Enabled, model.Enabled)
		return nil
	})
}

func (s *Models) Get(ctx context.Context, id string) (*Model, error) {
	return s.repo.Get(ctx, id)
}

// List returns the models of a connection in display order.
func (s *Models) List(ctx context.Context, connectionID string) ([]*Model, error) {
	return s.repo.List(ctx, connectionID)
}

func (s *Models) Delete(ctx context.Context, id string) error {
	return s.repo.Delete(ctx, id)
}
