package meta

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/goliatone/go-metacache/repositorycache"
	"go.uber.org/zap"
)

// ConnectionsOptions configures a Connections service.
type ConnectionsOptions struct {
	// MetaDB is returned as the config of connections flagged is_meta.
	MetaDB map[string]any
	// Models, when set, lists the models owned by a connection.
	Models *Models
	Logger *zap.Logger
}

// Connections manages the external data sources of projects.
type Connections struct {
	repo   *repositorycache.Repository[*Connection]
	crypto Crypto
	metaDB map[string]any
	models *Models
	log    *zap.Logger
}

func NewConnections(repo *repositorycache.Repository[*Connection], crypto Crypto, opts ConnectionsOptions) *Connections {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	return &Connections{
		repo:   repo,
		crypto: crypto,
		metaDB: opts.MetaDB,
		models: opts.Models,
		log:    opts.Logger.Named("connections"),
	}
}

// Create registers a connection under projectID. Inflection modes default to
// camelize and new connections are enabled unless told otherwise.
func (s *Connections) Create(ctx context.Context, projectID string, fields ConnectionFields) (*Connection, error) {
	if projectID == "" {
		return nil, repositorycache.ErrInvalid.New("project id is required")
	}
	if err := fields.validate(true); err != nil {
		return nil, repositorycache.ErrInvalid.Wrap(err)
	}

	conn := &Connection{
		ProjectID:        projectID,
		Alias:            stringValue(fields.Alias, ""),
		Type:             *fields.Type,
		IsMeta:           boolValue(fields.IsMeta, false),
		InflectionColumn: stringValue(fields.InflectionColumn, InflectionCamelize),
		InflectionTable:  stringValue(fields.InflectionTable, InflectionCamelize),
		Order:            intValue(fields.Order, 0),
		Enabled:          boolValue(fields.Enabled, true),
	}
	if fields.Config != nil {
		sealed, err := s.seal(fields.Config)
		if err != nil {
			return nil, err
		}
		conn.Config = sealed
	}

	created, err := s.repo.Create(ctx, conn)
	if err != nil {
		return nil, err
	}
	s.log.Info("connection created",
		zap.String("id", created.ID),
		zap.String("project_id", projectID),
		zap.String("type", created.Type),
	)
	return created, nil
}

// Update applies fields to the connection. An omitted type keeps the
// previous one and the config is sealed again only when a new one is given.
// A non empty projectID moves the connection to that project.
func (s *Connections) Update(ctx context.Context, id, projectID string, fields ConnectionFields) (*Connection, error) {
	if err := fields.validate(false); err != nil {
		return nil, repositorycache.ErrInvalid.Wrap(err)
	}

	var sealed string
	if fields.Config != nil {
		var err error
		if sealed, err = s.seal(fields.Config); err != nil {
			return nil, err
		}
	}

	return s.repo.Update(ctx, id, projectID, func(conn *Connection) error {
		conn.Alias = stringValue(fields.Alias, conn.Alias)
		conn.Type = stringValue(fields.Type, conn.Type)
		conn.IsMeta = boolValue(fields.IsMeta, conn.IsMeta)
		conn.InflectionColumn = stringValue(fields.InflectionColumn, conn.InflectionColumn)
		conn.InflectionTable = stringValue(fields.InflectionTable, conn.InflectionTable)
		conn.Order = intValue(fields.Order, conn.Order)
		conn.Enabled = boolValue(fields.Enabled, conn.Enabled)
		if sealed != "" {
			conn.Config = sealed
		}
		if !conn.IsMeta && conn.Config == "" {
			return errors.New("config is required for connections that are not meta")
		}
		return nil
	})
}

func (s *Connections) Get(ctx context.Context, id string) (*Connection, error) {
	return s.repo.Get(ctx, id)
}

// List returns the connections of projectID in display order.
func (s *Connections) List(ctx context.Context, projectID string) ([]*Connection, error) {
	return s.repo.List(ctx, projectID)
}

// Delete removes the connection together with its models.
func (s *Connections) Delete(ctx context.Context, id string) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.log.Info("connection deleted", zap.String("id", id))
	return nil
}

// Reorder restores dense ordering of the connections of projectID and
// returns the number of rewritten connections.
func (s *Connections) Reorder(ctx context.Context, projectID, keepID string) (int, error) {
	return s.repo.ReconcileOrder(ctx, projectID, keepID)
}

// Models lists the models owned by the connection.
func (s *Connections) Models(ctx context.Context, id string) ([]*Model, error) {
	if s.models == nil {
		return nil, repositorycache.ErrInvalid.New("models are not configured")
	}
	conn, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.models.List(ctx, conn.ID)
}

// ConnectionConfig returns the plain connection settings of conn. Meta
// connections get the configured meta database settings. sqlite configs
// get connection.filename filled from a nested connection.connection.filename.
func (s *Connections) ConnectionConfig(conn *Connection) (map[string]any, error) {
	if conn.IsMeta {
		config := make(map[string]any, len(s.metaDB)+1)
		for k, v := range s.metaDB {
			config[k] = v
		}
		if config["client"] == TypeSQLite {
			config["connection"] = s.metaDB
		}
		return config, nil
	}

	plaintext, err := s.crypto.Decrypt(conn.Config)
	if err != nil {
		return nil, err
	}
	var config map[string]any
	if err := json.Unmarshal(plaintext, &config); err != nil {
		return nil, ErrCrypto.Wrap(err)
	}

	if config["client"] == TypeSQLite {
		normaliseSQLiteFilename(config)
	}
	return config, nil
}

func normaliseSQLiteFilename(config map[string]any) {
	connection, ok := config["connection"].(map[string]any)
	if !ok {
		return
	}
	if filename, ok := connection["filename"].(string); ok && filename != "" {
		return
	}
	if nested, ok := connection["connection"].(map[string]any); ok {
		if filename, ok := nested["filename"]; ok {
			connection["filename"] = filename
		}
	}
}

func (s *Connections) seal(config map[string]any) (string, error) {
	plaintext, err := json.Marshal(config)
	if err != nil {
		return "", repositorycache.ErrInvalid.Wrap(err)
	}
	return s.crypto.Encrypt(plaintext)
}
