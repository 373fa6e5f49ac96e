package meta

import (
	"context"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/goliatone/go-metacache/cache"
	"github.com/goliatone/go-metacache/metastore"
	"github.com/goliatone/go-metacache/pkg/testsupport"
	"github.com/goliatone/go-metacache/repositorycache"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type services struct {
	connections *Connections
	models      *Models
}

type tables struct {
	connections metastore.Table[*Connection]
	models      metastore.Table[*Model]
}

func tableFactories() map[string]func(t *testing.T) tables {
	return map[string]func(t *testing.T) tables{
		"memory": func(t *testing.T) tables {
			return tables{
				connections: metastore.NewMemoryTable(NewConnection),
				models:      metastore.NewMemoryTable(NewModel),
			}
		},
		"sqlite": func(t *testing.T) tables {
			ctx := context.Background()
			db, err := metastore.Open(ctx, metastore.DriverSQLite, filepath.Join(t.TempDir(), "meta.db"))
			require.NoError(t, err)
			t.Cleanup(func() { _ = db.Close() })

			conns := metastore.NewBunTable(db, NewConnection, metastore.TableOptions{ParentColumn: "project_id"})
			models := metastore.NewBunTable(db, NewModel, metastore.TableOptions{ParentColumn: "base_id"})
			require.NoError(t, conns.CreateTable(ctx))
			require.NoError(t, models.CreateTable(ctx))
			return tables{connections: conns, models: models}
		},
	}
}

var metaDB = map[string]any{"client": "sqlite3", "filename": "noco.db"}

func newServices(t *testing.T, tbl tables) services {
	t.Helper()

	backend, err := cache.NewBackend(cache.DefaultConfig())
	require.NoError(t, err)

	modelRepo := repositorycache.New(tbl.models, cache.NewStore[*Model](backend), repositorycache.Options{Scope: "model"})
	connRepo := repositorycache.New(tbl.connections, cache.NewStore[*Connection](backend), repositorycache.Options{
		Scope:      "connection",
		Dependents: []repositorycache.Dependent{modelRepo},
	})

	crypto, err := NewAESCrypto("s3cret")
	require.NoError(t, err)

	models := NewModels(modelRepo, nil)
	return services{
		connections: NewConnections(connRepo, crypto, ConnectionsOptions{MetaDB: metaDB, Models: models}),
		models:      models,
	}
}

func loadConnectionFixtures(t *testing.T) []ConnectionFields {
	t.Helper()
	var fields []ConnectionFields
	testsupport.LoadFixtureJSON(t, testsupport.FixturePath("connections.json"), &fields)
	require.Len(t, fields, 3)
	return fields
}

func ptr[T any](v T) *T { return &v }

func TestConnections_CreateAndList(t *testing.T) {
	for name, factory := range tableFactories() {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			svc := newServices(t, factory(t))

			for _, fields := range loadConnectionFixtures(t) {
				_, err := svc.connections.Create(ctx, "p1", fields)
				require.NoError(t, err)
			}

			list, err := svc.connections.List(ctx, "p1")
			require.NoError(t, err)
			require.Len(t, list, 3)
			for i, conn := range list {
				assert.Equal(t, i+1, conn.Order)
				assert.True(t, conn.Enabled)
			}
			assert.Equal(t, "warehouse", list[0].Alias)
			assert.Equal(t, InflectionCamelize, list[0].InflectionTable)
			assert.Equal(t, InflectionNone, list[1].InflectionTable)
			assert.True(t, list[2].IsMeta)

			n, err := svc.connections.Reorder(ctx, "p1", "")
			require.NoError(t, err)
			assert.Zero(t, n)

			other, err := svc.connections.List(ctx, "p2")
			require.NoError(t, err)
			assert.Empty(t, other)
		})
	}
}

func TestConnections_ConfigIsSealed(t *testing.T) {
	ctx := context.Background()
	svc := newServices(t, tableFactories()["memory"](t))
	fixtures := loadConnectionFixtures(t)

	conn, err := svc.connections.Create(ctx, "p1", fixtures[0])
	require.NoError(t, err)
	assert.NotEmpty(t, conn.Config)
	assert.NotContains(t, conn.Config, "secret-password")

	encoded, err := json.Marshal(conn)
	require.NoError(t, err)
	assert.NotContains(t, string(encoded), conn.Config, "sealed config must not be serialised")

	config, err := svc.connections.ConnectionConfig(conn)
	require.NoError(t, err)
	assert.Equal(t, fixtures[0].Config, config)
}

func TestConnections_ConnectionConfig(t *testing.T) {
	ctx := context.Background()
	svc := newServices(t, tableFactories()["memory"](t))
	fixtures := loadConnectionFixtures(t)

	t.Run("sqlite filename is lifted from the nested connection", func(t *testing.T) {
		conn, err := svc.connections.Create(ctx, "p1", fixtures[1])
		require.NoError(t, err)

		config, err := svc.connections.ConnectionConfig(conn)
		require.NoError(t, err)
		connection := config["connection"].(map[string]any)
		assert.Equal(t, "/data/local.db", connection["filename"])
	})

	t.Run("meta connections use the meta database", func(t *testing.T) {
		conn, err := svc.connections.Create(ctx, "p1", fixtures[2])
		require.NoError(t, err)
		assert.Empty(t, conn.Config)

		config, err := svc.connections.ConnectionConfig(conn)
		require.NoError(t, err)
		assert.Equal(t, "sqlite3", config["client"])
		assert.Equal(t, metaDB, config["connection"])
	})

	t.Run("tampered config fails", func(t *testing.T) {
		_, err := svc.connections.ConnectionConfig(&Connection{Type: TypePostgres, Config: "bm9wZQ=="})
		assert.True(t, ErrCrypto.Has(err))
	})
}

func TestConnections_CreateValidation(t *testing.T) {
	ctx := context.Background()
	svc := newServices(t, tableFactories()["memory"](t))
	config := map[string]any{"client": "pg"}

	tests := []struct {
		name      string
		projectID string
		fields    ConnectionFields
	}{
		{"missing project", "", ConnectionFields{Type: ptr(TypePostgres), Config: config}},
		{"missing type", "p1", ConnectionFields{Config: config}},
		{"unknown type", "p1", ConnectionFields{Type: ptr("oracle"), Config: config}},
		{"missing config", "p1", ConnectionFields{Type: ptr(TypePostgres)}},
		{"unknown inflection", "p1", ConnectionFields{Type: ptr(TypePostgres), Config: config, InflectionTable: ptr("shout")}},
		{"negative order", "p1", ConnectionFields{Type: ptr(TypePostgres), Config: config, Order: ptr(-1)}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.connections.Create(ctx, tt.projectID, tt.fields)
			require.Error(t, err)
			assert.True(t, repositorycache.ErrInvalid.Has(err), "got %v", err)
		})
	}

	list, err := svc.connections.List(ctx, "p1")
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestConnections_Update(t *testing.T) {
	for name, factory := range tableFactories() {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			svc := newServices(t, factory(t))
			fixtures := loadConnectionFixtures(t)

			conn, err := svc.connections.Create(ctx, "p1", fixtures[0])
			require.NoError(t, err)

			renamed, err := svc.connections.Update(ctx, conn.ID, "p1", ConnectionFields{Alias: ptr("dwh")})
			require.NoError(t, err)
			assert.Equal(t, conn.ID, renamed.ID)
			assert.Equal(t, "dwh", renamed.Alias)
			assert.Equal(t, TypePostgres, renamed.Type, "type must survive an update that omits it")
			assert.Equal(t, conn.Config, renamed.Config, "config must not be sealed again")
			assert.True(t, renamed.CreatedAt.Equal(conn.CreatedAt))

			newConfig := map[string]any{"client": "pg", "connection": map[string]any{"host": "db.internal"}}
			reconfigured, err := svc.connections.Update(ctx, conn.ID, "", ConnectionFields{
				Config:  newConfig,
				Enabled: ptr(false),
			})
			require.NoError(t, err)
			assert.NotEqual(t, conn.Config, reconfigured.Config)
			assert.False(t, reconfigured.Enabled)

			config, err := svc.connections.ConnectionConfig(reconfigured)
			require.NoError(t, err)
			assert.Equal(t, newConfig, config)

			got, err := svc.connections.Get(ctx, conn.ID)
			require.NoError(t, err)
			assert.Equal(t, "dwh", got.Alias)
			assert.False(t, got.Enabled)
		})
	}
}

func TestConnections_UpdateErrors(t *testing.T) {
	ctx := context.Background()
	svc := newServices(t, tableFactories()["memory"](t))

	_, err := svc.connections.Update(ctx, "missing", "p1", ConnectionFields{Alias: ptr("x")})
	assert.True(t, repositorycache.ErrNotFound.Has(err))

	meta, err := svc.connections.Create(ctx, "p1", ConnectionFields{Type: ptr(TypeSQLite), IsMeta: ptr(true)})
	require.NoError(t, err)

	_, err = svc.connections.Update(ctx, meta.ID, "", ConnectionFields{IsMeta: ptr(false)})
	assert.True(t, repositorycache.ErrInvalid.Has(err), "a plain connection needs a config")

	_, err = svc.connections.Update(ctx, meta.ID, "", ConnectionFields{Type: ptr("oracle")})
	assert.True(t, repositorycache.ErrInvalid.Has(err))
}

func TestConnections_DeleteCascadesToModels(t *testing.T) {
	for name, factory := range tableFactories() {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			tbl := factory(t)
			svc := newServices(t, tbl)
			fixtures := loadConnectionFixtures(t)

			first, err := svc.connections.Create(ctx, "p1", fixtures[0])
			require.NoError(t, err)
			second, err := svc.connections.Create(ctx, "p1", fixtures[1])
			require.NoError(t, err)

			for _, table := range []string{"film", "actor"} {
				_, err := svc.models.Create(ctx, first, ModelFields{TableName: ptr(table)})
				require.NoError(t, err)
			}
			kept, err := svc.models.Create(ctx, second, ModelFields{TableName: ptr("customer")})
			require.NoError(t, err)

			models, err := svc.connections.Models(ctx, first.ID)
			require.NoError(t, err)
			require.Len(t, models, 2)

			require.NoError(t, svc.connections.Delete(ctx, first.ID))

			_, err = svc.connections.Get(ctx, first.ID)
			assert.True(t, repositorycache.ErrNotFound.Has(err))
			_, err = svc.models.Get(ctx, models[0].ID)
			assert.True(t, repositorycache.ErrNotFound.Has(err))

			remaining, err := tbl.models.List(ctx, metastore.Filter{})
			require.NoError(t, err)
			require.Len(t, remaining, 1)
			assert.Equal(t, kept.ID, remaining[0].ID)

			list, err := svc.connections.List(ctx, "p1")
			require.NoError(t, err)
			require.Len(t, list, 1)
			assert.Equal(t, second.ID, list[0].ID)
			assert.Equal(t, 1, list[0].Order)
		})
	}
}
