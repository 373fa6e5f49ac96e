package cli

import (
	"encoding/json"

	"github.com/goliatone/go-metacache/meta"
	"github.com/goliatone/go-metacache/pkg/di"
	"github.com/spf13/cobra"
)

// connectionFlags collects the editable connection fields. Only flags that
// were set on the command line end up in the ConnectionFields.
type connectionFlags struct {
	alias            string
	kind             string
	config           string
	isMeta           bool
	inflectionColumn string
	inflectionTable  string
	order            int
	enabled          bool
}

func (f *connectionFlags) register(cmd *cobra.Command) {
	flags := cmd.Flags()
	flags.StringVar(&f.alias, "alias", "", "display name")
	flags.StringVar(&f.kind, "type", "", "client type (pg, mysql2, sqlite3, mssql, snowflake, databricks)")
	flags.StringVar(&f.config, "config-json", "", "connection settings as a JSON object")
	flags.BoolVar(&f.isMeta, "meta", false, "use the meta database")
	flags.StringVar(&f.inflectionColumn, "inflection-column", "", "column alias inflection")
	flags.StringVar(&f.inflectionTable, "inflection-table", "", "table alias inflection")
	flags.IntVar(&f.order, "order", 0, "position among the project connections")
	flags.BoolVar(&f.enabled, "enabled", true, "whether the connection is enabled")
}

func (f *connectionFlags) fields(cmd *cobra.Command) (meta.ConnectionFields, error) {
	var fields meta.ConnectionFields
	changed := cmd.Flags().Changed

	if changed("alias") {
		fields.Alias = &f.alias
	}
	if changed("type") {
		fields.Type = &f.kind
	}
	if changed("config-json") {
		if err := json.Unmarshal([]byte(f.config), &fields.Config); err != nil {
			return fields, WrapExitError(ExitUsage, "parse --config-json", err)
		}
	}
	if changed("meta") {
		fields.IsMeta = &f.isMeta
	}
	if changed("inflection-column") {
		fields.InflectionColumn = &f.inflectionColumn
	}
	if changed("inflection-table") {
		fields.InflectionTable = &f.inflectionTable
	}
	if changed("order") {
		fields.Order = &f.order
	}
	if changed("enabled") {
		fields.Enabled = &f.enabled
	}
	return fields, nil
}

// NewConnectionsCommand creates the connections command tree.
func NewConnectionsCommand(opts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "connections",
		Aliases: []string{"conn"},
		Short:   "Manage project connections",
	}

	cmd.AddCommand(
		newConnectionsListCommand(opts),
		newConnectionsGetCommand(opts),
		newConnectionsCreateCommand(opts),
		newConnectionsUpdateCommand(opts),
		newConnectionsDeleteCommand(opts),
		newConnectionsReorderCommand(opts),
		newConnectionsConfigCommand(opts),
	)
	return cmd
}

func newConnectionsListCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "list <project-id>",
		Short: "List the connections of a project in display order",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withContainer(cmd.Context(), opts, func(c *di.Container) error {
				conns, err := c.Connections().List(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				return writeJSON(cmd.OutOrStdout(), conns)
			})
		},
	}
}

func newConnectionsGetCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "get <id>",
		Short: "Show one connection",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withContainer(cmd.Context(), opts, func(c *di.Container) error {
				conn, err := c.Connections().Get(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				return writeJSON(cmd.OutOrStdout(), conn)
			})
		},
	}
}

func newConnectionsCreateCommand(opts *RootOptions) *cobra.Command {
	flags := &connectionFlags{}
	cmd := &cobra.Command{
		Use:   "create <project-id>",
		Short: "Register a connection under a project",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			fields, err := flags.fields(cmd)
			if err != nil {
				return err
			}
			return withContainer(cmd.Context(), opts, func(c *di.Container) error {
				conn, err := c.Connections().Create(cmd.Context(), args[0], fields)
				if err != nil {
					return err
				}
				return writeJSON(cmd.OutOrStdout(), conn)
			})
		},
	}
	flags.register(cmd)
	return cmd
}

func newConnectionsUpdateCommand(opts *RootOptions) *cobra.Command {
	flags := &connectionFlags{}
	var projectID string
	cmd := &cobra.Command{
		Use:   "update <id>",
		Short: "Change the fields of a connection",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			fields, err := flags.fields(cmd)
			if err != nil {
				return err
			}
			return withContainer(cmd.Context(), opts, func(c *di.Container) error {
				conn, err := c.Connections().Update(cmd.Context(), args[0], projectID, fields)
				if err != nil {
					return err
				}
				return writeJSON(cmd.OutOrStdout(), conn)
			})
		},
	}
	flags.register(cmd)
	cmd.Flags().StringVar(&projectID, "project", "", "move the connection to this project")
	return cmd
}

func newConnectionsDeleteCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a connection and its models",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withContainer(cmd.Context(), opts, func(c *di.Container) error {
				if err := c.Connections().Delete(cmd.Context(), args[0]); err != nil {
					return err
				}
				return writeJSON(cmd.OutOrStdout(), map[string]string{"deleted": args[0]})
			})
		},
	}
}

func newConnectionsReorderCommand(opts *RootOptions) *cobra.Command {
	var keepID string
	cmd := &cobra.Command{
		Use:   "reorder <project-id>",
		Short: "Restore dense ordering of the project connections",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withContainer(cmd.Context(), opts, func(c *di.Container) error {
				n, err := c.Connections().Reorder(cmd.Context(), args[0], keepID)
				if err != nil {
					return err
				}
				return writeJSON(cmd.OutOrStdout(), map[string]int{"rewritten": n})
			})
		},
	}
	cmd.Flags().StringVar(&keepID, "keep", "", "connection whose order wins a collision")
	return cmd
}

func newConnectionsConfigCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "config <id>",
		Short: "Print the decrypted settings of a connection",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withContainer(cmd.Context(), opts, func(c *di.Container) error {
				conn, err := c.Connections().Get(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				config, err := c.Connections().ConnectionConfig(conn)
				if err != nil {
					return err
				}
				return writeJSON(cmd.OutOrStdout(), config)
			})
		},
	}
}
