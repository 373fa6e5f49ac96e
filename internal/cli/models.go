package cli

import (
	"github.com/goliatone/go-metacache/meta"
	"github.com/goliatone/go-metacache/pkg/di"
	"github.com/spf13/cobra"
)

// NewModelsCommand creates the models command tree.
func NewModelsCommand(opts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "models",
		Short: "Manage the models of a connection",
	}

	cmd.AddCommand(
		newModelsListCommand(opts),
		newModelsCreateCommand(opts),
		newModelsDeleteCommand(opts),
	)
	return cmd
}

func newModelsListCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "list <connection-id>",
		Short: "List the models of a connection in display order",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withContainer(cmd.Context(), opts, func(c *di.Container) error {
				models, err := c.Connections().Models(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				return writeJSON(cmd.OutOrStdout(), models)
			})
		},
	}
}

func newModelsCreateCommand(opts *RootOptions) *cobra.Command {
	var tableName, title, kind string
	cmd := &cobra.Command{
		Use:   "create <connection-id>",
		Short: "Add a table or view model to a connection",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			fields := meta.ModelFields{TableName: &tableName}
			if cmd.Flags().Changed("title") {
				fields.Title = &title
			}
			if cmd.Flags().Changed("type") {
				fields.Type = &kind
			}

			return withContainer(cmd.Context(), opts, func(c *di.Container) error {
				conn, err := c.Connections().Get(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				model, err := c.Models().Create(cmd.Context(), conn, fields)
				if err != nil {
					return err
				}
				return writeJSON(cmd.OutOrStdout(), model)
			})
		},
	}
	cmd.Flags().StringVar(&tableName, "table", "", "source table or view name")
	cmd.Flags().StringVar(&title, "title", "", "display title, derived from the table name when omitted")
	cmd.Flags().StringVar(&kind, "type", meta.ModelTable, "model type (table, view)")
	_ = cmd.MarkFlagRequired("table")
	return cmd
}

func newModelsDeleteCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a model",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withContainer(cmd.Context(), opts, func(c *di.Container) error {
				if err := c.Models().Delete(cmd.Context(), args[0]); err != nil {
					return err
				}
				return writeJSON(cmd.OutOrStdout(), map[string]string{"deleted": args[0]})
			})
		},
	}
}
