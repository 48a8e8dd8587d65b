package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/nhle/threadboard/internal/model"
	"github.com/nhle/threadboard/internal/theme"
)

func newTagCmd(opts *Options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tag",
		Short: "Manage tags",
	}
	cmd.AddCommand(newTagListCmd(opts), newTagAddCmd(opts), newTagDeleteCmd(opts))
	return cmd
}

func newTagListCmd(opts *Options) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List tags",
		Args:  cobra.NoArgs,
		RunE: withApp(opts, func(cmd *cobra.Command, _ []string, app *App) error {
			tags, err := app.Store.GetTags(cmd.Context())
			if err != nil {
				return err
			}
			t := newTable("Tag", "Color")
			for _, tag := range tags {
				t.Row(theme.TagStyle(tag.Color).Render("#"+tag.Name), tag.Color)
			}
			printTable(cmd.OutOrStdout(), t)
			return nil
		}),
	}
}

func newTagAddCmd(opts *Options) *cobra.Command {
	var color string
	cmd := &cobra.Command{
		Use:   "add NAME",
		Short: "Create a tag",
		Args:  cobra.ExactArgs(1),
	}
	cmd.Flags().StringVar(&color, "color", "", `hex color such as "#dc3545"`)
	cmd.RunE = withApp(opts, func(cmd *cobra.Command, args []string, app *App) error {
		tag := &model.Tag{Name: args[0], Color: color}
		if err := app.Store.CreateTag(cmd.Context(), tag); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Added tag #%s\n", tag.Name)
		return nil
	})
	return cmd
}

func newTagDeleteCmd(opts *Options) *cobra.Command {
	return &cobra.Command{
		Use:   "delete NAME",
		Short: "Delete a tag and remove it from all entries",
		Args:  cobra.ExactArgs(1),
		RunE: withApp(opts, func(cmd *cobra.Command, args []string, app *App) error {
			tag, err := app.Store.GetTagByName(cmd.Context(), args[0])
			if err != nil {
				return fmt.Errorf("tag %q: %w", args[0], err)
			}
			if err := app.Store.DeleteTag(cmd.Context(), tag.ID); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted tag #%s\n", tag.Name)
			return nil
		}),
	}
}
