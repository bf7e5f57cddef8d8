package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/choubo/choubo/internal/cli"
)

func migrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "One-shot data migrations",
	}
	cmd.AddCommand(migrateGroupCmd())
	return cmd
}

func migrateGroupCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "group",
		Short: "Attach the default grouping key to legacy records",
		Long: `Assigns the default grouping key to every record created before the
group attribute existed. Running it again changes nothing.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := openApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.close()

			mutated := a.store.AttachDefaultGroup()
			if mutated == 0 {
				cmd.Println(cli.SubtleStyle.Render("nothing to migrate"))
				return nil
			}
			cmd.Println(cli.FormatSuccess(fmt.Sprintf("attached grouping key to %d records", mutated)))
			return nil
		},
	}
}

func saveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "save",
		Short: "Force a synchronous save of the live store",
		Long:  `Runs the manual-retry save path after an exhausted automatic retry.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := openApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.close()

			if err := a.engine.Retry(cmd.Context()); err != nil {
				return err
			}
			cmd.Println(cli.FormatSuccess(fmt.Sprintf("saved %d records", a.store.TotalCount())))
			return nil
		},
	}
}
