package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/choubo/choubo/internal/cli"
)

func backupCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "backup",
		Short: "Create, list, restore and delete snapshots",
	}
	cmd.AddCommand(backupCreateCmd())
	cmd.AddCommand(backupListCmd())
	cmd.AddCommand(backupRestoreCmd())
	cmd.AddCommand(backupDeleteCmd())
	cmd.AddCommand(backupExportCmd())
	return cmd
}

func backupCreateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a manual snapshot of the live store",
		RunE: func(cmd *cobra.Command, _ []string) error {
			description, _ := cmd.Flags().GetString("description")

			a, err := openApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.close()

			key, err := a.backups.CreateManual(cmd.Context(), description)
			if err != nil {
				return err
			}
			cmd.Println(cli.FormatSuccess("created snapshot " + key))
			return nil
		},
	}
	cmd.Flags().StringP("description", "d", "", "snapshot description")
	return cmd
}

func backupListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List snapshots, newest first",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := openApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.close()

			snapshots, err := a.backups.List(cmd.Context())
			if err != nil {
				return err
			}
			if len(snapshots) == 0 {
				cmd.Println(cli.SubtleStyle.Render("no snapshots"))
				return nil
			}

			for _, snap := range snapshots {
				line := fmt.Sprintf("%-8s %s  %5d records  %7d bytes",
					snap.Kind, snap.Timestamp.Format("2006-01-02 15:04:05"), snap.RecordCount, snap.SizeBytes)
				if snap.Description != "" {
					line += "  " + snap.Description
				}
				cmd.Println(cli.BoldStyle.Render(snap.Key))
				cmd.Println("  " + cli.SubtleStyle.Render(line))
			}
			return nil
		},
	}
}

func backupRestoreCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "restore <key>",
		Short: "Restore the live store from a snapshot",
		Long: `Replaces the live store with a snapshot's contents. The current state is
snapshotted first, so a restore can always be undone by restoring the
pre-restore snapshot.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.close()

			if err := a.backups.Restore(cmd.Context(), args[0]); err != nil {
				return err
			}
			cmd.Println(cli.FormatSuccess(fmt.Sprintf("restored %s (%d records)", args[0], a.store.TotalCount())))
			return nil
		},
	}
}

func backupDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <key>",
		Short: "Delete a snapshot",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.close()

			if err := a.backups.Delete(cmd.Context(), args[0]); err != nil {
				return err
			}
			cmd.Println(cli.FormatSuccess("snapshot deleted"))
			return nil
		},
	}
}

func backupExportCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "export <key> <file>",
		Short: "Export a snapshot as a portable file",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.close()

			raw, err := a.backups.ExportPortable(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if err := os.WriteFile(args[1], raw, 0600); err != nil {
				return fmt.Errorf("failed to write export file: %w", err)
			}
			cmd.Println(cli.FormatSuccess("exported " + args[0] + " to " + args[1]))
			return nil
		},
	}
}
