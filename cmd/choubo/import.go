package main

import (
	"fmt"
	"os"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/choubo/choubo/internal/cli"
	"github.com/choubo/choubo/internal/exchange"
	"github.com/choubo/choubo/internal/schema"
)

func importCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "import <file>",
		Short: "Import a portable JSON file as a snapshot",
		Long: `Validates a portable export file and records it as an imported-kind
snapshot. The live store is not changed; restore the snapshot to apply it.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			raw, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("failed to read %s: %w", args[0], err)
			}

			doc, err := exchange.Decode(raw)
			if err != nil {
				return err
			}
			data := doc.ToMap()

			// Per-record pre-check with progress; the manager re-verifies
			// before accepting.
			bar := progressbar.Default(int64(doc.Count()), "validating")
			bad := 0
			for c, recs := range data {
				for _, rec := range recs {
					if result := schema.ValidateRecord(c, rec); !result.Valid {
						bad++
					}
					_ = bar.Add(1)
				}
			}
			if bad > 0 {
				return fmt.Errorf("%d records failed validation; import rejected", bad)
			}

			a, err := openApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.close()

			key, err := a.backups.ImportPortable(cmd.Context(), raw)
			if err != nil {
				return err
			}
			cmd.Println(cli.FormatSuccess(fmt.Sprintf("imported as snapshot %s", key)))
			cmd.Println(cli.SubtleStyle.Render("run 'choubo backup restore " + key + "' to apply it"))
			return nil
		},
	}
	return cmd
}
