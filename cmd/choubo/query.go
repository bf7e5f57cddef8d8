package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/choubo/choubo/internal/cli"
	"github.com/choubo/choubo/internal/model"
)

func queryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "query",
		Short: "Query records by month, year, or range",
		RunE: func(cmd *cobra.Command, _ []string) error {
			year, _ := cmd.Flags().GetInt("year")
			month, _ := cmd.Flags().GetInt("month")
			endYear, _ := cmd.Flags().GetInt("end-year")
			endMonth, _ := cmd.Flags().GetInt("end-month")

			a, err := openApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.close()

			var results map[model.Category][]model.Record
			switch {
			case endYear != 0:
				if month == 0 || endMonth == 0 {
					return fmt.Errorf("range queries need --month and --end-month")
				}
				results = a.store.QueryRange(year, month, endYear, endMonth)
			case month != 0:
				results = a.store.QueryMonth(year, month)
			case year != 0:
				results = a.store.QueryYear(year)
			default:
				return fmt.Errorf("specify --year, optionally with --month or --end-year/--end-month")
			}

			for _, c := range model.AllCategories() {
				recs := results[c]
				if len(recs) == 0 {
					continue
				}
				cmd.Println(cli.TitleStyle.Render(c.DisplayName()))
				for _, rec := range recs {
					printRecord(cmd, rec)
				}
			}
			return nil
		},
	}
	cmd.Flags().Int("year", 0, "year to query (start year for ranges)")
	cmd.Flags().Int("month", 0, "month to query (start month for ranges)")
	cmd.Flags().Int("end-year", 0, "range end year")
	cmd.Flags().Int("end-month", 0, "range end month")
	return cmd
}

func syncMonthCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sync-month <category> <year> <month> <file>",
		Short: "Replace one month's records from a JSON file",
		Long: `Replaces the whole record set of one (category, year, month) slice with
the entries in the given JSON file (an array of field objects), for
whole-month re-entry workflows.`,
		Args: cobra.ExactArgs(4),
		RunE: func(cmd *cobra.Command, args []string) error {
			category, err := parseCategory(args[0])
			if err != nil {
				return err
			}
			year, month, err := parseYearMonth(args[1], args[2])
			if err != nil {
				return err
			}
			candidates, err := readFieldsFile(args[3])
			if err != nil {
				return err
			}

			a, err := openApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.close()

			added, err := a.store.SyncMonth(category, year, month, candidates)
			if err != nil {
				return err
			}
			cmd.Println(cli.FormatSuccess(fmt.Sprintf("synced %04d-%02d: %d records", year, month, len(added))))
			return nil
		},
	}
	return cmd
}
