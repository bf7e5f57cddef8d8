package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/choubo/choubo/internal/cli"
	"github.com/choubo/choubo/internal/exchange"
	"github.com/choubo/choubo/internal/model"
)

func exportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export <file>",
		Short: "Export records to a portable JSON or delimited-text file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			format, _ := cmd.Flags().GetString("format")

			a, err := openApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.close()

			var raw []byte
			switch format {
			case "json":
				raw, err = a.backups.ExportPortable(cmd.Context(), "")
			case "csv":
				scope, data, scopeErr := scopedData(cmd, a)
				if scopeErr != nil {
					return scopeErr
				}
				raw, err = exchange.EncodeCSV(data, scope)
			default:
				return fmt.Errorf("unknown format %q (json or csv)", format)
			}
			if err != nil {
				return err
			}

			if err := os.WriteFile(args[0], raw, 0600); err != nil {
				return fmt.Errorf("failed to write export file: %w", err)
			}
			cmd.Println(cli.FormatSuccess(fmt.Sprintf("exported to %s (%d bytes)", args[0], len(raw))))
			return nil
		},
	}
	cmd.Flags().String("format", "json", "export format (json, csv)")
	cmd.Flags().Int("year", 0, "limit csv export to a year")
	cmd.Flags().Int("month", 0, "limit csv export to a month (with --year)")
	cmd.Flags().Int("end-year", 0, "csv range end year")
	cmd.Flags().Int("end-month", 0, "csv range end month")
	return cmd
}

// scopedData resolves the csv export scope flags against the store.
func scopedData(cmd *cobra.Command, a *app) (exchange.Scope, map[model.Category][]model.Record, error) {
	year, _ := cmd.Flags().GetInt("year")
	month, _ := cmd.Flags().GetInt("month")
	endYear, _ := cmd.Flags().GetInt("end-year")
	endMonth, _ := cmd.Flags().GetInt("end-month")

	switch {
	case endYear != 0:
		if month == 0 || endMonth == 0 {
			return exchange.Scope{}, nil, fmt.Errorf("range exports need --month and --end-month")
		}
		scope := exchange.Scope{Kind: exchange.ScopeRange, Year: year, Month: month, EndYear: endYear, EndMonth: endMonth}
		return scope, a.store.QueryRange(year, month, endYear, endMonth), nil
	case month != 0:
		scope := exchange.Scope{Kind: exchange.ScopeMonth, Year: year, Month: month}
		return scope, a.store.QueryMonth(year, month), nil
	case year != 0:
		scope := exchange.Scope{Kind: exchange.ScopeYear, Year: year}
		return scope, a.store.QueryYear(year), nil
	default:
		return exchange.Scope{Kind: exchange.ScopeAll}, a.store.Snapshot(), nil
	}
}

// parseYearMonth parses positional year/month arguments.
func parseYearMonth(yearArg, monthArg string) (int, int, error) {
	year, err := strconv.Atoi(yearArg)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid year %q", yearArg)
	}
	month, err := strconv.Atoi(monthArg)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid month %q", monthArg)
	}
	return year, month, nil
}

// readFieldsFile reads a JSON array of field objects.
func readFieldsFile(path string) ([]model.Fields, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	var candidates []model.Fields
	if err := json.Unmarshal(raw, &candidates); err != nil {
		return nil, fmt.Errorf("%s is not a JSON array of records: %w", path, err)
	}
	return candidates, nil
}
