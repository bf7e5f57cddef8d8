package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/choubo/choubo/internal/cli"
	"github.com/choubo/choubo/internal/model"
)

// fieldFlags registers the record field flags shared by add and update.
func fieldFlags(cmd *cobra.Command) {
	cmd.Flags().Int("year", 0, "record year")
	cmd.Flags().Int("month", 0, "record month")
	cmd.Flags().Int64("amount", 0, "amount in yen")
	cmd.Flags().String("item", "", "cost item label (fixedCosts, variableCosts)")
	cmd.Flags().String("payee", "", "payee (monthlyPayments)")
	cmd.Flags().String("manufacturer", "", "manufacturer (manufacturerDeposits)")
	cmd.Flags().String("group", "", "grouping key")
	cmd.Flags().String("note", "", "free-form note")
}

// changedFields collects only the flags the user actually set, so partial
// updates stay partial.
func changedFields(cmd *cobra.Command) model.Fields {
	fields := model.Fields{}
	if cmd.Flags().Changed("year") {
		v, _ := cmd.Flags().GetInt("year")
		fields[model.FieldYear] = v
	}
	if cmd.Flags().Changed("month") {
		v, _ := cmd.Flags().GetInt("month")
		fields[model.FieldMonth] = v
	}
	if cmd.Flags().Changed("amount") {
		v, _ := cmd.Flags().GetInt64("amount")
		fields[model.FieldAmount] = v
	}
	for flag, name := range map[string]string{
		"item":         model.FieldItem,
		"payee":        model.FieldPayee,
		"manufacturer": model.FieldManufacturer,
		"group":        model.FieldGroup,
		"note":         model.FieldNote,
	} {
		if cmd.Flags().Changed(flag) {
			v, _ := cmd.Flags().GetString(flag)
			fields[name] = v
		}
	}
	return fields
}

func addCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "add <category>",
		Short: "Add a record",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			category, err := parseCategory(args[0])
			if err != nil {
				return err
			}

			a, err := openApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.close()

			rec, err := a.store.Add(category, changedFields(cmd))
			if err != nil {
				return err
			}
			cmd.Println(cli.FormatSuccess(fmt.Sprintf("added %s record %s", category, rec.ID)))
			return nil
		},
	}
	fieldFlags(cmd)
	return cmd
}

func listCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list <category>",
		Short: "List a category's records",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			category, err := parseCategory(args[0])
			if err != nil {
				return err
			}

			a, err := openApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.close()

			recs, err := a.store.ByCategory(category)
			if err != nil {
				return err
			}

			cmd.Println(cli.TitleStyle.Render(category.DisplayName()))
			for _, rec := range recs {
				printRecord(cmd, rec)
			}
			cmd.Println(cli.SubtleStyle.Render(strconv.Itoa(len(recs)) + " records"))
			return nil
		},
	}
	return cmd
}

func printRecord(cmd *cobra.Command, rec model.Record) {
	line := fmt.Sprintf("%s  %04d-%02d  %12d", rec.ID, rec.Year, rec.Month, rec.Amount)
	if special := rec.SpecialField(); special != "" {
		line += "  " + special
	}
	if rec.Note != "" {
		line += "  " + cli.SubtleStyle.Render(rec.Note)
	}
	cmd.Println(line)
}

func updateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "update <category> <id>",
		Short: "Update fields of a record",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			category, err := parseCategory(args[0])
			if err != nil {
				return err
			}

			a, err := openApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.close()

			rec, err := a.store.Update(category, args[1], changedFields(cmd))
			if err != nil {
				return err
			}
			cmd.Println(cli.FormatSuccess(fmt.Sprintf("updated %s record %s", category, rec.ID)))
			return nil
		},
	}
	fieldFlags(cmd)
	return cmd
}

func deleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <category> <id>",
		Short: "Delete a record",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			category, err := parseCategory(args[0])
			if err != nil {
				return err
			}

			a, err := openApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.close()

			if _, err := a.store.Delete(category, args[1]); err != nil {
				return err
			}
			cmd.Println(cli.FormatSuccess("record deleted"))
			return nil
		},
	}
}

func moveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "move <from-category> <to-category> <id>",
		Short: "Move a record to another category",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			from, err := parseCategory(args[0])
			if err != nil {
				return err
			}
			to, err := parseCategory(args[1])
			if err != nil {
				return err
			}

			a, err := openApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.close()

			if _, err := a.store.Move(from, to, args[2]); err != nil {
				return err
			}
			cmd.Println(cli.FormatSuccess(fmt.Sprintf("moved record to %s", to)))
			return nil
		},
	}
}
