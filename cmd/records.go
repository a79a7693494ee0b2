package cmd

import (
	"context"
	"fmt"
	"os"
	"slices"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/kozaktomas/attendance-scanner/internal/attendance"
	"github.com/kozaktomas/attendance-scanner/internal/constants"
	"github.com/kozaktomas/attendance-scanner/internal/database"
	"github.com/spf13/cobra"
)

var recordsCmd = &cobra.Command{
	Use:   "records",
	Short: "Query and export attendance records",
	Long:  `List attendance records of a day. Use subcommands to list dates or export CSV.`,
	RunE:  runRecordsList,
}

var recordsDatesCmd = &cobra.Command{
	Use:   "dates",
	Short: "List dates that have attendance records",
	RunE:  runRecordsDates,
}

var recordsExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export all records as CSV",
	Long: `Export every attendance record as CSV with the subject's start and late time.

Example:
  attendance-scanner records export
  attendance-scanner records export --output -`,
	RunE: runRecordsExport,
}

func init() {
	rootCmd.AddCommand(recordsCmd)
	recordsCmd.AddCommand(recordsDatesCmd, recordsExportCmd)

	recordsCmd.Flags().String("date", "", "Date (YYYY-MM-DD, default today)")
	recordsCmd.Flags().String("class", "", "Only this class")
	recordsCmd.Flags().String("subject", "", "Only this subject")
	recordsCmd.Flags().String("status", "", "Only this status (Present, Late, Absent)")

	recordsExportCmd.Flags().String("output", "", "Output file (default attendance_full_YYYYMMDD.csv, - for stdout)")
}

func parseStatus(s string) (database.Status, error) {
	if s == "" {
		return "", nil
	}
	for _, st := range []database.Status{database.StatusPresent, database.StatusLate, database.StatusAbsent} {
		if strings.EqualFold(s, string(st)) {
			return st, nil
		}
	}
	return "", fmt.Errorf("invalid status %q (want Present, Late or Absent)", s)
}

func runRecordsList(cmd *cobra.Command, args []string) error {
	date := mustGetString(cmd, "date")
	if date == "" {
		date = time.Now().Format(constants.DateLayout)
	} else if _, err := time.Parse(constants.DateLayout, date); err != nil {
		return fmt.Errorf("invalid date %q, want YYYY-MM-DD", date)
	}
	status, err := parseStatus(mustGetString(cmd, "status"))
	if err != nil {
		return err
	}
	filter := database.RecordFilter{
		Date:    date,
		ClassID: mustGetString(cmd, "class"),
		Subject: mustGetString(cmd, "subject"),
		Status:  status,
	}

	return withApp(func(ctx context.Context, a *app) error {
		records, err := a.records.Find(ctx, filter)
		if err != nil {
			return err
		}
		if len(records) == 0 {
			fmt.Printf("No records for %s.\n", date)
			return nil
		}
		slices.SortStableFunc(records, func(x, y database.AttendanceRecord) int {
			if c := strings.Compare(x.ClassID+"\x00"+x.Subject, y.ClassID+"\x00"+y.Subject); c != 0 {
				return c
			}
			return strings.Compare(x.Name, y.Name)
		})

		counts := make(map[database.Status]int)
		w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "CLASS\tSUBJECT\tNAME\tSTATUS\tTIME")
		fmt.Fprintln(w, "-----\t-------\t----\t------\t----")
		for _, r := range records {
			counts[r.Status]++
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n", r.ClassID, r.Subject, r.Name, r.Status, r.Time)
		}
		w.Flush()

		fmt.Printf("\n%s: %d present, %d late, %d absent\n", date,
			counts[database.StatusPresent], counts[database.StatusLate], counts[database.StatusAbsent])
		return nil
	})
}

func runRecordsDates(cmd *cobra.Command, args []string) error {
	return withApp(func(ctx context.Context, a *app) error {
		dates, err := a.records.DistinctDates(ctx)
		if err != nil {
			return err
		}
		if len(dates) == 0 {
			fmt.Println("No records yet.")
			return nil
		}
		for _, d := range dates {
			fmt.Println(d)
		}
		return nil
	})
}

func runRecordsExport(cmd *cobra.Command, args []string) error {
	output := mustGetString(cmd, "output")
	if output == "" {
		output = attendance.ExportFilename(time.Now())
	}

	return withApp(func(ctx context.Context, a *app) error {
		records, err := a.records.Find(ctx, database.RecordFilter{})
		if err != nil {
			return err
		}
		classes, err := a.roster.List(ctx)
		if err != nil {
			return err
		}

		if output == "-" {
			return attendance.WriteCSV(os.Stdout, records, classes)
		}
		f, err := os.Create(output)
		if err != nil {
			return fmt.Errorf("create %s: %w", output, err)
		}
		if err := attendance.WriteCSV(f, records, classes); err != nil {
			f.Close()
			return err
		}
		if err := f.Close(); err != nil {
			return fmt.Errorf("close %s: %w", output, err)
		}
		fmt.Printf("Exported %d records to %s\n", len(records), output)
		return nil
	})
}
