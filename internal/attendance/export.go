package attendance

import (
	"encoding/csv"
	"fmt"
	"io"
	"slices"
	"strings"
	"time"

	"github.com/kozaktomas/attendance-scanner/internal/constants"
	"github.com/kozaktomas/attendance-scanner/internal/database"
)

// ExportHeader is the column order of attendance CSV exports.
var ExportHeader = []string{"Name", "Class", "Teacher", "Subject", "Date", "Time", "Status", "Start Time", "Late Time"}

// ExportFilename returns the default export file name for day.
func ExportFilename(day time.Time) string {
	return "attendance_full_" + day.Format("20060102") + ".csv"
}

// WriteCSV writes records as CSV, joining each record with its subject's
// start and late time from classes. Records are ordered by date (newest
// first), then class, subject and name.
func WriteCSV(w io.Writer, records []database.AttendanceRecord, classes []database.ClassGroup) error {
	schedule := make(map[[2]string]database.Subject)
	for _, c := range classes {
		for _, s := range c.Subjects {
			key := [2]string{c.ClassID, s.Name}
			if _, ok := schedule[key]; !ok {
				schedule[key] = s
			}
		}
	}

	sorted := slices.Clone(records)
	slices.SortStableFunc(sorted, func(a, b database.AttendanceRecord) int {
		if c := strings.Compare(b.Date, a.Date); c != 0 {
			return c
		}
		if c := strings.Compare(a.ClassID, b.ClassID); c != 0 {
			return c
		}
		if c := strings.Compare(a.Subject, b.Subject); c != 0 {
			return c
		}
		return strings.Compare(a.Name, b.Name)
	})

	cw := csv.NewWriter(w)
	if err := cw.Write(ExportHeader); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for _, r := range sorted {
		start, late := constants.TimePlaceholder, constants.TimePlaceholder
		if s, ok := schedule[[2]string{r.ClassID, r.Subject}]; ok {
			start = orPlaceholder(s.StartTime)
			late = orPlaceholder(s.LateTime)
		}
		row := []string{r.Name, r.ClassID, r.Teacher, r.Subject, r.Date, orPlaceholder(r.Time), string(r.Status), start, late}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("write record: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}

func orPlaceholder(s string) string {
	if s == "" {
		return constants.TimePlaceholder
	}
	return s
}
