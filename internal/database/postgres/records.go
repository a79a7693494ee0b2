package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/kozaktomas/attendance-scanner/internal/constants"
	"github.com/kozaktomas/attendance-scanner/internal/database"
)

// RecordRepository provides PostgreSQL-backed attendance record storage.
type RecordRepository struct {
	pool *Pool
}

// NewRecordRepository creates a new PostgreSQL record repository.
func NewRecordRepository(pool *Pool) *RecordRepository {
	return &RecordRepository{pool: pool}
}

var _ database.RecordWriter = (*RecordRepository)(nil)

const recordColumns = `id, name, class_id, teacher, subject_name, to_char(record_date, 'YYYY-MM-DD'), time_of_day, status, marked_at`

// whereClause renders the filter as a WHERE clause with positional arguments.
func whereClause(filter database.RecordFilter) (string, []any) {
	var conds []string
	var args []any
	add := func(column, cast string, value any) {
		args = append(args, value)
		conds = append(conds, column+" = $"+strconv.Itoa(len(args))+cast)
	}

	if filter.Name != "" {
		add("name", "", filter.Name)
	}
	if filter.ClassID != "" {
		add("class_id", "", filter.ClassID)
	}
	if filter.Subject != "" {
		add("subject_name", "", filter.Subject)
	}
	if filter.Date != "" {
		add("record_date", "::date", filter.Date)
	}
	if filter.Status != "" {
		add("status", "", string(filter.Status))
	}

	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

// Find returns all records matching the filter ordered by date and name.
func (r *RecordRepository) Find(ctx context.Context, filter database.RecordFilter) ([]database.AttendanceRecord, error) {
	where, args := whereClause(filter)
	query := `SELECT ` + recordColumns + ` FROM attendance_records` + where + ` ORDER BY record_date DESC, name`

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query records: %w", err)
	}
	defer rows.Close()

	return scanRecords(rows)
}

// FindOne returns the first matching record, nil if none.
func (r *RecordRepository) FindOne(ctx context.Context, filter database.RecordFilter) (*database.AttendanceRecord, error) {
	where, args := whereClause(filter)
	query := `SELECT ` + recordColumns + ` FROM attendance_records` + where + ` ORDER BY record_date DESC, name LIMIT 1`

	rec, err := scanRecord(r.pool.QueryRow(ctx, query, args...))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get record: %w", err)
	}
	return rec, nil
}

// DistinctDates returns every recorded date, newest first.
func (r *RecordRepository) DistinctDates(ctx context.Context) ([]string, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT DISTINCT to_char(record_date, 'YYYY-MM-DD') AS d
		FROM attendance_records
		ORDER BY d DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("query record dates: %w", err)
	}
	defer rows.Close()

	var dates []string
	for rows.Next() {
		var d string
		if err := rows.Scan(&d); err != nil {
			return nil, fmt.Errorf("scan record date: %w", err)
		}
		dates = append(dates, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate record dates: %w", err)
	}
	return dates, nil
}

// InsertMany inserts records in batches, skipping natural keys that already exist.
// Returns the number of rows actually inserted.
func (r *RecordRepository) InsertMany(ctx context.Context, records []database.AttendanceRecord) (int, error) {
	if len(records) == 0 {
		return 0, nil
	}

	inserted := 0
	err := r.pool.withTx(ctx, func(tx *sql.Tx) error {
		for start := 0; start < len(records); start += constants.InsertBatchSize {
			end := min(start+constants.InsertBatchSize, len(records))
			query, args := insertRecordsQuery(records[start:end])

			result, err := tx.ExecContext(ctx, query, args...)
			if err != nil {
				return fmt.Errorf("insert records: %w", err)
			}
			n, err := result.RowsAffected()
			if err != nil {
				return fmt.Errorf("getting rows affected: %w", err)
			}
			inserted += int(n)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return inserted, nil
}

func insertRecordsQuery(batch []database.AttendanceRecord) (string, []any) {
	const cols = 8
	var sb strings.Builder
	sb.WriteString(`INSERT INTO attendance_records (id, name, class_id, teacher, subject_name, record_date, time_of_day, status) VALUES `)

	args := make([]any, 0, len(batch)*cols)
	for i, rec := range batch {
		if i > 0 {
			sb.WriteString(", ")
		}
		base := i * cols
		sb.WriteString(fmt.Sprintf("($%d, $%d, $%d, $%d, $%d, $%d::date, $%d, $%d)",
			base+1, base+2, base+3, base+4, base+5, base+6, base+7, base+8))

		id := rec.ID
		if id == "" {
			id = uuid.NewString()
		}
		timeOfDay := rec.Time
		if timeOfDay == "" {
			timeOfDay = constants.TimePlaceholder
		}
		status := rec.Status
		if status == "" {
			status = database.StatusAbsent
		}
		args = append(args, id, rec.Name, rec.ClassID, rec.Teacher, rec.Subject, rec.Date, timeOfDay, string(status))
	}
	sb.WriteString(` ON CONFLICT (name, class_id, subject_name, record_date) DO NOTHING`)
	return sb.String(), args
}

// MarkIfAbsent moves an Absent record to status in a single conditional UPDATE.
func (r *RecordRepository) MarkIfAbsent(ctx context.Context, key database.RecordKey, status database.Status, timeOfDay string, at time.Time) (bool, error) {
	query := `
		UPDATE attendance_records
		SET status = $1, time_of_day = $2, marked_at = $3
		WHERE name = $4 AND class_id = $5 AND subject_name = $6 AND record_date = $7::date
		  AND status = 'Absent'
	`

	result, err := r.pool.Exec(ctx, query, string(status), timeOfDay, at, key.Name, key.ClassID, key.Subject, key.Date)
	if err != nil {
		return false, fmt.Errorf("mark record: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("getting rows affected: %w", err)
	}
	return n == 1, nil
}

// DeleteMany removes matching records. An empty filter is rejected.
func (r *RecordRepository) DeleteMany(ctx context.Context, filter database.RecordFilter) (int64, error) {
	if filter.IsEmpty() {
		return 0, database.ErrEmptyFilter
	}
	where, args := whereClause(filter)

	result, err := r.pool.Exec(ctx, `DELETE FROM attendance_records`+where, args...)
	if err != nil {
		return 0, fmt.Errorf("delete records: %w", err)
	}
	count, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("getting rows affected: %w", err)
	}
	return count, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(row rowScanner) (*database.AttendanceRecord, error) {
	var rec database.AttendanceRecord
	var status string
	var markedAt sql.NullTime
	if err := row.Scan(&rec.ID, &rec.Name, &rec.ClassID, &rec.Teacher, &rec.Subject,
		&rec.Date, &rec.Time, &status, &markedAt); err != nil {
		return nil, err
	}
	rec.Status = database.Status(status)
	if markedAt.Valid {
		rec.MarkedAt = markedAt.Time
	}
	return &rec, nil
}

func scanRecords(rows *sql.Rows) ([]database.AttendanceRecord, error) {
	var records []database.AttendanceRecord
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("scan record: %w", err)
		}
		records = append(records, *rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate records: %w", err)
	}
	return records, nil
}
