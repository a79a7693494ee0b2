package mariadb

import (
	"context"
	"fmt"
	"regexp"

	"github.com/kozaktomas/attendance-scanner/internal/database"
)

var tableNamePattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// RosterSource reads class membership from an external enrollment table
// with class_id and student_name columns.
type RosterSource struct {
	pool  *Pool
	table string
}

var _ database.RosterReader = (*RosterSource)(nil)

// NewRosterSource returns a roster reader over table. The table name is
// interpolated into SQL, so only plain identifiers are accepted.
func NewRosterSource(pool *Pool, table string) (*RosterSource, error) {
	if !tableNamePattern.MatchString(table) {
		return nil, fmt.Errorf("invalid roster table name %q", table)
	}
	return &RosterSource{pool: pool, table: table}, nil
}

// GetStudentsInClass returns the enrolled names of a class, empty if the class is unknown.
func (r *RosterSource) GetStudentsInClass(ctx context.Context, classID string) ([]string, error) {
	query := fmt.Sprintf("SELECT DISTINCT student_name FROM `%s` WHERE class_id = ? ORDER BY student_name", r.table)

	rows, err := r.pool.db.QueryContext(ctx, query, classID)
	if err != nil {
		return nil, fmt.Errorf("query roster: %w", err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		names = append(names, name)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rows: %w", err)
	}
	return names, nil
}

// ClassIDs returns every class known to the enrollment table.
func (r *RosterSource) ClassIDs(ctx context.Context) ([]string, error) {
	query := fmt.Sprintf("SELECT DISTINCT class_id FROM `%s` ORDER BY class_id", r.table)

	rows, err := r.pool.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query roster classes: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rows: %w", err)
	}
	return ids, nil
}
