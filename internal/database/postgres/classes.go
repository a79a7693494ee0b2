package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/kozaktomas/attendance-scanner/internal/database"
)

// ClassRepository stores classes, their ordered subjects and rosters.
type ClassRepository struct {
	pool *Pool
}

// NewClassRepository creates a new PostgreSQL class repository.
func NewClassRepository(pool *Pool) *ClassRepository {
	return &ClassRepository{pool: pool}
}

var _ database.ClassWriter = (*ClassRepository)(nil)

type querier interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

// GetStudentsInClass returns the roster of a class in enrollment order.
func (r *ClassRepository) GetStudentsInClass(ctx context.Context, classID string) ([]string, error) {
	return studentsOf(ctx, r.pool.db, classID)
}

func studentsOf(ctx context.Context, q querier, classID string) ([]string, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT student_name FROM class_students
		WHERE class_id = $1
		ORDER BY added_at, student_name
	`, classID)
	if err != nil {
		return nil, fmt.Errorf("query class students: %w", err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var n string
		if err := rows.Scan(&n); err != nil {
			return nil, fmt.Errorf("scan student name: %w", err)
		}
		names = append(names, n)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate class students: %w", err)
	}
	return names, nil
}

func subjectsOf(ctx context.Context, q querier, classID string) ([]database.Subject, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT teacher, subject_name, start_time, late_time FROM class_subjects
		WHERE class_id = $1
		ORDER BY position
	`, classID)
	if err != nil {
		return nil, fmt.Errorf("query class subjects: %w", err)
	}
	defer rows.Close()

	var subjects []database.Subject
	for rows.Next() {
		var s database.Subject
		if err := rows.Scan(&s.Teacher, &s.Name, &s.StartTime, &s.LateTime); err != nil {
			return nil, fmt.Errorf("scan subject: %w", err)
		}
		subjects = append(subjects, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate class subjects: %w", err)
	}
	return subjects, nil
}

// ListClasses returns every class with roster and subjects, oldest first.
func (r *ClassRepository) ListClasses(ctx context.Context) ([]database.ClassGroup, error) {
	rows, err := r.pool.Query(ctx, `SELECT class_id FROM classes ORDER BY created_at, class_id`)
	if err != nil {
		return nil, fmt.Errorf("query classes: %w", err)
	}
	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan class id: %w", err)
		}
		ids = append(ids, id)
	}
	err = rows.Err()
	rows.Close()
	if err != nil {
		return nil, fmt.Errorf("iterate classes: %w", err)
	}

	classes := make([]database.ClassGroup, 0, len(ids))
	for _, id := range ids {
		c, err := r.load(ctx, id)
		if err != nil {
			return nil, err
		}
		classes = append(classes, *c)
	}
	return classes, nil
}

// GetClass returns a class by ID, nil if it does not exist.
func (r *ClassRepository) GetClass(ctx context.Context, classID string) (*database.ClassGroup, error) {
	var id string
	err := r.pool.QueryRow(ctx, `SELECT class_id FROM classes WHERE class_id = $1`, classID).Scan(&id)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get class: %w", err)
	}
	return r.load(ctx, id)
}

func (r *ClassRepository) load(ctx context.Context, classID string) (*database.ClassGroup, error) {
	students, err := studentsOf(ctx, r.pool.db, classID)
	if err != nil {
		return nil, err
	}
	subjects, err := subjectsOf(ctx, r.pool.db, classID)
	if err != nil {
		return nil, err
	}
	return &database.ClassGroup{ClassID: classID, Students: students, Subjects: subjects}, nil
}

// CreateClass creates an empty class. Returns false if it already existed.
func (r *ClassRepository) CreateClass(ctx context.Context, classID string) (bool, error) {
	result, err := r.pool.Exec(ctx, `INSERT INTO classes (class_id) VALUES ($1) ON CONFLICT (class_id) DO NOTHING`, classID)
	if err != nil {
		return false, fmt.Errorf("create class: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("getting rows affected: %w", err)
	}
	return n == 1, nil
}

// DeleteClass removes the class, its subjects and roster, and every record of the class.
func (r *ClassRepository) DeleteClass(ctx context.Context, classID string) error {
	return r.pool.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM attendance_records WHERE class_id = $1`, classID); err != nil {
			return fmt.Errorf("delete class records: %w", err)
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM classes WHERE class_id = $1`, classID); err != nil {
			return fmt.Errorf("delete class: %w", err)
		}
		return nil
	})
}

// lockClass takes a row lock on the class so concurrent subject edits serialize.
func lockClass(ctx context.Context, tx *sql.Tx, classID string) error {
	var id string
	err := tx.QueryRowContext(ctx, `SELECT class_id FROM classes WHERE class_id = $1 FOR UPDATE`, classID).Scan(&id)
	if err == sql.ErrNoRows {
		return database.ErrClassNotFound
	}
	if err != nil {
		return fmt.Errorf("lock class: %w", err)
	}
	return nil
}

// AddSubject appends a subject after the last one.
func (r *ClassRepository) AddSubject(ctx context.Context, classID string, subject database.Subject) error {
	return r.pool.withTx(ctx, func(tx *sql.Tx) error {
		if err := lockClass(ctx, tx, classID); err != nil {
			return err
		}
		_, err := tx.ExecContext(ctx, `
			INSERT INTO class_subjects (class_id, position, teacher, subject_name, start_time, late_time)
			SELECT $1, COALESCE(MAX(position) + 1, 0), $2, $3, $4, $5
			FROM class_subjects WHERE class_id = $1
		`, classID, subject.Teacher, subject.Name, subject.StartTime, subject.LateTime)
		if err != nil {
			return fmt.Errorf("insert subject: %w", err)
		}
		return nil
	})
}

// UpdateSubject replaces the subject at index.
func (r *ClassRepository) UpdateSubject(ctx context.Context, classID string, index int, subject database.Subject) error {
	return r.pool.withTx(ctx, func(tx *sql.Tx) error {
		if err := lockClass(ctx, tx, classID); err != nil {
			return err
		}
		result, err := tx.ExecContext(ctx, `
			UPDATE class_subjects
			SET teacher = $3, subject_name = $4, start_time = $5, late_time = $6
			WHERE class_id = $1 AND position = $2
		`, classID, index, subject.Teacher, subject.Name, subject.StartTime, subject.LateTime)
		if err != nil {
			return fmt.Errorf("update subject: %w", err)
		}
		if n, err := result.RowsAffected(); err != nil {
			return fmt.Errorf("getting rows affected: %w", err)
		} else if n == 0 {
			return database.ErrSubjectNotFound
		}
		return nil
	})
}

// RemoveSubject deletes the subject at index and moves later subjects up by one.
func (r *ClassRepository) RemoveSubject(ctx context.Context, classID string, index int) error {
	return r.pool.withTx(ctx, func(tx *sql.Tx) error {
		if err := lockClass(ctx, tx, classID); err != nil {
			return err
		}
		result, err := tx.ExecContext(ctx, `DELETE FROM class_subjects WHERE class_id = $1 AND position = $2`, classID, index)
		if err != nil {
			return fmt.Errorf("delete subject: %w", err)
		}
		if n, err := result.RowsAffected(); err != nil {
			return fmt.Errorf("getting rows affected: %w", err)
		} else if n == 0 {
			return database.ErrSubjectNotFound
		}
		if _, err := tx.ExecContext(ctx, `
			UPDATE class_subjects SET position = position - 1
			WHERE class_id = $1 AND position > $2
		`, classID, index); err != nil {
			return fmt.Errorf("shift subjects: %w", err)
		}
		return nil
	})
}

// AddStudent adds a student to the roster. Adding an existing member is a no-op.
func (r *ClassRepository) AddStudent(ctx context.Context, classID, name string) error {
	result, err := r.pool.Exec(ctx, `
		INSERT INTO class_students (class_id, student_name)
		SELECT class_id, $2 FROM classes WHERE class_id = $1
		ON CONFLICT (class_id, student_name) DO NOTHING
	`, classID, name)
	if err != nil {
		return fmt.Errorf("add student: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("getting rows affected: %w", err)
	}
	if n == 0 {
		// Either already enrolled or the class is missing.
		c, err := r.GetClass(ctx, classID)
		if err != nil {
			return err
		}
		if c == nil {
			return database.ErrClassNotFound
		}
	}
	return nil
}

// RemoveStudent removes a student from one roster and deletes their records of that class.
func (r *ClassRepository) RemoveStudent(ctx context.Context, classID, name string) error {
	return r.pool.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM class_students WHERE class_id = $1 AND student_name = $2`, classID, name); err != nil {
			return fmt.Errorf("remove student: %w", err)
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM attendance_records WHERE class_id = $1 AND name = $2`, classID, name); err != nil {
			return fmt.Errorf("delete student records: %w", err)
		}
		return nil
	})
}
