package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/kozaktomas/attendance-scanner/internal/database"
	"github.com/pgvector/pgvector-go"
)

// IdentityRepository stores one averaged face embedding per enrolled name.
type IdentityRepository struct {
	pool *Pool
}

// NewIdentityRepository creates a new PostgreSQL identity repository.
func NewIdentityRepository(pool *Pool) *IdentityRepository {
	return &IdentityRepository{pool: pool}
}

var _ database.IdentityWriter = (*IdentityRepository)(nil)

// GetAllEmbeddings returns every identity ordered by name.
func (r *IdentityRepository) GetAllEmbeddings(ctx context.Context) ([]database.Identity, error) {
	rows, err := r.pool.Query(ctx, `SELECT name, embedding, updated_at FROM identities ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("query identities: %w", err)
	}
	defer rows.Close()

	var identities []database.Identity
	for rows.Next() {
		var id database.Identity
		var vec pgvector.Vector
		if err := rows.Scan(&id.Name, &vec, &id.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan identity: %w", err)
		}
		id.Embedding = vec.Slice()
		identities = append(identities, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate identities: %w", err)
	}
	return identities, nil
}

// ListNames returns every enrolled name ordered by name.
func (r *IdentityRepository) ListNames(ctx context.Context) ([]string, error) {
	rows, err := r.pool.Query(ctx, `SELECT name FROM identities ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("query identity names: %w", err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var n string
		if err := rows.Scan(&n); err != nil {
			return nil, fmt.Errorf("scan identity name: %w", err)
		}
		names = append(names, n)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate identity names: %w", err)
	}
	return names, nil
}

// SaveIdentity inserts the identity or overwrites its embedding.
func (r *IdentityRepository) SaveIdentity(ctx context.Context, identity database.Identity) error {
	if len(identity.Embedding) == 0 {
		return fmt.Errorf("save identity %q: empty embedding", identity.Name)
	}
	_, err := r.pool.Exec(ctx, `
		INSERT INTO identities (name, embedding, dim, updated_at)
		VALUES ($1, $2, $3, NOW())
		ON CONFLICT (name) DO UPDATE SET
			embedding = EXCLUDED.embedding,
			dim = EXCLUDED.dim,
			updated_at = NOW()
	`, identity.Name, pgvector.NewVector(identity.Embedding), len(identity.Embedding))
	if err != nil {
		return fmt.Errorf("save identity: %w", err)
	}
	return nil
}

// DeleteStudentGlobally removes the identity, every roster membership and every
// attendance record of the name in one transaction.
func (r *IdentityRepository) DeleteStudentGlobally(ctx context.Context, name string) error {
	return r.pool.withTx(ctx, func(tx *sql.Tx) error {
		statements := []struct {
			query string
			what  string
		}{
			{`DELETE FROM identities WHERE name = $1`, "identity"},
			{`DELETE FROM class_students WHERE student_name = $1`, "roster memberships"},
			{`DELETE FROM attendance_records WHERE name = $1`, "attendance records"},
		}
		for _, s := range statements {
			if _, err := tx.ExecContext(ctx, s.query, name); err != nil {
				return fmt.Errorf("delete %s: %w", s.what, err)
			}
		}
		return nil
	})
}
