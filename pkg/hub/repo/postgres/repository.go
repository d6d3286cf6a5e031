package postgres

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/tendant/resource-hub/pkg/hub"
)

//go:embed schema.sql
var schema string

// DBTX is an interface that allows us to use either a database connection or a transaction
type DBTX interface {
	Exec(context.Context, string, ...interface{}) (pgconn.CommandTag, error)
	Query(context.Context, string, ...interface{}) (pgx.Rows, error)
	QueryRow(context.Context, string, ...interface{}) pgx.Row
	Begin(context.Context) (pgx.Tx, error)
}

// Repository implements hub.Repository using PostgreSQL
type Repository struct {
	db DBTX
}

// New creates a new PostgreSQL repository
func New(db DBTX) *Repository {
	return &Repository{db: db}
}

// NewWithPool creates a new PostgreSQL repository with connection pool
func NewWithPool(pool *pgxpool.Pool) *Repository {
	return &Repository{db: pool}
}

// Migrate creates the tables if they do not exist. Tables are created in the
// first schema of the connection's search_path.
func Migrate(ctx context.Context, db DBTX) error {
	if _, err := db.Exec(ctx, schema); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}

// Error handling helper
func (r *Repository) handlePostgresError(operation string, err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "23505": // unique_violation
			return fmt.Errorf("duplicate entry in %s: %s", operation, pgErr.ConstraintName)
		case "23503": // foreign_key_violation
			if strings.Contains(pgErr.ConstraintName, "material") {
				return hub.ErrMaterialNotFound
			}
			return fmt.Errorf("referenced record not found")
		case "23502": // not_null_violation
			return fmt.Errorf("required field %s is missing", pgErr.ColumnName)
		case "42P01": // undefined_table
			return fmt.Errorf("table does not exist - database migration required")
		default:
			return fmt.Errorf("database error in %s: %s (code: %s)", operation, pgErr.Message, pgErr.Code)
		}
	}

	if errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("record not found")
	}

	return fmt.Errorf("database error in %s: %w", operation, err)
}

const materialColumns = `
	m.id, m.title, m.description, m.subject, m.subject_code, m.branch,
	m.semester, m.year, m.file_type, m.file_url, m.file_path, m.file_size,
	m.downloads, m.rating, m.rating_count, m.uploader_id,
	COALESCE(p.full_name, ''), m.created_at, m.updated_at`

func scanMaterial(row pgx.Row) (*hub.Material, error) {
	var m hub.Material
	err := row.Scan(
		&m.ID, &m.Title, &m.Description, &m.Subject, &m.SubjectCode, &m.Branch,
		&m.Semester, &m.Year, &m.FileType, &m.FileURL, &m.FilePath, &m.FileSize,
		&m.Downloads, &m.Rating, &m.RatingCount, &m.UploaderID,
		&m.UploaderName, &m.CreatedAt, &m.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &m, nil
}

// buildMaterialsWhereClause builds the WHERE clause for a catalog query
func buildMaterialsWhereClause(q hub.MaterialQuery) (string, []interface{}) {
	where := "1=1"
	args := []interface{}{}
	argIndex := 1

	for _, f := range []struct {
		column string
		value  string
	}{
		{"m.branch", q.Filters.Branch},
		{"m.semester", q.Filters.Semester},
		{"m.year", q.Filters.Year},
		{"m.subject", q.Filters.Subject},
	} {
		if f.value == "" {
			continue
		}
		where += fmt.Sprintf(" AND %s = $%d", f.column, argIndex)
		args = append(args, f.value)
		argIndex++
	}

	if search := hub.CleanSearch(q.Search); search != "" {
		where += fmt.Sprintf(" AND (m.title ILIKE $%d OR m.description ILIKE $%d OR m.subject ILIKE $%d)", argIndex, argIndex, argIndex)
		args = append(args, "%"+escapeLike(search)+"%")
	}

	return where, args
}

// escapeLike escapes the LIKE wildcards so the term matches literally.
func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}

func (r *Repository) QueryMaterials(ctx context.Context, q hub.MaterialQuery) ([]*hub.Material, error) {
	where, args := buildMaterialsWhereClause(q)
	query := `SELECT ` + materialColumns + `
		FROM materials m
		LEFT JOIN profiles p ON p.user_id = m.uploader_id
		WHERE ` + where + `
		ORDER BY m.created_at DESC, m.id`

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, r.handlePostgresError("query materials", err)
	}
	defer rows.Close()

	var materials []*hub.Material
	for rows.Next() {
		m, err := scanMaterial(rows)
		if err != nil {
			return nil, r.handlePostgresError("scan material", err)
		}
		materials = append(materials, m)
	}
	if err := rows.Err(); err != nil {
		return nil, r.handlePostgresError("query materials", err)
	}

	return materials, nil
}

func (r *Repository) GetMaterial(ctx context.Context, id uuid.UUID) (*hub.Material, error) {
	query := `SELECT ` + materialColumns + `
		FROM materials m
		LEFT JOIN profiles p ON p.user_id = m.uploader_id
		WHERE m.id = $1`

	m, err := scanMaterial(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, hub.ErrMaterialNotFound
		}
		return nil, r.handlePostgresError("get material", err)
	}
	return m, nil
}

func (r *Repository) CreateMaterial(ctx context.Context, m *hub.Material) error {
	query := `
		INSERT INTO materials (
			title, description, subject, subject_code, branch, semester, year,
			file_type, file_url, file_path, file_size, uploader_id
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		RETURNING id, created_at, updated_at`

	err := r.db.QueryRow(ctx, query,
		m.Title, m.Description, m.Subject, m.SubjectCode, m.Branch, m.Semester, m.Year,
		m.FileType, m.FileURL, m.FilePath, m.FileSize, m.UploaderID,
	).Scan(&m.ID, &m.CreatedAt, &m.UpdatedAt)
	if err != nil {
		return r.handlePostgresError("create material", err)
	}

	return nil
}

// RecordDownload inserts the event and bumps the counter in one transaction.
func (r *Repository) RecordDownload(ctx context.Context, ev *hub.DownloadEvent) (hub.RecordOutcome, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return 0, r.handlePostgresError("begin record download", err)
	}
	defer tx.Rollback(ctx)

	tag, err := tx.Exec(ctx, `
		INSERT INTO downloads (user_id, material_id, created_at)
		VALUES ($1, $2, $3)
		ON CONFLICT ON CONSTRAINT downloads_user_material_key DO NOTHING`,
		ev.UserID, ev.MaterialID, ev.CreatedAt)
	if err != nil {
		return 0, r.handlePostgresError("record download", err)
	}
	if tag.RowsAffected() == 0 {
		return hub.RecordAlreadyExists, nil
	}

	_, err = tx.Exec(ctx, `UPDATE materials SET downloads = downloads + 1, updated_at = now() WHERE id = $1`, ev.MaterialID)
	if err != nil {
		return 0, r.handlePostgresError("increment downloads", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, r.handlePostgresError("commit record download", err)
	}
	return hub.RecordInserted, nil
}

func (r *Repository) UpsertProfile(ctx context.Context, p *hub.Profile) error {
	query := `
		INSERT INTO profiles (user_id, full_name)
		VALUES ($1, $2)
		ON CONFLICT (user_id) DO UPDATE SET full_name = EXCLUDED.full_name, updated_at = now()`

	if _, err := r.db.Exec(ctx, query, p.UserID, p.FullName); err != nil {
		return r.handlePostgresError("upsert profile", err)
	}
	return nil
}

func (r *Repository) ListFilePaths(ctx context.Context) (map[string]struct{}, error) {
	rows, err := r.db.Query(ctx, `SELECT file_path FROM materials`)
	if err != nil {
		return nil, r.handlePostgresError("list file paths", err)
	}
	defer rows.Close()

	paths := make(map[string]struct{})
	for rows.Next() {
		var p string
		if err := rows.Scan(&p); err != nil {
			return nil, r.handlePostgresError("scan file path", err)
		}
		paths[p] = struct{}{}
	}
	if err := rows.Err(); err != nil {
		return nil, r.handlePostgresError("list file paths", err)
	}
	return paths, nil
}
