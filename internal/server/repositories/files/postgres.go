package files

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/filesmanager/internal/common"
	"github.com/dmitrijs2005/filesmanager/internal/dbx"
	"github.com/dmitrijs2005/filesmanager/internal/server/models"
)

// PostgresRepository implements Repository over a dbx.DBTX (*sql.DB or *sql.Tx).
type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

const fileColumns = `id, user_id, name, type, parent_id, is_public, local_path`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanFile(row rowScanner) (*models.File, error) {
	var (
		f         models.File
		localPath sql.NullString
	)
	if err := row.Scan(&f.ID, &f.UserID, &f.Name, &f.Type, &f.ParentID, &f.IsPublic, &localPath); err != nil {
		return nil, err
	}
	f.LocalPath = localPath.String
	return &f, nil
}

func (r *PostgresRepository) Insert(ctx context.Context, f *models.File) (string, error) {
	query := `INSERT INTO files (user_id, name, type, parent_id, is_public, local_path)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id`

	localPath := sql.NullString{String: f.LocalPath, Valid: f.LocalPath != ""}

	var id string
	err := r.db.QueryRowContext(ctx, query, f.UserID, f.Name, f.Type, f.ParentID, f.IsPublic, localPath).Scan(&id)
	if err != nil {
		return "", fmt.Errorf("insert file: %w", err)
	}
	return id, nil
}

func (r *PostgresRepository) GetOwned(ctx context.Context, id, userID string) (*models.File, error) {
	query := `SELECT ` + fileColumns + ` FROM files WHERE id=$1 AND user_id=$2`
	return r.getOne(ctx, query, id, userID)
}

func (r *PostgresRepository) GetVisible(ctx context.Context, id, userID string) (*models.File, error) {
	query := `SELECT ` + fileColumns + ` FROM files WHERE id=$1 AND (is_public OR user_id=$2)`
	return r.getOne(ctx, query, id, userID)
}

func (r *PostgresRepository) getOne(ctx context.Context, query string, args ...any) (*models.File, error) {
	f, err := scanFile(r.db.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("select file: %w", err)
	}
	return f, nil
}

func (r *PostgresRepository) ListByParent(ctx context.Context, userID, parentID string, offset, limit int) ([]*models.File, error) {
	query := `SELECT ` + fileColumns + ` FROM files
		WHERE user_id=$1 AND parent_id=$2
		ORDER BY name COLLATE "C", id
		OFFSET $3 LIMIT $4`

	rows, err := r.db.QueryContext(ctx, query, userID, parentID, offset, limit)
	if err != nil {
		return nil, fmt.Errorf("select files: %w", err)
	}
	defer rows.Close()

	result := make([]*models.File, 0, limit)
	for rows.Next() {
		f, err := scanFile(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, f)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

// SetPublic is a single conditional UPDATE, so concurrent calls on the same
// record serialize in the database and the last writer wins.
func (r *PostgresRepository) SetPublic(ctx context.Context, id, userID string, public bool) (*models.File, error) {
	query := `UPDATE files SET is_public=$3
		WHERE id=$1 AND user_id=$2
		RETURNING ` + fileColumns
	return r.getOne(ctx, query, id, userID, public)
}

func (r *PostgresRepository) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := r.db.QueryRowContext(ctx, `SELECT count(*) FROM files`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count files: %w", err)
	}
	return n, nil
}
