package files

import (
	"context"

	"github.com/dmitrijs2005/filesmanager/internal/server/models"
)

// Repository is the metadata store of the file tree.
// Lookups that find nothing return common.ErrNotFound.
type Repository interface {
	// Insert stores f and returns the id assigned by the store.
	Insert(ctx context.Context, f *models.File) (string, error)
	// GetOwned returns the record with id owned by userID.
	GetOwned(ctx context.Context, id, userID string) (*models.File, error)
	// GetVisible returns the record with id if it is public or owned by
	// userID. An empty userID sees public records only.
	GetVisible(ctx context.Context, id, userID string) (*models.File, error)
	// ListByParent returns one page of userID's children of parentID in
	// ascending byte order of name.
	ListByParent(ctx context.Context, userID, parentID string, offset, limit int) ([]*models.File, error)
	// SetPublic updates the visibility flag and returns the updated record.
	SetPublic(ctx context.Context, id, userID string, public bool) (*models.File, error)
	Count(ctx context.Context) (int64, error)
}
