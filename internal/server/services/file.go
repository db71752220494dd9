// Package services contains server-side business logic. This file implements
// FileService: the file tree operations behind the HTTP API.
package services

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"mime"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/dmitrijs2005/filesmanager/internal/common"
	"github.com/dmitrijs2005/filesmanager/internal/logging"
	"github.com/dmitrijs2005/filesmanager/internal/metrics"
	"github.com/dmitrijs2005/filesmanager/internal/server/blobs"
	"github.com/dmitrijs2005/filesmanager/internal/server/models"
	"github.com/dmitrijs2005/filesmanager/internal/server/queue"
	"github.com/dmitrijs2005/filesmanager/internal/server/repositories/files"
	"github.com/gabriel-vasile/mimetype"
)

// PageSize is the number of records per List page.
const PageSize = 20

// Authenticator resolves a session token to a user id.
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (string, error)
}

// CreateRequest is the input of FileService.Create. Data is the base64
// encoded payload and is ignored for folders.
type CreateRequest struct {
	Name     string
	Type     models.FileType
	ParentID string
	IsPublic bool
	Data     string
}

// Content is the payload of a file or one of its thumbnails.
type Content struct {
	Name        string
	ContentType string
	Data        []byte
}

// FileService provides the file tree operations:
// - Create: folders, files and images (images also get thumbnails queued)
// - Get, List: owner-scoped reads
// - SetPublic: toggle public visibility
// - Content: raw bytes of visible files and their thumbnails
type FileService struct {
	auth    Authenticator
	repo    files.Repository
	blobs   blobs.Store
	jobs    queue.Publisher
	metrics metrics.Recorder
	logger  logging.Logger
}

func NewFileService(
	auth Authenticator,
	repo files.Repository,
	store blobs.Store,
	jobs queue.Publisher,
	rec metrics.Recorder,
	logger logging.Logger,
) *FileService {
	if rec == nil {
		rec = metrics.Nop{}
	}
	if logger == nil {
		logger = logging.Nop{}
	}
	return &FileService{
		auth:    auth,
		repo:    repo,
		blobs:   store,
		jobs:    jobs,
		metrics: rec,
		logger:  logger.With("module", "files"),
	}
}

// Create validates req, stores the payload and inserts the metadata record.
// Checks run in order and the first failure is returned. For images a
// thumbnail job is published once the record is stored; if that publish
// fails the record stays and an error wrapping ErrQueue is returned.
func (s *FileService) Create(ctx context.Context, token string, req CreateRequest) (*models.File, error) {
	userID, err := s.auth.Authenticate(ctx, token)
	if err != nil {
		return nil, err
	}

	if req.Name == "" {
		return nil, common.ErrMissingName
	}
	// NUL separates child index keys in the embedded store.
	if strings.IndexByte(req.Name, 0) >= 0 {
		return nil, common.ErrInvalidName
	}
	if !req.Type.Valid() {
		return nil, common.ErrMissingType
	}

	var data []byte
	if req.Type != models.TypeFolder {
		if req.Data == "" {
			return nil, common.ErrMissingData
		}
		data, err = base64.StdEncoding.DecodeString(req.Data)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", common.ErrInvalidData, err)
		}
	}

	parentID := models.RootParentID
	if !models.IsRootParent(req.ParentID) {
		if err := s.checkParent(ctx, req.ParentID, userID); err != nil {
			return nil, err
		}
		parentID = req.ParentID
	}

	f := &models.File{
		UserID:   userID,
		Name:     req.Name,
		Type:     req.Type,
		ParentID: parentID,
		IsPublic: req.IsPublic,
	}

	if f.Type != models.TypeFolder {
		path := s.blobs.NewPath()
		if err := s.blobs.Write(ctx, path, data); err != nil {
			return nil, s.storageError(ctx, "blob write failed", err, "path", path)
		}
		f.LocalPath = path
	}

	id, err := s.repo.Insert(ctx, f)
	if err != nil {
		return nil, s.storageError(ctx, "metadata insert failed", err, "name", f.Name)
	}
	f.ID = id
	s.metrics.FileCreated(string(f.Type))

	if f.Type == models.TypeImage {
		job := models.ThumbnailJob{UserID: userID, FileID: id}
		if err := s.jobs.Publish(ctx, job); err != nil {
			s.logger.Error(ctx, "thumbnail job publish failed", "file_id", id, "error", err)
			return nil, fmt.Errorf("%w: thumbnail job for file %s: %v", common.ErrQueue, id, err)
		}
	}

	return f, nil
}

func (s *FileService) checkParent(ctx context.Context, parentID, userID string) error {
	parent, err := s.repo.GetOwned(ctx, parentID, userID)
	if errors.Is(err, common.ErrNotFound) {
		return common.ErrParentNotFound
	}
	if err != nil {
		return s.storageError(ctx, "parent lookup failed", err, "parent_id", parentID)
	}
	if parent.Type != models.TypeFolder {
		return common.ErrParentNotAFolder
	}
	return nil
}

// Get returns the caller's record with id.
func (s *FileService) Get(ctx context.Context, token, id string) (*models.File, error) {
	userID, err := s.auth.Authenticate(ctx, token)
	if err != nil {
		return nil, err
	}
	return s.getOwned(ctx, id, userID)
}

func (s *FileService) getOwned(ctx context.Context, id, userID string) (*models.File, error) {
	f, err := s.repo.GetOwned(ctx, id, userID)
	if errors.Is(err, common.ErrNotFound) {
		return nil, common.ErrNotFound
	}
	if err != nil {
		return nil, s.storageError(ctx, "metadata lookup failed", err, "file_id", id)
	}
	return f, nil
}

// List returns page (zero-based) of the caller's children of parentID,
// sorted by name. An empty parentID lists the top level.
func (s *FileService) List(ctx context.Context, token, parentID string, page int) ([]*models.File, error) {
	userID, err := s.auth.Authenticate(ctx, token)
	if err != nil {
		return nil, err
	}

	if models.IsRootParent(parentID) {
		parentID = models.RootParentID
	}
	if page < 0 {
		page = 0
	}

	items, err := s.repo.ListByParent(ctx, userID, parentID, page*PageSize, PageSize)
	if err != nil {
		return nil, s.storageError(ctx, "metadata list failed", err, "parent_id", parentID)
	}
	return items, nil
}

// SetPublic sets the visibility of the caller's record and returns it.
func (s *FileService) SetPublic(ctx context.Context, token, id string, public bool) (*models.File, error) {
	userID, err := s.auth.Authenticate(ctx, token)
	if err != nil {
		return nil, err
	}

	f, err := s.repo.SetPublic(ctx, id, userID, public)
	if errors.Is(err, common.ErrNotFound) {
		return nil, common.ErrNotFound
	}
	if err != nil {
		return nil, s.storageError(ctx, "visibility update failed", err, "file_id", id)
	}
	return f, nil
}

// Content returns the bytes of a file, or of its thumbnail when size is
// set. The token is optional: without a valid one only public records are
// visible. A thumbnail that has not been generated yet is ErrNotFound.
func (s *FileService) Content(ctx context.Context, token, id, size string) (*Content, error) {
	if err := validateSize(size); err != nil {
		return nil, err
	}

	var userID string
	if token != "" {
		if uid, err := s.auth.Authenticate(ctx, token); err == nil {
			userID = uid
		}
	}

	f, err := s.repo.GetVisible(ctx, id, userID)
	if errors.Is(err, common.ErrNotFound) {
		return nil, common.ErrNotFound
	}
	if err != nil {
		return nil, s.storageError(ctx, "metadata lookup failed", err, "file_id", id)
	}

	if f.Type == models.TypeFolder {
		return nil, common.ErrFolderHasNoContent
	}
	if f.LocalPath == "" {
		return nil, common.ErrNotFound
	}

	path := f.LocalPath
	if size != "" {
		path = f.LocalPath + "_" + size
	}

	ok, err := s.blobs.Exists(ctx, path)
	if err != nil {
		return nil, s.storageError(ctx, "blob stat failed", err, "path", path)
	}
	if !ok {
		return nil, common.ErrNotFound
	}

	data, err := s.blobs.Read(ctx, path)
	if errors.Is(err, blobs.ErrBlobNotFound) {
		return nil, common.ErrNotFound
	}
	if err != nil {
		return nil, s.storageError(ctx, "blob read failed", err, "path", path)
	}

	return &Content{
		Name:        f.Name,
		ContentType: contentType(f.Name, data),
		Data:        data,
	}, nil
}

// Count is the total number of records in the store.
func (s *FileService) Count(ctx context.Context) (int64, error) {
	n, err := s.repo.Count(ctx)
	if err != nil {
		return 0, s.storageError(ctx, "metadata count failed", err)
	}
	return n, nil
}

func (s *FileService) storageError(ctx context.Context, msg string, err error, args ...any) error {
	s.logger.Error(ctx, msg, append(args, "error", err)...)
	return fmt.Errorf("%w: %v", common.ErrStorage, err)
}

func validateSize(size string) error {
	if size == "" {
		return nil
	}
	w, err := strconv.Atoi(size)
	if err != nil || strconv.Itoa(w) != size {
		return common.ErrInvalidSize
	}
	for _, allowed := range models.ThumbnailWidths {
		if w == allowed {
			return nil
		}
	}
	return common.ErrInvalidSize
}

// contentType guesses from the name's extension first and falls back to
// sniffing the payload.
func contentType(name string, data []byte) string {
	if t := mime.TypeByExtension(filepath.Ext(name)); t != "" {
		return t
	}
	return mimetype.Detect(data).String()
}
