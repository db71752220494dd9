package services

import (
	"context"
	"encoding/base64"
	"errors"
	"testing"

	"github.com/dmitrijs2005/filesmanager/internal/common"
	"github.com/dmitrijs2005/filesmanager/internal/server/blobs"
	"github.com/dmitrijs2005/filesmanager/internal/server/models"
	"github.com/dmitrijs2005/filesmanager/internal/server/repositories/files"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// --- fakes ---

type fakeAuth struct {
	tokens map[string]string
}

func (f *fakeAuth) Authenticate(_ context.Context, token string) (string, error) {
	if uid, ok := f.tokens[token]; ok {
		return uid, nil
	}
	return "", common.ErrUnauthorized
}

type fakeRepo struct {
	files.Repository

	byID      map[string]*models.File
	inserted  []*models.File
	insertErr error
	getErr    error
	listArgs  []int
	listOut   []*models.File
	listErr   error
}

func newFakeRepo(records ...*models.File) *fakeRepo {
	r := &fakeRepo{byID: map[string]*models.File{}}
	for _, f := range records {
		r.byID[f.ID] = f
	}
	return r
}

func (f *fakeRepo) Insert(_ context.Context, rec *models.File) (string, error) {
	if f.insertErr != nil {
		return "", f.insertErr
	}
	cp := *rec
	cp.ID = "new-id"
	f.inserted = append(f.inserted, &cp)
	return cp.ID, nil
}

func (f *fakeRepo) GetOwned(_ context.Context, id, userID string) (*models.File, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	rec, ok := f.byID[id]
	if !ok || rec.UserID != userID {
		return nil, common.ErrNotFound
	}
	cp := *rec
	return &cp, nil
}

func (f *fakeRepo) GetVisible(_ context.Context, id, userID string) (*models.File, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	rec, ok := f.byID[id]
	if !ok || !(rec.IsPublic || (userID != "" && rec.UserID == userID)) {
		return nil, common.ErrNotFound
	}
	cp := *rec
	return &cp, nil
}

func (f *fakeRepo) ListByParent(_ context.Context, userID, parentID string, offset, limit int) ([]*models.File, error) {
	f.listArgs = []int{offset, limit}
	return f.listOut, f.listErr
}

func (f *fakeRepo) SetPublic(_ context.Context, id, userID string, public bool) (*models.File, error) {
	rec, ok := f.byID[id]
	if !ok || rec.UserID != userID {
		return nil, common.ErrNotFound
	}
	rec.IsPublic = public
	cp := *rec
	return &cp, nil
}

func (f *fakeRepo) Count(context.Context) (int64, error) {
	return int64(len(f.byID)), nil
}

type fakeStore struct {
	blobs.Store

	data     map[string][]byte
	writeErr error
	statErr  error
}

func newFakeStore() *fakeStore {
	return &fakeStore{data: map[string][]byte{}}
}

func (f *fakeStore) NewPath() string { return "/tmp/files_manager/blob" }

func (f *fakeStore) Write(_ context.Context, path string, data []byte) error {
	if f.writeErr != nil {
		return f.writeErr
	}
	f.data[path] = data
	return nil
}

func (f *fakeStore) Exists(_ context.Context, path string) (bool, error) {
	if f.statErr != nil {
		return false, f.statErr
	}
	_, ok := f.data[path]
	return ok, nil
}

func (f *fakeStore) Read(_ context.Context, path string) ([]byte, error) {
	b, ok := f.data[path]
	if !ok {
		return nil, blobs.ErrBlobNotFound
	}
	return b, nil
}

type fakePublisher struct {
	jobs []models.ThumbnailJob
	err  error
}

func (f *fakePublisher) Publish(_ context.Context, job models.ThumbnailJob) error {
	if f.err != nil {
		return f.err
	}
	f.jobs = append(f.jobs, job)
	return nil
}

type fixture struct {
	svc   *FileService
	repo  *fakeRepo
	store *fakeStore
	pub   *fakePublisher
}

func newFixture(records ...*models.File) *fixture {
	fx := &fixture{
		repo:  newFakeRepo(records...),
		store: newFakeStore(),
		pub:   &fakePublisher{},
	}
	auth := &fakeAuth{tokens: map[string]string{"t1": "u1", "t2": "u2"}}
	fx.svc = NewFileService(auth, fx.repo, fx.store, fx.pub, nil, nil)
	return fx
}

func b64(s string) string { return base64.StdEncoding.EncodeToString([]byte(s)) }

// --- Create ---

func TestCreate_ValidationOrder(t *testing.T) {
	textFile := &models.File{ID: "file1", UserID: "u1", Name: "a.txt", Type: models.TypeFile, ParentID: "0", LocalPath: "/p"}

	tests := []struct {
		name  string
		token string
		req   CreateRequest
		want  error
	}{
		{"bad token wins over everything", "bad", CreateRequest{}, common.ErrUnauthorized},
		{"missing name", "t1", CreateRequest{Type: "folder"}, common.ErrMissingName},
		{"missing name before type", "t1", CreateRequest{Type: "bogus"}, common.ErrMissingName},
		{"name with NUL", "t1", CreateRequest{Name: "a\x00b", Type: "folder"}, common.ErrInvalidName},
		{"missing type", "t1", CreateRequest{Name: "x"}, common.ErrMissingType},
		{"unknown type", "t1", CreateRequest{Name: "x", Type: "video"}, common.ErrMissingType},
		{"file without data", "t1", CreateRequest{Name: "x", Type: "file"}, common.ErrMissingData},
		{"image without data", "t1", CreateRequest{Name: "x", Type: "image", ParentID: "nope"}, common.ErrMissingData},
		{"undecodable data", "t1", CreateRequest{Name: "x", Type: "file", Data: "!!!"}, common.ErrInvalidData},
		{"unknown parent", "t1", CreateRequest{Name: "x", Type: "folder", ParentID: "nope"}, common.ErrParentNotFound},
		{"parent of other user", "t2", CreateRequest{Name: "x", Type: "folder", ParentID: "file1"}, common.ErrParentNotFound},
		{"parent not a folder", "t1", CreateRequest{Name: "x", Type: "folder", ParentID: "file1"}, common.ErrParentNotAFolder},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fx := newFixture(textFile)
			_, err := fx.svc.Create(context.Background(), tt.token, tt.req)
			assert.ErrorIs(t, err, tt.want)
			assert.Empty(t, fx.repo.inserted)
			assert.Empty(t, fx.store.data)
			assert.Empty(t, fx.pub.jobs)
		})
	}
}

func TestCreate_FolderAtRoot(t *testing.T) {
	fx := newFixture()

	f, err := fx.svc.Create(context.Background(), "t1", CreateRequest{Name: "images", Type: models.TypeFolder})
	require.NoError(t, err)

	assert.Equal(t, "new-id", f.ID)
	assert.Equal(t, "u1", f.UserID)
	assert.Equal(t, models.RootParentID, f.ParentID)
	assert.Empty(t, f.LocalPath)
	assert.Empty(t, fx.store.data)
	assert.Empty(t, fx.pub.jobs)
}

func TestCreate_FileInFolder(t *testing.T) {
	folder := &models.File{ID: "dir1", UserID: "u1", Name: "docs", Type: models.TypeFolder, ParentID: "0"}
	fx := newFixture(folder)

	f, err := fx.svc.Create(context.Background(), "t1", CreateRequest{
		Name:     "hello.txt",
		Type:     models.TypeFile,
		ParentID: "dir1",
		IsPublic: true,
		Data:     b64("Hello Webstack!\n"),
	})
	require.NoError(t, err)

	assert.Equal(t, "dir1", f.ParentID)
	assert.True(t, f.IsPublic)
	assert.Equal(t, "/tmp/files_manager/blob", f.LocalPath)
	assert.Equal(t, "Hello Webstack!\n", string(fx.store.data[f.LocalPath]))
	assert.Empty(t, fx.pub.jobs)
}

func TestCreate_ImagePublishesJob(t *testing.T) {
	fx := newFixture()

	f, err := fx.svc.Create(context.Background(), "t1", CreateRequest{Name: "img.png", Type: models.TypeImage, Data: b64("png")})
	require.NoError(t, err)

	require.Len(t, fx.pub.jobs, 1)
	assert.Equal(t, models.ThumbnailJob{UserID: "u1", FileID: f.ID}, fx.pub.jobs[0])
}

func TestCreate_PublishFailureKeepsRecord(t *testing.T) {
	fx := newFixture()
	fx.pub.err = errors.New("broker down")

	_, err := fx.svc.Create(context.Background(), "t1", CreateRequest{Name: "img.png", Type: models.TypeImage, Data: b64("png")})
	assert.ErrorIs(t, err, common.ErrQueue)
	assert.ErrorContains(t, err, "new-id")
	assert.Len(t, fx.repo.inserted, 1)
}

func TestCreate_StorageFailures(t *testing.T) {
	fx := newFixture()
	fx.store.writeErr = errors.New("disk full")

	_, err := fx.svc.Create(context.Background(), "t1", CreateRequest{Name: "a", Type: models.TypeFile, Data: b64("x")})
	assert.ErrorIs(t, err, common.ErrStorage)
	assert.Empty(t, fx.repo.inserted)

	fx = newFixture()
	fx.repo.insertErr = errors.New("db down")

	_, err = fx.svc.Create(context.Background(), "t1", CreateRequest{Name: "a", Type: models.TypeImage, Data: b64("x")})
	assert.ErrorIs(t, err, common.ErrStorage)
	assert.Empty(t, fx.pub.jobs)
}

func TestCreate_ParentLookupFailureIsStorage(t *testing.T) {
	fx := newFixture()
	fx.repo.getErr = errors.New("db down")

	_, err := fx.svc.Create(context.Background(), "t1", CreateRequest{Name: "a", Type: models.TypeFolder, ParentID: "p"})
	assert.ErrorIs(t, err, common.ErrStorage)
}

// --- Get / List / SetPublic ---

func TestGet(t *testing.T) {
	rec := &models.File{ID: "f1", UserID: "u1", Name: "a", Type: models.TypeFolder, ParentID: "0", IsPublic: true}
	fx := newFixture(rec)
	ctx := context.Background()

	got, err := fx.svc.Get(ctx, "t1", "f1")
	require.NoError(t, err)
	assert.Equal(t, rec, got)

	_, err = fx.svc.Get(ctx, "t2", "f1")
	assert.ErrorIs(t, err, common.ErrNotFound)

	_, err = fx.svc.Get(ctx, "", "f1")
	assert.ErrorIs(t, err, common.ErrUnauthorized)
}

func TestList_Paging(t *testing.T) {
	fx := newFixture()
	ctx := context.Background()

	_, err := fx.svc.List(ctx, "t1", "", 0)
	require.NoError(t, err)
	assert.Equal(t, []int{0, PageSize}, fx.repo.listArgs)

	_, err = fx.svc.List(ctx, "t1", "dir", 3)
	require.NoError(t, err)
	assert.Equal(t, []int{3 * PageSize, PageSize}, fx.repo.listArgs)

	_, err = fx.svc.List(ctx, "t1", "dir", -4)
	require.NoError(t, err)
	assert.Equal(t, []int{0, PageSize}, fx.repo.listArgs)

	_, err = fx.svc.List(ctx, "bad", "", 0)
	assert.ErrorIs(t, err, common.ErrUnauthorized)

	fx.repo.listErr = errors.New("db down")
	_, err = fx.svc.List(ctx, "t1", "", 0)
	assert.ErrorIs(t, err, common.ErrStorage)
}

func TestSetPublic(t *testing.T) {
	rec := &models.File{ID: "f1", UserID: "u1", Name: "a", Type: models.TypeFile, ParentID: "0", LocalPath: "/p"}
	fx := newFixture(rec)
	ctx := context.Background()

	got, err := fx.svc.SetPublic(ctx, "t1", "f1", true)
	require.NoError(t, err)
	assert.True(t, got.IsPublic)

	got, err = fx.svc.SetPublic(ctx, "t1", "f1", true)
	require.NoError(t, err)
	assert.True(t, got.IsPublic)

	_, err = fx.svc.SetPublic(ctx, "t2", "f1", false)
	assert.ErrorIs(t, err, common.ErrNotFound)

	_, err = fx.svc.SetPublic(ctx, "nope", "f1", false)
	assert.ErrorIs(t, err, common.ErrUnauthorized)
}

// --- Content ---

func TestContent(t *testing.T) {
	folder := &models.File{ID: "dir", UserID: "u1", Name: "docs", Type: models.TypeFolder, ParentID: "0", IsPublic: true}
	private := &models.File{ID: "priv", UserID: "u1", Name: "a.txt", Type: models.TypeFile, ParentID: "0", LocalPath: "/p/a"}
	public := &models.File{ID: "pub", UserID: "u1", Name: "img.png", Type: models.TypeImage, ParentID: "0", IsPublic: true, LocalPath: "/p/img"}
	noPath := &models.File{ID: "nopath", UserID: "u1", Name: "b", Type: models.TypeFile, ParentID: "0", IsPublic: true}

	fx := newFixture(folder, private, public, noPath)
	fx.store.data["/p/a"] = []byte("Hello Webstack!\n")
	fx.store.data["/p/img"] = []byte("original")
	fx.store.data["/p/img_250"] = []byte("thumb")
	ctx := context.Background()

	tests := []struct {
		name     string
		token    string
		id, size string
		want     string
		wantErr  error
	}{
		{"owner reads private", "t1", "priv", "", "Hello Webstack!\n", nil},
		{"anonymous cannot read private", "", "priv", "", "", common.ErrNotFound},
		{"invalid token is anonymous", "bad", "priv", "", "", common.ErrNotFound},
		{"other user cannot read private", "t2", "priv", "", "", common.ErrNotFound},
		{"anonymous reads public", "", "pub", "", "original", nil},
		{"thumbnail ready", "", "pub", "250", "thumb", nil},
		{"thumbnail not ready", "", "pub", "500", "", common.ErrNotFound},
		{"invalid size", "", "pub", "300", "", common.ErrInvalidSize},
		{"invalid size on missing file", "", "missing", "abc", "", common.ErrInvalidSize},
		{"padded size is invalid", "", "pub", "0100", "", common.ErrInvalidSize},
		{"folder has no content", "", "dir", "", "", common.ErrFolderHasNoContent},
		{"empty local path", "", "nopath", "", "", common.ErrNotFound},
		{"missing record", "t1", "missing", "", "", common.ErrNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := fx.svc.Content(ctx, tt.token, tt.id, tt.size)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, string(c.Data))
		})
	}
}

func TestContent_TypeFromExtensionThenSniffing(t *testing.T) {
	named := &models.File{ID: "a", UserID: "u1", Name: "index.html", Type: models.TypeFile, ParentID: "0", LocalPath: "/p/a"}
	bare := &models.File{ID: "b", UserID: "u1", Name: "README", Type: models.TypeFile, ParentID: "0", LocalPath: "/p/b"}

	fx := newFixture(named, bare)
	fx.store.data["/p/a"] = []byte("<p>hi</p>")
	fx.store.data["/p/b"] = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR")

	c, err := fx.svc.Content(context.Background(), "t1", "a", "")
	require.NoError(t, err)
	assert.Equal(t, "text/html; charset=utf-8", c.ContentType)
	assert.Equal(t, "index.html", c.Name)

	c, err = fx.svc.Content(context.Background(), "t1", "b", "")
	require.NoError(t, err)
	assert.Equal(t, "image/png", c.ContentType)
}

func TestContent_StorageErrors(t *testing.T) {
	rec := &models.File{ID: "a", UserID: "u1", Name: "a.txt", Type: models.TypeFile, ParentID: "0", LocalPath: "/p/a"}
	fx := newFixture(rec)
	fx.store.statErr = errors.New("io")

	_, err := fx.svc.Content(context.Background(), "t1", "a", "")
	assert.ErrorIs(t, err, common.ErrStorage)

	fx.store.statErr = nil
	fx.repo.getErr = errors.New("db down")
	_, err = fx.svc.Content(context.Background(), "t1", "a", "")
	assert.ErrorIs(t, err, common.ErrStorage)
}

func TestCount(t *testing.T) {
	fx := newFixture(&models.File{ID: "a", UserID: "u1"}, &models.File{ID: "b", UserID: "u2"})

	n, err := fx.svc.Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
}
