package service_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"easel/internal/domain"
	"easel/internal/service"
	"easel/internal/storage"
)

// barrierStore makes every Load wait until all callers have started
// loading, so they read the same version of a document. Saves run one at a
// time because they share a staging file.
type barrierStore struct {
	*storage.FileStore
	wg     *sync.WaitGroup
	saveMu *sync.Mutex
}

func (b barrierStore) Save(ctx context.Context, path string, doc *domain.Document) error {
	b.saveMu.Lock()
	defer b.saveMu.Unlock()
	return b.FileStore.Save(ctx, path, doc)
}

func (b barrierStore) Load(ctx context.Context, path string) (*domain.Document, error) {
	b.wg.Done()
	b.wg.Wait()
	return b.FileStore.Load(ctx, path)
}

// ctxRecorder remembers whether Save saw a cancelled context.
type ctxRecorder struct {
	*storage.FileStore
	saveErr error
}

func (c *ctxRecorder) Save(ctx context.Context, path string, doc *domain.Document) error {
	c.saveErr = ctx.Err()
	return c.FileStore.Save(ctx, path, doc)
}

func newCanvasService(t *testing.T) (*service.CanvasService, string) {
	t.Helper()
	return service.NewCanvasService(storage.NewFileStore()), t.TempDir()
}

// ─────────────────────────────────────────────────────────────
// Documents
// ─────────────────────────────────────────────────────────────

func TestCreateDocument(t *testing.T) {
	svc, dir := newCanvasService(t)
	ctx := context.Background()
	path := filepath.Join(dir, "a.easel")

	doc, err := svc.CreateDocument(ctx, path, "Untitled")
	require.NoError(t, err)
	assert.Equal(t, "Untitled", doc.Name)

	_, err = svc.CreateDocument(ctx, path, "again")
	assert.True(t, errors.Is(err, domain.ErrAlreadyExists))

	loaded, err := svc.ReadDocument(ctx, path)
	require.NoError(t, err)
	assert.Equal(t, "Untitled", loaded.Name)
}

func TestCreateDocument_EmptyNameIsKept(t *testing.T) {
	svc, dir := newCanvasService(t)
	ctx := context.Background()
	path := filepath.Join(dir, "blank.easel")

	_, err := svc.CreateDocument(ctx, path, "")
	require.NoError(t, err)

	loaded, err := svc.ReadDocument(ctx, path)
	require.NoError(t, err)
	assert.Equal(t, "", loaded.Name)
}

func TestListDocuments_SkipsBrokenFiles(t *testing.T) {
	svc, dir := newCanvasService(t)
	ctx := context.Background()

	_, err := svc.CreateDocument(ctx, filepath.Join(dir, "one.easel"), "One")
	require.NoError(t, err)
	_, err = svc.CreateNode(ctx, filepath.Join(dir, "sub", "two.easel"), domain.NewNodeSpec(domain.KindRect))
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "broken.easel"), []byte("garbage"), 0644))

	infos, err := svc.ListDocuments(ctx, dir)
	require.NoError(t, err)
	assert.Equal(t, []service.DocumentInfo{
		{Path: filepath.Join(dir, "one.easel"), Name: "One", ObjectCount: 0},
		{Path: filepath.Join(dir, "sub", "two.easel"), Name: "Untitled", ObjectCount: 1},
	}, infos)
}

// ─────────────────────────────────────────────────────────────
// Nodes
// ─────────────────────────────────────────────────────────────

func TestNodeLifecycle(t *testing.T) {
	svc, dir := newCanvasService(t)
	ctx := context.Background()
	path := filepath.Join(dir, "life.easel")

	spec := domain.NewNodeSpec(domain.KindEllipse)
	spec.Width, spec.Height = 40, 20
	created, err := svc.CreateNode(ctx, path, spec)
	require.NoError(t, err)

	read, err := svc.ReadNode(ctx, path, created.ID)
	require.NoError(t, err)
	rx, _ := read.Number("rx")
	assert.Equal(t, 20.0, rx)

	updated, err := svc.UpdateNode(ctx, path, created.ID, domain.PropsFromMap(map[string]any{"fill": "#abcdef", "id": "x"}))
	require.NoError(t, err)
	assert.Equal(t, created.ID, updated.ID)
	fill, _ := updated.Get("fill")
	assert.Equal(t, "#abcdef", fill)

	res, err := svc.DeleteNodes(ctx, path, []string{created.ID, "ghost"})
	require.NoError(t, err)
	assert.Equal(t, []string{created.ID}, res.Deleted)
	assert.Equal(t, []string{"ghost"}, res.NotFound)

	_, err = svc.ReadNode(ctx, path, created.ID)
	assert.True(t, errors.Is(err, domain.ErrNotFound))
}

func TestNodeOps_MissingDocument(t *testing.T) {
	svc, dir := newCanvasService(t)
	ctx := context.Background()
	path := filepath.Join(dir, "missing.easel")

	_, err := svc.ReadNode(ctx, path, "x")
	assert.True(t, errors.Is(err, domain.ErrNotFound))
	_, err = svc.UpdateNode(ctx, path, "x", domain.NewProps())
	assert.True(t, errors.Is(err, domain.ErrNotFound))
	_, err = svc.DeleteNodes(ctx, path, []string{"x"})
	assert.True(t, errors.Is(err, domain.ErrNotFound))
}

func TestCreateNode_UnknownTypeWritesNothing(t *testing.T) {
	svc, dir := newCanvasService(t)
	ctx := context.Background()
	path := filepath.Join(dir, "none.easel")

	_, err := svc.CreateNode(ctx, path, domain.NewNodeSpec("star"))
	assert.True(t, errors.Is(err, domain.ErrInvalidArgument))

	_, err = os.Stat(path)
	assert.True(t, errors.Is(err, os.ErrNotExist))
}

func TestSave_IgnoresCallerCancellation(t *testing.T) {
	rec := &ctxRecorder{FileStore: storage.NewFileStore()}
	svc := service.NewCanvasService(rec)
	path := filepath.Join(t.TempDir(), "c.easel")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := svc.CreateNode(ctx, path, domain.NewNodeSpec(domain.KindRect))
	require.NoError(t, err)
	assert.NoError(t, rec.saveErr)
}

// Concurrent writers to one path are not coordinated: each reads the same
// version and the later save discards the other's change.
func TestConcurrentCreates_LoseAnUpdate(t *testing.T) {
	var wg sync.WaitGroup
	wg.Add(2)
	store := barrierStore{FileStore: storage.NewFileStore(), wg: &wg, saveMu: &sync.Mutex{}}
	svc := service.NewCanvasService(store)
	path := filepath.Join(t.TempDir(), "race.easel")
	ctx := context.Background()

	var done sync.WaitGroup
	for i := 0; i < 2; i++ {
		done.Add(1)
		go func() {
			defer done.Done()
			_, err := svc.CreateNode(ctx, path, domain.NewNodeSpec(domain.KindRect))
			assert.NoError(t, err)
		}()
	}
	done.Wait()

	doc, err := storage.NewFileStore().Load(ctx, path)
	require.NoError(t, err)
	assert.Equal(t, 1, doc.ObjectCount())
}
