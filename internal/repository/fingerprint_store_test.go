package repository

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/timmy/copyscale/internal/domain"
	"github.com/timmy/copyscale/internal/storage"
)

type fakeSource map[string][]float32

func (f fakeSource) Extract(_ context.Context, locator string) (domain.Layers, error) {
	v, ok := f[locator]
	if !ok {
		return nil, domain.ErrExtraction
	}
	return domain.Layers{domain.LayerFinal: v}, nil
}

type failingPersister struct {
	doc     Document
	loadErr error
	saveErr error
	saves   int
}

func (p *failingPersister) Load(context.Context) (Document, error) { return p.doc, p.loadErr }

func (p *failingPersister) Save(_ context.Context, doc Document) error {
	p.saves++
	if p.saveErr != nil {
		return p.saveErr
	}
	p.doc = doc
	return nil
}

func newJSONStore(t *testing.T, src fakeSource, opts StoreOptions) (*FingerprintStore, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "copyright_database.json")
	s, err := NewFingerprintStore(context.Background(), NewJSONFilePersister(path), src, opts)
	require.NoError(t, err)
	return s, path
}

func TestRegisterOverwritesDuplicateTriple(t *testing.T) {
	ctx := context.Background()
	src := fakeSource{"/tmp/first.png": {1, 0}, "/tmp/second.png": {0, 1}}
	s, _ := newJSONStore(t, src, StoreOptions{})

	ok, err := s.Register(ctx, "/tmp/first.png", "sunset.png", "Sunset", "alice", "v1")
	require.NoError(t, err)
	require.True(t, ok)
	ok, err = s.Register(ctx, "/tmp/second.png", "uploads/sunset.png", "Sunset", "alice", "v2")
	require.NoError(t, err)
	require.True(t, ok)

	assert.Equal(t, 1, s.Len())
	rec, found := s.Get("alice_Sunset_sunset.png")
	require.True(t, found)
	assert.Equal(t, domain.Vector{0, 1}, rec.Fingerprint)
	assert.Equal(t, "v2", rec.Description)
	assert.Equal(t, rec.ID, rec.ImageID)
}

func TestRegisterRejectsCollisionsWhenConfigured(t *testing.T) {
	ctx := context.Background()
	src := fakeSource{"a.png": {1, 0}, "b.png": {0, 1}}
	s, _ := newJSONStore(t, src, StoreOptions{RejectCollisions: true})

	_, err := s.Register(ctx, "a.png", "x.png", "T", "o", "")
	require.NoError(t, err)
	ok, err := s.Register(ctx, "b.png", "x.png", "T", "o", "")
	assert.False(t, ok)
	assert.True(t, errors.Is(err, domain.ErrIDCollision))

	rec, _ := s.Get("o_T_x.png")
	assert.Equal(t, domain.Vector{1, 0}, rec.Fingerprint)
}

func TestRegisterExtractionFailureIsNotAnError(t *testing.T) {
	s, _ := newJSONStore(t, fakeSource{}, StoreOptions{})
	ok, err := s.Register(context.Background(), "corrupt.png", "corrupt.png", "T", "o", "")
	assert.NoError(t, err)
	assert.False(t, ok)
	assert.Zero(t, s.Len())
}

func TestRegisterPersistFailureRollsBack(t *testing.T) {
	p := &failingPersister{saveErr: errors.New("disk full")}
	s, err := NewFingerprintStore(context.Background(), p, fakeSource{"a.png": {1}}, StoreOptions{})
	require.NoError(t, err)

	ok, err := s.Register(context.Background(), "a.png", "a.png", "T", "o", "")
	assert.False(t, ok)
	assert.True(t, errors.Is(err, domain.ErrStoreIO))
	assert.Zero(t, s.Len())
}

func TestPersistReloadRoundTrip(t *testing.T) {
	ctx := context.Background()
	src := fakeSource{"c.png": {0.25, -1.5, 3}, "a.png": {1, 2}, "b.png": {0.1}}
	s, path := newJSONStore(t, src, StoreOptions{})
	for _, loc := range []string{"c.png", "a.png", "b.png"} {
		_, err := s.Register(ctx, loc, loc, "title", "owner", "desc "+loc)
		require.NoError(t, err)
	}

	reloaded, err := NewFingerprintStore(ctx, NewJSONFilePersister(path), src, StoreOptions{StrictLoad: true})
	require.NoError(t, err)
	assert.Equal(t, s.Snapshot(), reloaded.Snapshot(), "same ids, values and enumeration order")
}

func TestLoadMalformedDocument(t *testing.T) {
	path := filepath.Join(t.TempDir(), "db.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o644))

	s, err := NewFingerprintStore(context.Background(), NewJSONFilePersister(path), fakeSource{}, StoreOptions{})
	require.NoError(t, err)
	assert.Zero(t, s.Len())

	_, err = NewFingerprintStore(context.Background(), NewJSONFilePersister(path), fakeSource{}, StoreOptions{StrictLoad: true})
	assert.True(t, errors.Is(err, domain.ErrStoreIO))
}

func TestLoadMissingDocumentIsEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "absent.json")
	s, err := NewFingerprintStore(context.Background(), NewJSONFilePersister(path), fakeSource{}, StoreOptions{StrictLoad: true})
	require.NoError(t, err)
	assert.Zero(t, s.Len())
}

func TestRemoveAndClear(t *testing.T) {
	ctx := context.Background()
	src := fakeSource{"a.png": {1}, "b.png": {2}, "c.png": {3}}
	s, _ := newJSONStore(t, src, StoreOptions{})
	for _, loc := range []string{"a.png", "b.png", "c.png"} {
		_, err := s.Register(ctx, loc, loc, "t", "o", "")
		require.NoError(t, err)
	}

	require.NoError(t, s.Remove(ctx, "o_t_b.png"))
	var ids []string
	for rec := range s.List() {
		ids = append(ids, rec.ID)
	}
	assert.Equal(t, []string{"o_t_a.png", "o_t_c.png"}, ids)

	err := s.Remove(ctx, "o_t_b.png")
	assert.True(t, errors.Is(err, domain.ErrNotFound))

	require.NoError(t, s.Clear(ctx))
	assert.Zero(t, s.Len())
	assert.Equal(t, domain.StoreStats{TotalImages: 0, Owners: []string{}}, s.Stats())
}

func TestStatsOwnersDistinctSorted(t *testing.T) {
	ctx := context.Background()
	src := fakeSource{"1.png": {1}, "2.png": {1}, "3.png": {1}}
	s, _ := newJSONStore(t, src, StoreOptions{})
	_, _ = s.Register(ctx, "1.png", "1.png", "t", "zed", "")
	_, _ = s.Register(ctx, "2.png", "2.png", "t", "amy", "")
	_, _ = s.Register(ctx, "3.png", "3.png", "t", "zed", "")

	assert.Equal(t, domain.StoreStats{TotalImages: 3, Owners: []string{"amy", "zed"}}, s.Stats())
}

func TestListIsRestartableSnapshot(t *testing.T) {
	ctx := context.Background()
	src := fakeSource{"a.png": {1}, "b.png": {2}}
	s, _ := newJSONStore(t, src, StoreOptions{})
	_, _ = s.Register(ctx, "a.png", "a.png", "t", "o", "")

	seq := s.List()
	count := func() int {
		n := 0
		for range seq {
			n++
		}
		return n
	}
	assert.Equal(t, 1, count())
	assert.Equal(t, 1, count())

	_, _ = s.Register(ctx, "b.png", "b.png", "t", "o", "")
	assert.Equal(t, 2, count(), "each range takes a fresh snapshot")
}

func TestRegisterCopiesOriginalIntoObjectStorage(t *testing.T) {
	ctx := context.Background()
	objects, err := storage.NewLocalStorage(t.TempDir())
	require.NoError(t, err)

	upload := filepath.Join(t.TempDir(), "upload-123.png")
	require.NoError(t, os.WriteFile(upload, []byte("png bytes"), 0o644))

	s, _ := newJSONStore(t, fakeSource{upload: {1, 1}}, StoreOptions{Objects: objects, Prefix: "references"})
	ok, err := s.Register(ctx, upload, "Cat.PNG", "Cat", "bob/studio", "")
	require.NoError(t, err)
	require.True(t, ok)

	rec, _ := s.Get("bob/studio_Cat_Cat.PNG")
	assert.Equal(t, "storage://references/bob_studio_Cat_Cat.png", rec.Path)
	exists, err := objects.Exists(ctx, "references/bob_studio_Cat_Cat.png")
	require.NoError(t, err)
	assert.True(t, exists)

	require.NoError(t, s.Remove(ctx, rec.ID))
	exists, _ = objects.Exists(ctx, "references/bob_studio_Cat_Cat.png")
	assert.False(t, exists)
}

func TestVerifyReportsMissingOriginals(t *testing.T) {
	ctx := context.Background()
	root := t.TempDir()
	objects, err := storage.NewLocalStorage(root)
	require.NoError(t, err)

	dir := t.TempDir()
	kept := filepath.Join(dir, "kept.png")
	gone := filepath.Join(dir, "gone.png")
	require.NoError(t, os.WriteFile(kept, []byte("k"), 0o644))
	require.NoError(t, os.WriteFile(gone, []byte("g"), 0o644))
	src := fakeSource{kept: {1}, gone: {1}}

	s, _ := newJSONStore(t, src, StoreOptions{Objects: objects})
	_, err = s.Register(ctx, kept, "kept.png", "Kept", "alice", "")
	require.NoError(t, err)
	_, err = s.Register(ctx, gone, "gone.png", "Gone", "alice", "")
	require.NoError(t, err)

	rec, _ := s.Get("alice_Kept_kept.png")
	assert.Equal(t, "file://"+filepath.ToSlash(filepath.Join(root, "alice_Kept_kept.png")), s.OriginalURL(rec))

	require.NoError(t, objects.Delete(ctx, "alice_Gone_gone.png"))
	missing, err := s.Verify(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"alice_Gone_gone.png"}, missing)
}

func TestVerifyLocalPaths(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	img := filepath.Join(dir, "a.png")
	require.NoError(t, os.WriteFile(img, []byte("a"), 0o644))

	s, _ := newJSONStore(t, fakeSource{img: {1}, "/nowhere/b.png": {1}}, StoreOptions{})
	_, err := s.Register(ctx, img, "a.png", "A", "o", "")
	require.NoError(t, err)
	_, err = s.Register(ctx, "/nowhere/b.png", "b.png", "B", "o", "")
	require.NoError(t, err)

	rec, _ := s.Get("o_A_a.png")
	assert.Empty(t, s.OriginalURL(rec))

	missing, err := s.Verify(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"o_B_b.png"}, missing)
}

func readObject(t *testing.T, objects storage.ObjectStorage, locator string) string {
	t.Helper()
	key, ok := storage.KeyFromLocator(locator)
	require.True(t, ok, locator)
	rc, err := objects.Download(context.Background(), key)
	require.NoError(t, err)
	defer rc.Close()
	b, err := io.ReadAll(rc)
	require.NoError(t, err)
	return string(b)
}

func TestOverwriteKeepsPreviousOriginalUntilPersisted(t *testing.T) {
	ctx := context.Background()
	root := t.TempDir()
	objects, err := storage.NewLocalStorage(root)
	require.NoError(t, err)

	dir := t.TempDir()
	v1 := filepath.Join(dir, "v1.png")
	v2 := filepath.Join(dir, "v2.png")
	require.NoError(t, os.WriteFile(v1, []byte("first"), 0o644))
	require.NoError(t, os.WriteFile(v2, []byte("second"), 0o644))

	p := &failingPersister{}
	s, err := NewFingerprintStore(ctx, p, fakeSource{v1: {1, 0}, v2: {0, 1}}, StoreOptions{Objects: objects})
	require.NoError(t, err)

	ok, err := s.Register(ctx, v1, "sunset.png", "Sunset", "alice", "")
	require.NoError(t, err)
	require.True(t, ok)
	before, _ := s.Get("alice_Sunset_sunset.png")

	p.saveErr = errors.New("disk full")
	ok, err = s.Register(ctx, v2, "sunset.png", "Sunset", "alice", "")
	assert.False(t, ok)
	assert.ErrorIs(t, err, domain.ErrStoreIO)

	after, _ := s.Get("alice_Sunset_sunset.png")
	assert.Equal(t, before, after)
	assert.Equal(t, "first", readObject(t, objects, after.Path))
	entries, err := os.ReadDir(root)
	require.NoError(t, err)
	assert.Len(t, entries, 1, "the failed upload is removed")

	p.saveErr = nil
	ok, err = s.Register(ctx, v2, "sunset.png", "Sunset", "alice", "")
	require.NoError(t, err)
	require.True(t, ok)

	replaced, _ := s.Get("alice_Sunset_sunset.png")
	assert.NotEqual(t, before.Path, replaced.Path)
	assert.Equal(t, "second", readObject(t, objects, replaced.Path))
	entries, err = os.ReadDir(root)
	require.NoError(t, err)
	assert.Len(t, entries, 1, "the replaced original is removed")
}

func TestConcurrentWritersLoseNoUpdates(t *testing.T) {
	ctx := context.Background()
	const n = 32
	src := fakeSource{}
	for i := 0; i < n; i++ {
		src[fmt.Sprintf("img%02d.png", i)] = []float32{float32(i)}
	}
	s, path := newJSONStore(t, src, StoreOptions{})

	// Pre-register the odd images so half the goroutines have something to remove.
	for i := 1; i < n; i += 2 {
		loc := fmt.Sprintf("img%02d.png", i)
		_, err := s.Register(ctx, loc, loc, "T", "o", "")
		require.NoError(t, err)
	}

	var wg sync.WaitGroup
	errs := make(chan error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			loc := fmt.Sprintf("img%02d.png", i)
			if i%2 == 0 {
				if _, err := s.Register(ctx, loc, loc, "T", "o", ""); err != nil {
					errs <- err
				}
				return
			}
			if err := s.Remove(ctx, domain.FingerprintID("o", "T", loc)); err != nil {
				errs <- err
			}
		}(i)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		assert.NoError(t, err)
	}

	var want []string
	for i := 0; i < n; i += 2 {
		want = append(want, domain.FingerprintID("o", "T", fmt.Sprintf("img%02d.png", i)))
	}

	reloaded, err := NewFingerprintStore(ctx, NewJSONFilePersister(path), src, StoreOptions{StrictLoad: true})
	require.NoError(t, err)
	var got []string
	for rec := range reloaded.List() {
		got = append(got, rec.ID)
	}
	assert.ElementsMatch(t, want, got)
	assert.Equal(t, s.Len(), reloaded.Len())
}
