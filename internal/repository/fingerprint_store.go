// Package repository holds the fingerprint store and its persistence backends.
package repository

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"mime"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/timmy/copyscale/internal/domain"
	"github.com/timmy/copyscale/internal/embedding"
	"github.com/timmy/copyscale/internal/logger"
	"github.com/timmy/copyscale/internal/metrics"
	"github.com/timmy/copyscale/internal/storage"
)

// StoreOptions tune collision, load and original-copy behavior.
type StoreOptions struct {
	// Objects receives a copy of each registered original. nil keeps the caller's path.
	Objects storage.ObjectStorage
	// Prefix is prepended to object keys.
	Prefix string
	// RejectCollisions makes Register fail with domain.ErrIDCollision instead of overwriting.
	RejectCollisions bool
	// StrictLoad makes an unreadable document fail construction instead of starting empty.
	StrictLoad bool
}

// FingerprintStore is the registry of reference fingerprints.
// Writers hold the lock across read-modify-persist so no update is lost.
type FingerprintStore struct {
	persister Persister
	source    embedding.Source
	opts      StoreOptions

	mu      sync.RWMutex
	records map[string]domain.FingerprintRecord
	order   []string
}

// NewFingerprintStore loads the persisted document and returns a ready store.
func NewFingerprintStore(ctx context.Context, persister Persister, source embedding.Source, opts StoreOptions) (*FingerprintStore, error) {
	s := &FingerprintStore{
		persister: persister,
		source:    source,
		opts:      opts,
		records:   make(map[string]domain.FingerprintRecord),
	}

	doc, err := persister.Load(ctx)
	if err != nil {
		if opts.StrictLoad {
			return nil, err
		}
		s.log().Warn(ctx, "Fingerprint document unreadable, starting empty: %v", err)
		doc = Document{}
	}
	for _, rec := range doc.Records {
		if _, ok := s.records[rec.ID]; !ok {
			s.order = append(s.order, rec.ID)
		}
		s.records[rec.ID] = rec
	}
	metrics.StoreRecords.Set(float64(len(s.order)))
	s.log().WithCount(len(s.order)).Info(ctx, "Fingerprint store loaded")
	return s, nil
}

func (s *FingerprintStore) log() *logger.Entry {
	return logger.With(logger.Fields{logger.FieldComponent: "fingerprint_store"})
}

// Register embeds the image at locator and stores it under the id derived from
// owner, title and filename. It returns false without error when the image
// cannot be embedded, and an error when the record cannot be persisted.
func (s *FingerprintStore) Register(ctx context.Context, locator, filename, title, owner, description string) (bool, error) {
	id := domain.FingerprintID(owner, title, filename)
	entry := s.log().With(logger.Fields{logger.FieldImageID: id})

	layers, err := s.source.Extract(ctx, locator)
	if err != nil {
		entry.Warn(ctx, "Registration skipped, extraction failed: %v", err)
		return false, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	prev, existed := s.records[id]
	if existed && s.opts.RejectCollisions {
		return false, fmt.Errorf("%w: %s", domain.ErrIDCollision, id)
	}

	// An overwrite uploads under a fresh key so the previous original stays
	// intact until the new record is persisted.
	storedPath, uploaded, err := s.keepOriginal(ctx, id, locator, filename, existed)
	if err != nil {
		return false, err
	}

	rec := domain.FingerprintRecord{
		ID:          id,
		Title:       title,
		Owner:       owner,
		Description: description,
		Fingerprint: append(domain.Vector(nil), layers.Final()...),
		Path:        storedPath,
		ImageID:     id,
	}
	s.records[id] = rec
	if !existed {
		s.order = append(s.order, id)
	}

	if err := s.persistLocked(ctx); err != nil {
		if existed {
			s.records[id] = prev
		} else {
			delete(s.records, id)
			s.order = s.order[:len(s.order)-1]
		}
		if uploaded {
			s.dropOriginal(ctx, rec)
		}
		return false, err
	}

	if existed {
		if prev.Path != rec.Path {
			s.dropOriginal(ctx, prev)
		}
		entry.Info(ctx, "Fingerprint overwritten")
	} else {
		entry.Info(ctx, "Fingerprint registered")
	}
	return true, nil
}

// keepOriginal copies a local original into object storage and returns the
// path to record, and whether it uploaded a new object. Without object storage
// the absolute local path is kept. unique adds a random suffix to the key.
func (s *FingerprintStore) keepOriginal(ctx context.Context, id, locator, filename string, unique bool) (string, bool, error) {
	if _, ok := storage.KeyFromLocator(locator); ok || s.opts.Objects == nil {
		if ok {
			return locator, false, nil
		}
		if abs, err := filepath.Abs(locator); err == nil {
			return abs, false, nil
		}
		return locator, false, nil
	}

	f, err := os.Open(locator)
	if err != nil {
		return "", false, fmt.Errorf("%w: open original %s: %v", domain.ErrStoreIO, locator, err)
	}
	defer f.Close()
	info, err := f.Stat()
	if err != nil {
		return "", false, fmt.Errorf("%w: stat original %s: %v", domain.ErrStoreIO, locator, err)
	}

	key := s.objectKey(id, filename, unique)
	contentType := mime.TypeByExtension(strings.ToLower(filepath.Ext(filename)))
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	if err := s.opts.Objects.Upload(ctx, key, f, info.Size(), contentType); err != nil {
		return "", false, fmt.Errorf("%w: upload original: %v", domain.ErrStoreIO, err)
	}
	return storage.Locator(key), true, nil
}

// objectKey flattens the id into a single safe path segment.
func (s *FingerprintStore) objectKey(id, filename string, unique bool) string {
	safe := strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', ':':
			return '_'
		}
		return r
	}, strings.TrimSuffix(id, filepath.Ext(id)))
	safe = strings.TrimLeft(safe, ".")
	if unique {
		safe += "-" + uuid.NewString()[:8]
	}
	return path.Join(s.opts.Prefix, safe+strings.ToLower(filepath.Ext(filename)))
}

// Remove deletes a record. The stored original is removed best-effort.
func (s *FingerprintStore) Remove(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.records[id]
	if !ok {
		return fmt.Errorf("%w: %s", domain.ErrNotFound, id)
	}
	prevOrder := append([]string(nil), s.order...)
	delete(s.records, id)
	s.order = removeID(s.order, id)

	if err := s.persistLocked(ctx); err != nil {
		s.records[id] = rec
		s.order = prevOrder
		return err
	}
	s.dropOriginal(ctx, rec)
	s.log().With(logger.Fields{logger.FieldImageID: id}).Info(ctx, "Fingerprint removed")
	return nil
}

// Clear removes every record.
func (s *FingerprintStore) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	prevRecords, prevOrder := s.records, s.order
	s.records = make(map[string]domain.FingerprintRecord)
	s.order = nil

	if err := s.persistLocked(ctx); err != nil {
		s.records, s.order = prevRecords, prevOrder
		return err
	}
	for _, id := range prevOrder {
		s.dropOriginal(ctx, prevRecords[id])
	}
	s.log().WithCount(len(prevOrder)).Info(ctx, "Fingerprint store cleared")
	return nil
}

func (s *FingerprintStore) dropOriginal(ctx context.Context, rec domain.FingerprintRecord) {
	key, ok := storage.KeyFromLocator(rec.Path)
	if !ok || s.opts.Objects == nil {
		return
	}
	if err := s.opts.Objects.Delete(ctx, key); err != nil {
		s.log().With(logger.Fields{logger.FieldImageID: rec.ID}).Warn(ctx, "Failed to delete stored original: %v", err)
	}
}

func (s *FingerprintStore) persistLocked(ctx context.Context) error {
	if err := s.persister.Save(ctx, Document{Records: s.snapshotLocked()}); err != nil {
		if !errors.Is(err, domain.ErrStoreIO) {
			err = fmt.Errorf("%w: %v", domain.ErrStoreIO, err)
		}
		s.log().Error(ctx, "Failed to persist fingerprint store: %v", err)
		return err
	}
	metrics.StoreRecords.Set(float64(len(s.order)))
	return nil
}

// CopiesOriginals reports whether registered images are copied into object storage.
// When false, records point at the caller's file, which must outlive the record.
func (s *FingerprintStore) CopiesOriginals() bool {
	return s.opts.Objects != nil
}

// OriginalURL returns a fetchable address for a record's stored original, or ""
// when the record points at a local file.
func (s *FingerprintStore) OriginalURL(rec domain.FingerprintRecord) string {
	key, ok := storage.KeyFromLocator(rec.Path)
	if !ok || s.opts.Objects == nil {
		return ""
	}
	return s.opts.Objects.GetURL(key)
}

// Verify returns the ids of records whose original can no longer be read,
// in enumeration order.
func (s *FingerprintStore) Verify(ctx context.Context) ([]string, error) {
	missing := []string{}
	for _, rec := range s.Snapshot() {
		if key, ok := storage.KeyFromLocator(rec.Path); ok {
			if s.opts.Objects == nil {
				missing = append(missing, rec.ID)
				continue
			}
			exists, err := s.opts.Objects.Exists(ctx, key)
			if err != nil {
				return nil, fmt.Errorf("verify %s: %w", rec.ID, err)
			}
			if !exists {
				missing = append(missing, rec.ID)
			}
			continue
		}
		if _, err := os.Stat(rec.Path); err != nil {
			missing = append(missing, rec.ID)
		}
	}
	return missing, nil
}

// Get returns the record with id.
func (s *FingerprintStore) Get(id string) (domain.FingerprintRecord, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.records[id]
	return rec, ok
}

// Len returns the number of records.
func (s *FingerprintStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.order)
}

// Stats reports the record count and distinct owners, sorted.
func (s *FingerprintStore) Stats() domain.StoreStats {
	s.mu.RLock()
	defer s.mu.RUnlock()

	seen := make(map[string]struct{})
	owners := []string{}
	for _, id := range s.order {
		owner := s.records[id].Owner
		if _, ok := seen[owner]; ok {
			continue
		}
		seen[owner] = struct{}{}
		owners = append(owners, owner)
	}
	sort.Strings(owners)
	return domain.StoreStats{TotalImages: len(s.order), Owners: owners}
}

// Snapshot copies the records in enumeration order.
func (s *FingerprintStore) Snapshot() []domain.FingerprintRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshotLocked()
}

// List iterates a snapshot taken when iteration starts. Each range over the
// returned sequence takes a fresh snapshot.
func (s *FingerprintStore) List() iter.Seq[domain.FingerprintRecord] {
	return func(yield func(domain.FingerprintRecord) bool) {
		for _, rec := range s.Snapshot() {
			if !yield(rec) {
				return
			}
		}
	}
}

func (s *FingerprintStore) snapshotLocked() []domain.FingerprintRecord {
	out := make([]domain.FingerprintRecord, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.records[id])
	}
	return out
}

func removeID(ids []string, id string) []string {
	out := ids[:0:0]
	for _, v := range ids {
		if v != id {
			out = append(out, v)
		}
	}
	return out
}
