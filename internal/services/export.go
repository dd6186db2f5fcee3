package services

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/uimarket/uimarket/internal/storage"
	"github.com/uimarket/uimarket/types"
)

const (
	exportPrefix    = "exports/"
	snapshotPrefix  = exportPrefix + "catalog-"
	snapshotLayout  = "20060102T150405Z"
	snapshotSuffix  = ".json"
	maxSnapshotSize = 64 << 20
)

// SnapshotStore is the object storage the export service writes to.
type SnapshotStore interface {
	Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) error
	Get(ctx context.Context, key string) (io.ReadCloser, error)
	List(ctx context.Context, prefix string) ([]storage.ObjectInfo, error)
	Delete(ctx context.Context, key string) error
}

// CatalogSnapshot is the document written by an export.
type CatalogSnapshot struct {
	GeneratedAt time.Time         `json:"generatedAt"`
	Count       int               `json:"count"`
	Components  []types.Component `json:"components"`
}

// ExportService writes catalog snapshots to object storage.
type ExportService struct {
	components *ComponentService
	objects    SnapshotStore
	now        func() time.Time
}

func NewExportService(components *ComponentService, objects SnapshotStore) *ExportService {
	return &ExportService{
		components: components,
		objects:    objects,
		now:        func() time.Time { return time.Now().UTC() },
	}
}

// Export serialises the whole catalog and returns the object key it was
// written to.
func (s *ExportService) Export(ctx context.Context) (string, CatalogSnapshot, error) {
	items, err := s.components.All(ctx)
	if err != nil {
		return "", CatalogSnapshot{}, err
	}

	snapshot := CatalogSnapshot{
		GeneratedAt: s.now(),
		Count:       len(items),
		Components:  items,
	}
	payload, err := json.MarshalIndent(snapshot, "", "  ")
	if err != nil {
		return "", CatalogSnapshot{}, fmt.Errorf("encode snapshot: %w", err)
	}

	key := snapshotPrefix + snapshot.GeneratedAt.Format(snapshotLayout) + snapshotSuffix
	if err := s.objects.Put(ctx, key, bytes.NewReader(payload), int64(len(payload)), "application/json"); err != nil {
		return "", CatalogSnapshot{}, fmt.Errorf("upload snapshot: %w", err)
	}
	return key, snapshot, nil
}

// Snapshots lists stored snapshots, newest first.
func (s *ExportService) Snapshots(ctx context.Context) ([]storage.ObjectInfo, error) {
	objects, err := s.objects.List(ctx, snapshotPrefix)
	if err != nil {
		return nil, fmt.Errorf("list snapshots: %w", err)
	}
	snapshots := objects[:0]
	for _, object := range objects {
		stamp := strings.TrimSuffix(strings.TrimPrefix(object.Key, snapshotPrefix), snapshotSuffix)
		if _, err := time.Parse(snapshotLayout, stamp); err == nil && strings.HasSuffix(object.Key, snapshotSuffix) {
			snapshots = append(snapshots, object)
		}
	}
	sort.Slice(snapshots, func(i, j int) bool { return snapshots[i].Key > snapshots[j].Key })
	return snapshots, nil
}

// Load reads a stored snapshot back.
func (s *ExportService) Load(ctx context.Context, key string) (CatalogSnapshot, error) {
	if !strings.HasPrefix(key, snapshotPrefix) {
		return CatalogSnapshot{}, fmt.Errorf("%s is not a catalog snapshot", key)
	}
	rc, err := s.objects.Get(ctx, key)
	if err != nil {
		return CatalogSnapshot{}, fmt.Errorf("open snapshot: %w", err)
	}
	defer rc.Close()

	var snapshot CatalogSnapshot
	if err := json.NewDecoder(io.LimitReader(rc, maxSnapshotSize)).Decode(&snapshot); err != nil {
		return CatalogSnapshot{}, fmt.Errorf("decode snapshot %s: %w", key, err)
	}
	return snapshot, nil
}

// Prune deletes all but the newest keep snapshots and returns the deleted
// keys.
func (s *ExportService) Prune(ctx context.Context, keep int) ([]string, error) {
	if keep < 0 {
		return nil, errors.New("keep must not be negative")
	}
	snapshots, err := s.Snapshots(ctx)
	if err != nil {
		return nil, err
	}
	if len(snapshots) <= keep {
		return nil, nil
	}

	var deleted []string
	for _, object := range snapshots[keep:] {
		if err := s.objects.Delete(ctx, object.Key); err != nil {
			return deleted, fmt.Errorf("delete %s: %w", object.Key, err)
		}
		deleted = append(deleted, object.Key)
	}
	return deleted, nil
}
