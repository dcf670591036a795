package core

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"
	"time"

	"policyhub/internal/archive"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ExportFormat names a rendered artifact format.
type ExportFormat string

const (
	FormatCSV  ExportFormat = "csv"
	FormatJSON ExportFormat = "json"
)

// ParseExportFormat validates a format string. Empty selects CSV.
func ParseExportFormat(raw string) (ExportFormat, error) {
	switch ExportFormat(strings.ToLower(strings.TrimSpace(raw))) {
	case "", FormatCSV:
		return FormatCSV, nil
	case FormatJSON:
		return FormatJSON, nil
	default:
		return "", fmt.Errorf("unknown export format %q", raw)
	}
}

// ContentType returns the media type served for artifacts of this format.
func (f ExportFormat) ContentType() string {
	if f == FormatJSON {
		return "application/json"
	}
	return "text/csv; charset=utf-8"
}

// exportKeyPrefix namespaces archived exports inside the store.
const exportKeyPrefix = "exports/"

// Archiver renders views and persists them as artifacts in an archive store.
// Artifacts are addressed by ID, the key part after the prefix.
type Archiver struct {
	store  archive.Store
	logger *zap.Logger
	now    func() time.Time
	newID  func() string
}

// NewArchiver wires an archiver over store.
func NewArchiver(store archive.Store, logger *zap.Logger) *Archiver {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Archiver{
		store:  store,
		logger: logger,
		now:    time.Now,
		newID:  uuid.NewString,
	}
}

// Archive renders view in the given format and stores it under a fresh
// UUID-based key.
func (a *Archiver) Archive(ctx context.Context, view *View, format ExportFormat) (archive.Info, error) {
	var buf bytes.Buffer
	switch format {
	case FormatCSV:
		if err := WriteCSV(&buf, view); err != nil {
			return archive.Info{}, err
		}
	case FormatJSON:
		if err := WriteJSON(&buf, view); err != nil {
			return archive.Info{}, err
		}
	default:
		return archive.Info{}, fmt.Errorf("unknown export format %q", format)
	}
	key := fmt.Sprintf("%s%s.%s", exportKeyPrefix, a.newID(), format)
	info, err := a.store.Put(ctx, key, &buf, archive.PutOptions{
		ContentType: format.ContentType(),
		Metadata: map[string]string{
			"format":   string(format),
			"records":  strconv.Itoa(len(view.Records)),
			"total":    strconv.Itoa(view.Total),
			"exported": a.now().UTC().Format(time.RFC3339),
		},
	})
	if err != nil {
		return archive.Info{}, fmt.Errorf("store export: %w", err)
	}
	a.logger.Info("export archived",
		zap.String("key", info.Key),
		zap.Int64("size_bytes", info.Size),
		zap.String("format", string(format)))
	return info, nil
}

// List returns archived exports, newest first.
func (a *Archiver) List(ctx context.Context) ([]archive.Info, error) {
	infos, err := a.store.List(ctx, exportKeyPrefix)
	if err != nil {
		return nil, fmt.Errorf("list exports: %w", err)
	}
	sort.SliceStable(infos, func(i, j int) bool {
		return infos[i].LastModified.After(infos[j].LastModified)
	})
	return infos, nil
}

// Open streams one archived export by ID.
func (a *Archiver) Open(ctx context.Context, id string) (archive.Info, io.ReadCloser, error) {
	key, err := exportKey(id)
	if err != nil {
		return archive.Info{}, nil, err
	}
	return a.store.Get(ctx, key)
}

// Stat describes one archived export by ID without reading its payload.
func (a *Archiver) Stat(ctx context.Context, id string) (archive.Info, error) {
	key, err := exportKey(id)
	if err != nil {
		return archive.Info{}, err
	}
	return a.store.Head(ctx, key)
}

// Delete removes one archived export by ID, reporting whether it existed.
func (a *Archiver) Delete(ctx context.Context, id string) (bool, error) {
	key, err := exportKey(id)
	if err != nil {
		return false, err
	}
	return a.store.Delete(ctx, key)
}

// ArtifactID extracts the addressable ID from a stored artifact key.
func ArtifactID(key string) string {
	return strings.TrimPrefix(key, exportKeyPrefix)
}

func exportKey(id string) (string, error) {
	if id == "" || strings.ContainsAny(id, "/\\") || strings.Contains(id, "..") {
		return "", fmt.Errorf("invalid artifact id %q", id)
	}
	return exportKeyPrefix + id, nil
}
