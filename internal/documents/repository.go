// Package documents stores uploaded documents together with their extracted
// text and metadata, and keeps an insertion-ordered index of what it holds.
package documents

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/ragqa/server/internal/agent/model"
	errx "github.com/ragqa/server/internal/core/error"
)

// UploadTimeLayout matches a naive UTC ISO-8601 timestamp with microseconds.
const UploadTimeLayout = "2006-01-02T15:04:05.000000"

// Upload is a document as received from a client.
type Upload struct {
	Filename string
	Content  []byte
	Metadata map[string]any
}

// Record is the index entry kept for every stored document.
type Record struct {
	DocumentID string         `json:"document_id"`
	Title      string         `json:"title"`
	FileType   string         `json:"file_type"`
	UploadTime string         `json:"upload_time"`
	Metadata   map[string]any `json:"metadata"`
}

// clone returns a copy whose Metadata map is not shared with the receiver.
func (r Record) clone() Record {
	r.Metadata = cloneMap(r.Metadata)
	return r
}

// Page is one window of the index.
type Page struct {
	Total     int      `json:"total"`
	Documents []Record `json:"documents"`
}

// Repository is the single source of truth for uploaded documents.
type Repository interface {
	// Process stores the upload, extracts its text and indexes it.
	Process(ctx context.Context, up Upload) (Record, error)
	// Text returns the extracted text of a document.
	Text(ctx context.Context, id string) (string, error)
	// Metadata returns the stored metadata, or an empty map for unknown ids.
	Metadata(ctx context.Context, id string) (map[string]any, error)
	// Get returns the index record of a document.
	Get(ctx context.Context, id string) (Record, error)
	// List returns the total count and a page of records in insertion order.
	List(ctx context.Context, skip, limit int) (Page, error)
	// Delete removes a document and reports whether it existed.
	Delete(ctx context.Context, id string) (bool, error)
}

// NewRepository builds the backend selected by cfg.
func NewRepository(cfg model.StorageConfig) (Repository, error) {
	switch cfg.Backend {
	case model.StorageDisk:
		return NewDiskRepository(cfg.Dir)
	case model.StorageMemory:
		return NewMemoryRepository(), nil
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.Backend)
	}
}

var newID = func() string { return uuid.NewString() }

var now = func() time.Time { return time.Now().UTC() }

func validateUpload(up Upload) error {
	if strings.TrimSpace(up.Filename) == "" {
		return errx.Validation(nil, "filename is required")
	}
	return nil
}

// buildRecord augments the caller metadata the same way for every backend.
func buildRecord(id string, up Upload, uploadedAt time.Time) Record {
	fileType := FileType(up.Filename)
	meta := make(map[string]any, len(up.Metadata)+3)
	for k, v := range up.Metadata {
		meta[k] = v
	}
	meta["original_filename"] = up.Filename
	meta["upload_time"] = uploadedAt.Format(UploadTimeLayout)
	meta["file_type"] = fileType

	title := up.Filename
	if t, ok := meta["title"].(string); ok && t != "" {
		title = t
	}

	return Record{
		DocumentID: id,
		Title:      title,
		FileType:   fileType,
		UploadTime: meta["upload_time"].(string),
		Metadata:   meta,
	}
}

func window(total, skip, limit int) (int, int) {
	if skip < 0 {
		skip = 0
	}
	if skip > total {
		skip = total
	}
	if limit < 0 {
		limit = 0
	}
	end := skip + limit
	if end > total {
		end = total
	}
	return skip, end
}

func notFound(id string) error {
	return errx.NotFound(nil, fmt.Sprintf("document %s not found", id))
}
