package documents

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/google/uuid"
	orderedmap "github.com/wk8/go-ordered-map/v2"

	errx "github.com/ragqa/server/internal/core/error"
	logx "github.com/ragqa/server/pkg/logger"
)

const indexFileName = "document_index.json"

// DiskRepository keeps every document as files under a storage directory:
//
//	documents/<id>.<ext>   original upload
//	documents/<id>.txt     extracted text
//	metadata/<id>.json     metadata
//	document_index.json    id -> Record, insertion ordered
//
// Index mutations are serialised and the index file is replaced atomically.
type DiskRepository struct {
	root    string
	docsDir string
	metaDir string

	mu    sync.RWMutex
	index *orderedmap.OrderedMap[string, Record]
}

// NewDiskRepository creates the directory layout and loads (or creates) the index.
func NewDiskRepository(root string) (*DiskRepository, error) {
	r := &DiskRepository{
		root:    root,
		docsDir: filepath.Join(root, "documents"),
		metaDir: filepath.Join(root, "metadata"),
		index:   orderedmap.New[string, Record](),
	}
	for _, dir := range []string{r.docsDir, r.metaDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create %s: %w", dir, err)
		}
	}
	if err := r.loadIndex(); err != nil {
		return nil, err
	}
	logx.Debug().Str("root", root).Int("documents", r.index.Len()).Msg("document index loaded")
	return r, nil
}

func (r *DiskRepository) indexPath() string { return filepath.Join(r.root, indexFileName) }

func (r *DiskRepository) binaryPath(id, fileType string) string {
	return filepath.Join(r.docsDir, id+"."+fileType)
}

func (r *DiskRepository) textPath(id string) string { return filepath.Join(r.docsDir, id+".txt") }

func (r *DiskRepository) metadataPath(id string) string { return filepath.Join(r.metaDir, id+".json") }

func (r *DiskRepository) loadIndex() error {
	data, err := os.ReadFile(r.indexPath())
	if errors.Is(err, fs.ErrNotExist) {
		return r.saveIndexLocked()
	}
	if err != nil {
		return fmt.Errorf("read document index: %w", err)
	}
	if err := json.Unmarshal(data, r.index); err != nil {
		return fmt.Errorf("decode document index: %w", err)
	}
	return nil
}

// saveIndexLocked rewrites the whole index through a temp file and rename.
// Callers hold mu for writing (or are the constructor).
func (r *DiskRepository) saveIndexLocked() error {
	data, err := json.MarshalIndent(r.index, "", "  ")
	if err != nil {
		return fmt.Errorf("encode document index: %w", err)
	}

	tmp, err := os.CreateTemp(r.root, indexFileName+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp index: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write temp index: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("sync temp index: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp index: %w", err)
	}
	if err := os.Rename(tmpName, r.indexPath()); err != nil {
		return fmt.Errorf("replace document index: %w", err)
	}
	return nil
}

func (r *DiskRepository) Process(ctx context.Context, up Upload) (Record, error) {
	if err := validateUpload(up); err != nil {
		return Record{}, err
	}

	id := newID()
	fileType := FileType(up.Filename)
	binPath := r.binaryPath(id, fileType)

	if err := os.WriteFile(binPath, up.Content, 0o644); err != nil {
		return Record{}, errx.Internal(err, "failed to save original file")
	}

	text, err := ExtractText(fileType, up.Content)
	if err != nil {
		removeQuietly(binPath)
		logx.Warn().Err(err).Str("document_id", id).Str("filename", up.Filename).Msg("text extraction failed")
		return Record{}, err
	}

	if err := os.WriteFile(r.textPath(id), []byte(text), 0o644); err != nil {
		r.removeArtifacts(id, fileType)
		return Record{}, errx.Internal(err, "failed to save extracted text")
	}

	rec := buildRecord(id, up, now())
	meta, err := json.MarshalIndent(rec.Metadata, "", "  ")
	if err != nil {
		r.removeArtifacts(id, fileType)
		return Record{}, errx.Validation(err, "metadata is not serialisable")
	}
	if err := os.WriteFile(r.metadataPath(id), meta, 0o644); err != nil {
		r.removeArtifacts(id, fileType)
		return Record{}, errx.Internal(err, "failed to save metadata")
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.index.Set(id, rec)
	if err := r.saveIndexLocked(); err != nil {
		r.index.Delete(id)
		r.removeArtifacts(id, fileType)
		return Record{}, errx.Internal(err, "failed to update document index")
	}

	logx.Info().Str("document_id", id).Str("filename", up.Filename).Str("file_type", fileType).Msg("document stored")
	return rec.clone(), nil
}

func (r *DiskRepository) Text(ctx context.Context, id string) (string, error) {
	if !validID(id) {
		return "", notFound(id)
	}
	data, err := os.ReadFile(r.textPath(id))
	if errors.Is(err, fs.ErrNotExist) {
		return "", notFound(id)
	}
	if err != nil {
		return "", errx.Internal(err, "failed to read document text")
	}
	return string(data), nil
}

func (r *DiskRepository) Metadata(ctx context.Context, id string) (map[string]any, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	rec, ok := r.index.Get(id)
	if !ok || rec.Metadata == nil {
		return map[string]any{}, nil
	}
	return cloneMap(rec.Metadata), nil
}

func (r *DiskRepository) Get(ctx context.Context, id string) (Record, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	rec, ok := r.index.Get(id)
	if !ok {
		return Record{}, notFound(id)
	}
	return rec.clone(), nil
}

func (r *DiskRepository) List(ctx context.Context, skip, limit int) (Page, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	total := r.index.Len()
	start, end := window(total, skip, limit)
	docs := make([]Record, 0, end-start)
	i := 0
	for pair := r.index.Oldest(); pair != nil && i < end; pair = pair.Next() {
		if i >= start {
			docs = append(docs, pair.Value.clone())
		}
		i++
	}
	return Page{Total: total, Documents: docs}, nil
}

func (r *DiskRepository) Delete(ctx context.Context, id string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	rec, ok := r.index.Get(id)
	if !ok {
		return false, nil
	}
	r.removeArtifacts(id, rec.FileType)
	r.index.Delete(id)
	if err := r.saveIndexLocked(); err != nil {
		return true, errx.Internal(err, "failed to update document index")
	}
	logx.Info().Str("document_id", id).Msg("document deleted")
	return true, nil
}

func (r *DiskRepository) removeArtifacts(id, fileType string) {
	removeQuietly(r.binaryPath(id, fileType))
	removeQuietly(r.textPath(id))
	removeQuietly(r.metadataPath(id))
}

func removeQuietly(path string) {
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		logx.Warn().Err(err).Str("path", path).Msg("failed to remove file")
	}
}

// validID keeps ids that reach the filesystem to generated UUIDs.
func validID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}

func cloneMap(m map[string]any) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

var _ Repository = (*DiskRepository)(nil)
