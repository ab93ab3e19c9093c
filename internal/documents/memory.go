package documents

import (
	"context"
	"slices"
	"sync"
)

type memoryDocument struct {
	record  Record
	content []byte
	text    string
}

// MemoryRepository holds documents in process memory. Contents are lost on exit.
type MemoryRepository struct {
	mu    sync.RWMutex
	order []string
	docs  map[string]*memoryDocument
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{docs: make(map[string]*memoryDocument)}
}

func (r *MemoryRepository) Process(ctx context.Context, up Upload) (Record, error) {
	if err := validateUpload(up); err != nil {
		return Record{}, err
	}

	text, err := ExtractText(FileType(up.Filename), up.Content)
	if err != nil {
		return Record{}, err
	}

	id := newID()
	rec := buildRecord(id, up, now())

	r.mu.Lock()
	defer r.mu.Unlock()
	r.docs[id] = &memoryDocument{record: rec, content: slices.Clone(up.Content), text: text}
	r.order = append(r.order, id)
	return rec.clone(), nil
}

func (r *MemoryRepository) Text(ctx context.Context, id string) (string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	doc, ok := r.docs[id]
	if !ok {
		return "", notFound(id)
	}
	return doc.text, nil
}

func (r *MemoryRepository) Metadata(ctx context.Context, id string) (map[string]any, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	doc, ok := r.docs[id]
	if !ok {
		return map[string]any{}, nil
	}
	return cloneMap(doc.record.Metadata), nil
}

func (r *MemoryRepository) Get(ctx context.Context, id string) (Record, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	doc, ok := r.docs[id]
	if !ok {
		return Record{}, notFound(id)
	}
	return doc.record.clone(), nil
}

func (r *MemoryRepository) List(ctx context.Context, skip, limit int) (Page, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	start, end := window(len(r.order), skip, limit)
	docs := make([]Record, 0, end-start)
	for _, id := range r.order[start:end] {
		docs = append(docs, r.docs[id].record.clone())
	}
	return Page{Total: len(r.order), Documents: docs}, nil
}

func (r *MemoryRepository) Delete(ctx context.Context, id string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.docs[id]; !ok {
		return false, nil
	}
	delete(r.docs, id)
	r.order = slices.DeleteFunc(r.order, func(v string) bool { return v == id })
	return true, nil
}

var _ Repository = (*MemoryRepository)(nil)
