// Package memory is an in-process chunk store and document repository using
// brute-force cosine similarity. It serves development setups and tests.
package memory

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/google/uuid"

	"pdfqa/src/core/pdfqa"
)

type row struct {
	id         string
	documentID string
	order      int
	text       string
	embedding  []float32
}

// ChunkStore implements pdfqa.ChunkStore.
type ChunkStore struct {
	mu   sync.RWMutex
	rows []row
}

func NewChunkStore() *ChunkStore {
	return &ChunkStore{}
}

func (s *ChunkStore) UpsertChunks(ctx context.Context, documentID string, chunks []string, embeddings [][]float32) error {
	if len(chunks) != len(embeddings) {
		return fmt.Errorf("chunks and embeddings length mismatch: %d != %d", len(chunks), len(embeddings))
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for i, chunk := range chunks {
		s.rows = append(s.rows, row{
			id:         uuid.New().String(),
			documentID: documentID,
			order:      i,
			text:       chunk,
			embedding:  append([]float32(nil), embeddings[i]...),
		})
	}
	return nil
}

func (s *ChunkStore) Exists(ctx context.Context, documentID string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, r := range s.rows {
		if r.documentID == documentID {
			return true, nil
		}
	}
	return false, nil
}

func (s *ChunkStore) Count(ctx context.Context, documentID string) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := 0
	for _, r := range s.rows {
		if r.documentID == documentID {
			n++
		}
	}
	return n, nil
}

func (s *ChunkStore) SimilaritySearch(ctx context.Context, embedding []float32, documentID string, topK int) ([]pdfqa.RetrievedChunk, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	hits := make([]pdfqa.RetrievedChunk, 0)
	for _, r := range s.rows {
		if r.documentID != documentID {
			continue
		}
		hits = append(hits, pdfqa.RetrievedChunk{
			ID:    r.id,
			Order: r.order,
			Text:  r.text,
			Score: cosine(embedding, r.embedding),
		})
	}

	sort.SliceStable(hits, func(i, j int) bool {
		return hits[i].Score > hits[j].Score
	})
	if topK > 0 && len(hits) > topK {
		hits = hits[:topK]
	}
	return hits, nil
}

func (s *ChunkStore) DeleteDocument(ctx context.Context, documentID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	kept := s.rows[:0]
	for _, r := range s.rows {
		if r.documentID != documentID {
			kept = append(kept, r)
		}
	}
	s.rows = kept
	return nil
}

// Chunks returns the stored texts of documentID in chunk order.
func (s *ChunkStore) Chunks(documentID string) []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var rows []row
	for _, r := range s.rows {
		if r.documentID == documentID {
			rows = append(rows, r)
		}
	}
	sort.SliceStable(rows, func(i, j int) bool { return rows[i].order < rows[j].order })

	texts := make([]string, len(rows))
	for i, r := range rows {
		texts[i] = r.text
	}
	return texts
}

// Len returns the total number of rows.
func (s *ChunkStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.rows)
}

func cosine(a, b []float32) float64 {
	n := min(len(a), len(b))
	var dot, na, nb float64
	for i := 0; i < n; i++ {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}

// DocumentRepository implements pdfqa.DocumentRepository.
type DocumentRepository struct {
	mu        sync.RWMutex
	docs      map[string]pdfqa.Document
	uploads   []pdfqa.Upload
	snowflake *snowflake.Node
	now       func() time.Time
}

func NewDocumentRepository() (*DocumentRepository, error) {
	node, err := snowflake.NewNode(1)
	if err != nil {
		return nil, fmt.Errorf("failed to create snowflake node: %v", err)
	}

	return &DocumentRepository{
		docs:      make(map[string]pdfqa.Document),
		snowflake: node,
		now:       time.Now,
	}, nil
}

// SetClock replaces the time source.
func (r *DocumentRepository) SetClock(now func() time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.now = now
}

func (r *DocumentRepository) Get(ctx context.Context, id string) (*pdfqa.Document, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	doc, ok := r.docs[id]
	if !ok {
		return nil, nil
	}
	return &doc, nil
}

func (r *DocumentRepository) Begin(ctx context.Context, id, filename string, staleBefore time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	doc, ok := r.docs[id]
	if ok && !claimable(doc, staleBefore) {
		return false, nil
	}
	if !ok {
		doc = pdfqa.Document{ID: id, UploadedAt: now}
	}
	if filename != "" {
		doc.Filename = filename
	}
	doc.Status = pdfqa.DocumentStatusIngesting
	doc.ChunkCount = 0
	doc.Error = ""
	doc.UpdatedAt = now
	r.docs[id] = doc
	return true, nil
}

func claimable(doc pdfqa.Document, staleBefore time.Time) bool {
	switch doc.Status {
	case pdfqa.DocumentStatusFailed:
		return true
	case pdfqa.DocumentStatusIngesting:
		return doc.UpdatedAt.Before(staleBefore)
	}
	return false
}

func (r *DocumentRepository) MarkReady(ctx context.Context, id string, chunkCount int) error {
	return r.update(id, func(doc *pdfqa.Document) {
		doc.Status = pdfqa.DocumentStatusReady
		doc.ChunkCount = chunkCount
		doc.Error = ""
	})
}

func (r *DocumentRepository) MarkFailed(ctx context.Context, id string, reason string) error {
	return r.update(id, func(doc *pdfqa.Document) {
		doc.Status = pdfqa.DocumentStatusFailed
		doc.Error = reason
	})
}

func (r *DocumentRepository) update(id string, fn func(doc *pdfqa.Document)) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	doc, ok := r.docs[id]
	if !ok {
		return fmt.Errorf("document %s not found", id)
	}
	fn(&doc)
	doc.UpdatedAt = r.now()
	r.docs[id] = doc
	return nil
}

func (r *DocumentRepository) RecordUpload(ctx context.Context, documentID, filename, uploader string) (*pdfqa.Upload, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	upload := pdfqa.Upload{
		ID:         r.snowflake.Generate().Int64(),
		DocumentID: documentID,
		Filename:   filename,
		Uploader:   uploader,
		UploadedAt: r.now(),
	}
	r.uploads = append(r.uploads, upload)
	return &upload, nil
}

// Uploads returns the uploads recorded for documentID.
func (r *DocumentRepository) Uploads(documentID string) []pdfqa.Upload {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []pdfqa.Upload
	for _, u := range r.uploads {
		if u.DocumentID == documentID {
			out = append(out, u)
		}
	}
	return out
}
