package weaviate

import (
	"context"
	"fmt"
	"sort"

	"github.com/weaviate/weaviate-go-client/v4/weaviate/filters"
	"github.com/weaviate/weaviate/entities/models"

	"pdfqa/src/core/pdfqa"
)

const (
	DefaultClassName = "PdfChunk"

	propContent    = "content"
	propDocumentID = "documentId"
	propOrder      = "chunkOrder"
)

var _ pdfqa.ChunkStore = (*ChunkStore)(nil)

// ChunkStore keeps chunk vectors in a single Weaviate class and scopes every
// query to one document with a where filter.
type ChunkStore struct {
	sdk       *SDK
	className string
}

func NewChunkStore(sdk *SDK, className string) *ChunkStore {
	if className == "" {
		className = DefaultClassName
	}
	return &ChunkStore{sdk: sdk, className: className}
}

func chunkProperties() []*models.Property {
	return []*models.Property{
		{Name: propContent, DataType: []string{"text"}},
		{Name: propDocumentID, DataType: []string{"text"}, Tokenization: "field"},
		{Name: propOrder, DataType: []string{"int"}},
	}
}

// EnsureSchema creates the chunk class when missing.
func (s *ChunkStore) EnsureSchema(ctx context.Context) error {
	return s.sdk.CreateSchema(ctx, s.className, chunkProperties())
}

func documentFilter(documentID string) *filters.WhereBuilder {
	return filters.Where().
		WithPath([]string{propDocumentID}).
		WithOperator(filters.Equal).
		WithValueText(documentID)
}

func (s *ChunkStore) UpsertChunks(ctx context.Context, documentID string, chunks []string, embeddings [][]float32) error {
	if len(chunks) != len(embeddings) {
		return fmt.Errorf("chunks and embeddings length mismatch: %d != %d", len(chunks), len(embeddings))
	}
	if len(chunks) == 0 {
		return nil
	}

	objects := make([]VectorObject, len(chunks))
	for i, text := range chunks {
		objects[i] = VectorObject{
			Vector: embeddings[i],
			Properties: map[string]interface{}{
				propContent:    text,
				propDocumentID: documentID,
				propOrder:      i,
			},
		}
	}
	return s.sdk.BatchAddVectors(ctx, s.className, objects)
}

func (s *ChunkStore) Exists(ctx context.Context, documentID string) (bool, error) {
	res, err := s.sdk.FindObjects(ctx, s.className, QueryConfig{
		Limit: 1,
		Where: documentFilter(documentID),
	})
	if err != nil {
		return false, err
	}
	return len(res) > 0, nil
}

func (s *ChunkStore) Count(ctx context.Context, documentID string) (int, error) {
	return s.sdk.CountWhere(ctx, s.className, documentFilter(documentID))
}

func (s *ChunkStore) SimilaritySearch(ctx context.Context, embedding []float32, documentID string, topK int) ([]pdfqa.RetrievedChunk, error) {
	res, err := s.sdk.QueryVectors(ctx, s.className, embedding, QueryConfig{
		Fields: []string{propContent, propOrder},
		Limit:  topK,
		Where:  documentFilter(documentID),
	})
	if err != nil {
		return nil, err
	}
	return toRetrieved(res), nil
}

// toRetrieved converts cosine distances to similarities, highest first.
func toRetrieved(res []QueryResult) []pdfqa.RetrievedChunk {
	hits := make([]pdfqa.RetrievedChunk, 0, len(res))
	for _, r := range res {
		text, _ := r.Properties[propContent].(string)
		order, _ := r.Properties[propOrder].(float64)
		hits = append(hits, pdfqa.RetrievedChunk{
			ID:    r.ID,
			Order: int(order),
			Text:  text,
			Score: 1 - r.Distance,
		})
	}
	sort.SliceStable(hits, func(i, j int) bool {
		return hits[i].Score > hits[j].Score
	})
	return hits
}

func (s *ChunkStore) DeleteDocument(ctx context.Context, documentID string) error {
	return s.sdk.DeleteWhere(ctx, s.className, documentFilter(documentID))
}
