package chunkctrl

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/pgvector/pgvector-go"
	"gorm.io/gorm"

	"pdfqa/src/core/pdfqa"
)

const insertBatchSize = 100

var _ pdfqa.ChunkStore = (*ChunkService)(nil)

type Chunk struct {
	ID        string          `gorm:"primaryKey;type:uuid" json:"id"`
	PdfID     string          `gorm:"not null;index;column:pdf_id" json:"pdf_id"`
	Order     int             `gorm:"not null;column:chunk_order" json:"order"`
	Text      string          `gorm:"not null" json:"text"`
	Embedding pgvector.Vector `gorm:"type:vector" json:"-"`
	CreatedAt time.Time       `json:"created_at"`
}

type scoredChunk struct {
	ID    string
	Order int `gorm:"column:chunk_order"`
	Text  string
	Score float64
}

// ChunkService stores chunks in postgres and ranks them with pgvector cosine distance.
type ChunkService struct {
	db *gorm.DB
}

func NewChunkService(db *gorm.DB) *ChunkService {
	return &ChunkService{db: db}
}

// Migrate enables the vector extension and creates the chunks table.
func (s *ChunkService) Migrate(ctx context.Context) error {
	db := s.db.WithContext(ctx)
	if err := db.Exec("CREATE EXTENSION IF NOT EXISTS vector").Error; err != nil {
		return fmt.Errorf("failed to enable vector extension: %w", err)
	}
	if err := db.AutoMigrate(&Chunk{}); err != nil {
		return fmt.Errorf("failed to migrate chunks: %w", err)
	}
	return nil
}

func (s *ChunkService) UpsertChunks(ctx context.Context, documentID string, chunks []string, embeddings [][]float32) error {
	if len(chunks) != len(embeddings) {
		return fmt.Errorf("chunks and embeddings length mismatch: %d != %d", len(chunks), len(embeddings))
	}
	if len(chunks) == 0 {
		return nil
	}

	rows := make([]Chunk, len(chunks))
	for i, text := range chunks {
		rows[i] = Chunk{
			ID:        uuid.New().String(),
			PdfID:     documentID,
			Order:     i,
			Text:      text,
			Embedding: pgvector.NewVector(embeddings[i]),
		}
	}

	result := s.db.WithContext(ctx).CreateInBatches(rows, insertBatchSize)
	if result.Error != nil {
		return fmt.Errorf("failed to create chunks: %w", result.Error)
	}
	return nil
}

func (s *ChunkService) Exists(ctx context.Context, documentID string) (bool, error) {
	var count int64
	result := s.db.WithContext(ctx).Model(&Chunk{}).Where("pdf_id = ?", documentID).Limit(1).Count(&count)
	if result.Error != nil {
		return false, fmt.Errorf("failed to count chunks: %w", result.Error)
	}
	return count > 0, nil
}

func (s *ChunkService) Count(ctx context.Context, documentID string) (int, error) {
	var count int64
	result := s.db.WithContext(ctx).Model(&Chunk{}).Where("pdf_id = ?", documentID).Count(&count)
	if result.Error != nil {
		return 0, fmt.Errorf("failed to count chunks: %w", result.Error)
	}
	return int(count), nil
}

func (s *ChunkService) SimilaritySearch(ctx context.Context, embedding []float32, documentID string, topK int) ([]pdfqa.RetrievedChunk, error) {
	query := pgvector.NewVector(embedding)

	var rows []scoredChunk
	result := s.db.WithContext(ctx).Raw(
		`SELECT id, chunk_order, text, 1 - (embedding <=> ?) AS score
		FROM chunks
		WHERE pdf_id = ?
		ORDER BY embedding <=> ?
		LIMIT ?`,
		query, documentID, query, topK,
	).Scan(&rows)
	if result.Error != nil {
		return nil, fmt.Errorf("failed to search chunks: %w", result.Error)
	}

	hits := make([]pdfqa.RetrievedChunk, len(rows))
	for i, r := range rows {
		hits[i] = pdfqa.RetrievedChunk{ID: r.ID, Order: r.Order, Text: r.Text, Score: r.Score}
	}
	return hits, nil
}

func (s *ChunkService) DeleteDocument(ctx context.Context, documentID string) error {
	result := s.db.WithContext(ctx).Where("pdf_id = ?", documentID).Delete(&Chunk{})
	if result.Error != nil {
		return fmt.Errorf("failed to delete chunks: %w", result.Error)
	}
	return nil
}

// GetByDocument returns the chunks of documentID in chunk order.
func (s *ChunkService) GetByDocument(ctx context.Context, documentID string) ([]Chunk, error) {
	var chunks []Chunk
	result := s.db.WithContext(ctx).Where("pdf_id = ?", documentID).Order("chunk_order").Find(&chunks)
	if result.Error != nil {
		return nil, fmt.Errorf("failed to get chunks: %w", result.Error)
	}
	return chunks, nil
}
