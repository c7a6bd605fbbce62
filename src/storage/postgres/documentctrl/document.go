package documentctrl

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"pdfqa/src/core/pdfqa"
)

var _ pdfqa.DocumentRepository = (*DocumentService)(nil)

type Document struct {
	PdfID      string    `gorm:"primaryKey;column:pdf_id" json:"pdf_id"`
	Filename   string    `gorm:"not null" json:"filename"`
	Status     string    `gorm:"not null;index" json:"status"`
	ChunkCount int       `gorm:"not null;default:0" json:"chunk_count"`
	Error      string    `json:"error"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

type Upload struct {
	ID        int64     `gorm:"primaryKey" json:"id"`
	PdfID     string    `gorm:"not null;index;column:pdf_id" json:"pdf_id"`
	Filename  string    `gorm:"not null" json:"filename"`
	Uploader  string    `json:"uploader"`
	CreatedAt time.Time `json:"created_at"`
}

func (d *Document) toDomain() *pdfqa.Document {
	return &pdfqa.Document{
		ID:         d.PdfID,
		Filename:   d.Filename,
		Status:     pdfqa.DocumentStatus(d.Status),
		ChunkCount: d.ChunkCount,
		Error:      d.Error,
		UploadedAt: d.CreatedAt,
		UpdatedAt:  d.UpdatedAt,
	}
}

// DocumentService keeps the ingestion marker of each document and its upload history.
type DocumentService struct {
	db        *gorm.DB
	snowflake *snowflake.Node
}

func NewDocumentService(db *gorm.DB) (*DocumentService, error) {
	node, err := snowflake.NewNode(1)
	if err != nil {
		return nil, fmt.Errorf("failed to create snowflake node: %w", err)
	}

	return &DocumentService{
		db:        db,
		snowflake: node,
	}, nil
}

func (s *DocumentService) Migrate(ctx context.Context) error {
	if err := s.db.WithContext(ctx).AutoMigrate(&Document{}, &Upload{}); err != nil {
		return fmt.Errorf("failed to migrate documents: %w", err)
	}
	return nil
}

func (s *DocumentService) Get(ctx context.Context, id string) (*pdfqa.Document, error) {
	var doc Document
	result := s.db.WithContext(ctx).Where("pdf_id = ?", id).First(&doc)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get document: %w", result.Error)
	}
	return doc.toDomain(), nil
}

// Begin inserts the marker, or takes over a failed or stale one. The conflict
// update only fires when its WHERE holds, so RowsAffected tells whether this
// caller won the claim.
func (s *DocumentService) Begin(ctx context.Context, id, filename string, staleBefore time.Time) (bool, error) {
	doc := &Document{
		PdfID:    id,
		Filename: filename,
		Status:   string(pdfqa.DocumentStatusIngesting),
	}

	updates := []string{"status", "chunk_count", "error", "updated_at"}
	if filename != "" {
		updates = append(updates, "filename")
	}

	result := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "pdf_id"}},
		DoUpdates: clause.AssignmentColumns(updates),
		Where:     claimable(staleBefore),
	}).Create(doc)
	if result.Error != nil {
		return false, fmt.Errorf("failed to begin document: %w", result.Error)
	}
	return result.RowsAffected > 0, nil
}

func claimable(staleBefore time.Time) clause.Where {
	status := clause.Column{Table: "documents", Name: "status"}
	updatedAt := clause.Column{Table: "documents", Name: "updated_at"}
	return clause.Where{Exprs: []clause.Expression{
		clause.Or(
			clause.Eq{Column: status, Value: string(pdfqa.DocumentStatusFailed)},
			clause.And(
				clause.Eq{Column: status, Value: string(pdfqa.DocumentStatusIngesting)},
				clause.Lt{Column: updatedAt, Value: staleBefore},
			),
		),
	}}
}

func (s *DocumentService) MarkReady(ctx context.Context, id string, chunkCount int) error {
	return s.update(ctx, id, map[string]interface{}{
		"status":      string(pdfqa.DocumentStatusReady),
		"chunk_count": chunkCount,
		"error":       "",
	})
}

func (s *DocumentService) MarkFailed(ctx context.Context, id string, reason string) error {
	return s.update(ctx, id, map[string]interface{}{
		"status": string(pdfqa.DocumentStatusFailed),
		"error":  reason,
	})
}

func (s *DocumentService) update(ctx context.Context, id string, values map[string]interface{}) error {
	result := s.db.WithContext(ctx).Model(&Document{}).Where("pdf_id = ?", id).Updates(values)
	if result.Error != nil {
		return fmt.Errorf("failed to update document: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("document %s not found", id)
	}
	return nil
}

func (s *DocumentService) RecordUpload(ctx context.Context, documentID, filename, uploader string) (*pdfqa.Upload, error) {
	upload := &Upload{
		ID:       s.snowflake.Generate().Int64(),
		PdfID:    documentID,
		Filename: filename,
		Uploader: uploader,
	}

	result := s.db.WithContext(ctx).Create(upload)
	if result.Error != nil {
		return nil, fmt.Errorf("failed to create upload: %w", result.Error)
	}

	return &pdfqa.Upload{
		ID:         upload.ID,
		DocumentID: upload.PdfID,
		Filename:   upload.Filename,
		Uploader:   upload.Uploader,
		UploadedAt: upload.CreatedAt,
	}, nil
}

// ListUploads returns the uploads of documentID, newest first.
func (s *DocumentService) ListUploads(ctx context.Context, documentID string) ([]Upload, error) {
	var uploads []Upload
	result := s.db.WithContext(ctx).
		Where("pdf_id = ?", documentID).
		Order("created_at DESC").
		Find(&uploads)
	if result.Error != nil {
		return nil, fmt.Errorf("failed to list uploads: %w", result.Error)
	}
	return uploads, nil
}
