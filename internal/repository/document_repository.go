package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/kairocrm/ingest/internal/models"
	"gorm.io/gorm"
)

var ErrDocumentNotFound = errors.New("document not found")

type DocumentRepository struct {
	db *gorm.DB
}

func NewDocumentRepository(db *gorm.DB) *DocumentRepository {
	return &DocumentRepository{db: db}
}

// GetByID retrieves a document by ID
func (r *DocumentRepository) GetByID(ctx context.Context, documentID string) (*models.Document, error) {
	var doc models.Document
	result := r.db.WithContext(ctx).First(&doc, "id = ?", documentID)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, ErrDocumentNotFound
		}
		return nil, fmt.Errorf("failed to get document: %w", result.Error)
	}
	return &doc, nil
}

// CompleteOCR stores the OCR text and moves the document to completed.
// The update is conditional on the document not already being completed, so
// only one of two concurrent identical callbacks wins the transition. Returns
// true when this call performed the transition.
func (r *DocumentRepository) CompleteOCR(ctx context.Context, documentID string, ocrText string) (bool, error) {
	now := time.Now()
	result := r.db.WithContext(ctx).Model(&models.Document{}).
		Where("id = ? AND ocr_status <> ?", documentID, models.OCRStatusCompleted).
		Updates(map[string]interface{}{
			"ocr_text":         ocrText,
			"ocr_status":       models.OCRStatusCompleted,
			"ocr_error":        nil,
			"ocr_processed_at": now,
			"updated_at":       now,
		})
	if result.Error != nil {
		return false, fmt.Errorf("failed to complete OCR: %w", result.Error)
	}
	return result.RowsAffected > 0, nil
}

// FailOCR moves the document to failed and records the error message
func (r *DocumentRepository) FailOCR(ctx context.Context, documentID string, errorMessage string) (bool, error) {
	now := time.Now()
	result := r.db.WithContext(ctx).Model(&models.Document{}).
		Where("id = ? AND ocr_status <> ?", documentID, models.OCRStatusFailed).
		Updates(map[string]interface{}{
			"ocr_status":       models.OCRStatusFailed,
			"ocr_error":        errorMessage,
			"ocr_processed_at": now,
			"updated_at":       now,
		})
	if result.Error != nil {
		return false, fmt.Errorf("failed to mark OCR failed: %w", result.Error)
	}
	return result.RowsAffected > 0, nil
}

// AIEnrichment holds the fields written by the second-stage AI labeling
type AIEnrichment struct {
	Metadata           models.JSONB
	Confidence         float64
	ExtractedNames     models.StringList
	ExtractedDates     models.StringList
	HasSignature       bool
	SignatureStatus    *string
	RelatedContactIDs  models.StringList
	RelatedPropertyIDs models.StringList
	ImportanceScore    int
}

// SaveAIEnrichment persists the AI labeling result. The update is guarded on
// ocr_status = completed so AI metadata can never land on a document whose OCR
// did not finish.
func (r *DocumentRepository) SaveAIEnrichment(ctx context.Context, documentID string, enrichment AIEnrichment) error {
	now := time.Now()
	result := r.db.WithContext(ctx).Model(&models.Document{}).
		Where("id = ? AND ocr_status = ?", documentID, models.OCRStatusCompleted).
		Updates(map[string]interface{}{
			"ai_metadata":          enrichment.Metadata,
			"ai_confidence":        enrichment.Confidence,
			"ai_processed_at":      now,
			"extracted_names":      enrichment.ExtractedNames,
			"extracted_dates":      enrichment.ExtractedDates,
			"has_signature":        enrichment.HasSignature,
			"signature_status":     enrichment.SignatureStatus,
			"related_contact_ids":  enrichment.RelatedContactIDs,
			"related_property_ids": enrichment.RelatedPropertyIDs,
			"importance_score":     enrichment.ImportanceScore,
			"updated_at":           now,
		})
	if result.Error != nil {
		return fmt.Errorf("failed to save AI enrichment: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrDocumentNotFound
	}
	return nil
}
