package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/kairocrm/ingest/internal/models"
	"github.com/kairocrm/ingest/internal/repository"
	"github.com/kairocrm/ingest/internal/webhook"
)

var ErrInvalidStatus = errors.New("invalid OCR status")

// DocumentStore is the slice of the document repository the enricher needs
type DocumentStore interface {
	GetByID(ctx context.Context, documentID string) (*models.Document, error)
	CompleteOCR(ctx context.Context, documentID string, ocrText string) (bool, error)
	FailOCR(ctx context.Context, documentID string, errorMessage string) (bool, error)
	SaveAIEnrichment(ctx context.Context, documentID string, enrichment repository.AIEnrichment) error
}

// ExtractedDate is a single date the AI pulled out of a document
type ExtractedDate struct {
	Date string `json:"date"` // YYYY-MM-DD where the model managed to normalize
	Type string `json:"type"` // e.g. closing_date, signing_date, expiry_date
}

// Date types the importance score reacts to
const DateTypeClosing = "closing_date"

// ExtractionResult is the structured metadata the AI capability returns for a
// document's OCR text.
type ExtractionResult struct {
	DocumentType         string             `json:"document_type"`
	Description          string             `json:"description"`
	ExtractedNames       []string           `json:"extracted_names"`
	ExtractedDates       []ExtractedDate    `json:"extracted_dates"`
	HasSignature         bool               `json:"has_signature"`
	SignatureCount       int                `json:"signature_count"`
	SignatureStatus      string             `json:"signature_status"`
	SuggestedContactIDs  []string           `json:"suggested_contact_ids"`
	SuggestedPropertyIDs []string           `json:"suggested_property_ids"`
	ImportanceScore      *int               `json:"importance_score"`
	Confidence           map[string]float64 `json:"confidence"`
}

// AverageConfidence collapses the per-field confidence map into one score
func (r *ExtractionResult) AverageConfidence() float64 {
	if len(r.Confidence) == 0 {
		return 0
	}
	var sum float64
	for _, value := range r.Confidence {
		sum += value
	}
	return sum / float64(len(r.Confidence))
}

// MetadataExtractor is the opaque AI labeling capability
type MetadataExtractor interface {
	ExtractMetadata(ctx context.Context, userID string, ocrText string, category string) (*ExtractionResult, error)
}

// Enricher drives a document through the OCR result and AI labeling stages.
// The AI stage is detached: the webhook caller gets its answer as soon as the
// OCR transition lands, and a labeling failure only ever produces a log line.
type Enricher struct {
	documents DocumentStore
	extractor MetadataExtractor
	spawn     func(fn func())
}

func NewEnricher(documents DocumentStore, extractor MetadataExtractor) *Enricher {
	return &Enricher{
		documents: documents,
		extractor: extractor,
		spawn:     func(fn func()) { go fn() },
	}
}

// HandleOCRResult applies an OCR callback to the document it names.
// Returns repository.ErrDocumentNotFound or ErrInvalidStatus for rejects;
// a nil error means the callback was accepted (including idempotent replays).
func (e *Enricher) HandleOCRResult(ctx context.Context, payload webhook.OCRResultPayload) error {
	doc, err := e.documents.GetByID(ctx, payload.DocumentID)
	if err != nil {
		return err
	}

	switch payload.Status {
	case webhook.StatusCompleted:
		if payload.OCRText == "" {
			return fmt.Errorf("%w: completed callback without ocr_text", ErrInvalidStatus)
		}

		claimed, err := e.documents.CompleteOCR(ctx, payload.DocumentID, payload.OCRText)
		if err != nil {
			return err
		}
		if !claimed {
			// Replayed callback; the first delivery already owns the AI stage.
			log.Printf("Document %s already completed, skipping AI stage", payload.DocumentID)
			return nil
		}

		category := ""
		if doc.Category != nil {
			category = *doc.Category
		}
		userID := doc.UserID
		documentID := payload.DocumentID
		ocrText := payload.OCRText

		// Detached from the acknowledgment path: fire once, log on failure.
		e.spawn(func() {
			e.runAIStage(context.Background(), userID, documentID, ocrText, category)
		})
		return nil

	case webhook.StatusFailed:
		if _, err := e.documents.FailOCR(ctx, payload.DocumentID, payload.ErrorMessage); err != nil {
			return err
		}
		log.Printf("Document %s OCR failed: %s", payload.DocumentID, payload.ErrorMessage)
		return nil

	default:
		return fmt.Errorf("%w: %q", ErrInvalidStatus, payload.Status)
	}
}

// runAIStage invokes the AI capability and persists what it extracted
func (e *Enricher) runAIStage(ctx context.Context, userID, documentID, ocrText, category string) {
	result, err := e.extractor.ExtractMetadata(ctx, userID, ocrText, category)
	if err != nil {
		log.Printf("AI labeling failed for document %s: %v", documentID, err)
		return
	}

	enrichment := repository.AIEnrichment{
		Metadata:           metadataJSON(result),
		Confidence:         result.AverageConfidence(),
		ExtractedNames:     result.ExtractedNames,
		ExtractedDates:     normalizeDates(result.ExtractedDates),
		HasSignature:       result.HasSignature,
		SignatureStatus:    signatureStatus(result),
		RelatedContactIDs:  result.SuggestedContactIDs,
		RelatedPropertyIDs: result.SuggestedPropertyIDs,
		ImportanceScore:    ImportanceScore(result),
	}

	if err := e.documents.SaveAIEnrichment(ctx, documentID, enrichment); err != nil {
		log.Printf("Failed to save AI enrichment for document %s: %v", documentID, err)
		return
	}

	log.Printf("Document %s labeled: %s (importance %d)", documentID, result.DocumentType, enrichment.ImportanceScore)
}

// signatureStatus derives the stored signature status: nil without a
// signature, the extractor's verdict otherwise (fully_signed when it gave none)
func signatureStatus(result *ExtractionResult) *string {
	if !result.HasSignature {
		return nil
	}
	status := result.SignatureStatus
	if status != models.SignatureFullySigned && status != models.SignatureUnsigned {
		status = models.SignatureFullySigned
	}
	return &status
}

// metadataJSON stores the full extraction result as the document's ai_metadata
func metadataJSON(result *ExtractionResult) models.JSONB {
	raw, err := json.Marshal(result)
	if err != nil {
		return models.JSONB{}
	}
	var metadata models.JSONB
	if err := json.Unmarshal(raw, &metadata); err != nil {
		return models.JSONB{}
	}
	return metadata
}

// dateFormats the extractor has been seen producing
var dateFormats = []string{
	"2006-01-02",
	time.RFC3339,
	"2006-01-02T15:04:05",
	"02/01/2006",
	"January 2, 2006",
}

// normalizeDates keeps the parseable dates, reduced to date-only form
func normalizeDates(dates []ExtractedDate) []string {
	normalized := make([]string, 0, len(dates))
	for _, d := range dates {
		if d.Date == "" {
			continue
		}
		for _, format := range dateFormats {
			if t, err := time.Parse(format, d.Date); err == nil {
				normalized = append(normalized, t.Format("2006-01-02"))
				break
			}
		}
	}
	return normalized
}
