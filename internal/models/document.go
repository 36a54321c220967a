package models

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"time"
)

// OCR status constants
const (
	OCRStatusPending    = "pending"
	OCRStatusProcessing = "processing"
	OCRStatusCompleted  = "completed"
	OCRStatusFailed     = "failed"
)

// Signature status constants
const (
	SignatureFullySigned = "fully_signed"
	SignatureUnsigned    = "unsigned"
)

// JSONB type for GORM to handle PostgreSQL JSONB columns
type JSONB map[string]interface{}

// Value implements driver.Valuer for JSONB
func (j JSONB) Value() (driver.Value, error) {
	if j == nil {
		return nil, nil
	}
	return json.Marshal(j)
}

// Scan implements sql.Scanner for JSONB
func (j *JSONB) Scan(value interface{}) error {
	if value == nil {
		*j = nil
		return nil
	}
	bytes, ok := value.([]byte)
	if !ok {
		return errors.New("type assertion to []byte failed")
	}
	return json.Unmarshal(bytes, j)
}

// StringList is a JSONB-backed string array column
type StringList []string

// Value implements driver.Valuer for StringList
func (l StringList) Value() (driver.Value, error) {
	if l == nil {
		return nil, nil
	}
	return json.Marshal(l)
}

// Scan implements sql.Scanner for StringList
func (l *StringList) Scan(value interface{}) error {
	if value == nil {
		*l = nil
		return nil
	}
	bytes, ok := value.([]byte)
	if !ok {
		return errors.New("type assertion to []byte failed")
	}
	return json.Unmarshal(bytes, l)
}

// Document represents an uploaded CRM document going through OCR and AI enrichment.
// AI fields are only populated once OCR has completed.
type Document struct {
	ID                 string     `gorm:"column:id;primaryKey"`
	UserID             string     `gorm:"column:user_id;index"`
	Category           *string    `gorm:"column:category"`
	OCRStatus          string     `gorm:"column:ocr_status;index"`
	OCRText            *string    `gorm:"column:ocr_text"`
	OCRError           *string    `gorm:"column:ocr_error"`
	OCRProcessedAt     *time.Time `gorm:"column:ocr_processed_at"`
	AIMetadata         JSONB      `gorm:"column:ai_metadata;type:jsonb"`
	AIConfidence       *float64   `gorm:"column:ai_confidence"`
	AIProcessedAt      *time.Time `gorm:"column:ai_processed_at"`
	ExtractedNames     StringList `gorm:"column:extracted_names;type:jsonb"`
	ExtractedDates     StringList `gorm:"column:extracted_dates;type:jsonb"`
	HasSignature       bool       `gorm:"column:has_signature"`
	SignatureStatus    *string    `gorm:"column:signature_status"`
	RelatedContactIDs  StringList `gorm:"column:related_contact_ids;type:jsonb"`
	RelatedPropertyIDs StringList `gorm:"column:related_property_ids;type:jsonb"`
	ImportanceScore    *int       `gorm:"column:importance_score"`
	CreatedAt          time.Time  `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt          time.Time  `gorm:"column:updated_at;autoUpdateTime"`
}

// TableName specifies the table name for GORM
func (Document) TableName() string {
	return "documents"
}
