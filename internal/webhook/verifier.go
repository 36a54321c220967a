// Package webhook holds the inbound callback payload types and the
// shared-secret verifier guarding them.
package webhook

import "crypto/subtle"

// OCR callback status values sent by the OCR VPS
const (
	StatusCompleted = "completed"
	StatusFailed    = "failed"
)

// OCRResultPayload is the callback body the OCR VPS posts when a document
// finishes processing.
type OCRResultPayload struct {
	DocumentID   string `json:"document_id" binding:"required"`
	QueueID      string `json:"queue_id"`
	Status       string `json:"status" binding:"required"`
	OCRText      string `json:"ocr_text"`
	ErrorMessage string `json:"error_message"`
	Secret       string `json:"secret"`
}

// Verify checks a declared secret against the configured one. An empty
// configured secret disables the check entirely: that is a deliberate
// fail-open mode for local development, callers must not rely on it in
// production. Comparison is constant-time.
func Verify(declared, configured string) bool {
	if configured == "" {
		return true
	}
	return subtle.ConstantTimeCompare([]byte(declared), []byte(configured)) == 1
}
