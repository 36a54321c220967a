package service

const (
	baseImportanceScore = 3
	maxImportanceScore  = 5
)

// Document types that raise the importance of a document by themselves
var highValueDocumentTypes = map[string]bool{
	"purchase_agreement": true,
	"rental_contract":    true,
	"deed":               true,
	"title":              true,
}

// ImportanceScore computes a 1-5 importance score from extracted metadata.
// A score supplied by the extraction capability is authoritative and returned
// unchanged. Otherwise the score starts at 3 and gains a point per qualifying
// signal, clamped at 5; there is no lower clamp.
func ImportanceScore(result *ExtractionResult) int {
	if result.ImportanceScore != nil {
		return *result.ImportanceScore
	}

	score := baseImportanceScore

	if highValueDocumentTypes[result.DocumentType] {
		score++
	}
	if result.HasSignature && result.SignatureCount >= 2 {
		score++
	}
	for _, d := range result.ExtractedDates {
		if d.Type == DateTypeClosing {
			score++
			break
		}
	}

	if score > maxImportanceScore {
		score = maxImportanceScore
	}
	return score
}
