package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/kairocrm/ingest/internal/service"
)

const (
	DeepseekAPIURL = "https://api.deepseek.com/v1/chat/completions"
	DefaultModel   = "deepseek-chat"

	// OCR text beyond this length is truncated before the API call: the
	// document type and parties sit at the top, signatures at the bottom.
	maxPromptChars  = 6000
	headPromptChars = 4000
	tailPromptChars = 2000
)

type Client struct {
	apiKey     string
	model      string
	httpClient *http.Client
}

func NewClient(apiKey string) *Client {
	return &Client{
		apiKey: apiKey,
		model:  DefaultModel,
		httpClient: &http.Client{
			Timeout: 60 * time.Second,
		},
	}
}

// SetModel overrides the default chat model
func (c *Client) SetModel(model string) {
	c.model = model
}

// ExtractMetadata asks the LLM to label a document's OCR text and returns the
// structured extraction result.
func (c *Client) ExtractMetadata(ctx context.Context, userID string, ocrText string, category string) (*service.ExtractionResult, error) {
	reqBody := map[string]interface{}{
		"model": c.model,
		"messages": []map[string]interface{}{
			{
				"role":    "system",
				"content": systemPrompt,
			},
			{
				"role":    "user",
				"content": c.buildPrompt(truncateOCRText(ocrText), category),
			},
		},
		"temperature":     0.1,
		"max_tokens":      1000,
		"response_format": map[string]string{"type": "json_object"},
	}

	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", DeepseekAPIURL, bytes.NewBuffer(jsonData))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("API error (status %d): %s", resp.StatusCode, string(body))
	}

	var apiResp struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}

	if err := json.Unmarshal(body, &apiResp); err != nil {
		return nil, fmt.Errorf("failed to parse API response: %w", err)
	}

	if len(apiResp.Choices) == 0 {
		return nil, fmt.Errorf("no response from LLM")
	}

	content := cleanJSONResponse(apiResp.Choices[0].Message.Content)

	var result service.ExtractionResult
	if err := json.Unmarshal([]byte(content), &result); err != nil {
		return nil, fmt.Errorf("failed to parse extraction JSON: %w", err)
	}

	if result.DocumentType == "" {
		return nil, fmt.Errorf("extraction missing document_type")
	}

	return &result, nil
}

// truncateOCRText keeps the head and tail of oversized OCR text
func truncateOCRText(text string) string {
	if len(text) <= maxPromptChars {
		return text
	}
	return text[:headPromptChars] + "\n\n[... middle content truncated ...]\n\n" + text[len(text)-tailPromptChars:]
}

// cleanJSONResponse removes markdown code blocks and extra prose from an LLM
// response, leaving just the JSON object.
func cleanJSONResponse(content string) string {
	content = strings.TrimSpace(content)

	startIdx := strings.Index(content, "{")
	endIdx := strings.LastIndex(content, "}")

	if startIdx == -1 || endIdx == -1 || startIdx > endIdx {
		// No valid JSON found, return as is and let the JSON parser fail
		return content
	}

	return strings.TrimSpace(content[startIdx : endIdx+1])
}

func (c *Client) buildPrompt(ocrText string, category string) string {
	var hint string
	if category != "" {
		hint = fmt.Sprintf("\nThe uploader filed this document under %q.\n", category)
	}
	return fmt.Sprintf("Analyze this OCR text and extract metadata:%s\n\n%s", hint, ocrText)
}

const systemPrompt = `You are an expert real estate document classifier.

Analyze OCR text from real estate documents and extract structured information.

**DOCUMENT TYPES** (choose the most specific match):
purchase_agreement, rental_contract, deed, title, power_of_attorney,
kyc_form, proof_of_funds, energy_certificate, property_tax_receipt,
listing_agreement, inspection_report, floor_plan, utility_bill,
insurance_policy, meeting_minutes, id_document, payslip, tax_return, other

**EXTRACTION RULES:**
1. document_type: select ONE type from the list above
2. extracted_names: ALL person names (clients, notaries, agents) as separate items, "First Last" format
3. extracted_dates: every date as {"date": "YYYY-MM-DD", "type": "..."} where type is one of
   closing_date, signing_date, expiry_date, issue_date, other
4. description: concise 1-2 sentence summary in English
5. has_signature: true when the text shows the document was signed
6. signature_count: how many distinct signatures appear
7. signature_status: "fully_signed" when every party signed, "unsigned" otherwise
8. suggested_contact_ids / suggested_property_ids: leave as empty arrays unless ids appear verbatim in the text
9. confidence: score 0.0-1.0 per extracted field; use 0.0 for missing or uncertain fields

**IMPORTANT:**
- If a field is not found, use null (or an empty array) and confidence 0.0
- Be conservative with confidence scores; use < 0.7 for uncertain data

Return valid JSON only, no explanation:
{
  "document_type": "...",
  "description": "...",
  "extracted_names": [],
  "extracted_dates": [{"date": "YYYY-MM-DD", "type": "closing_date"}],
  "has_signature": true,
  "signature_count": 2,
  "signature_status": "fully_signed",
  "suggested_contact_ids": [],
  "suggested_property_ids": [],
  "confidence": {"document_type": 0.95, "extracted_dates": 0.88}
}`
