package gemini

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/invoice-ingest/constants"
	"github.com/joseph-ayodele/invoice-ingest/internal/llm"
)

// ExtractInvoiceData implements llm.DataExtractor: push the PDF through the
// resumable upload handshake, then extract against the returned handle.
func (c *Client) ExtractInvoiceData(ctx context.Context, data []byte, displayName string) (*llm.ExtractedInvoice, error) {
	uri, err := c.UploadFile(ctx, data, displayName)
	if err != nil {
		return nil, err
	}
	return c.ExtractInvoice(ctx, uri)
}

// ExtractInvoice runs the staged generateContent calls for an uploaded file.
// The basics stage always runs; the items stage runs only when the extracted
// type carries itemized lines, which saves one call for Travel/Others
// invoices. A (nil, nil) return means the response could not be decoded into
// the expected shape and the file should be treated as "no data".
func (c *Client) ExtractInvoice(ctx context.Context, fileURI string) (*llm.ExtractedInvoice, error) {
	rid := uuid.New().String()
	start := time.Now()

	c.logger.Info("gemini.extract.start",
		"req_id", rid,
		"model", c.cfg.Model,
		"file_uri", fileURI,
	)

	text, err := c.generate(ctx, fileURI, llm.BuildBasicsPrompt(), c.cfg.BasicsThinkingBudget)
	if err != nil {
		c.logger.Error("gemini.extract.basics_http_error",
			"req_id", rid, "error", err,
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
		return nil, err
	}

	invoice, ok := c.decodeBasics(rid, text)
	if !ok {
		return nil, nil
	}

	if constants.ParseInvoiceType(invoice.Type).HasItems() {
		itemsText, err := c.generate(ctx, fileURI, llm.BuildItemsPrompt(), c.cfg.ItemsThinkingBudget)
		if err != nil {
			c.logger.Error("gemini.extract.items_http_error",
				"req_id", rid, "error", err,
				"elapsed_ms", time.Since(start).Milliseconds(),
			)
			return nil, err
		}
		// Decode failure here degrades to zero items; the invoice is still
		// usable and will be rejected by validation instead.
		invoice.Items = c.decodeItems(rid, itemsText)
	}

	c.logger.Info("gemini.extract.ok",
		"req_id", rid,
		"serial", invoice.Serial,
		"amount", invoice.Amount,
		"type", invoice.Type,
		"items", len(invoice.Items),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return invoice, nil
}

func (c *Client) decodeBasics(rid, text string) (*llm.ExtractedInvoice, bool) {
	raw := []byte(llm.RecoverJSON(text, llm.JSONObject))

	if err := llm.ValidateJSONAgainstSchema(llm.BuildInvoiceJSONSchema(), raw); err != nil {
		c.logger.Warn("gemini.extract.basics_schema_failed",
			"req_id", rid, "error", err, "raw_bytes", len(raw))
		return nil, false
	}

	var invoice llm.ExtractedInvoice
	if err := json.Unmarshal(raw, &invoice); err != nil {
		c.logger.Warn("gemini.extract.basics_unmarshal_failed",
			"req_id", rid, "error", err)
		return nil, false
	}
	return &invoice, true
}

func (c *Client) decodeItems(rid, text string) []llm.ExtractedInvoiceItem {
	raw := []byte(llm.RecoverJSON(text, llm.JSONArray))

	if err := llm.ValidateJSONAgainstSchema(llm.BuildItemsJSONSchema(), raw); err != nil {
		c.logger.Warn("gemini.extract.items_schema_failed",
			"req_id", rid, "error", err, "raw_bytes", len(raw))
		return nil
	}

	var items []llm.ExtractedInvoiceItem
	if err := json.Unmarshal(raw, &items); err != nil {
		c.logger.Warn("gemini.extract.items_unmarshal_failed",
			"req_id", rid, "error", err)
		return nil
	}
	return items
}

// generate issues one generateContent call referencing the uploaded file and
// returns the first non-empty text part across all candidates.
func (c *Client) generate(ctx context.Context, fileURI, prompt string, thinkingBudget int) (string, error) {
	body := map[string]any{
		"contents": []map[string]any{
			{
				"parts": []map[string]any{
					{"file_data": map[string]any{
						"mime_type": constants.PDFMimeType,
						"file_uri":  fileURI,
					}},
					{"text": prompt},
				},
			},
		},
		"generationConfig": map[string]any{
			"thinkingConfig": map[string]any{"thinkingBudget": thinkingBudget},
			"temperature":    0,
		},
	}

	url := c.cfg.BaseURL + "/v1beta/models/" + c.cfg.Model + ":generateContent?key=" + c.cfg.APIKey
	raw, err := c.post(ctx, url, body)
	if err != nil {
		return "", err
	}

	var out struct {
		Candidates []struct {
			Content struct {
				Parts []struct {
					Text string `json:"text"`
				} `json:"parts"`
			} `json:"content"`
		} `json:"candidates"`
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		return "", fmt.Errorf("decode generateContent response: %w", err)
	}

	for _, cand := range out.Candidates {
		for _, part := range cand.Content.Parts {
			if strings.TrimSpace(part.Text) != "" {
				return part.Text, nil
			}
		}
	}
	return "", fmt.Errorf("no text in generateContent response")
}

func (c *Client) post(ctx context.Context, url string, body map[string]any) ([]byte, error) {
	b, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(b))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("gemini http error: %w", err)
	}
	defer c.closeBody(resp.Body)

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("gemini status %d: %s", resp.StatusCode, raw)
	}
	return raw, nil
}
