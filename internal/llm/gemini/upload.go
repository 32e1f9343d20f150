package gemini

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/joseph-ayodele/invoice-ingest/constants"
)

// Resumable upload protocol headers. The full handshake is two round trips:
// "start" declares length and type and yields a session URL in the
// X-Goog-Upload-URL response header; a single "upload, finalize" request at
// offset 0 then carries the whole payload. No chunking or resume loop.
const (
	hdrUploadProtocol      = "X-Goog-Upload-Protocol"
	hdrUploadCommand       = "X-Goog-Upload-Command"
	hdrUploadContentLength = "X-Goog-Upload-Header-Content-Length"
	hdrUploadContentType   = "X-Goog-Upload-Header-Content-Type"
	hdrUploadOffset        = "X-Goog-Upload-Offset"
	hdrUploadURL           = "X-Goog-Upload-URL"
)

var (
	ErrNoUploadURL = errors.New("gemini: failed to get upload URL")
	ErrNoFileURI   = errors.New("gemini: failed to extract file URI")
)

// UploadFile pushes a PDF through the resumable upload handshake and returns
// the opaque file URI usable in generateContent calls.
func (c *Client) UploadFile(ctx context.Context, data []byte, displayName string) (string, error) {
	start := time.Now()

	sessionURL, err := c.startUpload(ctx, len(data), displayName)
	if err != nil {
		return "", err
	}

	uri, err := c.finalizeUpload(ctx, sessionURL, data)
	if err != nil {
		return "", err
	}

	c.logger.Info("gemini.upload.ok",
		"display_name", displayName,
		"bytes", len(data),
		"file_uri", uri,
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return uri, nil
}

// startUpload performs the "start" phase and returns the session URL.
func (c *Client) startUpload(ctx context.Context, size int, displayName string) (string, error) {
	body, err := json.Marshal(map[string]any{
		"file": map[string]any{"display_name": displayName},
	})
	if err != nil {
		return "", fmt.Errorf("marshal start request: %w", err)
	}

	url := c.cfg.BaseURL + "/upload/v1beta/files?key=" + c.cfg.APIKey
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("build start request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(hdrUploadProtocol, "resumable")
	req.Header.Set(hdrUploadCommand, "start")
	req.Header.Set(hdrUploadContentLength, strconv.Itoa(size))
	req.Header.Set(hdrUploadContentType, constants.PDFMimeType)

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("upload start: %w", err)
	}
	defer c.closeBody(resp.Body)

	if resp.StatusCode/100 != 2 {
		return "", fmt.Errorf("upload start: non-2xx status: %d", resp.StatusCode)
	}

	sessionURL := resp.Header.Get(hdrUploadURL)
	if sessionURL == "" {
		return "", ErrNoUploadURL
	}
	return sessionURL, nil
}

// finalizeUpload sends the whole payload to the session URL in one shot and
// extracts file.uri from the response body.
func (c *Client) finalizeUpload(ctx context.Context, sessionURL string, data []byte) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, sessionURL, bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("build finalize request: %w", err)
	}
	req.ContentLength = int64(len(data))
	req.Header.Set(hdrUploadOffset, "0")
	req.Header.Set(hdrUploadCommand, "upload, finalize")

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("upload finalize: %w", err)
	}
	defer c.closeBody(resp.Body)

	if resp.StatusCode/100 != 2 {
		return "", fmt.Errorf("upload finalize: non-2xx status: %d", resp.StatusCode)
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read finalize response: %w", err)
	}

	var out struct {
		File struct {
			URI string `json:"uri"`
		} `json:"file"`
	}
	if err := json.Unmarshal(raw, &out); err != nil || out.File.URI == "" {
		return "", ErrNoFileURI
	}
	return out.File.URI, nil
}

func (c *Client) closeBody(body io.ReadCloser) {
	if err := body.Close(); err != nil {
		c.logger.Warn("gemini.http.response_body_close_error", "error", err)
	}
}
