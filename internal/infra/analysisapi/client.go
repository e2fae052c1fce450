package analysisapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/fixmystore/audit-engine/internal/domain/audit"
)

// Client is the remote step invoker: one HTTP call per pipeline stage against
// the stepwise-analysis backend. It performs no retries; failed calls surface
// the backend's message and the orchestrator decides what happens next.
type Client struct {
	base   string
	apiKey string
	http   *http.Client
}

func New(baseURL, apiKey string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 120 * time.Second
	}
	return &Client{
		base:   baseURL,
		apiKey: apiKey,
		http:   &http.Client{Timeout: timeout},
	}
}

// envelope wraps every stage response.
type envelope struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

func (c *Client) post(ctx context.Context, path string, body any) (*http.Response, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.base+path, bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}
	return c.http.Do(req)
}

// call performs a single-envelope stage request and unmarshals data into out.
func (c *Client) call(ctx context.Context, path string, body, out any) error {
	resp, err := c.post(ctx, path, body)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		if resp.StatusCode >= 300 {
			return fmt.Errorf("analysis api returned status %d", resp.StatusCode)
		}
		return err
	}
	if resp.StatusCode >= 300 || !env.Success {
		return errors.New(messageOr(env.Message, fmt.Sprintf("analysis api call %s failed", path)))
	}
	return json.Unmarshal(env.Data, out)
}

func messageOr(msg, fallback string) string {
	if msg != "" {
		return msg
	}
	return fallback
}

// ValidateShopify checks that the URL points at a live Shopify store.
// isShopify=false comes back in the result, not as an error.
func (c *Client) ValidateShopify(ctx context.Context, url string) (audit.ValidateResult, error) {
	var out audit.ValidateResult
	body := map[string]string{"url": audit.NormalizeURL(url)}
	err := c.call(ctx, "/stepwise-analysis/validate-shopify", body, &out)
	return out, err
}

// TakeScreenshot captures the page. Must only be called after validation
// succeeded; the backend auto-discovers product/cart URLs from the store URL.
func (c *Client) TakeScreenshot(ctx context.Context, url string, page audit.PageType) (audit.ScreenshotResult, error) {
	var out audit.ScreenshotResult
	body := map[string]string{"url": audit.NormalizeURL(url), "pageType": string(page)}
	err := c.call(ctx, "/stepwise-analysis/take-screenshot", body, &out)
	return out, err
}

// AnalyzeWithGemini runs the vision pass over a just-captured screenshot.
func (c *Client) AnalyzeWithGemini(ctx context.Context, screenshotPath string) (audit.VisionResult, error) {
	var out audit.VisionResult
	body := map[string]string{"screenshotPath": screenshotPath}
	err := c.call(ctx, "/stepwise-analysis/analyze-gemini", body, &out)
	return out, err
}

// checklistPayload is the data shape of one checklist envelope. Chunked
// responses carry chunkNumber/totalChunks/isComplete; a plain response
// carries none of them and is the degenerate single-chunk case.
type checklistPayload struct {
	ChecklistAnalysis []audit.ChecklistItem `json:"checklistAnalysis"`
	PageType          audit.PageType        `json:"pageType"`
	ItemCount         int                   `json:"itemCount"`
	Error             string                `json:"error"`
	ChunkNumber       int                   `json:"chunkNumber"`
	TotalChunks       int                   `json:"totalChunks"`
	IsComplete        *bool                 `json:"isComplete"`
}

// AnalyzeWithChecklist evaluates the CRO checklist against an image analysis.
// Large pages stream newline-delimited chunk envelopes; each chunk is handed
// to onChunk before the aggregate resolves.
func (c *Client) AnalyzeWithChecklist(ctx context.Context, imageAnalysis string, page audit.PageType, category string, onChunk audit.ChunkFunc) (audit.ChecklistResult, error) {
	body := map[string]string{
		"imageAnalysis": imageAnalysis,
		"pageType":      string(page),
	}
	if category != "" {
		body["category"] = category
	}

	agg := audit.ChecklistResult{PageType: page}

	resp, err := c.post(ctx, "/stepwise-analysis/analyze-checklist", body)
	if err != nil {
		return agg, err
	}
	defer resp.Body.Close()

	dec := json.NewDecoder(resp.Body)
	for {
		var env envelope
		if err := dec.Decode(&env); err == io.EOF {
			break
		} else if err != nil {
			if resp.StatusCode >= 300 {
				return agg, fmt.Errorf("analysis api returned status %d", resp.StatusCode)
			}
			return agg, err
		}
		if resp.StatusCode >= 300 || !env.Success {
			return agg, errors.New(messageOr(env.Message, "checklist analysis failed"))
		}

		var p checklistPayload
		if err := json.Unmarshal(env.Data, &p); err != nil {
			return agg, err
		}
		if p.Error != "" {
			return agg, errors.New(p.Error)
		}

		if p.ChunkNumber > 0 {
			complete := p.IsComplete != nil && *p.IsComplete
			if onChunk != nil {
				onChunk(audit.ChunkProgress{
					CurrentChunk: p.ChunkNumber,
					TotalChunks:  p.TotalChunks,
					ChunkResults: p.ChecklistAnalysis,
					IsComplete:   complete,
				})
			}
			agg.ChecklistAnalysis = append(agg.ChecklistAnalysis, p.ChecklistAnalysis...)
			if p.ItemCount > 0 {
				agg.ItemCount = p.ItemCount
			}
			if complete {
				break
			}
			continue
		}

		agg.ChecklistAnalysis = p.ChecklistAnalysis
		agg.ItemCount = p.ItemCount
		break
	}

	if agg.ItemCount == 0 {
		agg.ItemCount = len(agg.ChecklistAnalysis)
	}
	return agg, nil
}
