package memory

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/sandevgo/chainbot/internal/config"
	"github.com/sandevgo/chainbot/internal/core"
	"github.com/sandevgo/chainbot/pkg/retry"
)

// Client talks to a Mem0-style memory service over HTTP and implements
// core.MemoryStore. The service is eventually consistent: a record just
// written may not be visible to the next search.
type Client struct {
	client  *http.Client
	baseURL string
	apiKey  string
	retrier *retry.Retrier
}

func NewClient(cfg *config.MemoryConfig) *Client {
	return &Client{
		client: &http.Client{
			Timeout: 30 * time.Second,
		},
		baseURL: cfg.BaseURL,
		apiKey:  cfg.APIKey,
		retrier: retry.NewRetrier(&retry.Config{
			MaxRetries:    2,
			BackoffFactor: 2.0,
			InitialDelay:  200 * time.Millisecond,
			MaxDelay:      2 * time.Second,
			Jitter:        50 * time.Millisecond,
		}),
	}
}

func (c *Client) Available() bool {
	return c.baseURL != ""
}

func (c *Client) Add(ctx context.Context, messages []core.Message, userID string, metadata map[string]any) error {
	payload := map[string]any{
		"messages": wireMessages(messages),
		"user_id":  userID,
		"metadata": metadata,
	}

	_, err := c.doRequest(ctx, http.MethodPost, "/v1/memories/", payload)
	if err != nil {
		return fmt.Errorf("memory add: %w", err)
	}
	return nil
}

func (c *Client) Search(ctx context.Context, query, userID string, limit int) ([]core.MemoryRecord, error) {
	payload := map[string]any{
		"query":   query,
		"filters": map[string]any{"user_id": userID},
		"limit":   limit,
	}

	data, err := c.doRequest(ctx, http.MethodPost, "/v2/memories/search/", payload)
	if err != nil {
		return nil, fmt.Errorf("memory search: %w", err)
	}
	return unwrapPaginated(data), nil
}

func (c *Client) List(ctx context.Context, userID string, page, pageSize int) ([]core.MemoryRecord, error) {
	q := url.Values{}
	q.Set("user_id", userID)
	q.Set("page", strconv.Itoa(page))
	q.Set("page_size", strconv.Itoa(pageSize))

	data, err := c.doRequest(ctx, http.MethodGet, "/v1/memories/?"+q.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("memory list: %w", err)
	}
	return unwrapPaginated(data), nil
}

func (c *Client) Delete(ctx context.Context, id string) error {
	_, err := c.doRequest(ctx, http.MethodDelete, "/v1/memories/"+url.PathEscape(id)+"/", nil)
	if err != nil {
		return fmt.Errorf("memory delete: %w", err)
	}
	return nil
}

func (c *Client) BatchDelete(ctx context.Context, ids []string) error {
	entries := make([]map[string]string, 0, len(ids))
	for _, id := range ids {
		entries = append(entries, map[string]string{"memory_id": id})
	}

	_, err := c.doRequest(ctx, http.MethodDelete, "/v1/batch/", map[string]any{"memory_ids": entries})
	if err != nil {
		return fmt.Errorf("memory batch delete: %w", err)
	}
	return nil
}

func (c *Client) doRequest(ctx context.Context, method, path string, body any) ([]byte, error) {
	var payload []byte
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("marshal: %w", err)
		}
		payload = data
	}

	var result []byte
	err := c.retrier.Do(ctx, func() error {
		var bodyReader io.Reader
		if payload != nil {
			bodyReader = bytes.NewReader(payload)
		}

		req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bodyReader)
		if err != nil {
			return fmt.Errorf("create request: %w", err)
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("User-Agent", core.ChainUserAgent)
		if c.apiKey != "" {
			req.Header.Set("Authorization", "Token "+c.apiKey)
		}

		resp, err := c.client.Do(req)
		if err != nil {
			return fmt.Errorf("request: %w", err)
		}
		defer resp.Body.Close()

		data, err := io.ReadAll(resp.Body)
		if err != nil {
			return fmt.Errorf("read body: %w", err)
		}
		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			return fmt.Errorf("http %d: %s", resp.StatusCode, string(data))
		}

		result = data
		return nil
	})
	return result, err
}

// wireRecord is the service's record shape: the extracted memory text
// lives under "memory", not "content".
type wireRecord struct {
	ID        string         `json:"id"`
	Memory    string         `json:"memory"`
	Score     float64        `json:"score"`
	Metadata  map[string]any `json:"metadata"`
	CreatedAt string         `json:"created_at"`
}

func (w wireRecord) toRecord() core.MemoryRecord {
	return core.MemoryRecord{
		ID:        w.ID,
		Content:   w.Memory,
		Score:     w.Score,
		Metadata:  w.Metadata,
		CreatedAt: w.CreatedAt,
	}
}

// unwrapPaginated normalizes the service's response shapes to a flat
// record list. Depending on API version the payload is either a bare
// list, {"results": [...]}, or the doubly nested
// {"results": {"results": [...]}}. Anything else yields an empty list.
func unwrapPaginated(data []byte) []core.MemoryRecord {
	var records []wireRecord

	if err := json.Unmarshal(data, &records); err != nil {
		var single struct {
			Results json.RawMessage `json:"results"`
		}
		if err := json.Unmarshal(data, &single); err != nil || len(single.Results) == 0 {
			return nil
		}

		if err := json.Unmarshal(single.Results, &records); err != nil {
			var double struct {
				Results []wireRecord `json:"results"`
			}
			if err := json.Unmarshal(single.Results, &double); err != nil {
				return nil
			}
			records = double.Results
		}
	}

	out := make([]core.MemoryRecord, 0, len(records))
	for _, w := range records {
		out = append(out, w.toRecord())
	}
	return out
}

func wireMessages(messages []core.Message) []map[string]string {
	out := make([]map[string]string, 0, len(messages))
	for _, m := range messages {
		out = append(out, map[string]string{
			"role":    m.Role,
			"content": m.Text(),
		})
	}
	return out
}
