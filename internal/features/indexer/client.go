package indexer

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go-indexer/internal/config"
)

const apiVersion = "v1"

// IndexAPI is the façade over the remote search-index service. Insert and
// Update are distinct calls here but the wire protocol treats both as upsert.
// Failures are returned as *APIError and never retried at this layer.
type IndexAPI interface {
	UpdateSchema(ctx context.Context, indexID string, schema map[string]any) error
	Snapshot(ctx context.Context, indexID string, documents []map[string]any) error
	Insert(ctx context.Context, indexID string, documents []map[string]any) error
	Update(ctx context.Context, indexID string, documents []map[string]any) error
	Delete(ctx context.Context, indexID string, ids []string) error
	Deploy(ctx context.Context, indexID string) error
}

type Client struct {
	client  *http.Client
	baseURL string
	apiKey  string
}

func NewClient(cfg *config.Config) IndexAPI {
	return &Client{
		client:  &http.Client{Timeout: 30 * time.Second},
		baseURL: fmt.Sprintf("%s/api/%s", strings.TrimRight(cfg.IndexAPIURL, "/"), apiVersion),
		apiKey:  cfg.IndexAPIKey,
	}
}

func (c *Client) UpdateSchema(ctx context.Context, indexID string, schema map[string]any) error {
	return c.do(ctx, http.MethodPut, c.indexPath(indexID, "schema"), map[string]any{"schema": schema})
}

// Snapshot atomically replaces the index's document set. An empty document
// slice is a hard reset.
func (c *Client) Snapshot(ctx context.Context, indexID string, documents []map[string]any) error {
	if documents == nil {
		documents = []map[string]any{}
	}
	return c.do(ctx, http.MethodPut, c.indexPath(indexID, "snapshot"), documents)
}

func (c *Client) Insert(ctx context.Context, indexID string, documents []map[string]any) error {
	return c.do(ctx, http.MethodPost, c.indexPath(indexID, "documents"), map[string]any{"upsert": documents})
}

func (c *Client) Update(ctx context.Context, indexID string, documents []map[string]any) error {
	return c.do(ctx, http.MethodPost, c.indexPath(indexID, "documents"), map[string]any{"upsert": documents})
}

func (c *Client) Delete(ctx context.Context, indexID string, ids []string) error {
	return c.do(ctx, http.MethodPost, c.indexPath(indexID, "documents"), map[string]any{"delete": ids})
}

// Deploy publishes the currently snapshotted state to the serving tier.
func (c *Client) Deploy(ctx context.Context, indexID string) error {
	return c.do(ctx, http.MethodPost, c.indexPath(indexID, "deploy"), nil)
}

func (c *Client) indexPath(indexID string, suffix string) string {
	return fmt.Sprintf("/indexes/%s/%s", url.PathEscape(indexID), suffix)
}

func (c *Client) do(ctx context.Context, method, path string, requestBody any) error {
	var reqBody io.Reader
	if requestBody != nil {
		jsonData, err := json.Marshal(requestBody)
		if err != nil {
			return &APIError{Message: err.Error(), Original: err}
		}
		reqBody = bytes.NewBuffer(jsonData)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return &APIError{Message: err.Error(), Original: err}
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return &APIError{Message: err.Error(), Original: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		bodyBytes, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		message := strings.TrimSpace(string(bodyBytes))
		if message == "" {
			message = resp.Status
		}
		return &APIError{Status: resp.StatusCode, Message: message}
	}

	return nil
}
