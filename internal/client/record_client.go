package client

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	"github.com/noah-isme/community-archive/internal/archive"
	"github.com/noah-isme/community-archive/internal/dto"
)

// RecordClient reads and writes documents through the collections API.
type RecordClient struct {
	base
}

// NewRecordClient builds a record client.
func NewRecordClient(cfg Config) *RecordClient {
	return &RecordClient{base: newBase(cfg)}
}

// Create stores fields as a new document and returns its id.
func (c *RecordClient) Create(ctx context.Context, collection string, fields any) (string, error) {
	var out envelope[dto.RecordIDResponse]
	if err := c.doJSON(ctx, nil, http.MethodPost, c.endpoint("collections", collection), fields, &out); err != nil {
		return "", err
	}
	if out.Data.ID == "" {
		return "", fmt.Errorf("server returned no id for %s", collection)
	}
	return out.Data.ID, nil
}

// Query loads every document of collection ordered by orderBy into dest,
// which must be a pointer to a slice.
func (c *RecordClient) Query(ctx context.Context, collection, orderBy string, dir archive.Direction, dest any) error {
	target := c.endpoint("collections", collection) + "?" + url.Values{
		"orderBy":   {orderBy},
		"direction": {string(dir)},
	}.Encode()

	var out envelope[json.RawMessage]
	if err := c.doJSON(ctx, nil, http.MethodGet, target, nil, &out); err != nil {
		return err
	}
	if len(out.Data) == 0 || string(out.Data) == "null" {
		return json.Unmarshal([]byte("[]"), dest)
	}
	if err := json.Unmarshal(out.Data, dest); err != nil {
		return fmt.Errorf("decode %s: %w", collection, err)
	}
	return nil
}

// Update applies a partial update to one document.
func (c *RecordClient) Update(ctx context.Context, collection, id string, fields map[string]any) error {
	var out envelope[dto.RecordIDResponse]
	return c.doJSON(ctx, nil, http.MethodPatch, c.endpoint("collections", collection, id), fields, &out)
}
