package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/WessleyAI/edgerag-helpdesk/engine/domain"
	"github.com/WessleyAI/edgerag-helpdesk/engine/ingest"
)

// uploader posts documents to a running API server.
type uploader struct {
	baseURL string
	token   string
	http    *http.Client
}

func newUploader(baseURL, token string) *uploader {
	return &uploader{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		http:    &http.Client{Timeout: 5 * time.Minute},
	}
}

// Post sends docs to /api/ingest and returns the server's result.
func (u *uploader) Post(ctx context.Context, docs []domain.Document) (*ingest.Result, error) {
	data, err := json.Marshal(ingest.Request{Documents: docs})
	if err != nil {
		return nil, fmt.Errorf("encode request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u.baseURL+"/api/ingest", bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+u.token)

	resp, err := u.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("post ingest: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		var e struct {
			Error string `json:"error"`
		}
		json.NewDecoder(resp.Body).Decode(&e)
		return nil, fmt.Errorf("ingest: status %d: %s", resp.StatusCode, e.Error)
	}

	var res ingest.Result
	if err := json.NewDecoder(resp.Body).Decode(&res); err != nil {
		return nil, fmt.Errorf("decode ingest result: %w", err)
	}
	return &res, nil
}
