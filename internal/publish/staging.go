// SPDX-License-Identifier: MPL-2.0

package publish

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/relgate/relgate/internal/config"
	"github.com/relgate/relgate/internal/credential"

	"github.com/hashicorp/go-retryablehttp"
)

type (
	// HTTPRepository uploads artifacts with authenticated PUT requests.
	HTTPRepository struct {
		name   string
		url    string
		creds  credential.Credentials
		client *retryablehttp.Client
	}

	// StagingFactory builds the staging repository from resolved credentials.
	StagingFactory func(ctx context.Context, cfg config.StagingRepositoryConfig, creds credential.Credentials) (Repository, error)
)

// NewHTTPRepository creates the public staging repository.
func NewHTTPRepository(_ context.Context, cfg config.StagingRepositoryConfig, creds credential.Credentials) (Repository, error) {
	if !strings.HasPrefix(cfg.URL, "https://") && !strings.HasPrefix(cfg.URL, "http://") {
		return nil, fmt.Errorf("staging url %q: expected http(s)", cfg.URL)
	}
	client := retryablehttp.NewClient()
	client.RetryMax = 3
	client.RetryWaitMin = 500 * time.Millisecond
	client.RetryWaitMax = 5 * time.Second
	client.Logger = nil
	return &HTTPRepository{
		name:   cfg.Name,
		url:    strings.TrimSuffix(cfg.URL, "/"),
		creds:  creds,
		client: client,
	}, nil
}

// Name implements Repository.
func (r *HTTPRepository) Name() string { return r.name }

// URL implements Repository.
func (r *HTTPRepository) URL() string { return r.url }

// Put uploads one artifact.
func (r *HTTPRepository) Put(ctx context.Context, key string, data []byte) error {
	target := r.url + "/" + key
	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodPut, target, data)
	if err != nil {
		return err
	}
	req.SetBasicAuth(r.creds.Identity, r.creds.Secret)
	req.Header.Set("Content-Type", "application/octet-stream")

	resp, err := r.client.Do(req)
	if err != nil {
		return fmt.Errorf("upload %s: %w", target, err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)
	if resp.StatusCode >= http.StatusMultipleChoices {
		return fmt.Errorf("upload %s: %s", target, resp.Status)
	}
	return nil
}
