// SPDX-License-Identifier: MPL-2.0

package publish

import (
	"bytes"
	"context"
	"fmt"
	"net/url"
	"path"
	"strings"

	"github.com/relgate/relgate/internal/config"
	"github.com/relgate/relgate/internal/credential"

	"github.com/aws/aws-sdk-go-v2/aws"
	awscreds "github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

type (
	// S3Location is a parsed s3:// repository URL.
	S3Location struct {
		Bucket string
		Prefix string
		// Region is taken from virtual-hosted URLs when present.
		Region string
	}

	// S3Repository uploads artifacts to an S3 bucket.
	S3Repository struct {
		name     string
		url      string
		location S3Location
		client   *s3.Client
	}

	// S3Factory builds the private repository from resolved credentials.
	S3Factory func(ctx context.Context, cfg config.PrivateRepositoryConfig, creds credential.Credentials) (Repository, error)
)

// ParseS3URL parses "s3://bucket/prefix" and virtual-hosted
// "s3://bucket.s3.region.amazonaws.com/prefix" URLs.
func ParseS3URL(raw string) (S3Location, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return S3Location{}, fmt.Errorf("parse repository url: %w", err)
	}
	if u.Scheme != "s3" || u.Host == "" {
		return S3Location{}, fmt.Errorf("repository url %q: expected s3://<bucket>/<prefix>", raw)
	}
	loc := S3Location{Bucket: u.Host, Prefix: strings.Trim(u.Path, "/")}
	if i := strings.Index(u.Host, ".s3."); i > 0 && strings.HasSuffix(u.Host, ".amazonaws.com") {
		loc.Bucket = u.Host[:i]
		region := strings.TrimSuffix(u.Host[i+len(".s3."):], ".amazonaws.com")
		if region != "" && !strings.Contains(region, ".") {
			loc.Region = region
		}
	}
	return loc, nil
}

// Key returns the object key for a repository path.
func (l S3Location) Key(p string) string {
	if l.Prefix == "" {
		return p
	}
	return path.Join(l.Prefix, p)
}

// NewS3Repository creates the private repository. Session tokens are
// attached when the credentials carry one.
func NewS3Repository(_ context.Context, cfg config.PrivateRepositoryConfig, creds credential.Credentials) (Repository, error) {
	loc, err := ParseS3URL(cfg.URL)
	if err != nil {
		return nil, err
	}
	region := cfg.Region
	if region == "" {
		region = loc.Region
	}
	opts := s3.Options{
		Region:       region,
		Credentials:  awscreds.NewStaticCredentialsProvider(creds.Identity, creds.Secret, creds.SessionToken),
		UsePathStyle: cfg.PathStyle,
	}
	if cfg.Endpoint != "" {
		opts.BaseEndpoint = aws.String(cfg.Endpoint)
	}
	return &S3Repository{
		name:     cfg.Name,
		url:      cfg.URL,
		location: loc,
		client:   s3.New(opts),
	}, nil
}

// Name implements Repository.
func (r *S3Repository) Name() string { return r.name }

// URL implements Repository.
func (r *S3Repository) URL() string { return r.url }

// Put uploads one object.
func (r *S3Repository) Put(ctx context.Context, key string, data []byte) error {
	_, err := r.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(r.location.Bucket),
		Key:           aws.String(r.location.Key(key)),
		Body:          bytes.NewReader(data),
		ContentLength: aws.Int64(int64(len(data))),
	})
	if err != nil {
		return fmt.Errorf("upload s3://%s/%s: %w", r.location.Bucket, r.location.Key(key), err)
	}
	return nil
}
