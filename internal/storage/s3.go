// Copyright (c) 2026 Madalin Gabriel Ignisca <hi@madalin.me>
// Copyright (c) 2026 Vlah Software House SRL <contact@vlah.sh>
// All rights reserved. See LICENSE for details.

// Package storage provides an S3-compatible object storage client for
// persisting generated thumbnails. It wraps the AWS SDK v2 and is
// configured for path-style access (required by CEPH/Hetzner).
package storage

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/google/uuid"
)

// keyPrefix namespaces every object under a common root, with one folder
// per owning user below it.
const keyPrefix = "thumbnails"

// generatedTag marks objects as machine-generated content for auditing.
const generatedTag = "source=ai-generated"

// Object identifies one stored thumbnail: its publicly resolvable URL and
// the opaque key usable for later deletion/management.
type Object struct {
	URL string
	Key string
}

// Uploader stores generated images in a single public bucket.
type Uploader struct {
	s3        *s3.Client
	bucket    string
	endpoint  string
	publicURL string // optional CDN/direct URL for public files
}

// New creates an S3 storage client with static credentials and path-style
// addressing. Returns (nil, nil) if endpoint or credentials are empty,
// allowing the app to start without storage in development.
func New(endpoint, region, accessKey, secretKey, bucket, publicURL string) (*Uploader, error) {
	if endpoint == "" || accessKey == "" || secretKey == "" {
		return nil, nil
	}
	if bucket == "" {
		return nil, fmt.Errorf("s3 bucket is required")
	}

	// Strip trailing slash from endpoint for consistent URL building.
	endpoint = strings.TrimRight(endpoint, "/")

	client := s3.New(s3.Options{
		Region:       region,
		BaseEndpoint: aws.String(endpoint),
		Credentials:  credentials.NewStaticCredentialsProvider(accessKey, secretKey, ""),
		UsePathStyle: true,
	})

	return &Uploader{
		s3:        client,
		bucket:    bucket,
		endpoint:  endpoint,
		publicURL: strings.TrimRight(publicURL, "/"),
	}, nil
}

// Upload stores the image bytes under the owner's namespace and returns the
// durable URL and object key. Objects get a public-read ACL and are tagged
// as AI-generated content.
func (u *Uploader) Upload(ctx context.Context, data []byte, filename, ownerID string) (*Object, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("s3 upload: no data")
	}

	key := fmt.Sprintf("%s/%s/%s_%s", keyPrefix, ownerID, uuid.New().String(), filename)

	_, err := u.s3.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(u.bucket),
		Key:           aws.String(key),
		Body:          bytes.NewReader(data),
		ContentLength: aws.Int64(int64(len(data))),
		ContentType:   aws.String("image/png"),
		ACL:           s3types.ObjectCannedACLPublicRead,
		Tagging:       aws.String(generatedTag),
	})
	if err != nil {
		return nil, fmt.Errorf("s3 upload %s/%s: %w", u.bucket, key, err)
	}

	return &Object{URL: u.fileURL(key), Key: key}, nil
}

// Delete removes an object. Used to clean up orphans when metadata
// persistence fails after a successful upload.
func (u *Uploader) Delete(ctx context.Context, key string) error {
	_, err := u.s3.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(u.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return fmt.Errorf("s3 delete %s/%s: %w", u.bucket, key, err)
	}
	return nil
}

// fileURL returns the public URL for a stored object. Uses the configured
// public URL if set, otherwise builds a path-style URL.
func (u *Uploader) fileURL(key string) string {
	if u.publicURL != "" {
		return u.publicURL + "/" + key
	}
	return u.endpoint + "/" + u.bucket + "/" + key
}
