package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// Config describes the MinIO (or any S3 compatible) endpoint.
type Config struct {
	Endpoint         string
	PublicEndpoint   string
	AccessKeyID      string
	SecretAccessKey  string
	Bucket           string
	Region           string
	UseSSL           bool
	AutoCreateBucket bool
}

// Object is a stored file.
type Object struct {
	Key string
	URL string
}

// Client stores uploaded résumé and job description documents.
type Client struct {
	client     *minio.Client
	bucketName string
	publicBase *url.URL
}

// NewClient connects to MinIO and makes sure the bucket exists.
func NewClient(ctx context.Context, cfg Config) (*Client, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		Secure: cfg.UseSSL,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("init minio client: %w", err)
	}

	publicEndpoint := strings.TrimSpace(cfg.PublicEndpoint)
	if publicEndpoint == "" {
		scheme := "http"
		if cfg.UseSSL {
			scheme = "https"
		}
		publicEndpoint = scheme + "://" + cfg.Endpoint
	}

	publicBase, err := url.Parse(publicEndpoint)
	if err != nil {
		return nil, fmt.Errorf("parse minio public endpoint: %w", err)
	}
	if publicBase.Host == "" {
		return nil, fmt.Errorf("invalid minio public endpoint, host missing")
	}

	checkCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	exists, err := client.BucketExists(checkCtx, cfg.Bucket)
	if err != nil {
		return nil, fmt.Errorf("check bucket %q: %w", cfg.Bucket, err)
	}
	if !exists {
		if !cfg.AutoCreateBucket {
			return nil, fmt.Errorf("bucket %q does not exist (auto create disabled)", cfg.Bucket)
		}
		if err := client.MakeBucket(checkCtx, cfg.Bucket, minio.MakeBucketOptions{Region: cfg.Region}); err != nil {
			return nil, fmt.Errorf("make bucket %q: %w", cfg.Bucket, err)
		}
	}

	return &Client{
		client:     client,
		bucketName: cfg.Bucket,
		publicBase: publicBase,
	}, nil
}

// Store uploads data under a fresh key derived from prefix and filename and
// returns the key with its public URL.
func (c *Client) Store(ctx context.Context, prefix, filename, contentType string, data []byte) (*Object, error) {
	key := ObjectKey(prefix, filename)

	_, err := c.client.PutObject(ctx, c.bucketName, key, bytes.NewReader(data), int64(len(data)), minio.PutObjectOptions{
		ContentType: contentType,
	})
	if err != nil {
		return nil, fmt.Errorf("put object %q: %w", key, err)
	}

	return &Object{Key: key, URL: c.ObjectURL(key)}, nil
}

// Fetch reads the whole object.
func (c *Client) Fetch(ctx context.Context, key string) ([]byte, error) {
	obj, err := c.client.GetObject(ctx, c.bucketName, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("get object %q: %w", key, err)
	}
	defer obj.Close()

	data, err := io.ReadAll(obj)
	if err != nil {
		if IsNoSuchKey(err) {
			return nil, fmt.Errorf("%w: %s", ErrObjectNotFound, key)
		}
		return nil, fmt.Errorf("read object %q: %w", key, err)
	}
	return data, nil
}

// Delete removes the object. Missing objects count as deleted.
func (c *Client) Delete(ctx context.Context, key string) error {
	key = strings.TrimSpace(key)
	if key == "" {
		return nil
	}
	if err := c.client.RemoveObject(ctx, c.bucketName, key, minio.RemoveObjectOptions{}); err != nil {
		if IsNoSuchKey(err) {
			return nil
		}
		return fmt.Errorf("remove object %q: %w", key, err)
	}
	return nil
}

// PresignedURL returns a time limited download link.
func (c *Client) PresignedURL(ctx context.Context, key string, ttl time.Duration) (string, error) {
	u, err := c.client.PresignedGetObject(ctx, c.bucketName, key, ttl, nil)
	if err != nil {
		return "", fmt.Errorf("generate presigned url for %q: %w", key, err)
	}
	return u.String(), nil
}

// ObjectURL builds the path-style public URL of key.
func (c *Client) ObjectURL(key string) string {
	u := *c.publicBase
	u.Path = path.Join("/", u.Path, c.bucketName, key)
	return u.String()
}

// ObjectKey returns "<prefix>/<uuid>-<sanitized filename>".
func ObjectKey(prefix, filename string) string {
	name := sanitizeFilename(filename)
	prefix = strings.Trim(strings.TrimSpace(prefix), "/")
	key := uuid.NewString() + "-" + name
	if prefix == "" {
		return key
	}
	return prefix + "/" + key
}

func sanitizeFilename(filename string) string {
	name := path.Base(strings.ReplaceAll(strings.TrimSpace(filename), "\\", "/"))
	var b strings.Builder
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '.', r == '-', r == '_':
			b.WriteRune(r)
		case r == ' ':
			b.WriteRune('_')
		}
	}
	cleaned := strings.Trim(b.String(), ".")
	if cleaned == "" {
		return "file"
	}
	return cleaned
}
