// Package store provides object-store access for archive artifacts,
// addressed by s3://bucket/key locations.
package store

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"os"
	"path/filepath"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/opencontainers/go-digest"
)

// DefaultEndpoint is the AWS S3 endpoint used when none is configured.
const DefaultEndpoint = "s3.amazonaws.com"

// Config holds object-store connection settings.
type Config struct {
	// Endpoint is the S3-compatible endpoint host. Empty means
	// DefaultEndpoint.
	Endpoint string

	// Region of the endpoint. Empty means us-east-1.
	Region string

	// AccessKey and SecretKey are static credentials. Both empty means
	// the environment/IAM credential chain.
	AccessKey string
	SecretKey string

	// Insecure disables TLS, for local development endpoints.
	Insecure bool

	// Logger records transfer activity. Nil discards.
	Logger *slog.Logger
}

// Client performs head/get/put operations against one S3-compatible
// endpoint. Bucket selection happens per call via Location.
type Client struct {
	mc     *minio.Client
	logger *slog.Logger
}

// New creates a store client from cfg.
func New(cfg Config) (*Client, error) {
	endpoint := strings.TrimSpace(cfg.Endpoint)
	if endpoint == "" {
		endpoint = DefaultEndpoint
	}
	region := strings.TrimSpace(cfg.Region)
	if region == "" {
		region = "us-east-1"
	}

	var creds *credentials.Credentials
	if cfg.AccessKey != "" || cfg.SecretKey != "" {
		creds = credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, "")
	} else {
		creds = credentials.NewChainCredentials([]credentials.Provider{
			&credentials.EnvAWS{},
			&credentials.FileAWSCredentials{},
			&credentials.IAM{},
		})
	}

	mc, err := minio.New(endpoint, &minio.Options{
		Creds:  creds,
		Secure: !cfg.Insecure,
		Region: region,
	})
	if err != nil {
		return nil, fmt.Errorf("init store client: %w", err)
	}
	return &Client{mc: mc, logger: cfg.Logger}, nil
}

// EnsureBucket creates the bucket if it does not exist yet. Intended
// for development and test endpoints; production buckets are
// provisioned out of band.
func (c *Client) EnsureBucket(ctx context.Context, bucket string) error {
	exists, err := c.mc.BucketExists(ctx, bucket)
	if err != nil {
		return fmt.Errorf("%w: bucket %s: %v", ErrTransfer, bucket, err)
	}
	if exists {
		return nil
	}
	if err := c.mc.MakeBucket(ctx, bucket, minio.MakeBucketOptions{}); err != nil {
		return fmt.Errorf("%w: create bucket %s: %v", ErrTransfer, bucket, err)
	}
	return nil
}

// Head checks whether an object exists at loc without fetching it.
// Returns ErrNotFound when the object or bucket is absent.
func (c *Client) Head(ctx context.Context, loc Location) error {
	_, err := c.mc.StatObject(ctx, loc.Bucket, loc.Key, minio.StatObjectOptions{})
	if err != nil {
		return c.mapErr("head", loc, err)
	}
	return nil
}

// Get fetches the object at loc into memory.
func (c *Client) Get(ctx context.Context, loc Location) ([]byte, error) {
	obj, err := c.mc.GetObject(ctx, loc.Bucket, loc.Key, minio.GetObjectOptions{})
	if err != nil {
		return nil, c.mapErr("get", loc, err)
	}
	defer obj.Close()

	data, err := io.ReadAll(obj)
	if err != nil {
		return nil, c.mapErr("get", loc, err)
	}
	c.log().Debug("object fetched", "location", loc.String(), "size", len(data))
	return data, nil
}

// Fetch downloads the object at loc to a local file, creating parent
// directories as needed.
func (c *Client) Fetch(ctx context.Context, loc Location, dest string) error {
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return fmt.Errorf("%w: fetch %s: %v", ErrTransfer, loc, err)
	}
	if err := c.mc.FGetObject(ctx, loc.Bucket, loc.Key, dest, minio.GetObjectOptions{}); err != nil {
		return c.mapErr("fetch", loc, err)
	}
	c.log().Debug("object downloaded", "location", loc.String(), "dest", dest)
	return nil
}

// Put uploads a local file to loc and returns the resulting location
// string. A sha256 digest of the file is recorded as object metadata.
func (c *Client) Put(ctx context.Context, loc Location, src string) (string, error) {
	f, err := os.Open(src)
	if err != nil {
		return "", fmt.Errorf("%w: put %s: %v", ErrTransfer, loc, err)
	}
	dgst, err := digest.Canonical.FromReader(f)
	if err != nil {
		f.Close()
		return "", fmt.Errorf("%w: put %s: %v", ErrTransfer, loc, err)
	}
	f.Close()

	contentType := mime.TypeByExtension(filepath.Ext(src))
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	_, err = c.mc.FPutObject(ctx, loc.Bucket, loc.Key, src, minio.PutObjectOptions{
		ContentType:  contentType,
		UserMetadata: map[string]string{"Digest": dgst.String()},
	})
	if err != nil {
		return "", c.mapErr("put", loc, err)
	}
	c.log().Debug("object uploaded", "location", loc.String(), "digest", dgst.String())
	return loc.String(), nil
}

// mapErr translates minio errors into the package taxonomy.
func (c *Client) mapErr(op string, loc Location, err error) error {
	resp := minio.ToErrorResponse(err)
	if resp.Code == "NoSuchKey" || resp.Code == "NoSuchBucket" || resp.StatusCode == 404 {
		return fmt.Errorf("%w: %s %s", ErrNotFound, op, loc)
	}
	return fmt.Errorf("%w: %s %s: %v", ErrTransfer, op, loc, err)
}

func (c *Client) log() *slog.Logger {
	if c.logger == nil {
		return slog.New(slog.DiscardHandler)
	}
	return c.logger
}
