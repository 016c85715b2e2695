// Package storage keeps a world's maps in an S3-compatible bucket such as
// MinIO.
package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"path"
	"regexp"
	"strconv"
	"strings"

	"github.com/PhantomInTheWire/imagemap/pkg/registry"
	"github.com/PhantomInTheWire/imagemap/pkg/tile"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
)

var mapKeyRegexp = regexp.MustCompile(`(?:^|/)maps/(\d+)\.rgba$`)

type Config struct {
	Endpoint  string
	Region    string
	AccessKey string
	SecretKey string
	Bucket    string
	Prefix    string
}

type s3Config struct {
	Logger *slog.Logger
	Client *s3.Client
}

type Option func(*s3Config)

func WithLogger(logger *slog.Logger) Option {
	return func(c *s3Config) { c.Logger = logger }
}

// WithClient uses an already configured client instead of building one
// from Config.
func WithClient(client *s3.Client) Option {
	return func(c *s3Config) { c.Client = client }
}

// ParseLocation splits "s3://bucket/prefix" into bucket and prefix.
func ParseLocation(location string) (bucket, prefix string, err error) {
	u, err := url.Parse(location)
	if err != nil {
		return "", "", err
	}
	if u.Scheme != "s3" || u.Host == "" {
		return "", "", fmt.Errorf("invalid bucket location %q (want s3://bucket/prefix)", location)
	}
	return u.Host, strings.Trim(u.Path, "/"), nil
}

// S3World stores each map as a raw RGBA object <prefix>/maps/<id>.rgba.
type S3World struct {
	client *s3.Client
	bucket string
	prefix string
	logger *slog.Logger
}

// OpenS3 connects to the bucket in cfg, creating it if it does not exist.
func OpenS3(ctx context.Context, cfg Config, opts ...Option) (*S3World, error) {
	c := s3Config{Logger: slog.New(slog.DiscardHandler)}
	for _, opt := range opts {
		opt(&c)
	}

	client := c.Client
	if client == nil {
		var err error
		client, err = newClient(ctx, cfg)
		if err != nil {
			return nil, err
		}
	}

	// Ensure the bucket exists
	_, err := client.HeadBucket(ctx, &s3.HeadBucketInput{
		Bucket: aws.String(cfg.Bucket),
	})
	if err != nil {
		_, err = client.CreateBucket(ctx, &s3.CreateBucketInput{
			Bucket: aws.String(cfg.Bucket),
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create bucket %s: %w", cfg.Bucket, err)
		}
		c.Logger.Info("created bucket", "bucket", cfg.Bucket)
	}

	return &S3World{client: client, bucket: cfg.Bucket, prefix: cfg.Prefix, logger: c.Logger}, nil
}

func newClient(ctx context.Context, cfg Config) (*s3.Client, error) {
	var loadOpts []func(*config.LoadOptions) error
	if cfg.Region != "" {
		loadOpts = append(loadOpts, config.WithRegion(cfg.Region))
	}
	if cfg.AccessKey != "" {
		loadOpts = append(loadOpts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, "")))
	}
	awsCfg, err := config.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, err
	}
	return s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	}), nil
}

func (w *S3World) Name() string   { return path.Join(w.bucket, w.prefix) }
func (w *S3World) Format() string { return "s3" }
func (w *S3World) Close() error   { return nil }

// MapKey returns the object key for a map.
func (w *S3World) MapKey(id int64) string {
	return path.Join(w.prefix, "maps", strconv.FormatInt(id, 10)+".rgba")
}

// ParseMapKey extracts the map ID from an object key written by MapKey.
func ParseMapKey(key string) (int64, bool) {
	m := mapKeyRegexp.FindStringSubmatch(key)
	if m == nil {
		return 0, false
	}
	id, err := strconv.ParseInt(m[1], 10, 64)
	return id, err == nil
}

func (w *S3World) LoadTiles(ctx context.Context) (map[int64]*tile.Tile, error) {
	tiles := make(map[int64]*tile.Tile)
	p := s3.NewListObjectsV2Paginator(w.client, &s3.ListObjectsV2Input{
		Bucket: aws.String(w.bucket),
		Prefix: aws.String(path.Join(w.prefix, "maps") + "/"),
	})
	for p.HasMorePages() {
		page, err := p.NextPage(ctx)
		if err != nil {
			return nil, err
		}
		for _, obj := range page.Contents {
			key := aws.ToString(obj.Key)
			id, ok := ParseMapKey(key)
			if !ok {
				continue
			}
			t, err := w.readTile(ctx, key)
			if err != nil {
				return nil, fmt.Errorf("%s: %w", key, err)
			}
			tiles[id] = t
		}
	}
	return tiles, nil
}

func (w *S3World) readTile(ctx context.Context, key string) (*tile.Tile, error) {
	out, err := w.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(w.bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, err
	}
	defer out.Body.Close()
	data, err := io.ReadAll(out.Body)
	if err != nil {
		return nil, err
	}
	return tile.Decode(data)
}

// PersistTiles uploads every map. If an upload fails the maps already
// uploaded in this call are removed again.
func (w *S3World) PersistTiles(ctx context.Context, tiles map[int64]*tile.Tile) error {
	var uploaded []int64
	for id, t := range tiles {
		_, err := w.client.PutObject(ctx, &s3.PutObjectInput{
			Bucket:      aws.String(w.bucket),
			Key:         aws.String(w.MapKey(id)),
			Body:        bytes.NewReader(t.Encode()),
			ContentType: aws.String("application/octet-stream"),
		})
		if err != nil {
			for _, done := range uploaded {
				if derr := w.DeleteTile(ctx, done); derr != nil {
					w.logger.Warn("failed to roll back upload", "id", done, "err", derr)
				}
			}
			return fmt.Errorf("failed to upload map %d: %w", id, err)
		}
		uploaded = append(uploaded, id)
		w.logger.Debug("uploaded", "key", w.MapKey(id))
	}
	return nil
}

// DeleteTile removes a map object. S3 deletes missing keys without error,
// so the object is looked up first.
func (w *S3World) DeleteTile(ctx context.Context, id int64) error {
	key := aws.String(w.MapKey(id))
	_, err := w.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(w.bucket),
		Key:    key,
	})
	var notFound *types.NotFound
	var noSuchKey *types.NoSuchKey
	if errors.As(err, &notFound) || errors.As(err, &noSuchKey) {
		return fmt.Errorf("%w: %d", registry.ErrNotFound, id)
	}
	if err != nil {
		return fmt.Errorf("looking up map %d: %w", id, err)
	}
	_, err = w.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(w.bucket),
		Key:    key,
	})
	return err
}

// AttachTiles writes <prefix>/containers/<first>.txt listing the IDs, one
// per line.
func (w *S3World) AttachTiles(ctx context.Context, ids []int64) error {
	if len(ids) == 0 {
		return nil
	}
	var buf bytes.Buffer
	for _, id := range ids {
		fmt.Fprintln(&buf, id)
	}
	key := path.Join(w.prefix, "containers", strconv.FormatInt(ids[0], 10)+".txt")
	_, err := w.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(w.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(buf.Bytes()),
		ContentType: aws.String("text/plain"),
	})
	return err
}
