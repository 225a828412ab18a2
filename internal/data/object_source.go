package data

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/udisondev/npcspawn/internal/config"
	"github.com/udisondev/npcspawn/internal/model"
)

// ObjectGetter is the subset of the S3 client the object source needs.
type ObjectGetter interface {
	GetObject(ctx context.Context, bucketName, objectName string, opts minio.GetObjectOptions) (io.ReadCloser, error)
}

// NewObjectClient creates an S3-compatible client (MinIO, AWS, ...).
func NewObjectClient(cfg config.ObjectStore) (ObjectGetter, error) {
	endpoint := strings.TrimPrefix(cfg.Endpoint, "http://")
	endpoint = strings.TrimPrefix(endpoint, "https://")

	client, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("creating object storage client: %w", err)
	}
	return &minioGetter{client: client}, nil
}

type minioGetter struct {
	client *minio.Client
}

func (g *minioGetter) GetObject(ctx context.Context, bucketName, objectName string, opts minio.GetObjectOptions) (io.ReadCloser, error) {
	return g.client.GetObject(ctx, bucketName, objectName, opts)
}

// ObjectSource reads declarations from an object in a bucket on every reload.
type ObjectSource struct {
	client ObjectGetter
	bucket string
	object string
}

// NewObjectSource creates a declaration source for bucket/object.
func NewObjectSource(client ObjectGetter, bucket, object string) *ObjectSource {
	return &ObjectSource{client: client, bucket: bucket, object: object}
}

// Declarations implements spawn.DeclarationSource.
func (s *ObjectSource) Declarations(ctx context.Context) ([]model.Declaration, error) {
	format, err := FormatOf(s.object)
	if err != nil {
		return nil, err
	}

	data, err := s.fetch(ctx)
	if err != nil {
		return nil, err
	}

	decls, err := ParseDeclarations(data, format)
	if err != nil {
		return nil, fmt.Errorf("%s/%s: %w", s.bucket, s.object, err)
	}
	slog.Info("loaded spawn declarations",
		"bucket", s.bucket,
		"object", s.object,
		"count", len(decls))
	return decls, nil
}

func (s *ObjectSource) fetch(ctx context.Context) ([]byte, error) {
	reader, err := s.client.GetObject(ctx, s.bucket, s.object, minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("getting %s/%s: %w", s.bucket, s.object, err)
	}
	defer reader.Close()

	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("reading %s/%s: %w", s.bucket, s.object, err)
	}
	return data, nil
}
