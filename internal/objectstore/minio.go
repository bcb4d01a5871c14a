package objectstore

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"iter"
	"path"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/dataplatform/validation-pipeline/internal/pipelineerr"
)

// MinioStore is the production Store backed by an S3-compatible endpoint.
type MinioStore struct {
	client *minio.Client
}

// MinioConfig configures a new MinioStore.
type MinioConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Secure    bool
}

// NewMinioStore dials the configured S3-compatible endpoint.
func NewMinioStore(cfg MinioConfig) (*MinioStore, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.Secure,
	})
	if err != nil {
		return nil, pipelineerr.Wrap(pipelineerr.KindBucketConnectionError, err)
	}
	return &MinioStore{client: client}, nil
}

func (s *MinioStore) BucketExists(ctx context.Context, bucket string) (bool, error) {
	ok, err := s.client.BucketExists(ctx, bucket)
	if err != nil {
		return false, pipelineerr.Wrap(pipelineerr.KindBucketConnectionError, err)
	}
	return ok, nil
}

func (s *MinioStore) CreateBucket(ctx context.Context, bucket string) error {
	exists, err := s.BucketExists(ctx, bucket)
	if err != nil {
		return err
	}
	if exists {
		return nil
	}
	if err := s.client.MakeBucket(ctx, bucket, minio.MakeBucketOptions{}); err != nil {
		return pipelineerr.Wrap(pipelineerr.KindBucketConnectionError, err)
	}
	return nil
}

func (s *MinioStore) RemoveBucketIfExists(ctx context.Context, bucket string) (bool, error) {
	exists, err := s.BucketExists(ctx, bucket)
	if err != nil {
		return false, err
	}
	if !exists {
		return false, nil
	}

	objectsCh := s.client.ListObjects(ctx, bucket, minio.ListObjectsOptions{Recursive: true})
	for obj := range objectsCh {
		if obj.Err != nil {
			continue
		}
		if err := s.client.RemoveObject(ctx, bucket, obj.Key, minio.RemoveObjectOptions{}); err != nil {
			continue
		}
	}

	if err := s.client.RemoveBucket(ctx, bucket); err != nil {
		var resp minio.ErrorResponse
		if errors.As(err, &resp) && resp.Code == "BucketNotEmpty" {
			return false, pipelineerr.New(pipelineerr.KindBucketOperationError, fmt.Sprintf("bucket %q is not empty", bucket))
		}
		return false, pipelineerr.Wrap(pipelineerr.KindBucketConnectionError, err)
	}
	return true, nil
}

func (s *MinioStore) PutObject(ctx context.Context, bucket, name string, data []byte, contentType string) error {
	_, err := s.client.PutObject(ctx, bucket, name, bytes.NewReader(data), int64(len(data)),
		minio.PutObjectOptions{ContentType: contentType})
	if err != nil {
		return pipelineerr.Wrap(pipelineerr.KindBucketConnectionError, err)
	}
	return nil
}

func (s *MinioStore) ReadObject(ctx context.Context, bucket, name string) ([]byte, error) {
	obj, err := s.client.GetObject(ctx, bucket, name, minio.GetObjectOptions{})
	if err != nil {
		return nil, pipelineerr.Wrap(pipelineerr.KindBucketConnectionError, err)
	}
	defer obj.Close()

	data, err := readAll(obj)
	if err != nil {
		var resp minio.ErrorResponse
		if errors.As(err, &resp) && (resp.Code == "NoSuchKey" || resp.Code == "NotFound") {
			return nil, pipelineerr.New(pipelineerr.KindObjectNotFound, fmt.Sprintf("object %q not found in bucket %q", name, bucket))
		}
		return nil, pipelineerr.Wrap(pipelineerr.KindBucketConnectionError, err)
	}
	return data, nil
}

func (s *MinioStore) DeleteObject(ctx context.Context, bucket, name string) error {
	err := s.client.RemoveObject(ctx, bucket, name, minio.RemoveObjectOptions{})
	if err != nil {
		var resp minio.ErrorResponse
		if errors.As(err, &resp) && (resp.Code == "NoSuchKey" || resp.Code == "NotFound") {
			return nil
		}
		return pipelineerr.Wrap(pipelineerr.KindBucketConnectionError, err)
	}
	return nil
}

func (s *MinioStore) IterByPrefix(ctx context.Context, bucket, prefix string) iter.Seq2[Object, error] {
	return func(yield func(Object, error) bool) {
		objectsCh := s.client.ListObjects(ctx, bucket, minio.ListObjectsOptions{
			Prefix:    prefix,
			Recursive: true,
		})
		for obj := range objectsCh {
			if obj.Err != nil {
				yield(Object{}, pipelineerr.Wrap(pipelineerr.KindBucketConnectionError, obj.Err))
				return
			}
			if isDirMarker(obj) {
				continue
			}
			data, err := s.ReadObject(ctx, bucket, obj.Key)
			if err != nil {
				if !yield(Object{}, err) {
					return
				}
				continue
			}
			if !yield(Object{Name: path.Base(obj.Key), Data: data}, nil) {
				return
			}
		}
	}
}

func isDirMarker(obj minio.ObjectInfo) bool {
	return len(obj.Key) > 0 && obj.Key[len(obj.Key)-1] == '/'
}

func readAll(r io.Reader) ([]byte, error) {
	var buf bytes.Buffer
	_, err := buf.ReadFrom(r)
	return buf.Bytes(), err
}
