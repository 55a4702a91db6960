package output

import (
	"bytes"
	"context"
	"io"
	"sort"
	"strings"
	"sync"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/teranos/jbind/emit"
	"github.com/teranos/jbind/errors"
)

// S3Config addresses a bucket on an S3-compatible store.
type S3Config struct {
	Endpoint  string
	Region    string
	AccessKey string
	SecretKey string
	Bucket    string
	Prefix    string
	UseSSL    bool
}

// S3 writes units as objects under a key prefix.
type S3 struct {
	client   *minio.Client
	bucket   string
	prefix   string
	region   string
	initOnce sync.Once
	initErr  error
}

// NewS3 builds the client. No request is made until the first write.
func NewS3(cfg S3Config) (*S3, error) {
	endpoint := strings.TrimSpace(cfg.Endpoint)
	if endpoint == "" {
		return nil, errors.NewConfigurationError("s3 endpoint is required")
	}
	bucket := strings.TrimSpace(cfg.Bucket)
	if bucket == "" {
		return nil, errors.NewConfigurationError("s3 bucket is required")
	}
	region := strings.TrimSpace(cfg.Region)
	if region == "" {
		region = "us-east-1"
	}
	var creds *credentials.Credentials
	if cfg.AccessKey != "" || cfg.SecretKey != "" {
		creds = credentials.NewStaticV4(strings.TrimSpace(cfg.AccessKey), strings.TrimSpace(cfg.SecretKey), "")
	} else {
		creds = credentials.NewEnvAWS()
	}
	client, err := minio.New(endpoint, &minio.Options{
		Creds:  creds,
		Secure: cfg.UseSSL,
		Region: region,
	})
	if err != nil {
		return nil, errors.WrapConfiguration(err, "init s3 client")
	}
	prefix := strings.Trim(cfg.Prefix, "/")
	if prefix != "" {
		prefix += "/"
	}
	return &S3{client: client, bucket: bucket, prefix: prefix, region: region}, nil
}

func (s *S3) ensureBucket(ctx context.Context) error {
	s.initOnce.Do(func() {
		exists, err := s.client.BucketExists(ctx, s.bucket)
		if err != nil {
			s.initErr = err
			return
		}
		if exists {
			return
		}
		s.initErr = s.client.MakeBucket(ctx, s.bucket, minio.MakeBucketOptions{Region: s.region})
	})
	return s.initErr
}

func (s *S3) key(path string) string {
	return s.prefix + strings.TrimLeft(path, "/")
}

func (s *S3) Write(ctx context.Context, u emit.Unit) error {
	if err := s.ensureBucket(ctx); err != nil {
		return errors.WrapEmissionIO(err, "ensure bucket "+s.bucket)
	}
	_, err := s.client.PutObject(ctx, s.bucket, s.key(u.Path), bytes.NewReader(u.Source), int64(len(u.Source)),
		minio.PutObjectOptions{ContentType: "text/x-go; charset=utf-8"})
	if err != nil {
		return errors.WrapEmissionIO(err, "put "+s.key(u.Path))
	}
	return nil
}

func (s *S3) Remove(ctx context.Context, path string) error {
	if err := s.client.RemoveObject(ctx, s.bucket, s.key(path), minio.RemoveObjectOptions{}); err != nil {
		return errors.WrapEmissionIO(err, "remove "+s.key(path))
	}
	return nil
}

func (s *S3) Read(ctx context.Context, path string) ([]byte, error) {
	obj, err := s.client.GetObject(ctx, s.bucket, s.key(path), minio.GetObjectOptions{})
	if err != nil {
		return nil, errors.WrapEmissionIO(err, "get "+s.key(path))
	}
	defer obj.Close()
	data, err := io.ReadAll(obj)
	if err != nil {
		resp := minio.ToErrorResponse(err)
		if resp.Code == "NoSuchKey" || resp.Code == "NoSuchBucket" {
			return nil, errors.Mark(errors.Wrap(err, "get "+s.key(path)), errors.ErrNotFound)
		}
		return nil, errors.WrapEmissionIO(err, "get "+s.key(path))
	}
	return data, nil
}

func (s *S3) List(ctx context.Context) ([]string, error) {
	var out []string
	for obj := range s.client.ListObjects(ctx, s.bucket, minio.ListObjectsOptions{Prefix: s.prefix, Recursive: true}) {
		if obj.Err != nil {
			return nil, errors.WrapEmissionIO(obj.Err, "list "+s.bucket)
		}
		if obj.Key == "" {
			continue
		}
		out = append(out, strings.TrimPrefix(obj.Key, s.prefix))
	}
	sort.Strings(out)
	return out, nil
}

func (s *S3) String() string { return "s3://" + s.bucket + "/" + s.prefix }
