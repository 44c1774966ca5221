package media

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/dmitrijs2005/gooutside/internal/logging"
	"github.com/google/uuid"
)

// ObjectAPI is the subset of *s3.Client used by S3Store.
type ObjectAPI interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
	DeleteObject(ctx context.Context, in *s3.DeleteObjectInput, optFns ...func(*s3.Options)) (*s3.DeleteObjectOutput, error)
}

// S3Config configures an S3 or S3-compatible (MinIO) bucket.
type S3Config struct {
	Bucket   string
	Region   string
	Endpoint string
	Prefix   string

	// AccessKey and SecretKey override the default AWS credential chain.
	AccessKey string
	SecretKey string
}

// S3Store uploads photos as objects. References have the form
// s3://bucket/key.
type S3Store struct {
	client  ObjectAPI
	bucket  string
	prefix  string
	format  Format
	quality int
	log     logging.Logger
}

// NewS3Client builds an S3 client from cfg.
func NewS3Client(ctx context.Context, cfg S3Config) (*s3.Client, error) {
	opts := []func(*config.LoadOptions) error{config.WithRegion(cfg.Region)}
	if cfg.AccessKey != "" {
		opts = append(opts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		))
	}

	awsCfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	return s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	}), nil
}

func NewS3Store(client ObjectAPI, cfg S3Config, format Format, log logging.Logger) (*S3Store, error) {
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("s3 bucket is required")
	}
	prefix := strings.Trim(cfg.Prefix, "/")
	if prefix != "" {
		prefix += "/"
	}
	return &S3Store{client: client, bucket: cfg.Bucket, prefix: prefix, format: format, quality: DefaultQuality, log: log}, nil
}

func (s *S3Store) Save(ctx context.Context, img image.Image) (string, error) {
	var buf bytes.Buffer
	if err := encode(&buf, img, s.format, s.quality); err != nil {
		return "", fmt.Errorf("encode photo: %w", err)
	}

	key := s.prefix + uuid.NewString() + s.format.Ext()
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(s.bucket),
		Key:           aws.String(key),
		Body:          bytes.NewReader(buf.Bytes()),
		ContentLength: aws.Int64(int64(buf.Len())),
		ContentType:   aws.String(s.format.ContentType()),
	})
	if err != nil {
		return "", fmt.Errorf("put s3://%s/%s: %w", s.bucket, key, err)
	}

	ref := "s3://" + s.bucket + "/" + key
	s.log.Info(ctx, "photo uploaded", "ref", ref, "bytes", buf.Len())
	return ref, nil
}

// ParseRef splits an s3://bucket/key reference.
func ParseRef(ref string) (bucket, key string, err error) {
	rest, ok := strings.CutPrefix(ref, "s3://")
	if !ok {
		return "", "", fmt.Errorf("not an s3 reference: %q", ref)
	}
	bucket, key, ok = strings.Cut(rest, "/")
	if !ok || bucket == "" || key == "" {
		return "", "", fmt.Errorf("malformed s3 reference: %q", ref)
	}
	return bucket, key, nil
}

func (s *S3Store) Delete(ctx context.Context, ref string) error {
	bucket, key, err := ParseRef(ref)
	if err != nil {
		return err
	}
	if bucket != s.bucket {
		return fmt.Errorf("reference %q belongs to bucket %q, not %q", ref, bucket, s.bucket)
	}

	if _, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	}); err != nil {
		return fmt.Errorf("delete %s: %w", ref, err)
	}
	return nil
}
