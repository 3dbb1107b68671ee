package blobstore

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	v4 "github.com/aws/aws-sdk-go-v2/aws/signer/v4"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/nestclip/nestclip/internal/common"
	cfg "github.com/nestclip/nestclip/internal/config"
	"github.com/nestclip/nestclip/internal/logging"
)

// Seams for tests.
var (
	loadDefaultAWSConfig = awsconfig.LoadDefaultConfig

	newS3ClientFromConfig = func(c aws.Config, optFns ...func(*s3.Options)) *s3.Client {
		return s3.NewFromConfig(c, optFns...)
	}

	newS3PresignClient = func(c *s3.Client) *s3.PresignClient {
		return s3.NewPresignClient(c)
	}

	putObject = func(c *s3.Client, ctx context.Context, in *s3.PutObjectInput) (*s3.PutObjectOutput, error) {
		return c.PutObject(ctx, in)
	}
	getObject = func(c *s3.Client, ctx context.Context, in *s3.GetObjectInput) (*s3.GetObjectOutput, error) {
		return c.GetObject(ctx, in)
	}
	presignGetObject = func(pc *s3.PresignClient, ctx context.Context, in *s3.GetObjectInput, optFns ...func(*s3.PresignOptions)) (*v4.PresignedHTTPRequest, error) {
		return pc.PresignGetObject(ctx, in, optFns...)
	}

	httpGet = func(ctx context.Context, url string) (*http.Response, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return nil, err
		}
		return http.DefaultClient.Do(req)
	}
)

// S3Store implements ObjectStore over a MinIO-compatible S3 endpoint.
type S3Store struct {
	config *cfg.Config
	log    logging.Logger
}

func NewS3Store(config *cfg.Config, log logging.Logger) *S3Store {
	if log == nil {
		log = logging.Nop{}
	}
	return &S3Store{config: config, log: log}
}

func (s *S3Store) client(ctx context.Context) (*s3.Client, error) {
	c, err := loadDefaultAWSConfig(ctx,
		awsconfig.WithRegion(s.config.S3Region),
		awsconfig.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			s.config.S3AccessKey,
			s.config.S3SecretKey,
			"",
		)))
	if err != nil {
		return nil, err
	}

	return newS3ClientFromConfig(c, func(o *s3.Options) {
		if s.config.S3BaseEndpoint != "" {
			o.BaseEndpoint = aws.String(s.config.S3BaseEndpoint)
		}
		o.UsePathStyle = true
	}), nil
}

func (s *S3Store) Upload(ctx context.Context, data []byte, contentType, key string) (Stored, error) {
	client, err := s.client(ctx)
	if err != nil {
		return Stored{}, fmt.Errorf("%w: %v", common.ErrUploadFailed, err)
	}

	_, err = putObject(client, ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.config.S3Bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return Stored{}, fmt.Errorf("%w: put %s: %v", common.ErrUploadFailed, key, err)
	}

	url, err := s.ObjectURL(ctx, key)
	if err != nil {
		return Stored{}, err
	}
	return Stored{Key: key, URL: url, Length: int64(len(data))}, nil
}

func (s *S3Store) Download(ctx context.Context, key, fallbackURL string) ([]byte, error) {
	client, err := s.client(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrDownloadFailed, err)
	}

	out, err := getObject(client, ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.config.S3Bucket),
		Key:    aws.String(key),
	})
	if err == nil {
		defer out.Body.Close()
		data, err := io.ReadAll(out.Body)
		if err != nil {
			return nil, fmt.Errorf("%w: read %s: %v", common.ErrDownloadFailed, key, err)
		}
		return data, nil
	}

	if fallbackURL == "" {
		return nil, fmt.Errorf("%w: get %s: %v", common.ErrDownloadFailed, key, err)
	}
	s.log.Warn(ctx, "object key lookup failed, falling back to raw URL", "key", key)
	return s.downloadURL(ctx, fallbackURL)
}

func (s *S3Store) downloadURL(ctx context.Context, url string) ([]byte, error) {
	resp, err := httpGet(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrDownloadFailed, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: http %d", common.ErrDownloadFailed, resp.StatusCode)
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrDownloadFailed, err)
	}
	return data, nil
}

func (s *S3Store) ObjectURL(ctx context.Context, key string) (string, error) {
	client, err := s.client(ctx)
	if err != nil {
		return "", fmt.Errorf("%w: %v", common.ErrDownloadFailed, err)
	}

	req, err := presignGetObject(newS3PresignClient(client), ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.config.S3Bucket),
		Key:    aws.String(key),
	}, s3.WithPresignExpires(15*time.Minute))
	if err != nil {
		return "", fmt.Errorf("presign get: %w", err)
	}
	return req.URL, nil
}
