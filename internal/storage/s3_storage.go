package storage

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"

	"readaloud/internal/config"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/aws/smithy-go"
)

type s3ClientOptions struct {
	Region          string
	Endpoint        string
	AccessKeyID     string
	SecretAccessKey string
	SessionToken    string
	ForcePathStyle  bool
}

type remoteS3Storage struct {
	client *s3.Client
	bucket string
	prefix string
}

func (s *remoteS3Storage) Save(ctx context.Context, data []byte, opts SaveOptions) (string, error) {
	if len(data) == 0 {
		return "", errors.New("empty payload")
	}
	select {
	case <-ctx.Done():
		return "", ctx.Err()
	default:
	}

	key := s.ResolveKey(opts)

	if opts.SkipIfExists {
		exists, err := s.Exists(ctx, key)
		if err != nil {
			return "", err
		}
		if exists {
			return key, nil
		}
	}

	input := &s3.PutObjectInput{
		Bucket:        aws.String(s.bucket),
		Key:           aws.String(key),
		Body:          bytes.NewReader(data),
		ContentLength: aws.Int64(int64(len(data))),
	}

	if ct := detectContentType(opts.Extension); ct != "" {
		input.ContentType = aws.String(ct)
	}

	if _, err := s.client.PutObject(ctx, input); err != nil {
		return "", fmt.Errorf("put object: %w", err)
	}

	return key, nil
}

// ResolveKey returns the object key Save would write for opts.
func (s *remoteS3Storage) ResolveKey(opts SaveOptions) string {
	return joinPrefix(s.prefix, objectPath(opts))
}

func (s *remoteS3Storage) Exists(ctx context.Context, key string) (bool, error) {
	_, err := s.client.HeadObject(ctx, &s3.HeadObjectInput{Bucket: aws.String(s.bucket), Key: aws.String(key)})
	if err == nil {
		return true, nil
	}
	if isS3NotFound(err) {
		return false, nil
	}
	return false, fmt.Errorf("head object: %w", err)
}

var _ Storage = (*remoteS3Storage)(nil)

func isS3NotFound(err error) bool {
	if err == nil {
		return false
	}
	var notFound *types.NotFound
	if errors.As(err, &notFound) {
		return true
	}
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		code := strings.ToLower(apiErr.ErrorCode())
		if code == "notfound" || code == "nosuchkey" || code == "404" {
			return true
		}
	}
	if strings.Contains(strings.ToLower(err.Error()), "status code: 404") {
		return true
	}
	return false
}

// s3Target is one S3-compatible bucket resolved from configuration.
type s3Target struct {
	name   string
	bucket string
	prefix string
	client s3ClientOptions
}

func s3TargetFromConfig(cfg config.Config) (s3Target, error) {
	bucket := strings.TrimSpace(cfg.StorageS3Bucket)
	if bucket == "" {
		return s3Target{}, errors.New("storage: missing S3 bucket")
	}
	region := strings.TrimSpace(cfg.StorageS3Region)
	if region == "" {
		return s3Target{}, errors.New("storage: missing S3 region")
	}
	return s3Target{
		name:   "S3",
		bucket: bucket,
		prefix: trimPrefix(cfg.StorageS3Prefix),
		client: s3ClientOptions{
			Region:          region,
			Endpoint:        strings.TrimSpace(cfg.StorageS3Endpoint),
			AccessKeyID:     strings.TrimSpace(cfg.StorageS3AccessKeyID),
			SecretAccessKey: strings.TrimSpace(cfg.StorageS3SecretAccessKey),
			SessionToken:    strings.TrimSpace(cfg.StorageS3SessionToken),
			ForcePathStyle:  cfg.StorageS3ForcePathStyle,
		},
	}, nil
}

// r2TargetFromConfig 将 Cloudflare R2 视为 S3 兼容端点：
// 未配置 endpoint 时由 account id 推导，region 默认 auto，并强制 path-style
func r2TargetFromConfig(cfg config.Config) (s3Target, error) {
	bucket := strings.TrimSpace(cfg.StorageR2Bucket)
	if bucket == "" {
		return s3Target{}, errors.New("storage: missing R2 bucket")
	}
	endpoint := strings.TrimSpace(cfg.StorageR2Endpoint)
	if endpoint == "" {
		accountID := strings.TrimSpace(cfg.StorageR2AccountID)
		if accountID == "" {
			return s3Target{}, errors.New("storage: missing R2 endpoint or account id")
		}
		endpoint = fmt.Sprintf("https://%s.r2.cloudflarestorage.com", accountID)
	}
	region := strings.TrimSpace(cfg.StorageR2Region)
	if region == "" {
		region = "auto"
	}
	return s3Target{
		name:   "R2",
		bucket: bucket,
		prefix: trimPrefix(cfg.StorageR2Prefix),
		client: s3ClientOptions{
			Region:          region,
			Endpoint:        endpoint,
			AccessKeyID:     strings.TrimSpace(cfg.StorageR2AccessKeyID),
			SecretAccessKey: strings.TrimSpace(cfg.StorageR2SecretAccessKey),
			ForcePathStyle:  true,
		},
	}, nil
}

// NewS3Storage stores cached audio in an Amazon S3 (or compatible) bucket.
func NewS3Storage(cfg config.Config) (Storage, error) {
	target, err := s3TargetFromConfig(cfg)
	if err != nil {
		return nil, err
	}
	return newRemoteS3Storage(target)
}

// NewR2Storage stores cached audio in a Cloudflare R2 bucket.
func NewR2Storage(cfg config.Config) (Storage, error) {
	target, err := r2TargetFromConfig(cfg)
	if err != nil {
		return nil, err
	}
	return newRemoteS3Storage(target)
}

func newRemoteS3Storage(target s3Target) (Storage, error) {
	client, err := newS3Client(target.client)
	if err != nil {
		return nil, fmt.Errorf("storage: create %s client: %w", target.name, err)
	}
	return &remoteS3Storage{
		client: client,
		bucket: target.bucket,
		prefix: target.prefix,
	}, nil
}

func newS3Client(opts s3ClientOptions) (*s3.Client, error) {
	region := strings.TrimSpace(opts.Region)
	if region == "" {
		return nil, errors.New("storage: missing S3 region")
	}
	accessKey := strings.TrimSpace(opts.AccessKeyID)
	secretKey := strings.TrimSpace(opts.SecretAccessKey)
	if accessKey == "" || secretKey == "" {
		return nil, errors.New("storage: missing S3 credentials")
	}

	credentialsProvider := aws.NewCredentialsCache(
		credentials.NewStaticCredentialsProvider(accessKey, secretKey, strings.TrimSpace(opts.SessionToken)),
	)

	awsCfg := aws.Config{
		Region:      region,
		Credentials: credentialsProvider,
	}

	endpoint := strings.TrimSpace(opts.Endpoint)
	if endpoint != "" {
		if !strings.HasPrefix(endpoint, "http://") && !strings.HasPrefix(endpoint, "https://") {
			endpoint = "https://" + endpoint
		}
		awsCfg.EndpointResolverWithOptions = aws.EndpointResolverWithOptionsFunc(func(service, _ string, _ ...interface{}) (aws.Endpoint, error) {
			if service == s3.ServiceID {
				return aws.Endpoint{
					URL:           endpoint,
					SigningRegion: region,
				}, nil
			}
			return aws.Endpoint{}, fmt.Errorf("storage: no endpoint for service %s", service)
		})
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		o.UsePathStyle = opts.ForcePathStyle
	})

	return client, nil
}
