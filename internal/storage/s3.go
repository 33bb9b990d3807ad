package storage

import (
	"CloudHunter/config"
	"context"
	"io"
	"log"
	"net/url"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// S3Store implements Store on any S3-compatible endpoint.
type S3Store struct {
	client        *s3.Client
	presign       *s3.PresignClient
	publicBaseURL string
}

// NewS3Store wraps an S3 client. With a public base URL set, download links
// point at it instead of being presigned.
func NewS3Store(client *s3.Client, publicBaseURL string) *S3Store {
	return &S3Store{
		client:        client,
		presign:       s3.NewPresignClient(client),
		publicBaseURL: publicBaseURL,
	}
}

func (s *S3Store) PutObject(ctx context.Context, bucket, object string, reader io.Reader, size int64, opts PutOptions) error {
	contentType := opts.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        aws.String(bucket),
		Key:           aws.String(object),
		Body:          reader,
		ContentType:   aws.String(contentType),
		ContentLength: aws.Int64(size),
	})
	return err
}

func (s *S3Store) PresignedGetObject(
	ctx context.Context,
	bucket,
	object string,
	expiry time.Duration,
	params map[string]string,
) (string, error) {
	if s.publicBaseURL != "" {
		return PublicObjectURL(s.publicBaseURL, object), nil
	}
	input := &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(object),
	}
	if v := params["response-content-disposition"]; v != "" {
		input.ResponseContentDisposition = aws.String(v)
	}
	if v := params["response-content-type"]; v != "" {
		input.ResponseContentType = aws.String(v)
	}
	req, err := s.presign.PresignGetObject(ctx, input, s3.WithPresignExpires(expiry))
	if err != nil {
		return "", err
	}
	return req.URL, nil
}

// PublicObjectURL joins a public base URL and an object key.
func PublicObjectURL(base, key string) string {
	parts := strings.Split(key, "/")
	for i, part := range parts {
		parts[i] = url.PathEscape(part)
	}
	return strings.TrimRight(base, "/") + "/" + strings.Join(parts, "/")
}

// InitS3 initializes the S3 client from configuration.
func InitS3() {
	cfg := config.AppConfig
	opts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(cfg.S3Region),
	}
	if cfg.S3AccessKeyID != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.S3AccessKeyID, cfg.S3AccessKeySecret, ""),
		))
	}
	if cfg.S3Endpoint != "" {
		endpoint := cfg.S3Endpoint
		resolver := aws.EndpointResolverWithOptionsFunc(func(service, region string, options ...interface{}) (aws.Endpoint, error) {
			return aws.Endpoint{URL: endpoint}, nil
		})
		opts = append(opts, awsconfig.WithEndpointResolverWithOptions(resolver))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(context.Background(), opts...)
	if err != nil {
		log.Fatalln("s3 config error:", err)
	}
	client := s3.NewFromConfig(awsCfg, func(options *s3.Options) {
		options.UsePathStyle = cfg.S3ForcePathStyle
	})
	log.Println("init s3 success, bucket:", cfg.S3Bucket)
	Default = NewS3Store(client, cfg.S3PublicBaseURL)
}
