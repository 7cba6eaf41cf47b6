package artifacts

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"casedesk/internal/apperr"
	"casedesk/internal/config"
)

// S3Signer issues presigned S3 URLs bound to a specific object and
// declared content type.
type S3Signer struct {
	presign *s3.PresignClient
}

// NewS3Signer constructs the signer once at startup.
func NewS3Signer(ctx context.Context, cfg config.AWSConfig) (*S3Signer, error) {
	if cfg.Region == "" {
		return nil, apperr.MissingAWSConfig("region")
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.Region))
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	client := s3.NewFromConfig(awsCfg)
	return &S3Signer{presign: s3.NewPresignClient(client)}, nil
}

// PresignGet signs a 5-minute GET for the stored object, forcing the
// artifact's declared content type on the response.
func (s *S3Signer) PresignGet(ctx context.Context, bucket, key, contentType string) (string, error) {
	out, err := s.presign.PresignGetObject(ctx, &s3.GetObjectInput{
		Bucket:              aws.String(bucket),
		Key:                 aws.String(key),
		ResponseContentType: aws.String(contentType),
	}, s3.WithPresignExpires(URLTTL))
	if err != nil {
		return "", fmt.Errorf("presign get: %w", err)
	}
	return out.URL, nil
}

// PresignPut signs a 5-minute upload URL for a registered input file.
func (s *S3Signer) PresignPut(ctx context.Context, bucket, key, contentType string) (string, error) {
	out, err := s.presign.PresignPutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(bucket),
		Key:         aws.String(key),
		ContentType: aws.String(contentType),
	}, s3.WithPresignExpires(URLTTL))
	if err != nil {
		return "", fmt.Errorf("presign put: %w", err)
	}
	return out.URL, nil
}
