// internal/posts/upload.go
// Image upload backends for post attachments: S3 in production,
// local disk for development.

package posts

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"os"
	"path/filepath"
	"strings"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/s3"
	"github.com/google/uuid"

	"github.com/beegin-app/beegin-backend/internal/common/apperrors"
)

const maxImageSize = 5 << 20 // 5 MB

var allowedImageExtensions = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".gif":  true,
	".webp": true,
}

// UploadService stores a post image and returns its public URL
type UploadService interface {
	UploadImage(ctx context.Context, file multipart.File, header *multipart.FileHeader) (string, error)
}

func validateImage(header *multipart.FileHeader) (string, error) {
	if header.Size > maxImageSize {
		return "", apperrors.BadRequest("image_too_large", "Images must be 5MB or smaller")
	}

	ext := strings.ToLower(filepath.Ext(header.Filename))
	if !allowedImageExtensions[ext] {
		return "", apperrors.BadRequest("unsupported_image_type", "Only jpg, png, gif and webp images are allowed")
	}

	return ext, nil
}

// s3UploadService stores images in an S3 bucket
type s3UploadService struct {
	client *s3.S3
	bucket string
	region string
}

// NewS3UploadService creates an S3-backed upload service
func NewS3UploadService(region, bucket string) (UploadService, error) {
	sess, err := session.NewSession(&aws.Config{Region: aws.String(region)})
	if err != nil {
		return nil, fmt.Errorf("failed to create AWS session: %w", err)
	}

	return &s3UploadService{
		client: s3.New(sess),
		bucket: bucket,
		region: region,
	}, nil
}

func (s *s3UploadService) UploadImage(ctx context.Context, file multipart.File, header *multipart.FileHeader) (string, error) {
	ext, err := validateImage(header)
	if err != nil {
		return "", err
	}

	data, err := io.ReadAll(file)
	if err != nil {
		return "", apperrors.Internal(fmt.Errorf("failed to read upload: %w", err))
	}

	key := fmt.Sprintf("posts/%s%s", uuid.New().String(), ext)

	_, err = s.client.PutObjectWithContext(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String(header.Header.Get("Content-Type")),
	})
	if err != nil {
		return "", apperrors.Internal(fmt.Errorf("failed to upload to S3: %w", err))
	}

	return fmt.Sprintf("https://%s.s3.%s.amazonaws.com/%s", s.bucket, s.region, key), nil
}

// localUploadService stores images on local disk
type localUploadService struct {
	dir     string
	baseURL string
}

// NewLocalUploadService creates a disk-backed upload service
func NewLocalUploadService(dir, baseURL string) (UploadService, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create upload directory: %w", err)
	}

	return &localUploadService{dir: dir, baseURL: baseURL}, nil
}

func (s *localUploadService) UploadImage(ctx context.Context, file multipart.File, header *multipart.FileHeader) (string, error) {
	ext, err := validateImage(header)
	if err != nil {
		return "", err
	}

	name := uuid.New().String() + ext
	dst, err := os.Create(filepath.Join(s.dir, name))
	if err != nil {
		return "", apperrors.Internal(fmt.Errorf("failed to create upload file: %w", err))
	}
	defer dst.Close()

	if _, err := io.Copy(dst, file); err != nil {
		return "", apperrors.Internal(fmt.Errorf("failed to write upload: %w", err))
	}

	return fmt.Sprintf("%s/uploads/%s", strings.TrimSuffix(s.baseURL, "/"), name), nil
}
