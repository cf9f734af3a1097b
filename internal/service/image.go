package service

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"log"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"
)

// ImageStore persists a decoded recipe image and returns the URL (or
// media path) to put on the recipe row.
type ImageStore interface {
	Save(ctx context.Context, dataURI string) (string, error)
}

// ImageRemover is implemented by stores that can delete a stored
// image again, so a write that never makes it onto a recipe row does
// not leave an orphaned file behind.
type ImageRemover interface {
	Remove(ctx context.Context, location string) error
}

var allowedImageExts = map[string]string{
	"png":  "image/png",
	"jpeg": "image/jpeg",
	"jpg":  "image/jpeg",
	"gif":  "image/gif",
	"webp": "image/webp",
}

// DecodeImageDataURI parses a "data:image/<ext>;base64,<payload>"
// string. Anything else is a validation error.
func DecodeImageDataURI(dataURI string) (ext string, data []byte, err error) {
	const prefix = "data:image/"
	if !strings.HasPrefix(dataURI, prefix) {
		return "", nil, validationErrorf("image must be a base64 data URI")
	}
	rest := strings.TrimPrefix(dataURI, prefix)
	sep := strings.Index(rest, ";base64,")
	if sep < 0 {
		return "", nil, validationErrorf("image must be base64 encoded")
	}
	ext = strings.ToLower(rest[:sep])
	if _, ok := allowedImageExts[ext]; !ok {
		return "", nil, validationErrorf("unsupported image type %q", ext)
	}
	data, err = base64.StdEncoding.DecodeString(rest[sep+len(";base64,"):])
	if err != nil {
		return "", nil, validationErrorf("invalid base64 image payload")
	}
	if len(data) == 0 {
		return "", nil, validationErrorf("empty image payload")
	}
	return ext, data, nil
}

// LocalImageStore writes images under a media directory served by the
// HTTP server.
type LocalImageStore struct {
	dir     string
	baseURL string
}

func NewLocalImageStore(dir, baseURL string) *LocalImageStore {
	return &LocalImageStore{dir: dir, baseURL: baseURL}
}

func (s *LocalImageStore) Save(ctx context.Context, dataURI string) (string, error) {
	ext, data, err := DecodeImageDataURI(dataURI)
	if err != nil {
		return "", err
	}

	name := fmt.Sprintf("recipes/%s.%s", uuid.New().String(), ext)
	fullPath := filepath.Join(s.dir, filepath.FromSlash(name))
	if err := os.MkdirAll(filepath.Dir(fullPath), 0o755); err != nil {
		return "", fmt.Errorf("failed to create media directory: %w", err)
	}
	if err := os.WriteFile(fullPath, data, 0o644); err != nil {
		return "", fmt.Errorf("failed to write image: %w", err)
	}
	return path.Join(s.baseURL, name), nil
}

// Remove deletes a previously saved image by its media path.
func (s *LocalImageStore) Remove(ctx context.Context, location string) error {
	rel := strings.TrimPrefix(location, s.baseURL)
	rel = strings.TrimPrefix(rel, "/")
	return os.Remove(filepath.Join(s.dir, filepath.FromSlash(rel)))
}

// S3ImageStore uploads images to an S3 bucket and returns the public
// URL.
type S3ImageStore struct {
	client *s3.Client
	bucket string
}

func NewS3ImageStore(client *s3.Client, bucket string) *S3ImageStore {
	return &S3ImageStore{client: client, bucket: bucket}
}

func (s *S3ImageStore) Save(ctx context.Context, dataURI string) (string, error) {
	ext, data, err := DecodeImageDataURI(dataURI)
	if err != nil {
		return "", err
	}

	name := fmt.Sprintf("recipes/%s.%s", uuid.New().String(), ext)
	_, err = s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(name),
		Body:        bytes.NewReader(data),
		ContentType: aws.String(allowedImageExts[ext]),
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload to S3: %w", err)
	}

	publicURL := fmt.Sprintf("https://%s.s3.amazonaws.com/%s", s.bucket, name)
	log.Printf("[ImageStore] Uploaded recipe image to S3: %s", publicURL)
	return publicURL, nil
}

// Remove deletes a previously uploaded image by its public URL.
func (s *S3ImageStore) Remove(ctx context.Context, location string) error {
	prefix := fmt.Sprintf("https://%s.s3.amazonaws.com/", s.bucket)
	key := strings.TrimPrefix(location, prefix)
	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	return err
}
