// Package storage keeps uploaded case documents on local disk or in an S3
// compatible bucket.
package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/linesmerrill/legal-case-api/config"
)

// MaxUploadSize is the largest document accepted per file
const MaxUploadSize = 10 * 1024 * 1024

// PublicPrefix is the path documents are served from
const PublicPrefix = "/uploads/"

// ErrNotFound is returned when a stored object does not exist
var ErrNotFound = errors.New("file not found")

var allowed = map[string][]string{
	".pdf":  {"application/pdf"},
	".jpg":  {"image/jpeg", "image/jpg"},
	".jpeg": {"image/jpeg", "image/jpg"},
	".png":  {"image/png"},
}

// Provider stores immutable files under a flat key space
type Provider interface {
	Save(ctx context.Context, key string, r io.Reader, contentType string, size int64) error
	Open(ctx context.Context, key string) (io.ReadCloser, string, error)
	Delete(ctx context.Context, key string) error
}

// New picks the S3 provider when a bucket is configured and the local disk otherwise
func New(ctx context.Context, c *config.Config) (Provider, error) {
	if c.S3Bucket == "" {
		zap.S().Infow("storing uploads on local disk", "dir", c.UploadDir)
		return NewLocal(c.UploadDir), nil
	}
	s3p, err := NewS3(ctx, S3Options{
		Bucket:   c.S3Bucket,
		Region:   c.S3Region,
		Endpoint: c.S3Endpoint,
	})
	if err != nil {
		return nil, err
	}
	zap.S().Infow("storing uploads in bucket", "bucket", c.S3Bucket, "endpoint", c.S3Endpoint)
	return s3p, nil
}

var (
	spaces  = regexp.MustCompile(`\s+`)
	illegal = regexp.MustCompile(`[^A-Za-z0-9._-]`)
)

// FileName builds the stored name for an upload: the unix millisecond
// timestamp, a dash, then the original base name with whitespace turned into
// underscores.
func FileName(now time.Time, original string) string {
	return fmt.Sprintf("%d-%s", now.UnixMilli(), SafeName(original))
}

// SafeName reduces a client supplied name to a single path element
func SafeName(name string) string {
	name = filepath.Base(strings.ReplaceAll(name, "\\", "/"))
	name = spaces.ReplaceAllString(strings.TrimSpace(name), "_")
	name = illegal.ReplaceAllString(name, "")
	if name == "" || name == "." || name == ".." {
		return "file"
	}
	return name
}

// PublicPath is the path a case document refers to its file by
func PublicPath(fileName string) string {
	return PublicPrefix + fileName
}

// KeyOf returns the storage key of a document path built by PublicPath
func KeyOf(path string) string {
	return strings.TrimPrefix(path, PublicPrefix)
}

// ValidateUpload checks the extension, declared MIME type and size of an upload
func ValidateUpload(name, contentType string, size int64) error {
	if size > MaxUploadSize {
		return fmt.Errorf("%s exceeds the 10MB limit", name)
	}
	ext := strings.ToLower(filepath.Ext(name))
	types, ok := allowed[ext]
	if !ok {
		return fmt.Errorf("%s: only .pdf, .jpg, .jpeg and .png files are allowed", name)
	}
	ct := strings.ToLower(strings.TrimSpace(strings.Split(contentType, ";")[0]))
	for _, t := range types {
		if t == ct {
			return nil
		}
	}
	return fmt.Errorf("%s: content type %q does not match its extension", name, contentType)
}

// ContentType guesses the MIME type of a stored file from its extension
func ContentType(name string) string {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".pdf":
		return "application/pdf"
	case ".png":
		return "image/png"
	case ".jpg", ".jpeg":
		return "image/jpeg"
	}
	return "application/octet-stream"
}
