// Package source loads input files from the local disk or from S3-compatible
// object storage.
package source

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"os"
	"path"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/ritzau/link-analyzer/pkg/model"
	"golang.org/x/sync/singleflight"
)

// MaxFileSize caps how much of one input is read.
const MaxFileSize = 64 << 20

const s3Scheme = "s3://"

var (
	ErrTooLarge   = errors.New("file exceeds the size limit")
	ErrInvalidURI = errors.New("invalid s3 uri")
)

// S3Config locates the object store. Empty fields fall back to the AWS
// default configuration chain.
type S3Config struct {
	Region    string
	Endpoint  string
	AccessKey string
	SecretKey string
}

// ObjectGetter is the slice of the S3 client the loader uses.
type ObjectGetter interface {
	GetObject(ctx context.Context, params *s3.GetObjectInput, optFns ...func(*s3.Options)) (*s3.GetObjectOutput, error)
}

// Loader reads local paths and s3://bucket/key URIs
type Loader struct {
	cfg S3Config

	clientOnce sync.Once
	client     ObjectGetter
	clientErr  error

	group singleflight.Group
}

// Option configures a Loader
type Option func(*Loader)

// WithS3Client uses c instead of building a client from the config.
func WithS3Client(c ObjectGetter) Option {
	return func(l *Loader) {
		l.clientOnce.Do(func() { l.client = c })
	}
}

func NewLoader(cfg S3Config, opts ...Option) *Loader {
	l := &Loader{cfg: cfg}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// IsS3 reports whether location is an s3:// URI.
func IsS3(location string) bool {
	return strings.HasPrefix(location, s3Scheme)
}

// ParseS3URI splits s3://bucket/key.
func ParseS3URI(uri string) (bucket, key string, err error) {
	rest, ok := strings.CutPrefix(uri, s3Scheme)
	if !ok {
		return "", "", fmt.Errorf("%w: %q", ErrInvalidURI, uri)
	}
	bucket, key, _ = strings.Cut(rest, "/")
	if bucket == "" || key == "" || strings.HasSuffix(key, "/") {
		return "", "", fmt.Errorf("%w: %q", ErrInvalidURI, uri)
	}
	return bucket, key, nil
}

// Load reads the file at location. Concurrent loads of one location share
// a single read.
func (l *Loader) Load(ctx context.Context, location string) (model.File, error) {
	v, err, _ := l.group.Do(location, func() (any, error) {
		if IsS3(location) {
			return l.loadS3(ctx, location)
		}
		return LoadLocal(location)
	})
	if err != nil {
		return model.File{}, err
	}
	return v.(model.File), nil
}

// LoadLocal reads a file from disk.
func LoadLocal(p string) (model.File, error) {
	info, err := os.Stat(p)
	if err != nil {
		return model.File{}, err
	}
	if info.IsDir() {
		return model.File{}, fmt.Errorf("%s is a directory", p)
	}
	if info.Size() > MaxFileSize {
		return model.File{}, fmt.Errorf("%s: %w", p, ErrTooLarge)
	}
	data, err := os.ReadFile(p)
	if err != nil {
		return model.File{}, err
	}
	name := filepath.Base(p)
	return model.File{
		Name:         name,
		Type:         mimeType(name),
		Size:         int64(len(data)),
		LastModified: info.ModTime(),
		Data:         data,
	}, nil
}

func (l *Loader) loadS3(ctx context.Context, uri string) (model.File, error) {
	bucket, key, err := ParseS3URI(uri)
	if err != nil {
		return model.File{}, err
	}
	client, err := l.s3Client(ctx)
	if err != nil {
		return model.File{}, err
	}

	out, err := client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return model.File{}, fmt.Errorf("failed to get %s from S3: %w", uri, err)
	}
	defer out.Body.Close()

	buf := new(bytes.Buffer)
	if _, err := io.Copy(buf, io.LimitReader(out.Body, MaxFileSize+1)); err != nil {
		return model.File{}, fmt.Errorf("failed to read %s: %w", uri, err)
	}
	if buf.Len() > MaxFileSize {
		return model.File{}, fmt.Errorf("%s: %w", uri, ErrTooLarge)
	}

	name := path.Base(key)
	ct := aws.ToString(out.ContentType)
	if ct == "" || ct == "binary/octet-stream" || ct == "application/octet-stream" {
		ct = mimeType(name)
	}
	modified := time.Now()
	if out.LastModified != nil {
		modified = *out.LastModified
	}
	return model.File{
		Name:         name,
		Type:         ct,
		Size:         int64(buf.Len()),
		LastModified: modified,
		Data:         buf.Bytes(),
	}, nil
}

func (l *Loader) s3Client(ctx context.Context) (ObjectGetter, error) {
	l.clientOnce.Do(func() {
		var opts []func(*config.LoadOptions) error
		if l.cfg.Region != "" {
			opts = append(opts, config.WithRegion(l.cfg.Region))
		}
		if l.cfg.Endpoint != "" {
			opts = append(opts, config.WithBaseEndpoint(l.cfg.Endpoint))
		}
		if l.cfg.AccessKey != "" {
			opts = append(opts, config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
				l.cfg.AccessKey,
				l.cfg.SecretKey,
				"",
			)))
		}
		cfg, err := config.LoadDefaultConfig(ctx, opts...)
		if err != nil {
			l.clientErr = fmt.Errorf("loading aws config: %w", err)
			return
		}
		l.client = s3.NewFromConfig(cfg, func(o *s3.Options) {
			o.UsePathStyle = true
		})
	})
	return l.client, l.clientErr
}

var extraTypes = map[string]string{
	".csv":  "text/csv",
	".tsv":  "text/tab-separated-values",
	".txt":  "text/plain",
	".json": "application/json",
	".xlsx": "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
	".xls":  "application/vnd.ms-excel",
	".pdf":  "application/pdf",
	".docx": "application/vnd.openxmlformats-officedocument.wordprocessingml.document",
	".html": "text/html",
	".htm":  "text/html",
}

// mimeType guesses from the extension; system MIME tables vary, so the
// formats the analyzer reads are pinned.
func mimeType(name string) string {
	ext := strings.ToLower(filepath.Ext(name))
	if t, ok := extraTypes[ext]; ok {
		return t
	}
	return mime.TypeByExtension(ext)
}
