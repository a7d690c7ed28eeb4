package source

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

func TestParseS3URI(t *testing.T) {
	tests := []struct {
		uri         string
		bucket, key string
		wantErr     bool
	}{
		{"s3://casos/2024/rede.csv", "casos", "2024/rede.csv", false},
		{"s3://casos/a.xlsx", "casos", "a.xlsx", false},
		{"s3://casos", "", "", true},
		{"s3://casos/", "", "", true},
		{"s3:///a.csv", "", "", true},
		{"s3://casos/pasta/", "", "", true},
		{"/tmp/a.csv", "", "", true},
	}
	for _, tt := range tests {
		bucket, key, err := ParseS3URI(tt.uri)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseS3URI(%q) error = %v, wantErr %v", tt.uri, err, tt.wantErr)
			continue
		}
		if err != nil && !errors.Is(err, ErrInvalidURI) {
			t.Errorf("ParseS3URI(%q) error = %v, want ErrInvalidURI", tt.uri, err)
		}
		if bucket != tt.bucket || key != tt.key {
			t.Errorf("ParseS3URI(%q) = %q, %q", tt.uri, bucket, key)
		}
	}
}

func TestLoadLocal(t *testing.T) {
	dir := t.TempDir()
	p := filepath.Join(dir, "rede.csv")
	if err := os.WriteFile(p, []byte("origem,destino\na,b\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	f, err := NewLoader(S3Config{}).Load(context.Background(), p)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if f.Name != "rede.csv" || f.Type != "text/csv" || f.Size != 19 || string(f.Data) != "origem,destino\na,b\n" {
		t.Errorf("Load = %+v", f)
	}

	if _, err := LoadLocal(dir); err == nil {
		t.Errorf("loading a directory should fail")
	}
	if _, err := LoadLocal(filepath.Join(dir, "missing.csv")); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("missing file error = %v", err)
	}
}

type fakeS3 struct {
	body     string
	ctype    string
	err      error
	bucket   string
	key      string
	modified time.Time
}

func (f *fakeS3) GetObject(ctx context.Context, in *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	f.bucket, f.key = aws.ToString(in.Bucket), aws.ToString(in.Key)
	if f.err != nil {
		return nil, f.err
	}
	out := &s3.GetObjectOutput{
		Body:         io.NopCloser(strings.NewReader(f.body)),
		LastModified: aws.Time(f.modified),
	}
	if f.ctype != "" {
		out.ContentType = aws.String(f.ctype)
	}
	return out, nil
}

func TestLoadS3(t *testing.T) {
	mod := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	fake := &fakeS3{body: "{\"a\":1}", ctype: "binary/octet-stream", modified: mod}
	l := NewLoader(S3Config{}, WithS3Client(fake))

	f, err := l.Load(context.Background(), "s3://casos/2024/dados.json")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if fake.bucket != "casos" || fake.key != "2024/dados.json" {
		t.Errorf("requested %s/%s", fake.bucket, fake.key)
	}
	if f.Name != "dados.json" || f.Type != "application/json" || !f.LastModified.Equal(mod) {
		t.Errorf("Load = %+v", f)
	}

	fake.err = errors.New("NoSuchKey")
	if _, err := l.Load(context.Background(), "s3://casos/x.csv"); err == nil || !strings.Contains(err.Error(), "NoSuchKey") {
		t.Errorf("error = %v, want wrapped NoSuchKey", err)
	}
}
