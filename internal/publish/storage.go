// Package publish uploads finished tracks to S3.
package publish

import (
	"context"
	"fmt"
	"log/slog"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/spf13/afero"
	"go.opentelemetry.io/contrib/instrumentation/github.com/aws/aws-sdk-go-v2/otelaws"
)

// PutObjectAPI is the part of the S3 client used for uploads.
type PutObjectAPI interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, opts ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// Storage handles S3 uploads for audio files.
type Storage struct {
	client PutObjectAPI
	bucket string
	prefix string
	fs     afero.Fs
	logger *slog.Logger
}

// NewStorage creates an S3 storage handler. Keys are prefix + "/" + file name.
func NewStorage(client PutObjectAPI, bucket, prefix string, fs afero.Fs, logger *slog.Logger) *Storage {
	if fs == nil {
		fs = afero.NewOsFs()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Storage{client: client, bucket: bucket, prefix: strings.Trim(prefix, "/"), fs: fs, logger: logger}
}

// NewS3Client loads the AWS configuration for region and profile.
func NewS3Client(ctx context.Context, region, profile string) (*s3.Client, error) {
	var opts []func(*awsconfig.LoadOptions) error
	if region != "" {
		opts = append(opts, awsconfig.WithRegion(region))
	}
	if profile != "" {
		opts = append(opts, awsconfig.WithSharedConfigProfile(profile))
	}
	cfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	otelaws.AppendMiddlewares(&cfg.APIOptions)
	return s3.NewFromConfig(cfg), nil
}

// Key returns the object key for a local file.
func (s *Storage) Key(mp3Path string) string {
	name := filepath.Base(mp3Path)
	if s.prefix == "" {
		return name
	}
	return path.Join(s.prefix, name)
}

// Upload uploads an MP3 file to S3 and returns its key.
func (s *Storage) Upload(ctx context.Context, mp3Path string) (string, error) {
	key := s.Key(mp3Path)

	f, err := s.fs.Open(mp3Path)
	if err != nil {
		return "", fmt.Errorf("open mp3: %w", err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return "", fmt.Errorf("stat mp3: %w", err)
	}

	_, err = s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:        &s.bucket,
		Key:           &key,
		Body:          f,
		ContentType:   aws.String("audio/mpeg"),
		ContentLength: aws.Int64(info.Size()),
	})
	if err != nil {
		return "", fmt.Errorf("upload %s to s3://%s/%s: %w", mp3Path, s.bucket, key, err)
	}
	s.logger.InfoContext(ctx, "uploaded track", "file", mp3Path, "bucket", s.bucket, "key", key, "bytes", info.Size())
	return key, nil
}

// UploadDir uploads every *.mp3 directly inside dir in name order. Scratch
// and chunk files of an unfinished run are left out.
func (s *Storage) UploadDir(ctx context.Context, dir string) ([]string, error) {
	entries, err := afero.ReadDir(s.fs, dir)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", dir, err)
	}
	var files []string
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.EqualFold(filepath.Ext(name), ".mp3") || isWorkFile(name) {
			continue
		}
		files = append(files, filepath.Join(dir, name))
	}
	sort.Strings(files)

	var keys []string
	for _, f := range files {
		if err := ctx.Err(); err != nil {
			return keys, err
		}
		key, err := s.Upload(ctx, f)
		if err != nil {
			return keys, err
		}
		keys = append(keys, key)
	}
	return keys, nil
}

func isWorkFile(name string) bool {
	stem := strings.TrimSuffix(name, filepath.Ext(name))
	if strings.HasSuffix(stem, " audio") || strings.HasSuffix(stem, ".merging") {
		return true
	}
	if i := strings.LastIndex(stem, "_chunk"); i >= 0 {
		rest := stem[i+len("_chunk"):]
		return rest != "" && strings.Trim(rest, "0123456789") == ""
	}
	return false
}
