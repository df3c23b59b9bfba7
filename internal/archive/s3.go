package archive

import (
	"bytes"
	"context"
	"fmt"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsCfg "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/bytedance/sonic"
	"github.com/teamhub-dev/teamhub/internal/config"
	"github.com/teamhub-dev/teamhub/internal/models"
)

// Uploader is the part of manager.Uploader the archiver needs.
type Uploader interface {
	Upload(ctx context.Context, input *s3.PutObjectInput, opts ...func(*manager.Uploader)) (*manager.UploadOutput, error)
}

// S3Archiver stores swept chat messages as JSON objects before they are deleted.
type S3Archiver struct {
	uploader Uploader
	bucket   string
	prefix   string
	now      func() time.Time
}

func NewS3Archiver(uploader Uploader, bucket, prefix string) *S3Archiver {
	return &S3Archiver{uploader: uploader, bucket: bucket, prefix: prefix, now: time.Now}
}

func NewS3Uploader(ctx context.Context, cfg config.S3Cfg) (*manager.Uploader, error) {
	loadOpts := []func(*awsCfg.LoadOptions) error{
		awsCfg.WithRegion(cfg.Region),
	}
	if cfg.AccessKey != "" && cfg.SecretKey != "" {
		loadOpts = append(loadOpts, awsCfg.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, ""),
		))
	}

	acfg, err := awsCfg.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, err
	}

	client := s3.NewFromConfig(acfg, func(o *s3.Options) {
		if ep := strings.TrimSpace(cfg.Endpoint); ep != "" {
			if !strings.HasPrefix(ep, "http://") && !strings.HasPrefix(ep, "https://") {
				ep = "https://" + ep
			}
			if u, uerr := url.Parse(ep); uerr == nil {
				o.BaseEndpoint = aws.String(u.String())
			}
		}
		o.UsePathStyle = cfg.UsePathStyle
	})

	return manager.NewUploader(client), nil
}

type archiveFile struct {
	ArchivedAt time.Time            `json:"archived_at"`
	Count      int                  `json:"count"`
	Messages   []models.ChatMessage `json:"messages"`
}

// ArchiveChat uploads one object per sweep: <prefix>/<room>/<date>/<unix>.json
func (a *S3Archiver) ArchiveChat(ctx context.Context, room string, messages []models.ChatMessage) (string, error) {
	if len(messages) == 0 {
		return "", nil
	}

	now := a.now().UTC()
	body, err := sonic.Marshal(archiveFile{ArchivedAt: now, Count: len(messages), Messages: messages})
	if err != nil {
		return "", err
	}

	key := path.Join(a.prefix, strings.ReplaceAll(room, ":", "-"), now.Format("2006-01-02"), fmt.Sprintf("%d.json", now.UnixNano()))
	_, err = a.uploader.Upload(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(a.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(body),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		return "", fmt.Errorf("upload %s: %w", key, err)
	}
	return key, nil
}
