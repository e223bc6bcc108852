package blob

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/researchgate/crossref-snapshot-mount/internal/core/domain"
)

// ErrTransientList indicates that the remote listing call itself failed.
// The run must abort before any submission; the caller decides whether to
// retry the listing.
var ErrTransientList = errors.New("transient list error")

// Config holds blob store connection settings.
type Config struct {
	Region   string
	Endpoint string // optional, for S3-compatible stores (GCS interop, MinIO)
}

// Store provides read/write access to named objects under the snapshot
// bucket. Listing is the source of work items; Upload is the destination of
// normalized output.
type Store struct {
	client *s3.Client
}

// New creates a blob store client from the ambient credential chain.
func New(ctx context.Context, cfg Config) (*Store, error) {
	var loadOpts []func(*awsconfig.LoadOptions) error
	if cfg.Region != "" {
		loadOpts = append(loadOpts, awsconfig.WithRegion(cfg.Region))
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to load blob store config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg, func(o *s3.Options) {
		if cfg.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Endpoint)
			o.UsePathStyle = true
		}
	})

	return &Store{client: client}, nil
}

// List enumerates objects under prefix whose key carries the suffix, in the
// store's natural listing order. A failed page fetch wraps ErrTransientList.
func (s *Store) List(ctx context.Context, bucket, prefix, suffix string) ([]domain.WorkItem, error) {
	paginator := s3.NewListObjectsV2Paginator(s.client, &s3.ListObjectsV2Input{
		Bucket: aws.String(bucket),
		Prefix: aws.String(prefix),
	})

	var items []domain.WorkItem
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("%w: list %s/%s: %v", ErrTransientList, bucket, prefix, err)
		}
		for _, obj := range page.Contents {
			key := aws.ToString(obj.Key)
			if suffix != "" && !strings.HasSuffix(key, suffix) {
				continue
			}
			items = append(items, domain.WorkItem{Bucket: bucket, Key: key})
		}
	}

	return items, nil
}

// Download writes the object's contents to w.
func (s *Store) Download(ctx context.Context, bucket, key string, w io.WriterAt) (int64, error) {
	downloader := manager.NewDownloader(s.client)
	n, err := downloader.Download(ctx, w, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return 0, fmt.Errorf("download %s/%s: %w", bucket, key, err)
	}
	return n, nil
}

// Upload stores r as the named object.
func (s *Store) Upload(ctx context.Context, bucket, key string, r io.Reader) error {
	uploader := manager.NewUploader(s.client)
	_, err := uploader.Upload(ctx, &s3.PutObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
		Body:   r,
	})
	if err != nil {
		return fmt.Errorf("upload %s/%s: %w", bucket, key, err)
	}
	return nil
}
