package s3blob

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/google/uuid"

	"github.com/shuweilin/twsignal/internal/domain"
)

// Archive stores one rendered report per run under
// reports/<year>/<month>/<date>-<run-id>.txt.
type Archive struct {
	client *s3.Client
	bucket string
}

// NewArchive creates an Archive writing to the client's configured bucket.
func NewArchive(c *Client) *Archive {
	return &Archive{
		client: c.S3(),
		bucket: c.Bucket(),
	}
}

func reportKey(tradeDate time.Time, runID uuid.UUID) string {
	return fmt.Sprintf("reports/%04d/%02d/%s-%s.txt",
		tradeDate.Year(), int(tradeDate.Month()),
		tradeDate.Format("2006-01-02"), runID)
}

// Store uploads the rendered report text for a run.
func (a *Archive) Store(ctx context.Context, tradeDate time.Time, runID uuid.UUID, rendered string) error {
	key := reportKey(tradeDate, runID)
	_, err := a.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(a.bucket),
		Key:         aws.String(key),
		Body:        strings.NewReader(rendered),
		ContentType: aws.String("text/plain; charset=utf-8"),
	})
	if err != nil {
		return fmt.Errorf("s3blob: store report %s: %w", key, err)
	}
	return nil
}

// Fetch downloads one archived report by object key, as returned by List or
// FindByDate.
func (a *Archive) Fetch(ctx context.Context, key string) (string, error) {
	buf := manager.NewWriteAtBuffer(nil)
	downloader := manager.NewDownloader(a.client)

	if _, err := downloader.Download(ctx, buf, &s3.GetObjectInput{
		Bucket: aws.String(a.bucket),
		Key:    aws.String(key),
	}); err != nil {
		return "", fmt.Errorf("s3blob: fetch report %s: %w", key, err)
	}
	return string(buf.Bytes()), nil
}

// List returns the archived report keys for one calendar month, oldest
// first. S3 list order is lexicographic, which matches date order under
// this key scheme.
func (a *Archive) List(ctx context.Context, year int, month time.Month) ([]string, error) {
	prefix := fmt.Sprintf("reports/%04d/%02d/", year, int(month))

	var keys []string
	paginator := s3.NewListObjectsV2Paginator(a.client, &s3.ListObjectsV2Input{
		Bucket: aws.String(a.bucket),
		Prefix: aws.String(prefix),
	})
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("s3blob: list reports %s: %w", prefix, err)
		}
		for _, obj := range page.Contents {
			keys = append(keys, aws.ToString(obj.Key))
		}
	}
	return keys, nil
}

// FindByDate returns the key of the newest archived report for one trade
// date, or domain.ErrNotFound when the date has none.
func (a *Archive) FindByDate(ctx context.Context, tradeDate time.Time) (string, error) {
	keys, err := a.List(ctx, tradeDate.Year(), tradeDate.Month())
	if err != nil {
		return "", err
	}
	key, ok := matchReportKey(keys, tradeDate)
	if !ok {
		return "", fmt.Errorf("s3blob: report for %s: %w",
			tradeDate.Format("2006-01-02"), domain.ErrNotFound)
	}
	return key, nil
}

// matchReportKey picks the last key for tradeDate from a lexicographically
// ordered month listing. Several runs may share a date; the last key wins
// only by run-ID ordering, which is as good as any tiebreak between
// identical-date runs.
func matchReportKey(keys []string, tradeDate time.Time) (string, bool) {
	prefix := fmt.Sprintf("reports/%04d/%02d/%s-",
		tradeDate.Year(), int(tradeDate.Month()), tradeDate.Format("2006-01-02"))

	var match string
	for _, k := range keys {
		if strings.HasPrefix(k, prefix) {
			match = k
		}
	}
	return match, match != ""
}
