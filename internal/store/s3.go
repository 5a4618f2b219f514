package store

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"github.com/tyler180/nfl-rushing-stats/internal/export"
)

type S3API interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// Publisher uploads CSV artifacts under {prefix}/season={year}/playerstats.csv.
type Publisher struct {
	cl     S3API
	bucket string
	prefix string
}

func NewPublisher(cl S3API, bucket, prefix string) *Publisher {
	return &Publisher{cl: cl, bucket: bucket, prefix: strings.Trim(prefix, "/")}
}

func (p *Publisher) Key(year int) string {
	k := fmt.Sprintf("season=%d/%s", year, export.Filename)
	if p.prefix == "" {
		return k
	}
	return p.prefix + "/" + k
}

// Root is the s3:// folder holding every season=N/ partition.
func (p *Publisher) Root() string {
	if p.prefix == "" {
		return fmt.Sprintf("s3://%s/", p.bucket)
	}
	return fmt.Sprintf("s3://%s/%s/", p.bucket, p.prefix)
}

// Publish writes the artifact's CSV and returns the object key.
func (p *Publisher) Publish(ctx context.Context, year int, a export.Artifact) (string, error) {
	key := p.Key(year)
	_, err := p.cl.PutObject(ctx, &s3.PutObjectInput{
		Bucket:             aws.String(p.bucket),
		Key:                aws.String(key),
		Body:               bytes.NewReader([]byte(a.CSV)),
		ContentType:        aws.String("text/csv"),
		ContentDisposition: aws.String(fmt.Sprintf(`attachment; filename="%s"`, a.Filename)),
	})
	if err != nil {
		return "", fmt.Errorf("put s3://%s/%s: %w", p.bucket, key, err)
	}
	return key, nil
}
