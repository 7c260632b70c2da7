// Package snapshot periodically exports the locker table as a JSON document
// to an S3-compatible bucket (AWS S3, MinIO).
package snapshot

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"path"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/dmitrijs2005/gophlocker/internal/clock"
	"github.com/dmitrijs2005/gophlocker/internal/logging"
	"github.com/dmitrijs2005/gophlocker/internal/server/metrics"
	"github.com/dmitrijs2005/gophlocker/internal/server/models"
)

var (
	loadDefaultAWSConfig  = config.LoadDefaultConfig
	newS3ClientFromConfig = func(cfg aws.Config, optFns ...func(*s3.Options)) *s3.Client {
		return s3.NewFromConfig(cfg, optFns...)
	}
)

const (
	DefaultInterval = time.Minute
	keyTimeFormat   = "20060102T150405Z"
)

// S3Config locates the bucket. Empty credentials fall back to the default
// AWS credential chain.
type S3Config struct {
	Region       string
	BaseEndpoint string
	AccessKey    string
	SecretKey    string
}

// NewClient builds an S3 client. A custom endpoint switches to path-style
// addressing, which MinIO expects.
func NewClient(ctx context.Context, c S3Config) (*s3.Client, error) {
	opts := []func(*config.LoadOptions) error{config.WithRegion(c.Region)}
	if c.AccessKey != "" {
		opts = append(opts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(c.AccessKey, c.SecretKey, ""),
		))
	}

	cfg, err := loadDefaultAWSConfig(ctx, opts...)
	if err != nil {
		return nil, err
	}

	return newS3ClientFromConfig(cfg, func(o *s3.Options) {
		if c.BaseEndpoint != "" {
			o.BaseEndpoint = aws.String(c.BaseEndpoint)
			o.UsePathStyle = true
		}
	}), nil
}

// Uploader is the one S3 call the snapshotter makes.
type Uploader interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// Source lists the lockers to export.
type Source interface {
	List() []models.LockerView
}

type Options struct {
	Bucket   string
	Prefix   string
	Interval time.Duration
	Clock    clock.Clock
	Logger   logging.Logger
	Metrics  *metrics.Metrics
}

// Document is the exported JSON.
type Document struct {
	TakenAt time.Time `json:"taken_at"`
	Lockers []Locker  `json:"lockers"`
}

type Locker struct {
	ID         int    `json:"id"`
	Status     string `json:"status"`
	Occupied   bool   `json:"occupied"`
	Closed     bool   `json:"closed"`
	DoorClosed bool   `json:"door_closed"`
	OwnerID    *int64 `json:"owner_id"`
	Phase      string `json:"phase"`
}

type Snapshotter struct {
	source   Source
	uploader Uploader
	bucket   string
	prefix   string
	interval time.Duration
	clock    clock.Clock
	log      logging.Logger
	metrics  *metrics.Metrics
}

func New(source Source, uploader Uploader, opts Options) *Snapshotter {
	s := &Snapshotter{
		source:   source,
		uploader: uploader,
		bucket:   opts.Bucket,
		prefix:   opts.Prefix,
		interval: opts.Interval,
		clock:    opts.Clock,
		log:      opts.Logger,
		metrics:  opts.Metrics,
	}
	if s.interval <= 0 {
		s.interval = DefaultInterval
	}
	if s.clock == nil {
		s.clock = clock.Real{}
	}
	if s.log == nil {
		s.log = logging.Nop{}
	}
	return s
}

// Key is the object key for a snapshot taken at t.
func (s *Snapshotter) Key(t time.Time) string {
	return path.Join(s.prefix, "lockers-"+t.UTC().Format(keyTimeFormat)+".json")
}

// Snapshot uploads the current table once and returns the object key.
func (s *Snapshotter) Snapshot(ctx context.Context) (string, error) {
	now := s.clock.Now()
	doc := Document{TakenAt: now.UTC()}
	for _, v := range s.source.List() {
		doc.Lockers = append(doc.Lockers, Locker{
			ID:         v.ID,
			Status:     v.Status.String(),
			Occupied:   v.Occupied,
			Closed:     v.Closed,
			DoorClosed: v.DoorClosed,
			OwnerID:    v.OwnerID,
			Phase:      v.Phase.String(),
		})
	}

	body, err := json.Marshal(doc)
	if err != nil {
		return "", err
	}

	key := s.Key(now)
	_, err = s.uploader.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(body),
		ContentType: aws.String("application/json"),
	})
	s.metrics.Snapshot(err)
	if err != nil {
		return "", fmt.Errorf("put s3://%s/%s: %w", s.bucket, key, err)
	}
	return key, nil
}

// Run takes a snapshot every interval until ctx is cancelled. Upload
// failures are logged and the next interval tries again.
func (s *Snapshotter) Run(ctx context.Context) error {
	s.log.Info(ctx, "snapshots enabled", "bucket", s.bucket, "prefix", s.prefix, "interval", s.interval.String())
	for {
		if err := clock.Wait(ctx, s.clock, s.interval); err != nil {
			return nil
		}
		key, err := s.Snapshot(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			s.log.Warn(ctx, "snapshot failed", "error", err)
			continue
		}
		s.log.Debug(ctx, "snapshot written", "key", key)
	}
}
