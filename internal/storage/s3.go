package storage

import (
	"bytes"
	"context"
	"fmt"
	"path"
	"time"

	"solidarity/internal/features"
	"solidarity/pkg/types"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/paulmach/orb/geojson"
)

const geoJSONContentType = "application/geo+json"

type s3API interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// Source is what a snapshot export reads from.
type Source interface {
	FindUncoveredNeeds(ctx context.Context, radius float64) (*types.UncoveredNeeds, error)
	AreaStats(ctx context.Context, adminLevel *int) (*types.AreaStatsSummary, error)
}

// Exporter writes GeoJSON FeatureCollections to an S3 bucket
type Exporter struct {
	client s3API
	bucket string
}

func NewS3Exporter(cfg aws.Config, bucket string) *Exporter {
	return &Exporter{client: s3.NewFromConfig(cfg), bucket: bucket}
}

// PutCollection uploads fc under key and returns the key on success
func (e *Exporter) PutCollection(ctx context.Context, key string, fc *geojson.FeatureCollection) (string, error) {
	body, err := features.Marshal(fc)
	if err != nil {
		return "", fmt.Errorf("failed to encode %s: %w", key, err)
	}

	_, err = e.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(e.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(body),
		ContentType: aws.String(geoJSONContentType),
	})
	if err != nil {
		return "", fmt.Errorf("failed to upload %s to %s: %w", key, e.bucket, err)
	}

	return key, nil
}

// ExportSnapshot writes the uncovered needs for radius and the area gap
// scores under exports/<timestamp>/. It returns the keys written.
func (e *Exporter) ExportSnapshot(ctx context.Context, src Source, radius float64, adminLevel *int, at time.Time) ([]string, error) {
	prefix := SnapshotPrefix(at)

	uncovered, err := src.FindUncoveredNeeds(ctx, radius)
	if err != nil {
		return nil, err
	}

	stats, err := src.AreaStats(ctx, adminLevel)
	if err != nil {
		return nil, err
	}
	areas, err := features.AreaStats(stats)
	if err != nil {
		return nil, fmt.Errorf("failed to build area features: %w", err)
	}

	var keys []string
	collections := []struct {
		name string
		fc   *geojson.FeatureCollection
	}{
		{"uncovered-needs.geojson", features.UncoveredNeeds(uncovered)},
		{"area-stats.geojson", areas},
	}
	for _, c := range collections {
		key, err := e.PutCollection(ctx, path.Join(prefix, c.name), c.fc)
		if err != nil {
			return keys, err
		}
		keys = append(keys, key)
	}

	return keys, nil
}

func SnapshotPrefix(at time.Time) string {
	return path.Join("exports", at.UTC().Format("20060102T150405Z"))
}
