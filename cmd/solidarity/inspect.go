package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"solidarity/internal/db"
	"solidarity/internal/features"
	"solidarity/internal/matching"
	"solidarity/internal/storage"
	"solidarity/pkg/types"

	"github.com/k0kubun/pp/v3"
	"github.com/paulmach/orb/geojson"
	"github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"
)

var radiusFlag = &cli.Float64Flag{
	Name:  "radius",
	Usage: "Search radius in metres (defaults to DEFAULT_RADIUS_M)",
}

var geojsonFlag = &cli.BoolFlag{
	Name:  "geojson",
	Usage: "Print a GeoJSON FeatureCollection instead of the raw result",
}

var needFlag = &cli.Int64Flag{
	Name:     "need",
	Usage:    "Need id",
	Required: true,
}

// withEngine runs fn against a read-only engine. No notifier is attached,
// so these commands can never send anything.
func withEngine(c *cli.Context, fn func(ctx context.Context, cfg *types.Config, engine *matching.Engine) error) error {
	cfg, err := loadConfig(c)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	ctx := context.Background()

	pool, err := db.Connect(ctx, cfg)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer pool.Close()

	facilityMap, err := loadFacilityMap(cfg)
	if err != nil {
		return err
	}

	logger := newLogger(cfg)
	engine := matching.New(logger, newRepositories(pool), nil, facilityMap, engineOptions(cfg))

	return fn(ctx, cfg, engine)
}

func radius(c *cli.Context, cfg *types.Config) float64 {
	if c.IsSet("radius") {
		return c.Float64("radius")
	}
	return cfg.DefaultRadiusM
}

func printResult(c *cli.Context, result any, fc *geojson.FeatureCollection) error {
	if !c.Bool("geojson") {
		pp.Println(result)
		return nil
	}

	body, err := features.Marshal(fc)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(os.Stdout, string(body))
	return err
}

var uncoveredCommand = &cli.Command{
	Name:  "uncovered",
	Usage: "List active needs with no matching offer within the radius",
	Flags: []cli.Flag{radiusFlag, geojsonFlag},
	Action: func(c *cli.Context) error {
		return withEngine(c, func(ctx context.Context, cfg *types.Config, engine *matching.Engine) error {
			result, err := engine.FindUncoveredNeeds(ctx, radius(c, cfg))
			if err != nil {
				return err
			}
			return printResult(c, result, features.UncoveredNeeds(result))
		})
	},
}

var nearbyCommand = &cli.Command{
	Name:  "nearby",
	Usage: "List offers for a need, tagged nearby or related",
	Flags: []cli.Flag{needFlag, radiusFlag, geojsonFlag},
	Action: func(c *cli.Context) error {
		return withEngine(c, func(ctx context.Context, cfg *types.Config, engine *matching.Engine) error {
			result, err := engine.FindNearbyOffers(ctx, c.Int64("need"), radius(c, cfg))
			if err != nil {
				return err
			}
			return printResult(c, result, features.NearbyOffers(result))
		})
	},
}

var facilitiesCommand = &cli.Command{
	Name:  "facilities",
	Usage: "List the facilities nearest to a need",
	Flags: []cli.Flag{
		needFlag,
		&cli.StringFlag{Name: "category", Usage: "Override the need's category"},
		&cli.StringFlag{Name: "type", Usage: "Literal facility type"},
		&cli.IntFlag{Name: "limit", Usage: "Maximum facilities to return"},
		geojsonFlag,
	},
	Action: func(c *cli.Context) error {
		return withEngine(c, func(ctx context.Context, cfg *types.Config, engine *matching.Engine) error {
			result, err := engine.FindNearestFacilities(ctx, &types.FacilityQuery{
				NeedID:   c.Int64("need"),
				Category: c.String("category"),
				Type:     c.String("type"),
				Limit:    c.Int("limit"),
			})
			if err != nil {
				return err
			}
			return printResult(c, result, features.NearestFacilities(result))
		})
	},
}

var exportCommand = &cli.Command{
	Name:  "export",
	Usage: "Write uncovered needs and area gap scores to EXPORT_BUCKET as GeoJSON",
	Flags: []cli.Flag{
		radiusFlag,
		&cli.IntFlag{Name: "admin-level", Usage: "Restrict area stats to one admin level"},
	},
	Action: func(c *cli.Context) error {
		return withEngine(c, func(ctx context.Context, cfg *types.Config, engine *matching.Engine) error {
			if cfg.ExportBucket == "" {
				return fmt.Errorf("set EXPORT_BUCKET")
			}

			awsConfig, err := loadAWSConfig(ctx)
			if err != nil {
				return err
			}

			var adminLevel *int
			if c.IsSet("admin-level") {
				level := c.Int("admin-level")
				adminLevel = &level
			}

			exporter := storage.NewS3Exporter(awsConfig, cfg.ExportBucket)
			keys, err := exporter.ExportSnapshot(ctx, engine, radius(c, cfg), adminLevel, time.Now())
			if err != nil {
				return err
			}

			for _, key := range keys {
				logrus.WithField("bucket", cfg.ExportBucket).WithField("key", key).Info("exported")
			}
			return nil
		})
	},
}
