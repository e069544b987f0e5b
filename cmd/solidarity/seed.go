package main

import (
	"context"
	"fmt"
	"math/rand"
	"os"
	"time"

	"solidarity/internal/db"
	"solidarity/internal/seed"
	"solidarity/internal/store"

	"github.com/paulmach/orb"
	"github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"
)

var migrateCommand = &cli.Command{
	Name:  "migrate",
	Usage: "Apply the database schema",
	Action: func(c *cli.Context) error {
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

		if err := db.Migrate(ctx, pool); err != nil {
			return err
		}

		logrus.Info("Schema applied")
		return nil
	},
}

var seedCommand = &cli.Command{
	Name:  "seed",
	Usage: "Seed the database with categories, urgency levels and optional demo data",
	Flags: []cli.Flag{
		&cli.IntFlag{
			Name:  "demo",
			Usage: "Number of demo needs and offers to create",
		},
		&cli.Float64Flag{
			Name:  "lon",
			Usage: "Longitude of the demo centre",
			Value: -9.1393,
		},
		&cli.Float64Flag{
			Name:  "lat",
			Usage: "Latitude of the demo centre",
			Value: 38.7223,
		},
		&cli.Float64Flag{
			Name:  "spread",
			Usage: "Demo scatter radius in metres",
			Value: 3000,
		},
	},
	Action: func(c *cli.Context) error {
		cfg, err := loadConfig(c)
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}

		ctx := context.Background()

		// Connect to database
		pool, err := db.Connect(ctx, cfg)
		if err != nil {
			return fmt.Errorf("failed to connect to database: %w", err)
		}
		defer pool.Close()

		logrus.Info("Connected to database")

		logrus.Info("Seeding categories...")
		if err := seed.SeedCategories(ctx, store.NewCategoryRepository(pool), os.Stdout); err != nil {
			return fmt.Errorf("failed to seed categories: %w", err)
		}
		logrus.Info("Categories seeded successfully")

		if c.Int("demo") <= 0 {
			return nil
		}

		stores := seed.DemoStores{
			Users:  store.NewUserRepository(pool),
			Needs:  store.NewNeedRepository(pool),
			Offers: store.NewOfferRepository(pool),
		}
		center := orb.Point{c.Float64("lon"), c.Float64("lat")}
		rng := rand.New(rand.NewSource(time.Now().UnixNano()))

		return seed.SeedDemo(ctx, stores, center, c.Float64("spread"), c.Int("demo"), rng, os.Stdout)
	},
}
