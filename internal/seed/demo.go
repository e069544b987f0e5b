package seed

import (
	"context"
	"fmt"
	"io"
	"math/rand"

	"solidarity/internal/utils"
	"solidarity/pkg/types"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geo"
)

type UserStore interface {
	UpsertIdentity(ctx context.Context, subject, username, email string) (*types.User, error)
}

type NeedStore interface {
	CreateNeed(ctx context.Context, need *types.Need) error
}

type OfferStore interface {
	CreateOffer(ctx context.Context, offer *types.Offer) error
}

// DemoStores groups the writers the demo seed needs.
type DemoStores struct {
	Users  UserStore
	Needs  NeedStore
	Offers OfferStore
}

type fakeUser struct {
	Subject  string
	Username string
	Email    string
}

var fakeUsers = []fakeUser{
	{Subject: "seed-ana", Username: "ana", Email: "ana.seed@example.com"},
	{Subject: "seed-bruno", Username: "bruno", Email: "bruno.seed@example.com"},
	{Subject: "seed-carla", Username: "carla", Email: "carla.seed@example.com"},
	{Subject: "seed-duarte", Username: "duarte", Email: "duarte.seed@example.com"},
	{Subject: "seed-eva", Username: "eva", Email: "eva.seed@example.com"},
}

var fakeTitles = map[string][]string{
	"medical":   {"Insulin running low", "Need a ride to dialysis", "First aid kit"},
	"shelter":   {"Roof damaged, need a bed for two nights", "Spare room available"},
	"food":      {"Hot meals for a family of four", "Groceries for neighbour"},
	"transport": {"Van available for evacuation", "Lift to the relief centre"},
	"pets":      {"Dog food", "Foster a cat for a week"},
	"repairs":   {"Fallen branches blocking the door", "Tarp for a broken window"},
}

type weightedUrgency struct {
	Urgency types.Urgency
	Weight  int
}

var weightedUrgencies = []weightedUrgency{
	{Urgency: types.UrgencyCritical, Weight: 10},
	{Urgency: types.UrgencyHigh, Weight: 25},
	{Urgency: types.UrgencyMedium, Weight: 40},
	{Urgency: types.UrgencyLow, Weight: 25},
}

// SeedDemo creates count needs and count offers scattered within spreadM
// metres of center, owned by a handful of fake users. Categories must be
// seeded first.
func SeedDemo(ctx context.Context, stores DemoStores, center orb.Point, spreadM float64, count int, rng *rand.Rand, out io.Writer) error {
	if count <= 0 {
		fmt.Fprintln(out, "Skipping demo seed because count <= 0")
		return nil
	}

	userIDs := make([]int64, 0, len(fakeUsers))
	for _, fake := range fakeUsers {
		user, err := stores.Users.UpsertIdentity(ctx, fake.Subject, fake.Username, fake.Email)
		if err != nil {
			return fmt.Errorf("failed to upsert fake user %s: %w", fake.Subject, err)
		}
		userIDs = append(userIDs, user.ID)
	}
	fmt.Fprintf(out, "Fake users seeded: %d upserted\n", len(userIDs))

	categories := make([]string, 0, len(fakeTitles))
	for _, cat := range Categories {
		if _, ok := fakeTitles[cat.Code]; ok {
			categories = append(categories, cat.Code)
		}
	}

	needs, offers := 0, 0
	for i := 0; i < count; i++ {
		category := categories[rng.Intn(len(categories))]
		need := &types.Need{
			UserID:   userIDs[rng.Intn(len(userIDs))],
			Title:    "[seed] " + pickTitle(rng, category),
			Category: category,
			Urgency:  pickWeightedUrgency(rng),
			Status:   types.StatusActive,
			Location: scatter(rng, center, spreadM),
		}
		if err := stores.Needs.CreateNeed(ctx, need); err != nil {
			return fmt.Errorf("failed to create fake need %d: %w", i+1, err)
		}
		needs++

		category = categories[rng.Intn(len(categories))]
		offer := &types.Offer{
			UserID:      userIDs[rng.Intn(len(userIDs))],
			Title:       "[seed] " + pickTitle(rng, category),
			Description: utils.StringPtr("Seeded demo offer"),
			Category:    category,
			Status:      types.StatusActive,
			Location:    scatter(rng, center, spreadM),
		}
		if err := stores.Offers.CreateOffer(ctx, offer); err != nil {
			return fmt.Errorf("failed to create fake offer %d: %w", i+1, err)
		}
		offers++
	}

	fmt.Fprintf(out, "Demo seeded: %d needs, %d offers\n", needs, offers)
	return nil
}

func pickTitle(rng *rand.Rand, category string) string {
	titles := fakeTitles[category]
	return titles[rng.Intn(len(titles))]
}

func pickWeightedUrgency(rng *rand.Rand) types.Urgency {
	total := 0
	for _, item := range weightedUrgencies {
		total += item.Weight
	}

	roll := rng.Intn(total)
	running := 0
	for _, item := range weightedUrgencies {
		running += item.Weight
		if roll < running {
			return item.Urgency
		}
	}

	return types.UrgencyMedium
}

func scatter(rng *rand.Rand, center orb.Point, spreadM float64) types.Location {
	p := geo.PointAtBearingAndDistance(center, rng.Float64()*360, rng.Float64()*spreadM)
	return types.LocationFromPoint(p)
}
