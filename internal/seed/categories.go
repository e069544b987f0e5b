package seed

import (
	"context"
	"fmt"
	"io"

	"solidarity/internal/utils"
	"solidarity/pkg/types"
)

type CategoryStore interface {
	UpsertCategory(ctx context.Context, category *types.Category) error
	UpsertUrgencyLevel(ctx context.Context, level *types.UrgencyLevel) error
	DeleteCategoriesExcept(ctx context.Context, codes []string) (int64, error)
}

// Categories is the source of truth for the category domain. Codes match
// the keys of the default facility map.
var Categories = []types.Category{
	{Code: "medical", Name: "Medical", Description: utils.StringPtr("First aid, medication, transport to care"), DisplayOrder: 1},
	{Code: "shelter", Name: "Shelter", Description: utils.StringPtr("Temporary housing and a safe place to sleep"), DisplayOrder: 2},
	{Code: "food", Name: "Food", Description: utils.StringPtr("Meals, groceries and drinking water"), DisplayOrder: 3},
	{Code: "transport", Name: "Transport", Description: utils.StringPtr("Rides, evacuation and fuel"), DisplayOrder: 4},
	{Code: "eldercare", Name: "Elder care", Description: utils.StringPtr("Support for older people living alone"), DisplayOrder: 5},
	{Code: "mental_health", Name: "Mental health", Description: utils.StringPtr("Someone to talk to, counselling"), DisplayOrder: 6},
	{Code: "childcare", Name: "Childcare", Description: utils.StringPtr("Looking after children, baby supplies"), DisplayOrder: 7},
	{Code: "pets", Name: "Pets", Description: utils.StringPtr("Pet food, fostering and vet visits"), DisplayOrder: 8},
	{Code: "safety", Name: "Safety", Description: utils.StringPtr("Securing property, escorts, hazard checks"), DisplayOrder: 9},
	{Code: "hygiene", Name: "Hygiene", Description: utils.StringPtr("Showers, laundry, sanitary products"), DisplayOrder: 10},
	{Code: "clothing", Name: "Clothing", Description: utils.StringPtr("Clothes, blankets and shoes"), DisplayOrder: 11},
	{Code: "repairs", Name: "Repairs", Description: utils.StringPtr("Small repairs and debris clearing"), DisplayOrder: 12},
	{Code: "education", Name: "Education", Description: utils.StringPtr("Tutoring and school supplies"), DisplayOrder: 13},
	{Code: "tech", Name: "Tech", Description: utils.StringPtr("Phones, chargers and connectivity"), DisplayOrder: 14},
	{Code: "legal", Name: "Legal", Description: utils.StringPtr("Paperwork, insurance claims, documents"), DisplayOrder: 15},
	{Code: "logistics", Name: "Logistics", Description: utils.StringPtr("Storage, moving and distributing goods"), DisplayOrder: 16},
	{Code: "translation", Name: "Translation", Description: utils.StringPtr("Interpreting and translating"), DisplayOrder: 17},
	{Code: "social", Name: "Social", Description: utils.StringPtr("Company and check-in visits"), DisplayOrder: 18},
	{Code: "donation", Name: "Donation", Description: utils.StringPtr("Goods given away"), DisplayOrder: 19},
	{Code: "other", Name: "Other", DisplayOrder: 20},
}

var UrgencyLevels = []types.UrgencyLevel{
	{Code: types.UrgencyCritical, Name: "Critical", Rank: 1},
	{Code: types.UrgencyHigh, Name: "High", Rank: 2},
	{Code: types.UrgencyMedium, Name: "Medium", Rank: 3},
	{Code: types.UrgencyLow, Name: "Low", Rank: 4},
}

// SeedCategories syncs the database with Categories and UrgencyLevels:
// - Inserts categories that don't exist
// - Updates categories that have changed
// - Deletes categories that aren't in the list
//
// Deleting a category still referenced by a need or offer fails on the
// foreign key, which aborts the sync.
func SeedCategories(ctx context.Context, repo CategoryStore, out io.Writer) error {
	fmt.Fprintln(out, "Starting category sync...")
	fmt.Fprintf(out, "  Seed list contains %d categories\n", len(Categories))

	codes := make([]string, 0, len(Categories))
	upserted := 0
	for _, cat := range Categories {
		fmt.Fprintf(out, "  Upserting category: %s (code: %s)\n", cat.Name, cat.Code)
		if err := repo.UpsertCategory(ctx, &cat); err != nil {
			return fmt.Errorf("failed to upsert category %s: %w", cat.Code, err)
		}
		codes = append(codes, cat.Code)
		upserted++
	}

	deleted, err := repo.DeleteCategoriesExcept(ctx, codes)
	if err != nil {
		return fmt.Errorf("failed to delete stale categories: %w", err)
	}

	for _, level := range UrgencyLevels {
		if err := repo.UpsertUrgencyLevel(ctx, &level); err != nil {
			return fmt.Errorf("failed to upsert urgency level %s: %w", level.Code, err)
		}
	}

	fmt.Fprintf(out, "\nSync complete: %d upserted, %d deleted, %d urgency levels\n", upserted, deleted, len(UrgencyLevels))
	return nil
}
