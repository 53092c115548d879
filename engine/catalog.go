// engine/catalog.go
package engine

import (
	"fmt"
	"strings"
)

// Category identifies which lab board a module belongs to.
type Category string

const (
	CategoryMiner      Category = "miner"
	CategoryTechnician Category = "technician"
	CategoryCooler     Category = "cooler"
)

// Item is one entry in the module catalog. Effect is the authoritative
// numeric value for the item: IGT/s for miners, a rate multiplier for
// technicians, extra seconds for coolers.
type Item struct {
	ID       string   `json:"id"`
	Name     string   `json:"name"`
	Category Category `json:"category"`
	Tier     Tier     `json:"tier"`
	Effect   float64  `json:"effect"`
}

// Catalog resolves item ids to their category and effect value. Entries are
// loaded once at construction; resolution for ids outside the catalog falls
// back to parsing tier keywords out of the identifier, so legacy or malformed
// records still contribute a sane effect instead of breaking aggregation.
type Catalog struct {
	items map[string]Item
}

// NewCatalog builds a catalog from an explicit item list.
func NewCatalog(items []Item) *Catalog {
	m := make(map[string]Item, len(items))
	for _, it := range items {
		m[it.ID] = it
	}
	return &Catalog{items: m}
}

// DefaultCatalog returns the built-in module catalog: one item per tier and
// category, with ids like "miner-epic-01".
func DefaultCatalog() *Catalog {
	tiers := []Tier{TierCommon, TierRare, TierEpic, TierLegendary, TierMythic}
	var items []Item
	for _, tier := range tiers {
		title := strings.ToUpper(string(tier[0])) + string(tier[1:])
		items = append(items,
			Item{
				ID:       fmt.Sprintf("miner-%s-01", tier),
				Name:     fmt.Sprintf("%s Miner", title),
				Category: CategoryMiner,
				Tier:     tier,
				Effect:   MinerRate[tier],
			},
			Item{
				ID:       fmt.Sprintf("tech-%s-01", tier),
				Name:     fmt.Sprintf("%s Technician", title),
				Category: CategoryTechnician,
				Tier:     tier,
				Effect:   TechMult[tier],
			},
			Item{
				ID:       fmt.Sprintf("cooler-%s-01", tier),
				Name:     fmt.Sprintf("%s Cooler", title),
				Category: CategoryCooler,
				Tier:     tier,
				Effect:   float64(CoolerSec[tier]),
			},
		)
	}
	return NewCatalog(items)
}

// Lookup returns the catalog entry for an item id, if one exists.
func (c *Catalog) Lookup(id string) (Item, bool) {
	it, ok := c.items[id]
	return it, ok
}

// Items returns every entry in the catalog.
func (c *Catalog) Items() []Item {
	out := make([]Item, 0, len(c.items))
	for _, it := range c.items {
		out = append(out, it)
	}
	return out
}

// Resolve returns the effect for an item id, preferring the catalog entry and
// falling back to tier-keyword parsing of the identifier. The boolean is false
// when neither yields anything, in which case the item contributes no effect.
func (c *Catalog) Resolve(id string) (Item, bool) {
	if it, ok := c.items[id]; ok {
		return it, true
	}
	return parseItemID(id)
}

// parseItemID is the last-resort lookup for ids missing from the catalog:
// it infers category and tier from keywords in the identifier itself.
func parseItemID(id string) (Item, bool) {
	lower := strings.ToLower(id)

	var category Category
	switch {
	case strings.Contains(lower, "miner"):
		category = CategoryMiner
	case strings.Contains(lower, "tech"):
		category = CategoryTechnician
	case strings.Contains(lower, "cooler"):
		category = CategoryCooler
	default:
		return Item{}, false
	}

	var tier Tier
	for _, t := range []Tier{TierMythic, TierLegendary, TierEpic, TierRare, TierCommon} {
		if strings.Contains(lower, string(t)) {
			tier = t
			break
		}
	}
	if tier == "" {
		return Item{}, false
	}

	it := Item{ID: id, Category: category, Tier: tier}
	switch category {
	case CategoryMiner:
		it.Effect = MinerRate[tier]
	case CategoryTechnician:
		it.Effect = TechMult[tier]
	case CategoryCooler:
		it.Effect = float64(CoolerSec[tier])
	}
	return it, true
}
