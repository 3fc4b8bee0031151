// ABOUTME: Live catalog snapshot scoped to one restaurant at query time
// ABOUTME: Never cached across requests so prices and availability stay current

package catalog

import (
	"context"
	"fmt"

	"github.com/2389/maitred/internal/store"
)

// CatalogStore is what the loader needs from persistence.
type CatalogStore interface {
	ListMenuItems(ctx context.Context, restaurantID string) ([]*store.MenuItem, error)
	ListModifierGroups(ctx context.Context, menuItemID string) ([]*store.ModifierGroup, error)
	ListModifierOptions(ctx context.Context, groupID string) ([]*store.ModifierOption, error)
}

// Snapshot is the approved, available subset of one restaurant's menu at a
// single point in time. It is a read-only input to the compiler and is
// rebuilt for every compile.
type Snapshot struct {
	RestaurantID string
	Items        []*store.MenuItem
	Groups       []*store.ModifierGroup
	Options      []*store.ModifierOption

	itemsByID   map[string]*store.MenuItem
	groupsByID  map[string]*store.ModifierGroup
	optionsByID map[string]*store.ModifierOption
	itemGroups  map[string][]*store.ModifierGroup
	groupOpts   map[string][]*store.ModifierOption
}

// Loader reads snapshots from the store.
type Loader struct {
	store CatalogStore
}

// NewLoader creates a snapshot loader.
func NewLoader(s CatalogStore) *Loader {
	return &Loader{store: s}
}

// Load builds a snapshot for one restaurant from live catalog rows.
func (l *Loader) Load(ctx context.Context, restaurantID string) (*Snapshot, error) {
	items, err := l.store.ListMenuItems(ctx, restaurantID)
	if err != nil {
		return nil, fmt.Errorf("loading menu items: %w", err)
	}

	snap := &Snapshot{
		RestaurantID: restaurantID,
		Items:        items,
		itemsByID:    make(map[string]*store.MenuItem),
		groupsByID:   make(map[string]*store.ModifierGroup),
		optionsByID:  make(map[string]*store.ModifierOption),
		itemGroups:   make(map[string][]*store.ModifierGroup),
		groupOpts:    make(map[string][]*store.ModifierOption),
	}

	for _, item := range items {
		snap.itemsByID[item.ID] = item
		groups, err := l.store.ListModifierGroups(ctx, item.ID)
		if err != nil {
			return nil, fmt.Errorf("loading modifier groups for %s: %w", item.ID, err)
		}
		for _, g := range groups {
			snap.Groups = append(snap.Groups, g)
			snap.groupsByID[g.ID] = g
			snap.itemGroups[item.ID] = append(snap.itemGroups[item.ID], g)

			options, err := l.store.ListModifierOptions(ctx, g.ID)
			if err != nil {
				return nil, fmt.Errorf("loading modifier options for %s: %w", g.ID, err)
			}
			for _, o := range options {
				snap.Options = append(snap.Options, o)
				snap.optionsByID[o.ID] = o
				snap.groupOpts[g.ID] = append(snap.groupOpts[g.ID], o)
			}
		}
	}
	return snap, nil
}

// NewSnapshot assembles a snapshot from already-loaded rows. Tests and the
// matcher use this directly.
func NewSnapshot(restaurantID string, items []*store.MenuItem, groups []*store.ModifierGroup, options []*store.ModifierOption) *Snapshot {
	snap := &Snapshot{
		RestaurantID: restaurantID,
		Items:        items,
		Groups:       groups,
		Options:      options,
		itemsByID:    make(map[string]*store.MenuItem),
		groupsByID:   make(map[string]*store.ModifierGroup),
		optionsByID:  make(map[string]*store.ModifierOption),
		itemGroups:   make(map[string][]*store.ModifierGroup),
		groupOpts:    make(map[string][]*store.ModifierOption),
	}
	for _, item := range items {
		snap.itemsByID[item.ID] = item
	}
	for _, g := range groups {
		snap.groupsByID[g.ID] = g
		snap.itemGroups[g.MenuItemID] = append(snap.itemGroups[g.MenuItemID], g)
	}
	for _, o := range options {
		snap.optionsByID[o.ID] = o
		snap.groupOpts[o.GroupID] = append(snap.groupOpts[o.GroupID], o)
	}
	return snap
}

// Item returns the menu item with the given id, or nil.
func (s *Snapshot) Item(id string) *store.MenuItem { return s.itemsByID[id] }

// Group returns the modifier group with the given id, or nil.
func (s *Snapshot) Group(id string) *store.ModifierGroup { return s.groupsByID[id] }

// Option returns the modifier option with the given id, or nil.
func (s *Snapshot) Option(id string) *store.ModifierOption { return s.optionsByID[id] }

// GroupsForItem returns the modifier groups defined on a menu item.
func (s *Snapshot) GroupsForItem(itemID string) []*store.ModifierGroup {
	return s.itemGroups[itemID]
}

// OptionsForGroup returns the options belonging to a modifier group.
func (s *Snapshot) OptionsForGroup(groupID string) []*store.ModifierOption {
	return s.groupOpts[groupID]
}
