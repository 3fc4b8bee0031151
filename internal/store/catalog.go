// ABOUTME: Catalog row persistence: menu items, modifier groups, modifier options
// ABOUTME: Rows arrive from menu ingestion; the compiler reads them live at compile time

package store

import (
	"context"
	"fmt"
)

// PutMenuItem inserts or replaces a menu item row.
func (s *SQLiteStore) PutMenuItem(ctx context.Context, item *MenuItem) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO menu_items
		 (id, restaurant_id, name, description, price, approved, available)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		item.ID, item.RestaurantID, item.Name, item.Description, item.Price,
		boolToInt(item.Approved), boolToInt(item.Available))
	if err != nil {
		return fmt.Errorf("upserting menu item: %w", err)
	}
	return nil
}

// PutModifierGroup inserts or replaces a modifier group row.
func (s *SQLiteStore) PutModifierGroup(ctx context.Context, g *ModifierGroup) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO modifier_groups
		 (id, menu_item_id, name, required, single_select, min_selections, max_selections, approved, available)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		g.ID, g.MenuItemID, g.Name, boolToInt(g.Required), boolToInt(g.SingleSelect),
		g.MinSelections, g.MaxSelections, boolToInt(g.Approved), boolToInt(g.Available))
	if err != nil {
		return fmt.Errorf("upserting modifier group: %w", err)
	}
	return nil
}

// PutModifierOption inserts or replaces a modifier option row.
func (s *SQLiteStore) PutModifierOption(ctx context.Context, o *ModifierOption) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO modifier_options
		 (id, group_id, name, price, approved, available)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		o.ID, o.GroupID, o.Name, o.Price, boolToInt(o.Approved), boolToInt(o.Available))
	if err != nil {
		return fmt.Errorf("upserting modifier option: %w", err)
	}
	return nil
}

// ListMenuItems returns the approved, available menu items for one
// restaurant, ordered by name.
func (s *SQLiteStore) ListMenuItems(ctx context.Context, restaurantID string) ([]*MenuItem, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, restaurant_id, name, description, price, approved, available
		 FROM menu_items
		 WHERE restaurant_id = ? AND approved = 1 AND available = 1
		 ORDER BY name`, restaurantID)
	if err != nil {
		return nil, fmt.Errorf("querying menu items: %w", err)
	}
	defer rows.Close()

	var items []*MenuItem
	for rows.Next() {
		var m MenuItem
		var approved, available int
		if err := rows.Scan(&m.ID, &m.RestaurantID, &m.Name, &m.Description,
			&m.Price, &approved, &available); err != nil {
			return nil, fmt.Errorf("scanning menu item: %w", err)
		}
		m.Approved = approved != 0
		m.Available = available != 0
		items = append(items, &m)
	}
	return items, rows.Err()
}

// ListMenuItemsByHotel returns approved, available menu items across every
// approved restaurant of one hotel. The matcher scores request lines against
// this set.
func (s *SQLiteStore) ListMenuItemsByHotel(ctx context.Context, hotelID string) ([]*MenuItem, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT m.id, m.restaurant_id, m.name, m.description, m.price, m.approved, m.available
		 FROM menu_items m
		 JOIN restaurants r ON r.id = m.restaurant_id
		 WHERE r.hotel_id = ? AND r.approved = 1 AND m.approved = 1 AND m.available = 1
		 ORDER BY m.restaurant_id, m.name`, hotelID)
	if err != nil {
		return nil, fmt.Errorf("querying hotel menu items: %w", err)
	}
	defer rows.Close()

	var items []*MenuItem
	for rows.Next() {
		var m MenuItem
		var approved, available int
		if err := rows.Scan(&m.ID, &m.RestaurantID, &m.Name, &m.Description,
			&m.Price, &approved, &available); err != nil {
			return nil, fmt.Errorf("scanning menu item: %w", err)
		}
		m.Approved = approved != 0
		m.Available = available != 0
		items = append(items, &m)
	}
	return items, rows.Err()
}

// ListModifierGroups returns the approved, available modifier groups for one
// menu item.
func (s *SQLiteStore) ListModifierGroups(ctx context.Context, menuItemID string) ([]*ModifierGroup, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, menu_item_id, name, required, single_select, min_selections, max_selections, approved, available
		 FROM modifier_groups
		 WHERE menu_item_id = ? AND approved = 1 AND available = 1
		 ORDER BY name`, menuItemID)
	if err != nil {
		return nil, fmt.Errorf("querying modifier groups: %w", err)
	}
	defer rows.Close()

	var groups []*ModifierGroup
	for rows.Next() {
		var g ModifierGroup
		var required, singleSelect, approved, available int
		if err := rows.Scan(&g.ID, &g.MenuItemID, &g.Name, &required, &singleSelect,
			&g.MinSelections, &g.MaxSelections, &approved, &available); err != nil {
			return nil, fmt.Errorf("scanning modifier group: %w", err)
		}
		g.Required = required != 0
		g.SingleSelect = singleSelect != 0
		g.Approved = approved != 0
		g.Available = available != 0
		groups = append(groups, &g)
	}
	return groups, rows.Err()
}

// ListModifierOptions returns the approved, available options of one group.
func (s *SQLiteStore) ListModifierOptions(ctx context.Context, groupID string) ([]*ModifierOption, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, group_id, name, price, approved, available
		 FROM modifier_options
		 WHERE group_id = ? AND approved = 1 AND available = 1
		 ORDER BY name`, groupID)
	if err != nil {
		return nil, fmt.Errorf("querying modifier options: %w", err)
	}
	defer rows.Close()

	var options []*ModifierOption
	for rows.Next() {
		var o ModifierOption
		var approved, available int
		if err := rows.Scan(&o.ID, &o.GroupID, &o.Name, &o.Price, &approved, &available); err != nil {
			return nil, fmt.Errorf("scanning modifier option: %w", err)
		}
		o.Approved = approved != 0
		o.Available = available != 0
		options = append(options, &o)
	}
	return options, rows.Err()
}
