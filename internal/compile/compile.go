// ABOUTME: Canonical compiler: validates item+modifier selections against a catalog snapshot
// ABOUTME: Produces a priced order or a typed issue list; issues are values, never errors

package compile

import (
	"fmt"
	"sort"

	"github.com/2389/maitred/internal/catalog"
)

// Status summarizes a compile result.
type Status string

const (
	// StatusReady: zero issues, the order can proceed to checkout.
	StatusReady Status = "ready_to_execute"
	// StatusNeedsInput: the guest must resolve something (missing required
	// modifier, too many selections).
	StatusNeedsInput Status = "needs_user_input"
	// StatusUnfulfillable: at least one reference does not exist in the live
	// catalog; the order cannot proceed without alternate items.
	StatusUnfulfillable Status = "unfulfillable"
)

// Severity ranks an issue. Any unfulfillable issue dominates the result.
type Severity string

const (
	SeverityNeedsInput    Severity = "needs_user_input"
	SeverityUnfulfillable Severity = "unfulfillable"
)

// Issue codes.
const (
	CodeInvalidPayload          = "invalid_payload"
	CodeMenuItemNotFound        = "menu_item_not_found"
	CodeGroupNotFound           = "modifier_group_not_found"
	CodeSelectionNotAllowed     = "modifier_selection_not_allowed"
	CodeSelectionAboveMax       = "modifier_selection_above_max"
	CodeOptionNotFound          = "modifier_option_not_found"
	CodeOptionNotInGroup        = "modifier_option_not_in_group"
	CodeRequiredModifierMissing = "required_modifier_missing"
)

// Issue is one blocking or advisory problem found during compilation.
type Issue struct {
	Severity  Severity `json:"severity"`
	Code      string   `json:"code"`
	Message   string   `json:"message"`
	ItemRef   string   `json:"itemRef,omitempty"`
	GroupRef  string   `json:"groupRef,omitempty"`
	OptionRef string   `json:"optionRef,omitempty"`
}

// Selection is one requested item with its modifier choices.
type Selection struct {
	ItemRef   string              `json:"itemRef"`
	Quantity  int                 `json:"quantity"`
	Modifiers map[string][]string `json:"selectedModifiers,omitempty"`
	// SpecialInstructions passes through to the placement job untouched.
	SpecialInstructions string `json:"specialInstructions,omitempty"`
}

// Modifier is one priced modifier choice on a compiled item.
type Modifier struct {
	GroupRef   string  `json:"groupRef"`
	GroupName  string  `json:"groupName"`
	OptionRef  string  `json:"optionRef"`
	OptionName string  `json:"optionName"`
	Price      float64 `json:"price"`
}

// Item is one issue-free, priced line of a compiled order.
type Item struct {
	ItemRef             string     `json:"itemRef"`
	Name                string     `json:"name"`
	Quantity            int        `json:"quantity"`
	BasePrice           float64    `json:"basePrice"`
	ModifierPrice       float64    `json:"modifierPrice"`
	UnitPrice           float64    `json:"unitPrice"`
	TotalPrice          float64    `json:"totalPrice"`
	Modifiers           []Modifier `json:"modifiers,omitempty"`
	SpecialInstructions string     `json:"specialInstructions,omitempty"`
}

// Result is the outcome of one compile. Items contains only issue-free
// lines; Subtotal sums only those.
type Result struct {
	Status   Status  `json:"status"`
	Subtotal float64 `json:"subtotal"`
	Items    []Item  `json:"items"`
	Issues   []Issue `json:"issues"`
}

// Compile validates selections against the snapshot and prices the
// issue-free items. It never returns an error: malformed input collapses to
// a single invalid_payload issue.
func Compile(selections []Selection, snap *catalog.Snapshot) *Result {
	if err := validatePayload(selections); err != "" {
		return &Result{
			Status: StatusUnfulfillable,
			Issues: []Issue{{
				Severity: SeverityUnfulfillable,
				Code:     CodeInvalidPayload,
				Message:  err,
			}},
		}
	}

	result := &Result{Status: StatusReady}
	for _, sel := range selections {
		item, issues := compileSelection(sel, snap)
		if len(issues) > 0 {
			result.Issues = append(result.Issues, issues...)
			continue
		}
		result.Items = append(result.Items, *item)
		result.Subtotal = Round2(result.Subtotal + item.TotalPrice)
	}

	result.Status = statusFor(result.Issues)
	return result
}

// validatePayload is the schema gate run before any catalog lookup.
func validatePayload(selections []Selection) string {
	if len(selections) == 0 {
		return "order contains no items"
	}
	for i, sel := range selections {
		if sel.ItemRef == "" {
			return fmt.Sprintf("item %d has no itemRef", i)
		}
		if sel.Quantity < 1 {
			return fmt.Sprintf("item %d has non-positive quantity", i)
		}
	}
	return ""
}

func compileSelection(sel Selection, snap *catalog.Snapshot) (*Item, []Issue) {
	catItem := snap.Item(sel.ItemRef)
	if catItem == nil {
		return nil, []Issue{{
			Severity: SeverityUnfulfillable,
			Code:     CodeMenuItemNotFound,
			Message:  fmt.Sprintf("menu item %q is not on the current menu", sel.ItemRef),
			ItemRef:  sel.ItemRef,
		}}
	}

	var issues []Issue
	var modifiers []Modifier
	modifierPrice := 0.0

	// Deterministic group order for stable output and fixtures.
	groupRefs := make([]string, 0, len(sel.Modifiers))
	for ref := range sel.Modifiers {
		groupRefs = append(groupRefs, ref)
	}
	sort.Strings(groupRefs)

	for _, groupRef := range groupRefs {
		optionRefs := sel.Modifiers[groupRef]
		group := snap.Group(groupRef)
		if group == nil || group.MenuItemID != catItem.ID {
			issues = append(issues, Issue{
				Severity: SeverityUnfulfillable,
				Code:     CodeGroupNotFound,
				Message:  fmt.Sprintf("modifier group %q does not belong to %q", groupRef, catItem.Name),
				ItemRef:  sel.ItemRef,
				GroupRef: groupRef,
			})
			continue
		}

		if group.SingleSelect && len(optionRefs) > 1 {
			issues = append(issues, Issue{
				Severity: SeverityNeedsInput,
				Code:     CodeSelectionNotAllowed,
				Message:  fmt.Sprintf("%q allows only one selection", group.Name),
				ItemRef:  sel.ItemRef,
				GroupRef: groupRef,
			})
		}
		if group.MaxSelections != nil && len(optionRefs) > *group.MaxSelections {
			issues = append(issues, Issue{
				Severity: SeverityNeedsInput,
				Code:     CodeSelectionAboveMax,
				Message:  fmt.Sprintf("%q allows at most %d selections", group.Name, *group.MaxSelections),
				ItemRef:  sel.ItemRef,
				GroupRef: groupRef,
			})
		}

		for _, optionRef := range optionRefs {
			option := snap.Option(optionRef)
			if option == nil {
				issues = append(issues, Issue{
					Severity:  SeverityUnfulfillable,
					Code:      CodeOptionNotFound,
					Message:   fmt.Sprintf("modifier option %q is not on the current menu", optionRef),
					ItemRef:   sel.ItemRef,
					GroupRef:  groupRef,
					OptionRef: optionRef,
				})
				continue
			}
			if option.GroupID != group.ID {
				issues = append(issues, Issue{
					Severity:  SeverityUnfulfillable,
					Code:      CodeOptionNotInGroup,
					Message:   fmt.Sprintf("option %q does not belong to group %q", option.Name, group.Name),
					ItemRef:   sel.ItemRef,
					GroupRef:  groupRef,
					OptionRef: optionRef,
				})
				continue
			}
			price := ParsePrice(option.Price)
			modifierPrice += price
			modifiers = append(modifiers, Modifier{
				GroupRef:   groupRef,
				GroupName:  group.Name,
				OptionRef:  optionRef,
				OptionName: option.Name,
				Price:      price,
			})
		}
	}

	// Required-minimum check runs over every group defined on the item, not
	// just the referenced ones.
	for _, group := range snap.GroupsForItem(catItem.ID) {
		min := 0
		if group.MinSelections != nil {
			min = *group.MinSelections
		} else if group.Required {
			min = 1
		}
		if min == 0 {
			continue
		}
		if len(sel.Modifiers[group.ID]) < min {
			issues = append(issues, Issue{
				Severity: SeverityNeedsInput,
				Code:     CodeRequiredModifierMissing,
				Message:  fmt.Sprintf("%q requires at least %d selection(s) for %q", catItem.Name, min, group.Name),
				ItemRef:  sel.ItemRef,
				GroupRef: group.ID,
			})
		}
	}

	if len(issues) > 0 {
		return nil, issues
	}

	basePrice := ParsePrice(catItem.Price)
	unitPrice := Round2(basePrice + modifierPrice)
	return &Item{
		ItemRef:             sel.ItemRef,
		Name:                catItem.Name,
		Quantity:            sel.Quantity,
		BasePrice:           basePrice,
		ModifierPrice:       Round2(modifierPrice),
		UnitPrice:           unitPrice,
		TotalPrice:          Round2(unitPrice * float64(sel.Quantity)),
		Modifiers:           modifiers,
		SpecialInstructions: sel.SpecialInstructions,
	}, nil
}

func statusFor(issues []Issue) Status {
	if len(issues) == 0 {
		return StatusReady
	}
	for _, issue := range issues {
		if issue.Severity == SeverityUnfulfillable {
			return StatusUnfulfillable
		}
	}
	return StatusNeedsInput
}
