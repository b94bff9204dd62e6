package ledger

import (
	"strings"

	"fintrack/internal/core"
)

// StatusFlags selects statuses. With no flag set every status passes.
type StatusFlags struct {
	Pending  bool `json:"pending"`
	Paid     bool `json:"paid"`
	Received bool `json:"received"`
	Overdue  bool `json:"overdue"`
	DueSoon  bool `json:"due_soon"`
}

// FlagsFor builds flags with the given statuses set.
func FlagsFor(statuses ...core.Status) StatusFlags {
	var f StatusFlags
	for _, s := range statuses {
		switch s {
		case core.StatusPending:
			f.Pending = true
		case core.StatusPaid:
			f.Paid = true
		case core.StatusReceived:
			f.Received = true
		case core.StatusOverdue:
			f.Overdue = true
		case core.StatusDueSoon:
			f.DueSoon = true
		}
	}
	return f
}

// Any reports whether at least one flag is set.
func (f StatusFlags) Any() bool {
	return f.Pending || f.Paid || f.Received || f.Overdue || f.DueSoon
}

// Allows reports whether status passes the flags.
func (f StatusFlags) Allows(status core.Status) bool {
	if !f.Any() {
		return true
	}
	switch status {
	case core.StatusPending:
		return f.Pending
	case core.StatusPaid:
		return f.Paid
	case core.StatusReceived:
		return f.Received
	case core.StatusOverdue:
		return f.Overdue
	case core.StatusDueSoon:
		return f.DueSoon
	}
	return false
}

// Criteria is a conjunction of optional constraints. Nil bounds are open and
// a zero bound is a literal zero.
type Criteria struct {
	Description string
	DateStart   *core.Date
	DateEnd     *core.Date
	Min         *core.Money
	Max         *core.Money
	Categories  []int64
	Statuses    StatusFlags
}

// Matches reports whether item, already classified as status, satisfies c.
func Matches(item core.LineItem, status core.Status, c Criteria) bool {
	return matchesDescription(item, c) &&
		matchesDateRange(item, c) &&
		matchesValue(item, c) &&
		matchesCategory(item, c) &&
		c.Statuses.Allows(status)
}

func matchesDescription(item core.LineItem, c Criteria) bool {
	needle := strings.TrimSpace(c.Description)
	if needle == "" {
		return true
	}
	return strings.Contains(strings.ToLower(item.Description), strings.ToLower(needle))
}

func matchesDateRange(item core.LineItem, c Criteria) bool {
	due := core.DateOf(item.DueDate.Time)
	if c.DateStart != nil && due.Before(*c.DateStart) {
		return false
	}
	if c.DateEnd != nil && due.After(*c.DateEnd) {
		return false
	}
	return true
}

func matchesValue(item core.LineItem, c Criteria) bool {
	if c.Min != nil && item.Value.Cents < c.Min.Cents {
		return false
	}
	if c.Max != nil && item.Value.Cents > c.Max.Cents {
		return false
	}
	return true
}

func matchesCategory(item core.LineItem, c Criteria) bool {
	if len(c.Categories) == 0 {
		return true
	}
	if item.Category == nil {
		return false
	}
	for _, id := range c.Categories {
		if id == item.Category.ID {
			return true
		}
	}
	return false
}
