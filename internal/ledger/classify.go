// Package ledger derives line-item statuses and evaluates filters over them.
//
// Classification follows a small strategy registry: every kind of line-item
// has one StatusRule, and all rules share the same date arithmetic.
package ledger

import (
	"fmt"
	"time"

	"fintrack/internal/core"
)

// DueSoonWindow is how close an unpaid expense's due date must be to count as due soon.
const DueSoonWindow = 48 * time.Hour

// StatusRule maps a line-item's settled flag and the time left until its due
// date to a status.
type StatusRule interface {
	Status(settled bool, untilDue time.Duration) core.Status
}

// DueRule is the rule shared by both kinds. A zero DueSoonWindow disables due_soon.
type DueRule struct {
	SettledAs     core.Status
	DueSoonWindow time.Duration
}

// Status returns SettledAs for settled items. Otherwise a negative untilDue is
// overdue, (0, DueSoonWindow] is due soon, and the rest is pending.
func (r DueRule) Status(settled bool, untilDue time.Duration) core.Status {
	switch {
	case settled:
		return r.SettledAs
	case untilDue < 0:
		return core.StatusOverdue
	case r.DueSoonWindow > 0 && untilDue > 0 && untilDue <= r.DueSoonWindow:
		return core.StatusDueSoon
	default:
		return core.StatusPending
	}
}

var statusRules = map[core.Kind]StatusRule{
	core.Expense: DueRule{SettledAs: core.StatusPaid, DueSoonWindow: DueSoonWindow},
	core.Revenue: DueRule{SettledAs: core.StatusReceived},
}

// RuleFor returns the status rule of a kind.
func RuleFor(kind core.Kind) (StatusRule, error) {
	rule, ok := statusRules[kind]
	if !ok {
		return nil, fmt.Errorf("%w: %q", core.ErrUnknownKind, kind)
	}
	return rule, nil
}

// Classify derives the status of item at instant now. The due date is taken
// as midnight UTC, so an unsettled item due today is already overdue once
// the day has started.
func Classify(item core.LineItem, kind core.Kind, now time.Time) (core.Status, error) {
	rule, err := RuleFor(kind)
	if err != nil {
		return "", err
	}
	if err := item.DueDate.Validate(); err != nil {
		return "", err
	}
	return rule.Status(item.Settled, item.DueDate.Sub(now)), nil
}
