package ledger

import (
	"errors"
	"time"

	"fintrack/internal/core"
)

var ErrNoInstallmentPlan = errors.New("line-item has no installment plan")

// Installment is one monthly payment of an expense.
type Installment struct {
	Number  int         `json:"number"`
	DueDate core.Date   `json:"due_date"`
	Value   core.Money  `json:"value"`
	Status  core.Status `json:"status"`
}

// Schedule splits item into monthly installments. The first one falls in the
// month of the item's due date, every one on the plan's payment day clamped to
// the month length. Leftover cents go to the earliest installments. A settled
// item settles every installment.
func Schedule(item core.LineItem, now time.Time) ([]Installment, error) {
	if item.Installments == nil {
		return nil, ErrNoInstallmentPlan
	}
	plan := *item.Installments
	if err := plan.Validate(); err != nil {
		return nil, err
	}
	if err := item.DueDate.Validate(); err != nil {
		return nil, err
	}

	n := int64(plan.NumInstallments)
	share, rest := item.Value.Cents/n, item.Value.Cents%n
	year, month := item.DueDate.Year(), item.DueDate.Month()

	out := make([]Installment, 0, plan.NumInstallments)
	for i := 0; i < plan.NumInstallments; i++ {
		cents := share
		if int64(i) < rest {
			cents++
		}
		part := item
		part.DueDate = clampedDate(year, month+time.Month(i), plan.PaymentDay)
		status, err := Classify(part, core.Expense, now)
		if err != nil {
			return nil, err
		}
		out = append(out, Installment{
			Number:  i + 1,
			DueDate: part.DueDate,
			Value:   core.Cents(cents),
			Status:  status,
		})
	}
	return out, nil
}

// clampedDate returns day of the given month, or the month's last day when
// the month is shorter. Months past December roll into the next year.
func clampedDate(year int, month time.Month, day int) core.Date {
	first := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
	lastDay := first.AddDate(0, 1, -1).Day()
	if day > lastDay {
		day = lastDay
	}
	return core.NewDate(first.Year(), int(first.Month()), day)
}
