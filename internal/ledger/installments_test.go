package ledger

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fintrack/internal/core"
)

func TestSchedule(t *testing.T) {
	item := core.LineItem{
		ID:           5,
		Kind:         core.Expense,
		Description:  "Sofa",
		Value:        core.Cents(100000),
		DueDate:      core.NewDate(2025, 11, 20),
		Installments: &core.InstallmentPlan{NumInstallments: 3, PaymentDay: 31},
	}
	now := time.Date(2025, 12, 1, 8, 0, 0, 0, time.UTC)

	got, err := Schedule(item, now)
	require.NoError(t, err)
	require.Len(t, got, 3)

	assert.Equal(t, core.NewDate(2025, 11, 30), got[0].DueDate)
	assert.Equal(t, core.NewDate(2025, 12, 31), got[1].DueDate)
	assert.Equal(t, core.NewDate(2026, 1, 31), got[2].DueDate)

	assert.Equal(t, core.Cents(33334), got[0].Value)
	assert.Equal(t, core.Cents(33333), got[1].Value)
	assert.Equal(t, core.Cents(33333), got[2].Value)

	assert.Equal(t, core.StatusOverdue, got[0].Status)
	assert.Equal(t, core.StatusPending, got[1].Status)
	assert.Equal(t, []int{1, 2, 3}, []int{got[0].Number, got[1].Number, got[2].Number})
}

func TestSchedule_LeapFebruary(t *testing.T) {
	item := core.LineItem{
		Kind:         core.Expense,
		Description:  "Course",
		Value:        core.Cents(600),
		DueDate:      core.NewDate(2024, 1, 10),
		Settled:      true,
		Installments: &core.InstallmentPlan{NumInstallments: 2, PaymentDay: 30},
	}
	got, err := Schedule(item, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Equal(t, core.NewDate(2024, 2, 29), got[1].DueDate)
	assert.Equal(t, core.StatusPaid, got[0].Status)
	assert.Equal(t, core.StatusPaid, got[1].Status)
}

func TestSchedule_Errors(t *testing.T) {
	_, err := Schedule(core.LineItem{Kind: core.Expense, DueDate: core.NewDate(2025, 1, 1)}, time.Now())
	assert.ErrorIs(t, err, ErrNoInstallmentPlan)

	_, err = Schedule(core.LineItem{
		Kind:         core.Expense,
		DueDate:      core.NewDate(2025, 1, 1),
		Installments: &core.InstallmentPlan{NumInstallments: 2, PaymentDay: 0},
	}, time.Now())
	assert.ErrorIs(t, err, core.ErrInvalidPaymentDay)
}
