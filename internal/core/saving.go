package core

import (
	"errors"
	"strings"
)

var ErrInvalidGoal = errors.New("saving goal must be greater than zero")

// Saving is a savings goal: Value accumulates toward Goal.
type Saving struct {
	ID          int64
	Priority    int
	Description string
	Value       Money
	Goal        Money
}

func (s Saving) Validate() error {
	desc := strings.TrimSpace(s.Description)
	if desc == "" {
		return ErrEmptyDescription
	}
	if len(desc) > maxDescriptionLen {
		return ErrDescriptionTooLong
	}
	if err := s.Value.Validate(); err != nil {
		return err
	}
	if s.Goal.Cents <= 0 {
		return ErrInvalidGoal
	}
	return nil
}

// Progress is the reached share of the goal in percent, capped at 100.
func (s Saving) Progress() float64 {
	if s.Goal.Cents <= 0 {
		return 0
	}
	p := float64(s.Value.Cents) * 100 / float64(s.Goal.Cents)
	if p > 100 {
		return 100
	}
	return p
}

// Remaining is what is still missing to reach the goal.
func (s Saving) Remaining() Money {
	if s.Value.Cents >= s.Goal.Cents {
		return Money{}
	}
	return Money{Cents: s.Goal.Cents - s.Value.Cents}
}
