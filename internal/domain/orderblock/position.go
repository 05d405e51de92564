package orderblock

import (
	"errors"

	"github.com/google/uuid"
)

// Status is a position's lifecycle state.
type Status string

const (
	StatusPending  Status = "pending"
	StatusEntered  Status = "entered"
	StatusCanceled Status = "canceled"
)

// ErrAlreadyEntered reports a cancel attempt on a position whose entry has
// already occurred. It is a benign race, not a failure: the caller stops
// retrying and leaves the position alone.
var ErrAlreadyEntered = errors.New("position already entered")

// Position is a pending or live trade derived from an order block.
type Position struct {
	ID         string
	Type       Type
	EntryPrice float64
	ParentOB   *OrderBlock
	Status     Status
}

// NewPosition creates a pending position resting at the block's entry price.
func NewPosition(ob *OrderBlock) *Position {
	return &Position{
		ID:         uuid.NewString(),
		Type:       ob.Type,
		EntryPrice: ob.EntryPrice(),
		ParentOB:   ob,
		Status:     StatusPending,
	}
}

// Cancel marks the position canceled. It fails with ErrAlreadyEntered when
// the entry already happened.
func (p *Position) Cancel() error {
	if p.Status == StatusEntered {
		return ErrAlreadyEntered
	}
	p.Status = StatusCanceled
	return nil
}

// RegisterEntered marks a pending position as entered.
func (p *Position) RegisterEntered() {
	if p.Status == StatusPending {
		p.Status = StatusEntered
	}
}
