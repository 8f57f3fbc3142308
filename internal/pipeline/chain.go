package pipeline

import (
	"context"
	"errors"
	"fmt"
)

// ErrDrop marks an item that was intentionally discarded. Drops are logged and
// counted but never abort a run.
var ErrDrop = errors.New("item dropped")

// Drop returns an error wrapping ErrDrop with a reason.
func Drop(reason string) error {
	return fmt.Errorf("%w: %s", ErrDrop, reason)
}

// IsDrop reports whether err drops an item rather than failing the run.
func IsDrop(err error) bool {
	return errors.Is(err, ErrDrop)
}

// Stage transforms one item.
type Stage interface {
	Name() string
	Process(ctx context.Context, item Item) (Item, error)
}

// StageFunc adapts a function to a Stage.
type StageFunc struct {
	StageName string
	Fn        func(ctx context.Context, item Item) (Item, error)
}

func (s StageFunc) Name() string { return s.StageName }

func (s StageFunc) Process(ctx context.Context, item Item) (Item, error) {
	return s.Fn(ctx, item)
}

// Chain runs stages in order.
type Chain struct {
	stages []Stage
}

// NewChain builds a chain. Nil stages are skipped so optional stages can be
// passed unconditionally.
func NewChain(stages ...Stage) *Chain {
	c := &Chain{}
	for _, s := range stages {
		if s != nil {
			c.stages = append(c.stages, s)
		}
	}
	return c
}

// Process passes item through every stage, stopping at the first error.
func (c *Chain) Process(ctx context.Context, item Item) (Item, error) {
	var err error
	for _, s := range c.stages {
		item, err = s.Process(ctx, item)
		if err != nil {
			return Item{}, fmt.Errorf("%s: %w", s.Name(), err)
		}
	}
	return item, nil
}

// Names lists the stage names in order.
func (c *Chain) Names() []string {
	names := make([]string, len(c.stages))
	for i, s := range c.stages {
		names[i] = s.Name()
	}
	return names
}
