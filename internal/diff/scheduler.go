package diff

import (
	"context"

	"github.com/city-bureau/city-scrapers-go/internal/logger"
	"github.com/city-bureau/city-scrapers-go/internal/pipeline"
)

// Host is the crawl engine the scheduler plugs into.
type Host interface {
	// OnIdle registers hook to run whenever the host has no live work left.
	OnIdle(hook func(ctx context.Context)) (unsubscribe func())
	// RequestKeepAlive keeps the host open for another idle round.
	RequestKeepAlive()
	// Emit injects an item into the host's processing path.
	Emit(ctx context.Context, item pipeline.Item) error
}

// Scheduler replays an engine's backlog through a host once live crawling is done.
type Scheduler struct {
	engine      *Engine
	host        Host
	unsubscribe func()

	drained bool
	emitted int
	err     error
}

// Attach subscribes a Scheduler for engine to host's idle notification.
func Attach(engine *Engine, host Host) *Scheduler {
	s := &Scheduler{engine: engine, host: host}
	s.unsubscribe = host.OnIdle(s.onIdle)
	return s
}

func (s *Scheduler) onIdle(ctx context.Context) {
	if s.drained {
		return
	}
	s.drained = true
	s.unsubscribe()

	backlog := s.engine.Backlog()
	logger.Debug("Draining previous batch", logger.Fields{"records": len(backlog)})

	for _, item := range backlog {
		if err := s.host.Emit(ctx, item); err != nil {
			s.err = err
			break
		}
		s.emitted++
	}
	s.host.RequestKeepAlive()
}

// Drained reports whether the backlog has been injected.
func (s *Scheduler) Drained() bool { return s.drained }

// Emitted is the number of backlog items handed to the host.
func (s *Scheduler) Emitted() int { return s.emitted }

// Err returns the error that interrupted injection, if any.
func (s *Scheduler) Err() error { return s.err }
