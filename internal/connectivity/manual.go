package connectivity

import (
	"context"
	"sync"
)

// ManualSource is driven by explicit Set calls. The terminal uses it when no probe
// URL is configured (always online), and tests use it to script transitions.
type ManualSource struct {
	mu       sync.Mutex
	online   bool
	watchers []watcher

	// sendMu is held while Set fans out, so a watcher channel is never closed mid-send.
	sendMu sync.Mutex
}

type watcher struct {
	ctx context.Context
	ch  chan bool
}

func NewManualSource(online bool) *ManualSource {
	return &ManualSource{online: online}
}

func (s *ManualSource) Current(context.Context) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.online
}

// Set records the new status and forwards it to every watcher, even when unchanged.
func (s *ManualSource) Set(online bool) {
	s.sendMu.Lock()
	defer s.sendMu.Unlock()

	s.mu.Lock()
	s.online = online
	watchers := append([]watcher(nil), s.watchers...)
	s.mu.Unlock()

	for _, w := range watchers {
		select {
		case w.ch <- online:
		case <-w.ctx.Done():
		}
	}
}

func (s *ManualSource) Watch(ctx context.Context) <-chan bool {
	ch := make(chan bool)
	s.mu.Lock()
	s.watchers = append(s.watchers, watcher{ctx: ctx, ch: ch})
	s.mu.Unlock()

	go func() {
		<-ctx.Done()
		s.sendMu.Lock()
		defer s.sendMu.Unlock()
		s.mu.Lock()
		for i, w := range s.watchers {
			if w.ch == ch {
				s.watchers = append(s.watchers[:i], s.watchers[i+1:]...)
				break
			}
		}
		s.mu.Unlock()
		close(ch)
	}()
	return ch
}
