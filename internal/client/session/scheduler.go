// Copyright (c) 2026 Verano. All rights reserved.
// Author: anh.pham.dev@gmail.com

package session

import (
	"sync"
	"time"
)

// scheduler is a single-slot timer: scheduling a new callback cancels any
// previously scheduled one. The session never needs more than one pending
// refresh.
type scheduler struct {
	mu    sync.Mutex
	timer *time.Timer
}

// Schedule arranges for callback to run after delay, replacing any pending
// callback.
func (s *scheduler) Schedule(delay time.Duration, callback func()) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.timer != nil {
		s.timer.Stop()
	}
	s.timer = time.AfterFunc(delay, callback)
}

// Stop cancels the pending callback, if any. A callback already started is
// not interrupted.
func (s *scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
}
