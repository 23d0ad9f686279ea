// Copyright 2026 mangarec Project Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package progress

import (
	"context"
	"sync"
	"time"
)

type listenerKeyType struct{}

var listenerKey = listenerKeyType{}

// Listener receives the progress of a span every time it advances.
type Listener func(p Progress)

// WithListener returns a context whose spans report to listener.
func WithListener(ctx context.Context, listener Listener) context.Context {
	return context.WithValue(ctx, listenerKey, listener)
}

type Status string

const (
	StatusRunning  Status = "Running"
	StatusComplete Status = "Complete"
	StatusFailed   Status = "Failed"
)

type Progress struct {
	Name       string
	Status     Status
	Error      string
	Count      int
	Total      int
	StartTime  time.Time
	FinishTime time.Time
}

// Span tracks a unit of work. It is safe for concurrent use.
type Span struct {
	mu       sync.Mutex
	name     string
	status   Status
	total    int
	count    int
	err      error
	start    time.Time
	finish   time.Time
	listener Listener
}

// Start a span. Its progress is reported to the listener attached to ctx, if any.
func Start(ctx context.Context, name string, total int) *Span {
	span := &Span{
		name:   name,
		status: StatusRunning,
		total:  total,
		start:  time.Now(),
	}
	span.listener, _ = ctx.Value(listenerKey).(Listener)
	return span
}

func (s *Span) Add(n int) {
	s.mu.Lock()
	s.count += n
	p := s.progress()
	s.mu.Unlock()
	s.notify(p)
}

func (s *Span) End() {
	s.mu.Lock()
	s.status = StatusComplete
	s.count = s.total
	s.finish = time.Now()
	p := s.progress()
	s.mu.Unlock()
	s.notify(p)
}

func (s *Span) Fail(err error) {
	s.mu.Lock()
	s.status = StatusFailed
	s.err = err
	s.finish = time.Now()
	p := s.progress()
	s.mu.Unlock()
	s.notify(p)
}

func (s *Span) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.count
}

func (s *Span) Progress() Progress {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.progress()
}

func (s *Span) progress() Progress {
	var errMsg string
	if s.err != nil {
		errMsg = s.err.Error()
	}
	return Progress{
		Name:       s.name,
		Status:     s.status,
		Error:      errMsg,
		Count:      s.count,
		Total:      s.total,
		StartTime:  s.start,
		FinishTime: s.finish,
	}
}

func (s *Span) notify(p Progress) {
	if s.listener != nil {
		s.listener(p)
	}
}
