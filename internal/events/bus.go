// Package events implements the engine's typed pub-sub subjects.
//
// Each subject is a single-writer queue: observers for a subject are
// invoked strictly in emission order by one dedicated goroutine, so a
// slow observer only delays later observers on the SAME subject
// (spec.md §4.2, §5). There is no replay — Subscribe only registers
// for events emitted after the call returns. An observer that panics
// never takes down the emitter; the panic is recovered and handed to
// the subject's onPanic callback, which Manager routes to the Error
// subject.
//
// Grounded on the teacher's internal/events/manager.go (every emission
// is logged through zerolog) generalized, per Design Notes §9, from the
// teacher's single map[string]any envelope into one generic Subject[T] per
// subject with a dedicated worker goroutine and observer queue.
package events

import (
	"sync/atomic"

	"github.com/rs/zerolog"
)

// Subject is a single typed pub-sub channel with FIFO delivery.
type Subject[T any] struct {
	log       zerolog.Logger
	name      string
	observers []observerEntry[T]
	subCh     chan observerEntry[T]
	unsubCh   chan uint64
	emitCh    chan T
	nextID    atomic.Uint64
}

type observerEntry[T any] struct {
	fn Observer[T]
	id uint64
}

// Observer is an observer callback for subject T. A panic while it
// runs is captured and passed to the subject's onPanic callback
// rather than the emitter.
type Observer[T any] func(T)

// NewSubject starts a subject's dedicated worker goroutine. onPanic is
// invoked (never blocking the worker for long) whenever an observer
// panics, so the owning Manager can route it to the Error subject.
func NewSubject[T any](name string, log zerolog.Logger, onPanic func(subject string, r any)) *Subject[T] {
	s := &Subject[T]{
		name:    name,
		log:     log.With().Str("subject", name).Logger(),
		subCh:   make(chan observerEntry[T], 16),
		unsubCh: make(chan uint64, 16),
		emitCh:  make(chan T, 256),
	}
	go s.run(onPanic)
	return s
}

func (s *Subject[T]) run(onPanic func(subject string, r any)) {
	for {
		select {
		case entry := <-s.subCh:
			s.observers = append(s.observers, entry)
		case id := <-s.unsubCh:
			for i, o := range s.observers {
				if o.id == id {
					s.observers = append(s.observers[:i], s.observers[i+1:]...)
					break
				}
			}
		case payload := <-s.emitCh:
			for _, o := range s.observers {
				s.invoke(o.fn, payload, onPanic)
			}
		}
	}
}

func (s *Subject[T]) invoke(fn Observer[T], payload T, onPanic func(subject string, r any)) {
	defer func() {
		if r := recover(); r != nil {
			s.log.Error().Interface("panic", r).Msg("observer panicked")
			if onPanic != nil {
				onPanic(s.name, r)
			}
		}
	}()
	fn(payload)
}

// Subscribe registers an observer for future emissions only. The
// returned Unsubscribe removes it; calling it more than once is safe.
func (s *Subject[T]) Subscribe(fn Observer[T]) Unsubscribe {
	id := s.nextSubID()
	s.subCh <- observerEntry[T]{id: id, fn: fn}
	var done bool
	return func() {
		if done {
			return
		}
		done = true
		s.unsubCh <- id
	}
}

func (s *Subject[T]) nextSubID() uint64 {
	return s.nextID.Add(1)
}

// Emit enqueues payload for delivery to current subscribers, in order.
// Emit never blocks the caller on observer execution — only on the
// bounded emit queue filling up, which only happens under sustained
// observer backpressure.
func (s *Subject[T]) Emit(payload T) {
	s.emitCh <- payload
}
