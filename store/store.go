package store

import (
	"errors"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/lib/pq"
	"gorm.io/gorm"
)

// ErrNotFound is returned by Update/Delete when no row matches the id.
var ErrNotFound = errors.New("record not found")

// ErrStoreClosed is returned when an operation is attempted after Close.
var ErrStoreClosed = errors.New("store is closed")

// Snapshot is one delivery from a live subscription. Err is set when
// the mirror could not be refreshed or the listener registration
// conflicted; Items then holds the last known good state.
type Snapshot[T any] struct {
	Items []T
	Err   error
}

// Notifier is the push side of the remote collection, satisfied by
// *pq.Listener. Tests substitute an in-memory fake.
type Notifier interface {
	Listen(channel string) error
	Unlisten(channel string) error
	NotificationChannel() <-chan *pq.Notification
	Close() error
}

// Subscription lifecycle states. Transitions are driven either by
// Subscribe/Close calls or by the cancellable resubscribe timer; no
// bare boolean flags.
type subscriptionState int

const (
	stateIdle subscriptionState = iota
	stateSubscribing
	stateActive
	stateTearingDown
)

// resubscribeDebounce is the fixed delay before re-establishing a
// subscription after tearing down a previous one. Re-listening
// immediately can race the backend into treating the pair as a
// conflicting registration.
const resubscribeDebounce = 500 * time.Millisecond

// Store maintains an in-memory mirror of one remote collection, kept
// current through a push subscription, and provides create/update/
// delete against the same collection.
//
// The mirror has two read paths: the snapshot channel handed out by
// Subscribe, and CurrentItems, an eagerly-refreshed cursor that
// reflects a just-issued write before the next push delivery arrives.
type Store[T any] struct {
	db       *gorm.DB
	notifier Notifier
	table    string
	channel  string

	// load is swappable so the subscription machinery can be tested
	// without a database.
	load func() ([]T, error)

	mu     sync.Mutex
	state  subscriptionState
	items  []T
	out    chan Snapshot[T]
	stop   chan struct{}
	resub  *time.Timer
	closed bool
}

// New creates a store mirroring the given table, pushed through the
// given LISTEN/NOTIFY channel.
func New[T any](db *gorm.DB, notifier Notifier, table, channel string) *Store[T] {
	s := &Store[T]{
		db:       db,
		notifier: notifier,
		table:    table,
		channel:  channel,
	}
	s.load = s.fetch
	return s
}

func (s *Store[T]) fetch() ([]T, error) {
	var items []T
	if err := s.db.Table(s.table).Order("created_at ASC").Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

// Subscribe establishes the live subscription and returns its snapshot
// channel. At most one subscription is active per store: calling
// Subscribe while one is live tears the old one down first and only
// establishes the replacement after the debounce delay elapses. The
// previous snapshot channel is closed so stale consumers stop.
func (s *Store[T]) Subscribe() <-chan Snapshot[T] {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make(chan Snapshot[T], 16)
	if s.closed {
		close(out)
		return out
	}

	switch s.state {
	case stateSubscribing, stateActive, stateTearingDown:
		s.teardownLocked()
		s.out = out
		s.state = stateTearingDown
		s.resub = time.AfterFunc(resubscribeDebounce, func() {
			s.mu.Lock()
			defer s.mu.Unlock()
			if s.closed || s.state != stateTearingDown || s.out != out {
				return
			}
			s.establishLocked()
		})
	default:
		s.out = out
		s.establishLocked()
	}
	return out
}

// establishLocked registers the listener and delivers the initial
// snapshot. Caller holds s.mu.
func (s *Store[T]) establishLocked() {
	s.state = stateSubscribing

	if err := s.notifier.Listen(s.channel); err != nil {
		if isDuplicateListener(err) {
			// The backend thinks a listener is already registered for
			// this channel. Tear down and fall back to a one-shot
			// fetch so consumers still get current data; the error is
			// still surfaced, not suppressed.
			_ = s.notifier.Unlisten(s.channel)
			if items, loadErr := s.load(); loadErr == nil {
				s.items = items
			}
			s.emitLocked(Snapshot[T]{Items: s.items, Err: err})
			s.state = stateIdle
			return
		}
		s.emitLocked(Snapshot[T]{Err: err})
		s.state = stateIdle
		return
	}

	s.state = stateActive
	stop := make(chan struct{})
	s.stop = stop
	go s.pump(stop)

	items, err := s.load()
	if err == nil {
		s.items = items
	}
	s.emitLocked(Snapshot[T]{Items: s.items, Err: err})
}

// pump forwards push notifications into mirror refreshes until the
// subscription is torn down.
func (s *Store[T]) pump(stop <-chan struct{}) {
	for {
		select {
		case <-stop:
			return
		case _, ok := <-s.notifier.NotificationChannel():
			if !ok {
				return
			}
			// pq delivers nil after a reconnect; either way the mirror
			// may be stale, so refetch.
			s.onNotify(stop)
		}
	}
}

func (s *Store[T]) onNotify(stop <-chan struct{}) {
	s.mu.Lock()
	defer s.mu.Unlock()
	// A late delivery can arrive after the consumer disposed the store
	// or resubscribed; it must not mutate state.
	if s.closed || s.state != stateActive || s.stop != stop {
		return
	}
	items, err := s.load()
	if err != nil {
		s.emitLocked(Snapshot[T]{Items: s.items, Err: err})
		return
	}
	s.items = items
	s.emitLocked(Snapshot[T]{Items: items})
}

// teardownLocked cancels the pending resubscribe timer, stops the pump
// and unregisters the listener. Caller holds s.mu.
func (s *Store[T]) teardownLocked() {
	if s.resub != nil {
		s.resub.Stop()
		s.resub = nil
	}
	if s.stop != nil {
		close(s.stop)
		s.stop = nil
	}
	if s.state == stateActive || s.state == stateSubscribing {
		if err := s.notifier.Unlisten(s.channel); err != nil {
			log.Printf("⚠️  unlisten %s: %v", s.channel, err)
		}
	}
	if s.out != nil {
		close(s.out)
		s.out = nil
	}
	s.state = stateIdle
}

// Close disposes the store. After Close returns no further state
// mutation occurs, even if an in-flight notification arrives late.
func (s *Store[T]) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	s.teardownLocked()
	return s.notifier.Close()
}

// CurrentItems returns the latest mirrored state. It reflects writes
// issued through this store immediately, without waiting for the next
// push delivery.
func (s *Store[T]) CurrentItems() []T {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]T, len(s.items))
	copy(out, s.items)
	return out
}

// Refresh re-reads the collection into the cursor. Active subscribers
// also receive the refreshed snapshot.
func (s *Store[T]) Refresh() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.refreshLocked()
}

func (s *Store[T]) refreshLocked() error {
	if s.closed {
		return ErrStoreClosed
	}
	items, err := s.load()
	if err != nil {
		return err
	}
	s.items = items
	if s.state == stateActive {
		s.emitLocked(Snapshot[T]{Items: items})
	}
	return nil
}

// Create inserts a record. Audit fields on the record are the caller's
// responsibility; the cursor is refreshed eagerly so a read in the same
// synchronous flow sees the new row.
func (s *Store[T]) Create(record *T) error {
	if err := s.db.Table(s.table).Create(record).Error; err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.refreshLocked(); err != nil && !errors.Is(err, ErrStoreClosed) {
		log.Printf("⚠️  %s: cursor refresh after create failed: %v", s.table, err)
	}
	return nil
}

// Update applies a partial update. Nil-valued fields are stripped
// before sending, the backend rejects undefined values. Performer and
// timestamp metadata are stamped on every update.
func (s *Store[T]) Update(id string, fields map[string]interface{}, actor string) error {
	payload := stripNil(fields)
	payload["updated_by"] = actor
	payload["updated_at"] = time.Now()

	res := s.db.Table(s.table).Where("id = ?", id).Updates(payload)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.refreshLocked(); err != nil && !errors.Is(err, ErrStoreClosed) {
		log.Printf("⚠️  %s: cursor refresh after update failed: %v", s.table, err)
	}
	return nil
}

// Delete soft-removes a record by storage id. Rows are never hard
// deleted through the store; the delete is an update that sets
// deleted_at, so it carries the same performer and timestamp metadata
// as any other update.
func (s *Store[T]) Delete(id, actor string) error {
	return s.Update(id, map[string]interface{}{"deleted_at": time.Now()}, actor)
}

// DB exposes the underlying handle for multi-collection transactions
// (contract renewal wraps two writes in one).
func (s *Store[T]) DB() *gorm.DB { return s.db }

// emitLocked delivers a snapshot without blocking; if the consumer has
// fallen far behind the oldest pending snapshot is dropped, later
// deliveries always carry the full current state.
func (s *Store[T]) emitLocked(snap Snapshot[T]) {
	if s.out == nil {
		return
	}
	select {
	case s.out <- snap:
	default:
		select {
		case <-s.out:
		default:
		}
		select {
		case s.out <- snap:
		default:
		}
	}
}

// stripNil drops nil-valued entries from a partial update payload.
func stripNil(fields map[string]interface{}) map[string]interface{} {
	out := make(map[string]interface{}, len(fields))
	for k, v := range fields {
		if v == nil {
			continue
		}
		out[k] = v
	}
	return out
}

// isDuplicateListener recognizes the backend's "listener already
// registered" error class.
func isDuplicateListener(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, pq.ErrChannelAlreadyOpen) {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "already open") || strings.Contains(msg, "already registered")
}
