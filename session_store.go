package portal

import (
	"context"
	"sync"

	"github.com/goliatone/go-errors"
)

// Snapshot is an immutable view of the session state handed to
// subscribers and to the route guard.
type Snapshot struct {
	Identity  *Identity
	Resolving bool
	Err       error
}

// IsAuthenticated reports whether the snapshot carries an identity.
func (s Snapshot) IsAuthenticated() bool {
	return s.Identity != nil
}

type StoreOption func(*Store)

func WithStoreLogger(l Logger) StoreOption {
	return func(s *Store) {
		if l != nil {
			s.logger = l
		}
	}
}

func WithStoreNotifier(n Notifier) StoreOption {
	return func(s *Store) {
		if n != nil {
			s.notifier = n
		}
	}
}

// Store holds the process-wide session: the current identity, or absent,
// plus a resolving flag that starts true and clears once the first
// session notification has been fully resolved.
//
// Every asynchronous resolution is stamped with a monotonically
// increasing operation token; a resolution that is no longer the latest
// is discarded when it completes, so a slow lookup can never clobber the
// outcome of a newer login or logout.
type Store struct {
	mu       sync.Mutex
	provider IdentityService
	profiles ProfileStore
	logger   Logger
	notifier Notifier

	current   *Identity
	err       error
	resolving bool
	latestOp  uint64

	subs    map[int]func(Snapshot)
	nextSub int
	stop    Unsubscribe
	closed  bool
}

// NewStore creates a session store. It reports resolving until Start has
// been called and the first session notification settles.
func NewStore(provider IdentityService, profiles ProfileStore, opts ...StoreOption) *Store {
	s := &Store{
		provider:  provider,
		profiles:  profiles,
		logger:    defLogger{},
		notifier:  noopNotifier{},
		resolving: true,
		subs:      map[int]func(Snapshot){},
	}

	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}

	return s
}

// Start subscribes the store to the identity service's session feed. The
// context bounds the profile lookups triggered by the feed. Calling
// Start more than once, or after Close, is a no-op.
func (s *Store) Start(ctx context.Context) {
	s.mu.Lock()
	if s.closed || s.stop != nil {
		s.mu.Unlock()
		return
	}
	s.mu.Unlock()

	stop := s.provider.OnSessionChange(func(change SessionChange) {
		s.handleChange(ctx, change)
	})

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		stop()
		return
	}
	s.stop = stop
	s.mu.Unlock()
}

// Close unregisters the session callback and drops all subscribers. No
// notifications are delivered after Close returns.
func (s *Store) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	stop := s.stop
	s.stop = nil
	s.subs = map[int]func(Snapshot){}
	s.mu.Unlock()

	if stop != nil {
		stop()
	}
}

// Current returns a copy of the current identity, nil when absent.
func (s *Store) Current() *Identity {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.current == nil {
		return nil
	}
	identity := *s.current
	return &identity
}

// Resolving reports whether a session resolution is in flight.
func (s *Store) Resolving() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.resolving
}

// Err returns the error the last resolution settled with, if any.
func (s *Store) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

// IsAuthenticated reports whether an identity is present.
func (s *Store) IsAuthenticated() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current != nil
}

// Snapshot returns an immutable view of the current state.
func (s *Store) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

// Subscribe registers fn to run on every state change. Subscribers are
// invoked outside the store lock with an immutable snapshot.
func (s *Store) Subscribe(fn func(Snapshot)) Unsubscribe {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return func() {}
	}

	id := s.nextSub
	s.nextSub++
	s.subs[id] = fn

	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.subs, id)
	}
}

func (s *Store) handleChange(ctx context.Context, change SessionChange) {
	op := s.begin()

	if !change.Active {
		s.finish(op, nil, nil)
		return
	}

	record, err := s.profiles.Get(ctx, change.UserID)
	if err != nil {
		if errors.IsNotFound(err) || IsProfileMissing(err) {
			s.logger.Warn("session for %s has no profile record, failing closed", change.UserID)
			s.notifier.Error(ErrProfileMissing.Message)
			s.finish(op, nil, ErrProfileMissing)
			return
		}

		s.logger.Error("profile lookup failed for %s: %v", change.UserID, err)
		s.finish(op, nil, errors.Wrap(err, errors.CategoryInternal, "profile lookup failed"))
		return
	}

	identity := NewIdentity(change.UserID, record)
	s.finish(op, &identity, nil)
}

// begin stamps a new resolution and marks the store as resolving.
func (s *Store) begin() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.latestOp++
	s.resolving = true
	return s.latestOp
}

// finish applies the outcome of resolution op unless it was superseded
// by a newer one, then notifies subscribers.
func (s *Store) finish(op uint64, identity *Identity, err error) {
	s.mu.Lock()
	if s.closed || op != s.latestOp {
		s.mu.Unlock()
		return
	}

	s.current = identity
	s.err = err
	s.resolving = false

	snap := s.snapshotLocked()
	subs := make([]func(Snapshot), 0, len(s.subs))
	for _, fn := range s.subs {
		subs = append(subs, fn)
	}
	s.mu.Unlock()

	for _, fn := range subs {
		fn(snap)
	}
}

// settle clears the resolving flag for op without touching the identity.
func (s *Store) settle(op uint64) {
	s.mu.Lock()
	if s.closed || op != s.latestOp {
		s.mu.Unlock()
		return
	}

	s.resolving = false

	snap := s.snapshotLocked()
	subs := make([]func(Snapshot), 0, len(s.subs))
	for _, fn := range s.subs {
		subs = append(subs, fn)
	}
	s.mu.Unlock()

	for _, fn := range subs {
		fn(snap)
	}
}

func (s *Store) snapshotLocked() Snapshot {
	snap := Snapshot{
		Resolving: s.resolving,
		Err:       s.err,
	}
	if s.current != nil {
		identity := *s.current
		snap.Identity = &identity
	}
	return snap
}
