package conv

import (
	"context"
	"log"
	"sync"
	"sync/atomic"
	"time"
)

const (
	// defaultPollInterval is deliberately fixed, not adaptive: polling is
	// the correctness backstop for missed push events, not an optimization.
	defaultPollInterval = 3 * time.Second
	// defaultResubscribeWait spaces retries after a dropped push channel.
	defaultResubscribeWait = time.Second
)

// Session is one open thread: a reconciler fed by the three delivery
// channels (initial load, push subscription, poll fallback) plus the local
// send pipeline. Selecting a thread opens a session; deselecting closes it,
// which cancels the subscription and stops the poll timer.
type Session struct {
	// PollInterval and ResubscribeWait may be set before Start.
	PollInterval    time.Duration
	ResubscribeWait time.Duration

	key   ThreadKey
	self  string
	store Store
	recon *Reconciler

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	// updates is a capacity-1 wakeup for the render side; coalescing is
	// fine because readers re-snapshot.
	updates chan struct{}

	loaded    atomic.Bool
	loadErrMu sync.Mutex
	loadErr   error
}

// NewSession prepares a session for key on behalf of self. Nothing runs
// until Start.
func NewSession(st Store, key ThreadKey, self string) *Session {
	return &Session{
		PollInterval:    defaultPollInterval,
		ResubscribeWait: defaultResubscribeWait,
		key:             key,
		self:            self,
		store:           st,
		recon:           NewReconciler(key),
		updates:         make(chan struct{}, 1),
	}
}

// Start launches the three delivery channel adapters. They all funnel into
// the reconciler; none of them touches the log directly.
func (s *Session) Start(ctx context.Context) {
	s.ctx, s.cancel = context.WithCancel(ctx)

	s.wg.Add(3)
	go s.loadInitial()
	go s.listenPush()
	go s.pollLoop()
}

// Close tears the session down: unsubscribes push, stops the poll timer,
// waits for the adapters to exit. A send still in flight resolves on its
// own detached context.
func (s *Session) Close() {
	if s.cancel != nil {
		s.cancel()
	}
	s.wg.Wait()
}

// Key returns the thread this session is bound to.
func (s *Session) Key() ThreadKey { return s.key }

// Log returns the current ordered conversation log.
func (s *Session) Log() []Message { return s.recon.Snapshot() }

// Updates signals after mutations. Readers should drain and re-snapshot.
func (s *Session) Updates() <-chan struct{} { return s.updates }

// Done is closed once the session is deselected.
func (s *Session) Done() <-chan struct{} { return s.ctx.Done() }

// Loaded reports whether the initial bulk fetch has completed.
func (s *Session) Loaded() bool { return s.loaded.Load() }

// LoadError returns the initial load failure, if any. The log stays empty
// on failure; Reload retries.
func (s *Session) LoadError() error {
	s.loadErrMu.Lock()
	defer s.loadErrMu.Unlock()
	return s.loadErr
}

func (s *Session) setLoadErr(err error) {
	s.loadErrMu.Lock()
	s.loadErr = err
	s.loadErrMu.Unlock()
}

// Reload re-runs the bulk fetch after a failed initial load. Duplicate
// delivery against whatever poll and push brought in meanwhile is absorbed
// by the reconciler.
func (s *Session) Reload(ctx context.Context) error {
	msgs, err := s.store.FetchMessages(ctx, s.key, time.Time{})
	if err != nil {
		return err
	}
	for _, m := range msgs {
		s.ingestBulk(m)
	}
	s.setLoadErr(nil)
	s.loaded.Store(true)
	s.wake()
	return nil
}

// loadInitial is the one-shot history fetch. Terminal after first success;
// on failure it reports and leaves the log empty for the poll to backfill
// and the caller to Reload.
func (s *Session) loadInitial() {
	defer s.wg.Done()

	msgs, err := s.store.FetchMessages(s.ctx, s.key, time.Time{})
	if err != nil {
		log.Printf("conv: initial load for %s failed: %v", s.key, err)
		s.setLoadErr(err)
		return
	}
	for _, m := range msgs {
		s.ingestBulk(m)
	}
	s.loaded.Store(true)
	s.wake()
}

// listenPush keeps a push subscription alive for the life of the session.
// A closed event channel means the connection dropped; resubscribe after a
// short wait. While disconnected the poll loop alone carries correctness.
func (s *Session) listenPush() {
	defer s.wg.Done()

	for {
		sub, err := s.store.SubscribeInserts(s.ctx, s.key)
		if err != nil {
			if s.ctx.Err() != nil {
				return
			}
			log.Printf("conv: subscribe %s: %v", s.key, err)
			if !s.sleep(s.ResubscribeWait) {
				return
			}
			continue
		}

		s.consume(sub)
		sub.Close()

		if s.ctx.Err() != nil {
			return
		}
		log.Printf("conv: %v for %s, resubscribing", ErrSubscriptionDropped, s.key)
		if !s.sleep(s.ResubscribeWait) {
			return
		}
	}
}

func (s *Session) consume(sub Subscription) {
	for {
		select {
		case m, ok := <-sub.Events():
			if !ok {
				return
			}
			s.ingest(m)
			s.wake()
		case <-s.ctx.Done():
			return
		}
	}
}

// pollLoop fetches past the cursor on a fixed interval. Push delivery is
// not guaranteed, so this is where missed messages get picked up.
func (s *Session) pollLoop() {
	defer s.wg.Done()

	ticker := time.NewTicker(s.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-s.ctx.Done():
			return
		case <-ticker.C:
			s.pollOnce()
		}
	}
}

func (s *Session) pollOnce() {
	// Cursor is read at issue time. It may advance before the result
	// lands; the reconciler's duplicate check filters the overlap.
	since := s.recon.Cursor()

	msgs, err := s.store.FetchMessages(s.ctx, s.key, since)
	if err != nil {
		if s.ctx.Err() == nil {
			log.Printf("conv: poll %s: %v", s.key, err)
		}
		return
	}
	if len(msgs) == 0 {
		return
	}
	for _, m := range msgs {
		s.ingest(m)
	}
	s.wake()
}

func (s *Session) ingest(m Message) {
	if err := s.recon.Ingest(m); err != nil {
		log.Printf("conv: dropping event on %s: %v", s.key, err)
	}
}

// ingestBulk routes history rows past placeholder correlation. Only live
// events may settle an in-flight send.
func (s *Session) ingestBulk(m Message) {
	if err := s.recon.IngestBulk(m); err != nil {
		log.Printf("conv: dropping event on %s: %v", s.key, err)
	}
}

func (s *Session) wake() {
	select {
	case s.updates <- struct{}{}:
	default:
	}
}

// sleep waits d or until the session closes; false means closed.
func (s *Session) sleep(d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return true
	case <-s.ctx.Done():
		return false
	}
}
