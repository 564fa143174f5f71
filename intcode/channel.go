package intcode

import "sync"

// NewChannel returns the two ends of an unbounded FIFO of values. Values are
// received in the order they were sent.
//
// Each end is meant to have a single owner at a time: a Machine, a driver,
// or another Machine's opposite end.
func NewChannel() (*Sender, *Receiver) {
	q := &queue{
		ready: make(chan struct{}, 1),
		done:  make(chan struct{}),
	}
	return &Sender{q}, &Receiver{q}
}

type queue struct {
	mu       sync.Mutex
	vals     []int64
	closed   bool // sender closed
	detached bool // receiver closed

	ready chan struct{} // signalled after each push
	done  chan struct{} // closed when either end closes
	once  sync.Once
}

func (q *queue) shut() { q.once.Do(func() { close(q.done) }) }

func (q *queue) push(v int64) error {
	q.mu.Lock()
	if q.closed || q.detached {
		q.mu.Unlock()
		return ChannelClosed
	}
	q.vals = append(q.vals, v)
	q.mu.Unlock()
	select {
	case q.ready <- struct{}{}:
	default:
	}
	return nil
}

func (q *queue) pop() (v int64, ok bool, err error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.vals) > 0 {
		v = q.vals[0]
		q.vals = q.vals[1:]
		return v, true, nil
	}
	if q.closed || q.detached {
		return 0, false, ChannelClosed
	}
	return 0, false, nil
}

// Sender is the sending end of a channel.
type Sender struct {
	q *queue
}

// Send queues v. It fails with ChannelClosed if either end has been closed.
func (s *Sender) Send(v int64) error { return s.q.push(v) }

// Close closes the channel. Values already queued are still delivered; after
// that, receives fail with ChannelClosed.
func (s *Sender) Close() {
	s.q.mu.Lock()
	s.q.closed = true
	s.q.mu.Unlock()
	s.q.shut()
}

// Receiver is the receiving end of a channel.
type Receiver struct {
	q *queue
}

// TryRecv returns the next value without blocking. ok is false when no value
// is queued; err is ChannelClosed if none ever will be.
func (r *Receiver) TryRecv() (v int64, ok bool, err error) { return r.q.pop() }

// Recv blocks until a value is available or the channel is closed.
func (r *Receiver) Recv() (int64, error) {
	for {
		v, ok, err := r.q.pop()
		if ok || err != nil {
			return v, err
		}
		select {
		case <-r.q.ready:
		case <-r.q.done:
		}
	}
}

// Ready returns a channel that receives a token after values are sent. A
// token may be stale; callers should follow up with TryRecv.
func (r *Receiver) Ready() <-chan struct{} { return r.q.ready }

// Len returns the number of queued values.
func (r *Receiver) Len() int {
	r.q.mu.Lock()
	defer r.q.mu.Unlock()
	return len(r.q.vals)
}

// Drain removes and returns all queued values.
func (r *Receiver) Drain() []int64 {
	r.q.mu.Lock()
	defer r.q.mu.Unlock()
	vals := r.q.vals
	r.q.vals = nil
	return vals
}

// Close detaches the receiving end. Subsequent sends fail with
// ChannelClosed.
func (r *Receiver) Close() {
	r.q.mu.Lock()
	r.q.detached = true
	r.q.mu.Unlock()
	r.q.shut()
}
