package services

import "sync"

// TripBroker fans out "trip changed" notifications to stream subscribers.
// It only carries trip ids; subscribers re-read the trip themselves.
type TripBroker struct {
	mu   sync.Mutex
	subs map[int64]map[chan struct{}]struct{}
}

func NewTripBroker() *TripBroker {
	return &TripBroker{subs: map[int64]map[chan struct{}]struct{}{}}
}

// Subscribe returns a channel that receives at least one signal after every
// Publish for tripID. Signals coalesce while the subscriber is busy.
func (b *TripBroker) Subscribe(tripID int64) (<-chan struct{}, func()) {
	ch := make(chan struct{}, 1)
	b.mu.Lock()
	if b.subs == nil {
		b.subs = map[int64]map[chan struct{}]struct{}{}
	}
	if b.subs[tripID] == nil {
		b.subs[tripID] = map[chan struct{}]struct{}{}
	}
	b.subs[tripID][ch] = struct{}{}
	b.mu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			b.mu.Lock()
			defer b.mu.Unlock()
			delete(b.subs[tripID], ch)
			if len(b.subs[tripID]) == 0 {
				delete(b.subs, tripID)
			}
		})
	}
	return ch, cancel
}

// Publish never blocks. A nil broker is a no-op so services work without one.
func (b *TripBroker) Publish(tripID int64) {
	if b == nil {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	for ch := range b.subs[tripID] {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}

// Subscribers is the number of live subscriptions on tripID.
func (b *TripBroker) Subscribers(tripID int64) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs[tripID])
}
