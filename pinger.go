package main

import (
	"sync"
	"time"
)

// pingTicker drives the keepalive pings for every live connection off a
// single time.Ticker instead of one ticker per connection. Connection
// writers subscribe for ticks; ticks that find a writer busy are dropped,
// a late ping being worse than no ping.
type pingTicker struct {
	mux         sync.Mutex // Protects subscribers
	subscribers pingSubscribers

	tickerMux sync.Mutex // Used to sync start/stop
	ticker    *time.Ticker
	stopCh    chan struct{}
	stopped   bool
}

type pingSubscribers map[*pingSubscriber]interface {
}

type pingSubscriber struct {
	tick chan time.Time
}

func newPingTicker(interval time.Duration) *pingTicker {
	t := &pingTicker{
		subscribers: make(pingSubscribers),
	}

	go func() {
		t.tickerMux.Lock()
		stopped := t.stopped

		if !stopped {
			t.stopCh = make(chan struct{}, 1)
			t.ticker = time.NewTicker(interval)
		}
		t.tickerMux.Unlock()

		if !stopped {
			t.tick()
		}
	}()
	return t
}

// subscribe returns a channel to which ticks will be delivered. Ticks that
// can't be delivered, because the channel is not ready to receive, are
// discarded.
func (t *pingTicker) subscribe() *pingSubscriber {
	t.mux.Lock()
	defer t.mux.Unlock()

	sub := &pingSubscriber{tick: make(chan time.Time, 1)}
	t.subscribers[sub] = nil
	return sub
}

func (t *pingTicker) unsubscribe(sub *pingSubscriber) {
	t.mux.Lock()
	defer t.mux.Unlock()

	if _, ok := t.subscribers[sub]; !ok {
		return
	}
	close(sub.tick)
	delete(t.subscribers, sub)
}

// stop stops the ticker and closes all subscribed channels.
func (t *pingTicker) stop() {
	t.tickerMux.Lock()
	defer t.tickerMux.Unlock()

	if !t.stopped && t.stopCh != nil {
		t.mux.Lock()
		for sub := range t.subscribers {
			close(sub.tick)
			delete(t.subscribers, sub)
		}
		t.mux.Unlock()
		t.ticker.Stop()
		t.stopCh <- struct{}{}
	}
	t.stopped = true
}

func (t *pingTicker) tick() {
	for {
		select {
		case tick := <-t.ticker.C:
			t.mux.Lock()
			for sub := range t.subscribers {
				select {
				case sub.tick <- tick:
				default:
					mark("pings.dropped", 1)
				}
			}
			t.mux.Unlock()
		case <-t.stopCh:
			return
		}
	}
}
