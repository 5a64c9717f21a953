package events

import (
	"sync"

	log "github.com/sirupsen/logrus"

	"recordstore/pkg/catalog/domain/model"
)

// CartChannel broadcasts the full current cart contents after every
// mutation. Each screen replays snapshots independently; the channel is
// the single source of truth for cart membership.
type CartChannel struct {
	mu     sync.Mutex
	subs   []chan model.CartSnapshot
	closed bool
}

func NewCartChannel() *CartChannel {
	return &CartChannel{}
}

func (c *CartChannel) Subscribe() <-chan model.CartSnapshot {
	ch := make(chan model.CartSnapshot, subscriberBuffer)
	c.mu.Lock()
	c.subs = append(c.subs, ch)
	c.mu.Unlock()
	return ch
}

func (c *CartChannel) Unsubscribe(ch <-chan model.CartSnapshot) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i, sub := range c.subs {
		if sub == ch {
			c.subs = append(c.subs[:i], c.subs[i+1:]...)
			close(sub)
			return
		}
	}
}

func (c *CartChannel) PublishSnapshot(items []model.CartItem) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	snap := model.CartSnapshot{Items: items}
	for _, sub := range c.subs {
		select {
		case sub <- snap:
		default:
			log.Warn("cart subscriber buffer full, dropping snapshot")
		}
	}
}

func (c *CartChannel) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	for _, sub := range c.subs {
		close(sub)
	}
	c.subs = nil
}
