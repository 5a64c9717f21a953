// Package events carries the in-process broadcast channels that keep open
// screens synchronized: stock updates and cart snapshots. Subscribers get
// events strictly in emission order; payloads are tiny, so no backpressure
// handling beyond a per-subscriber buffer is needed.
package events

import (
	"sync"

	log "github.com/sirupsen/logrus"

	"recordstore/pkg/catalog/domain/model"
)

const subscriberBuffer = 64

// StockChannel broadcasts (recordId, newStock) updates. It also satisfies
// the screen's StockPublisher, so a record fetch seeds it directly.
type StockChannel struct {
	mu     sync.Mutex
	subs   []chan model.StockChanged
	closed bool
}

func NewStockChannel() *StockChannel {
	return &StockChannel{}
}

func (c *StockChannel) Subscribe() <-chan model.StockChanged {
	ch := make(chan model.StockChanged, subscriberBuffer)
	c.mu.Lock()
	c.subs = append(c.subs, ch)
	c.mu.Unlock()
	return ch
}

func (c *StockChannel) Unsubscribe(ch <-chan model.StockChanged) {
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

func (c *StockChannel) UpdateStock(recordID, stock int) {
	c.publish(model.StockChanged{RecordID: recordID, NewStock: stock})
}

func (c *StockChannel) publish(e model.StockChanged) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	for _, sub := range c.subs {
		select {
		case sub <- e:
		default:
			log.WithField("recordID", e.RecordID).Warn("stock subscriber buffer full, dropping event")
		}
	}
}

func (c *StockChannel) Close() {
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
