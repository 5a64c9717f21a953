package events

import (
	"context"
	"encoding/json"

	amqp "github.com/rabbitmq/amqp091-go"
	log "github.com/sirupsen/logrus"

	"recordstore/pkg/catalog/domain/model"
)

// StockFeed bridges an out-of-process stock update queue into the local
// stock channel. Other services of the deployment publish JSON
// {"recordId": n, "newStock": m} messages whenever stock changes; the feed
// replays them in delivery order so every open screen converges.
type StockFeed struct {
	conn  *amqp.Connection
	ch    *amqp.Channel
	queue string
	out   *StockChannel
}

func NewStockFeed(amqpURL, queue string, out *StockChannel) (*StockFeed, error) {
	conn, err := amqp.Dial(amqpURL)
	if err != nil {
		return nil, err
	}
	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, err
	}
	if _, err := ch.QueueDeclare(queue, true, false, false, false, nil); err != nil {
		ch.Close()
		conn.Close()
		return nil, err
	}
	return &StockFeed{conn: conn, ch: ch, queue: queue, out: out}, nil
}

// Run consumes the queue until the context ends or the broker closes the
// delivery stream. Malformed messages are acked and skipped.
func (f *StockFeed) Run(ctx context.Context) error {
	deliveries, err := f.ch.Consume(f.queue, "", false, false, false, false, nil)
	if err != nil {
		return err
	}
	log.WithField("queue", f.queue).Info("stock feed consuming")
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case d, ok := <-deliveries:
			if !ok {
				return nil
			}
			var e model.StockChanged
			if err := json.Unmarshal(d.Body, &e); err != nil {
				log.WithError(err).Warn("skipping malformed stock message")
				_ = d.Ack(false)
				continue
			}
			f.out.UpdateStock(e.RecordID, e.NewStock)
			_ = d.Ack(false)
		}
	}
}

func (f *StockFeed) Close() error {
	if err := f.ch.Close(); err != nil {
		f.conn.Close()
		return err
	}
	return f.conn.Close()
}
