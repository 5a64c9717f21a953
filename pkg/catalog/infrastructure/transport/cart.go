package transport

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"recordstore/pkg/catalog/domain/model"
)

// CartPublisher receives the full cart contents after every successful
// mutation; the events.CartChannel satisfies it.
type CartPublisher interface {
	PublishSnapshot(items []model.CartItem)
}

// CartGateway performs cart mutations against the remote endpoints. The
// server answers each mutation with the full current cart, which is
// broadcast to the cart channel so every open screen re-reconciles.
type CartGateway struct {
	client  *Client
	channel CartPublisher
}

func NewCartGateway(c *Client, channel CartPublisher) *CartGateway {
	return &CartGateway{client: c, channel: channel}
}

func (g *CartGateway) Add(ctx context.Context, email string, r model.Record) error {
	body, err := g.client.doJSON(ctx, http.MethodPost, cartItemPath(email, r.ID), nil)
	if err != nil {
		return errors.Wrap(err, "add to cart")
	}
	g.broadcast(body)
	return nil
}

func (g *CartGateway) Remove(ctx context.Context, email string, r model.Record) error {
	body, err := g.client.doJSON(ctx, http.MethodDelete, cartItemPath(email, r.ID), nil)
	if err != nil {
		return errors.Wrap(err, "remove from cart")
	}
	g.broadcast(body)
	return nil
}

// Fetch loads the current cart contents, used to seed the screen on open.
func (g *CartGateway) Fetch(ctx context.Context, email string) ([]model.CartItem, error) {
	body, err := g.client.doJSON(ctx, http.MethodGet, "cart/"+url.PathEscape(email), nil)
	if err != nil {
		return nil, errors.Wrap(err, "fetch cart")
	}
	return decodeCartItems(body), nil
}

func (g *CartGateway) broadcast(body []byte) {
	if g.channel == nil {
		return
	}
	g.channel.PublishSnapshot(decodeCartItems(body))
}

func decodeCartItems(raw []byte) []model.CartItem {
	env := decodeEnvelope(raw)
	if env.kind == envelopeInvalid || env.kind == envelopeObject {
		log.Warn("unrecognized cart envelope, treating as empty")
		return []model.CartItem{}
	}
	items := make([]model.CartItem, 0, len(env.items))
	for _, entry := range env.items {
		var item model.CartItem
		if err := json.Unmarshal(entry, &item); err != nil {
			log.WithError(err).Warn("skipping malformed cart entry")
			continue
		}
		items = append(items, item)
	}
	return items
}

func cartItemPath(email string, recordID int) string {
	return fmt.Sprintf("cart/%s/items/%d", url.PathEscape(email), recordID)
}
