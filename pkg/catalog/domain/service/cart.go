package service

import (
	"context"

	"recordstore/pkg/catalog/domain/model"
)

// AddToCart applies the mutation optimistically before the gateway call:
// the record is marked in-cart and its amount incremented immediately, so
// a successful confirmation changes nothing further. A failed call rolls
// the record back to a hard reset (not in cart, amount zero). Without an
// identity the call is silently skipped.
func (s *catalogScreen) AddToCart(ctx context.Context, email string, recordID int) error {
	if email == "" {
		return nil
	}

	s.mu.Lock()
	rec, ok := s.findLocked(recordID)
	if !ok {
		s.mu.Unlock()
		return nil
	}
	s.mutateLocked(recordID, func(r *model.Record) {
		r.InCart = true
		r.Amount++
	})
	s.publishLocked()
	s.mu.Unlock()

	if err := s.cartGW.Add(ctx, email, rec); err != nil {
		s.mu.Lock()
		s.mutateLocked(recordID, func(r *model.Record) {
			r.InCart = false
			r.Amount = 0
		})
		s.publishLocked()
		s.mu.Unlock()
		s.fail(err.Error())
		return err
	}
	return nil
}

// RemoveFromCart decrements optimistically, clearing the in-cart flag when
// the amount reaches zero. A failed call rolls back additively: one more
// than the pre-mutation amount, in-cart flag forced on. It does not
// recompute from the decremented value, so a failed remove on amount=1
// lands on 2, not 1.
func (s *catalogScreen) RemoveFromCart(ctx context.Context, email string, recordID int) error {
	if email == "" {
		return nil
	}

	s.mu.Lock()
	rec, ok := s.findLocked(recordID)
	if !ok || !rec.InCart {
		s.mu.Unlock()
		return nil
	}
	prior := rec.Amount
	s.mutateLocked(recordID, func(r *model.Record) {
		if r.Amount > 0 {
			r.Amount--
		}
		r.InCart = r.Amount > 0
	})
	s.publishLocked()
	s.mu.Unlock()

	if err := s.cartGW.Remove(ctx, email, rec); err != nil {
		s.mu.Lock()
		s.mutateLocked(recordID, func(r *model.Record) {
			r.Amount = prior + 1
			r.InCart = true
		})
		s.publishLocked()
		s.mu.Unlock()
		s.fail(err.Error())
		return err
	}
	return nil
}

func (s *catalogScreen) findLocked(recordID int) (model.Record, bool) {
	for _, r := range s.records {
		if r.ID == recordID {
			return r, true
		}
	}
	return model.Record{}, false
}

func (s *catalogScreen) mutateLocked(recordID int, apply func(*model.Record)) {
	for i := range s.records {
		if s.records[i].ID == recordID {
			apply(&s.records[i])
		}
	}
}
