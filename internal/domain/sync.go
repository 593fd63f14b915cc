package domain

import (
	"fmt"
	"time"
)

// SyncKind decide que campos empuja la integracion al destino.
type SyncKind string

const (
	SyncFull             SyncKind = "full_product"
	SyncPriceAndQuantity SyncKind = "price_and_quantity"
	SyncQuantityOnly     SyncKind = "quantity"
)

func ParseSyncKind(s string) (SyncKind, error) {
	switch SyncKind(s) {
	case SyncFull, SyncPriceAndQuantity, SyncQuantityOnly:
		return SyncKind(s), nil
	case "full":
		return SyncFull, nil
	case "light":
		return SyncPriceAndQuantity, nil
	}
	return "", fmt.Errorf("unknown sync kind %q", s)
}

// IsFull reports whether the kind pushes the whole product.
func (k SyncKind) IsFull() bool { return k == SyncFull }

// SyncNeed is the pending work recorded for a product. Full subsumes Light.
type SyncNeed int

const (
	NeedNone SyncNeed = iota
	NeedLight
	NeedFull
)

func (n SyncNeed) String() string {
	switch n {
	case NeedLight:
		return "light"
	case NeedFull:
		return "full"
	default:
		return "none"
	}
}

// SyncState es el estado persistido por producto.
type SyncState struct {
	ProductID    int64
	Need         SyncNeed
	MarkedAt     time.Time
	LastSyncAt   *time.Time
	LastSyncKind SyncKind
	SyncedStores []string
}

func (s *SyncState) MarkFull(now time.Time) {
	s.Need = NeedFull
	s.MarkedAt = now
}

func (s *SyncState) MarkLight(now time.Time) {
	if s.Need != NeedFull {
		s.Need = NeedLight
	}
	s.MarkedAt = now
}

// NeverSynced is the first-sync condition: always eligible for a full sync.
func (s SyncState) NeverSynced() bool { return s.LastSyncAt == nil }

// SyncedTo reports whether the product already reached the given store.
func (s SyncState) SyncedTo(storeURL string) bool {
	for _, u := range s.SyncedStores {
		if u == storeURL {
			return true
		}
	}
	return false
}

// CompleteSync records a successful sync started at startedAt.
//
// A full sync clears any need, a light/quantity sync clears only Light.
// If the product was marked again after startedAt the need is kept so the
// concurrent change is picked up by the next pass.
func (s *SyncState) CompleteSync(kind SyncKind, startedAt time.Time, stores []string, now time.Time) {
	t := now
	s.LastSyncAt = &t
	s.LastSyncKind = kind

	for _, u := range stores {
		if !s.SyncedTo(u) {
			s.SyncedStores = append(s.SyncedStores, u)
		}
	}

	if s.MarkedAt.After(startedAt) {
		return
	}
	switch {
	case kind.IsFull():
		s.Need = NeedNone
	case s.Need == NeedLight:
		s.Need = NeedNone
	}
}
