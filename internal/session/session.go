// Package session keeps per-user conversation state between messages: the
// most recently analyzed item and any shipping size or weight the user sent.
package session

import (
	"context"
	"slices"
	"time"

	"github.com/garyellow/sedori-linebot-go/internal/triage"
)

// UnknownName is shown when the item name could not be determined.
const UnknownName = "不明"

// DefaultTTL is how long a session survives without updates.
const DefaultTTL = 6 * time.Hour

// Item is the analyzed product a session refers to.
type Item struct {
	Name      string   `json:"name"`
	Keywords  []string `json:"keywords,omitempty"`
	Category  *string  `json:"category,omitempty"`
	PriceLow  *int     `json:"price_low,omitempty"`
	PriceHigh *int     `json:"price_high,omitempty"`
}

// PriceRange returns both bounds when the item carries a full range.
func (i *Item) PriceRange() (low, high int, ok bool) {
	if i == nil || i.PriceLow == nil || i.PriceHigh == nil {
		return 0, 0, false
	}
	return *i.PriceLow, *i.PriceHigh, true
}

// Session is the state kept for one user.
type Session struct {
	UserID           string      `json:"user_id"`
	LastUpdated      time.Time   `json:"last_updated"`
	Item             *Item       `json:"item,omitempty"`
	ShippingSize     triage.Size `json:"shipping_size,omitempty"`
	ShippingWeightKg *float64    `json:"shipping_weight_kg,omitempty"`
}

// New starts an empty session for userID.
func New(userID string, now time.Time) *Session {
	return &Session{UserID: userID, LastUpdated: now}
}

// Expired reports whether the session is older than ttl at now.
func (s *Session) Expired(now time.Time, ttl time.Duration) bool {
	return now.Sub(s.LastUpdated) > ttl
}

// ItemName returns the item name, or "" before any image was analyzed.
func (s *Session) ItemName() string {
	if s.Item == nil {
		return ""
	}
	return s.Item.Name
}

// EstimateShipping recomputes shipping from the current session fields.
func (s *Session) EstimateShipping() int {
	return triage.EstimateShipping(s.ShippingSize, s.ShippingWeightKg, s.ItemName())
}

// ReplaceItem swaps in a newly analyzed item, keeping shipping inputs.
func (s *Session) ReplaceItem(item *Item, now time.Time) {
	s.Item = item
	s.LastUpdated = now
}

// SetSize records a shipping size.
func (s *Session) SetSize(size triage.Size, now time.Time) {
	s.ShippingSize = size
	s.LastUpdated = now
}

// SetWeight records a shipping weight in kilograms.
func (s *Session) SetWeight(kg float64, now time.Time) {
	s.ShippingWeightKg = &kg
	s.LastUpdated = now
}

// Clone returns a deep copy so callers never share mutable state with a store.
func (s *Session) Clone() *Session {
	if s == nil {
		return nil
	}
	c := *s
	if s.ShippingWeightKg != nil {
		w := *s.ShippingWeightKg
		c.ShippingWeightKg = &w
	}
	if s.Item != nil {
		item := *s.Item
		item.Keywords = slices.Clone(s.Item.Keywords)
		if s.Item.Category != nil {
			v := *s.Item.Category
			item.Category = &v
		}
		if s.Item.PriceLow != nil {
			v := *s.Item.PriceLow
			item.PriceLow = &v
		}
		if s.Item.PriceHigh != nil {
			v := *s.Item.PriceHigh
			item.PriceHigh = &v
		}
		c.Item = &item
	}
	return &c
}

// Store persists sessions keyed by user id.
//
// Get returns nil, nil for a missing or expired session. Sweep deletes
// expired sessions and is called explicitly at the start of each webhook
// batch rather than on a timer.
type Store interface {
	Get(ctx context.Context, userID string) (*Session, error)
	Save(ctx context.Context, s *Session) error
	Sweep(ctx context.Context) (int, error)
	Count(ctx context.Context) (int, error)
	Ping(ctx context.Context) error
	Close() error
}

// Option configures a Store.
type Option func(*options)

type options struct {
	ttl time.Duration
	now func() time.Time
}

// WithTTL overrides DefaultTTL.
func WithTTL(ttl time.Duration) Option {
	return func(o *options) {
		if ttl > 0 {
			o.ttl = ttl
		}
	}
}

// WithClock overrides time.Now, for tests.
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		if now != nil {
			o.now = now
		}
	}
}

func buildOptions(opts []Option) options {
	o := options{ttl: DefaultTTL, now: time.Now}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}
