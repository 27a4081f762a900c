package relay

import (
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

const (
	dedupWindow   = 10 * time.Minute
	dedupCapacity = 8192
)

// Dedup remembers recently seen delivery ids so redelivered webhooks are
// dropped instead of creating duplicate tasks or entries.
type Dedup struct {
	cache *expirable.LRU[string, struct{}]
}

// NewDedup builds the delivery-id cache.
func NewDedup() *Dedup {
	return &Dedup{cache: expirable.NewLRU[string, struct{}](dedupCapacity, nil, dedupWindow)}
}

// Seen reports whether id was observed inside the window, recording it
// either way.
func (d *Dedup) Seen(id string) bool {
	if _, seen := d.cache.Get(id); seen {
		return true
	}
	d.cache.Add(id, struct{}{})
	return false
}
