package usecase

import (
	"container/list"
	"fmt"
	"sync"

	"vpn-subscription-bot/internal/infra/metrics"
)

const (
	DefaultNotificationCacheCap = 10000
	notificationCacheName       = "expiry_notifications"
)

// NotificationKey identifies one warning: a subject, a threshold and the expiry it was computed for.
// A renewed subscription gets a new expiry and therefore new keys.
type NotificationKey struct {
	SubjectID      int64
	ThresholdHours int
	ExpiresUnix    int64
}

func (k NotificationKey) String() string {
	return fmt.Sprintf("%d:%d:%d", k.SubjectID, k.ThresholdHours, k.ExpiresUnix)
}

// NotificationCache remembers which warnings were delivered, in insertion order.
// When it grows past cap it drops the oldest keys until cap/2 remain.
type NotificationCache struct {
	mu    sync.Mutex
	cap   int
	order *list.List
	index map[NotificationKey]*list.Element
}

func NewNotificationCache(capacity int) *NotificationCache {
	if capacity <= 0 {
		capacity = DefaultNotificationCacheCap
	}
	return &NotificationCache{
		cap:   capacity,
		order: list.New(),
		index: make(map[NotificationKey]*list.Element, capacity),
	}
}

func (c *NotificationCache) Contains(k NotificationKey) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.index[k]
	if ok {
		metrics.IncCacheRequest(notificationCacheName, "hit")
	} else {
		metrics.IncCacheRequest(notificationCacheName, "miss")
	}
	return ok
}

// Add records k. Re-adding a present key keeps its original position.
func (c *NotificationCache) Add(k NotificationKey) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.index[k]; ok {
		return
	}
	c.index[k] = c.order.PushBack(k)

	if c.order.Len() > c.cap {
		evicted := 0
		for c.order.Len() > c.cap/2 {
			front := c.order.Front()
			c.order.Remove(front)
			delete(c.index, front.Value.(NotificationKey))
			evicted++
		}
		metrics.AddCacheEvictions(notificationCacheName, evicted)
	}
	metrics.SetCacheEntries(notificationCacheName, c.order.Len())
}

func (c *NotificationCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.order.Len()
}
