package domain

import "time"

// MaxQueueRetries is the number of failed attempts after which an entry is dropped.
const MaxQueueRetries = 3

// QueueEntry is one pending product in the work queue, keyed by ProductID.
type QueueEntry struct {
	ProductID  int64     `json:"product_id"`
	Sku        string    `json:"sku,omitempty"`
	Kind       SyncKind  `json:"sync_kind,omitempty"`
	Trigger    string    `json:"trigger"`
	EnqueuedAt time.Time `json:"added_at"`
	RetryCount int       `json:"retry_count"`
}

// QueueSnapshot is the whole persisted queue.
type QueueSnapshot map[int64]QueueEntry

func (s QueueSnapshot) Clone() QueueSnapshot {
	out := make(QueueSnapshot, len(s))
	for k, v := range s {
		out[k] = v
	}
	return out
}

type QueueStats struct {
	Total    int        `json:"total"`
	Pending  int        `json:"pending"`
	Retrying int        `json:"retrying"`
	Oldest   *time.Time `json:"oldest,omitempty"`
}

type DrainResult struct {
	Succeeded     int `json:"succeeded"`
	Retried       int `json:"retried"`
	FailedDropped int `json:"failed_dropped"`
	Vanished      int `json:"vanished"`
	Remaining     int `json:"remaining"`
}
