package domain

import "time"

const (
	DefaultPeakBatchSize    = 5
	DefaultOffPeakBatchSize = 20
)

// Classification is the outcome of the time policy for one instant.
type Classification struct {
	IsOffPeak bool          `json:"is_off_peak"`
	SyncKind  SyncKind      `json:"sync_kind"`
	BatchSize int           `json:"batch_size"`
	ItemDelay time.Duration `json:"item_delay"`
}

// TimePolicy is the single place that knows the off-peak window
// (00:00 to 06:30 inclusive, site local time).
type TimePolicy struct {
	Location         *time.Location
	PeakBatchSize    int
	OffPeakBatchSize int
	ForceFullSync    bool
	PeakDelay        time.Duration
	OffPeakDelay     time.Duration
}

// IsOffPeakAt reports true iff hour < 6, or hour == 6 and minute <= 30.
func IsOffPeakAt(t time.Time) bool {
	h, m := t.Hour(), t.Minute()
	return h < 6 || (h == 6 && m <= 30)
}

func (p TimePolicy) Classify(now time.Time) Classification {
	if p.Location != nil {
		now = now.In(p.Location)
	}

	if p.ForceFullSync || IsOffPeakAt(now) {
		return Classification{
			IsOffPeak: true,
			SyncKind:  SyncFull,
			BatchSize: orDefault(p.OffPeakBatchSize, DefaultOffPeakBatchSize),
			ItemDelay: p.OffPeakDelay,
		}
	}
	return Classification{
		IsOffPeak: false,
		SyncKind:  SyncPriceAndQuantity,
		BatchSize: orDefault(p.PeakBatchSize, DefaultPeakBatchSize),
		ItemDelay: p.PeakDelay,
	}
}

func orDefault(v, def int) int {
	if v <= 0 {
		return def
	}
	return v
}
