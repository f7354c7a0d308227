package domain

import "time"

// TopicCountersUpdated carries a CounterEvent after every successful update
const TopicCountersUpdated = "counters.updated"

// CounterEvent describes one applied update
type CounterEvent struct {
	ID        string    `json:"id"`
	Key       Key       `json:"key"`
	Delta     int64     `json:"delta"`
	Value     int64     `json:"value"`
	Counters  Counters  `json:"counters"`
	Timestamp time.Time `json:"timestamp"`
}
