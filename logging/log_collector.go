package logging

import (
	"sync"
	"time"
)

// DefaultMaxEntries bounds the records kept per activity.
const DefaultMaxEntries = 500

// LogEntry is one captured record.
type LogEntry struct {
	Time       time.Time      `json:"time"`
	Level      string         `json:"level"`
	Message    string         `json:"message"`
	Attributes map[string]any `json:"attributes,omitempty"`
}

// LogCollector keeps the records of one run, grouped by activity in the
// order activities first logged. Once an activity reaches the limit its
// oldest records are dropped and counted.
type LogCollector struct {
	mu      sync.RWMutex
	max     int
	order   []string
	logs    map[string][]LogEntry
	dropped map[string]int
}

// NewLogCollector creates a collector keeping DefaultMaxEntries per
// activity.
func NewLogCollector() *LogCollector {
	return NewBoundedLogCollector(DefaultMaxEntries)
}

// NewBoundedLogCollector creates a collector keeping at most max records per
// activity. max <= 0 means unbounded.
func NewBoundedLogCollector(max int) *LogCollector {
	return &LogCollector{
		max:     max,
		logs:    make(map[string][]LogEntry),
		dropped: make(map[string]int),
	}
}

// Add records entry for activity.
func (c *LogCollector) Add(activity string, entry LogEntry) {
	c.mu.Lock()
	defer c.mu.Unlock()

	logs, ok := c.logs[activity]
	if !ok {
		c.order = append(c.order, activity)
	}
	if c.max > 0 && len(logs) >= c.max {
		logs = logs[1:]
		c.dropped[activity]++
	}
	c.logs[activity] = append(logs, entry)
}

// Entries returns a copy of the records of activity.
func (c *LogCollector) Entries(activity string) []LogEntry {
	c.mu.RLock()
	defer c.mu.RUnlock()

	logs, ok := c.logs[activity]
	if !ok {
		return nil
	}
	return append([]LogEntry(nil), logs...)
}

// Dropped returns how many records of activity were discarded.
func (c *LogCollector) Dropped(activity string) int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.dropped[activity]
}

// Activities lists the activities that logged, in first-log order.
func (c *LogCollector) Activities() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]string(nil), c.order...)
}

// All returns a copy of every record grouped by activity.
func (c *LogCollector) All() map[string][]LogEntry {
	c.mu.RLock()
	defer c.mu.RUnlock()

	all := make(map[string][]LogEntry, len(c.logs))
	for activity, logs := range c.logs {
		all[activity] = append([]LogEntry(nil), logs...)
	}
	return all
}
