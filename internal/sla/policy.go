// Package sla maps assignment priorities to service-level deadlines.
package sla

import "time"

// Priority is an assignment's urgency level.
type Priority string

const (
	Low    Priority = "low"
	Medium Priority = "medium"
	High   Priority = "high"
	Urgent Priority = "urgent"
)

// Valid reports whether p is a known priority.
func Valid(p Priority) bool {
	switch p {
	case Low, Medium, High, Urgent:
		return true
	}
	return false
}

// Policy maps each priority to the deadline offset added to creation time.
// It is plain data so deployments can tune thresholds without touching
// lifecycle logic.
type Policy map[Priority]time.Duration

// Default returns the stock policy table. These values are a configurable
// starting point, not recovered business truth.
func Default() Policy {
	return Policy{
		Urgent: 1 * time.Hour,
		High:   4 * time.Hour,
		Medium: 24 * time.Hour,
		Low:    72 * time.Hour,
	}
}

// Merge returns a copy of p with the given overrides applied. Unknown keys
// are ignored.
func (p Policy) Merge(overrides map[string]time.Duration) Policy {
	out := make(Policy, len(p))
	for pri, d := range p {
		out[pri] = d
	}
	for key, d := range overrides {
		pri := Priority(key)
		if Valid(pri) && d > 0 {
			out[pri] = d
		}
	}
	return out
}

// Offset returns the deadline offset for a priority. Unknown priorities fall
// back to the medium offset.
func (p Policy) Offset(pri Priority) time.Duration {
	if d, ok := p[pri]; ok {
		return d
	}
	return p[Medium]
}

// Deadline returns the SLA deadline for an assignment created at from.
func (p Policy) Deadline(pri Priority, from time.Time) time.Time {
	return from.Add(p.Offset(pri))
}
