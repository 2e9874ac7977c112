package bench

import (
	"fmt"
	"strings"
	"time"

	"github.com/yndnr/rcuht-go/pkg/rcuht"
)

// Counts are the lookups of one reader, split by outcome.
type Counts struct {
	Core     int    `json:"core" yaml:"core"`
	Found    uint64 `json:"found" yaml:"found"`
	NotFound uint64 `json:"not_found" yaml:"not_found"`
}

// Total returns all lookups.
func (c Counts) Total() uint64 {
	return c.Found + c.NotFound
}

func (c Counts) sub(prev Counts) Counts {
	return Counts{Core: c.Core, Found: c.Found - prev.Found, NotFound: c.NotFound - prev.NotFound}
}

func (c Counts) String() string {
	return fmt.Sprintf("%d [%d + %d]", c.Total(), c.NotFound, c.Found)
}

// Sample holds the lookups each reader made during one second.
type Sample struct {
	Second  int      `json:"second" yaml:"second"`
	Readers []Counts `json:"readers" yaml:"readers"`
}

// String formats the sample as "read: total [miss + hit] ..." with one
// group per reader.
func (s Sample) String() string {
	var b strings.Builder
	b.WriteString("read:")
	for _, c := range s.Readers {
		b.WriteByte(' ')
		b.WriteString(c.String())
	}
	return b.String()
}

// Report summarizes a finished run.
type Report struct {
	RunID      string        `json:"run_id" yaml:"run_id"`
	Mode       Mode          `json:"mode" yaml:"mode"`
	Seconds    int           `json:"seconds" yaml:"seconds"`
	Objects    uint32        `json:"objects" yaml:"objects"`
	Elapsed    time.Duration `json:"elapsed" yaml:"elapsed"`
	Iterations uint64        `json:"writer_iterations" yaml:"writer_iterations"`
	Readers    []Counts      `json:"readers" yaml:"readers"`
	Samples    []Sample      `json:"samples,omitempty" yaml:"samples,omitempty"`
	Table      *rcuht.Stats  `json:"table,omitempty" yaml:"table,omitempty"`
}

// Totals sums the lookups of all readers.
func (r *Report) Totals() Counts {
	var t Counts
	t.Core = -1
	for _, c := range r.Readers {
		t.Found += c.Found
		t.NotFound += c.NotFound
	}
	return t
}

// PerSecond returns the average lookups per second over the run.
func (r *Report) PerSecond() Counts {
	t := r.Totals()
	if r.Seconds <= 0 {
		return t
	}
	n := uint64(r.Seconds)
	return Counts{Core: -1, Found: t.Found / n, NotFound: t.NotFound / n}
}

// String formats the run average as "total read: total [miss + hit]".
func (r *Report) String() string {
	return "total read: " + r.PerSecond().String()
}
