// Package metrics times named pipeline segments. The recorder is handed
// through the service explicitly so tests can inject their own; nothing in
// the pipeline reaches for a process-wide logger.
package metrics

import (
	"encoding/csv"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Recorder collects segment timings. Start returns an opaque handle passed
// back to End, so overlapping segments with the same name stay apart.
// Implementations must be safe for concurrent use.
type Recorder interface {
	Start(segment string) string
	End(handle string)
	Flush() error
}

// Noop discards all timings; the default when metrics are disabled.
type Noop struct{}

func (Noop) Start(string) string { return "" }
func (Noop) End(string)          {}
func (Noop) Flush() error        { return nil }

type span struct {
	name  string
	start time.Time
	end   time.Time
}

// CSV accumulates timings in memory and writes them on Flush as
// semicolon-separated rows: name;start;end;duration.
type CSV struct {
	path string

	mu    sync.Mutex
	spans map[string]*span
	order []string
}

func NewCSV(path string) *CSV {
	return &CSV{path: path, spans: make(map[string]*span)}
}

func (c *CSV) Start(segment string) string {
	handle := segment + "_" + uuid.New().String()
	c.mu.Lock()
	defer c.mu.Unlock()
	c.spans[handle] = &span{name: segment, start: time.Now()}
	c.order = append(c.order, handle)
	return handle
}

func (c *CSV) End(handle string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if s, ok := c.spans[handle]; ok && s.end.IsZero() {
		s.end = time.Now()
	}
}

// Flush appends every closed segment to the log file and drops it from
// memory. Open segments stay queued for a later flush.
func (c *CSV) Flush() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	var done []*span
	var kept []string
	for _, h := range c.order {
		s := c.spans[h]
		if s.end.IsZero() {
			kept = append(kept, h)
			continue
		}
		done = append(done, s)
		delete(c.spans, h)
	}
	c.order = kept
	if len(done) == 0 {
		return nil
	}

	_, statErr := os.Stat(c.path)
	f, err := os.OpenFile(c.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("failed to open metrics log: %w", err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	w.Comma = ';'
	if os.IsNotExist(statErr) {
		if err := w.Write([]string{"name", "start", "end", "duration"}); err != nil {
			return err
		}
	}
	for _, s := range done {
		row := []string{
			s.name,
			formatInstant(s.start),
			formatInstant(s.end),
			fmt.Sprintf("%.6f", s.end.Sub(s.start).Seconds()),
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}

func formatInstant(t time.Time) string {
	return fmt.Sprintf("%.6f", float64(t.UnixNano())/1e9)
}
