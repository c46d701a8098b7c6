package cli

import (
	"fmt"
	"os"
	"strings"
	"sync"
	"time"
)

// progressReporter draws a one-line spinner on an interactive stderr.
// Update is called from analyzer workers.
type progressReporter struct {
	enabled bool
	label   string
	start   time.Time

	mu      sync.Mutex
	count   int
	spinner int
	lastLen int
}

func newProgressReporter(label string, wanted bool) *progressReporter {
	stat, err := os.Stderr.Stat()
	enabled := err == nil && (stat.Mode()&os.ModeCharDevice) != 0 && wanted
	return &progressReporter{
		enabled: enabled,
		label:   label,
		start:   time.Now(),
	}
}

func (r *progressReporter) Update(file string) {
	if !r.enabled {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	r.count++
	frames := [4]string{"-", "\\", "|", "/"}
	frame := frames[r.spinner%len(frames)]
	r.spinner++
	file = strings.TrimSpace(file)
	if len(file) > 88 {
		file = "..." + file[len(file)-85:]
	}
	r.printStatus(fmt.Sprintf("%s %s %d converting %s", frame, r.label, r.count, file))
}

func (r *progressReporter) Done() {
	if !r.enabled {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.count == 0 {
		return
	}
	elapsed := time.Since(r.start).Round(time.Millisecond)
	r.printStatus(fmt.Sprintf("%s complete (%d files in %s)", r.label, r.count, elapsed))
	fmt.Fprintln(os.Stderr)
}

func (r *progressReporter) printStatus(status string) {
	if r.lastLen > len(status) {
		status = status + strings.Repeat(" ", r.lastLen-len(status))
	}
	r.lastLen = len(status)
	fmt.Fprintf(os.Stderr, "\r%s", status)
}
