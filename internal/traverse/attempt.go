package traverse

import "github.com/morozRed/ustgen/internal/ust"

// Reason explains the outcome of one mapping attempt. Every reason other
// than Captured feeds the same collapse path.
type Reason int

const (
	Captured Reason = iota
	Unmapped
	Disabled
	NoIdentifier
	Failed
)

func (r Reason) String() string {
	switch r {
	case Captured:
		return "captured"
	case Unmapped:
		return "unmapped"
	case Disabled:
		return "disabled"
	case NoIdentifier:
		return "no_identifier"
	case Failed:
		return "failed"
	default:
		return "unknown"
	}
}

// Attempt is the result of trying to build a UST node from a concrete node.
type Attempt struct {
	Kind      ust.Kind
	Reason    Reason
	Node      ust.Node
	Reference *ust.Reference
	Err       error
}

// Stats counts attempt outcomes for one file.
type Stats struct {
	Captured     int            `json:"captured"`
	Disabled     int            `json:"disabled"`
	NoIdentifier int            `json:"no_identifier"`
	Failed       int            `json:"failed"`
	Truncated    int            `json:"truncated,omitempty"`
	ByKind       map[string]int `json:"by_kind,omitempty"`
}

func newStats() Stats {
	return Stats{ByKind: make(map[string]int)}
}

func (s *Stats) record(a Attempt) {
	switch a.Reason {
	case Captured:
		s.Captured++
		s.ByKind[a.Kind.String()]++
	case Disabled:
		s.Disabled++
	case NoIdentifier:
		s.NoIdentifier++
	case Failed:
		s.Failed++
	}
}

// Add merges other into s.
func (s *Stats) Add(other Stats) {
	s.Captured += other.Captured
	s.Disabled += other.Disabled
	s.NoIdentifier += other.NoIdentifier
	s.Failed += other.Failed
	s.Truncated += other.Truncated
	if len(other.ByKind) > 0 && s.ByKind == nil {
		s.ByKind = make(map[string]int, len(other.ByKind))
	}
	for k, v := range other.ByKind {
		s.ByKind[k] += v
	}
}
