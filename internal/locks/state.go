package locks

import (
	"fmt"
	"strings"
)

// Op classifies the effect of one call site on a State.
type Op int

const (
	OpNone Op = iota
	OpAcquire
	OpRelease
)

// State is the per-path counter vector, one counter per catalog family.
// Counters may go negative: an over-released path is unbalanced and must
// stay detectable.
type State struct {
	cat    *Catalog
	counts []int
}

// NewState returns the all-zero state for cat.
func NewState(cat *Catalog) *State {
	return &State{cat: cat, counts: make([]int, cat.Len())}
}

// Clone returns an independent copy sharing only the immutable catalog.
func (s *State) Clone() *State {
	return &State{cat: s.cat, counts: append([]int(nil), s.counts...)}
}

// Update classifies callee against the catalog and mutates the matching
// counter. Callees that are no family's acquire or release return OpNone
// and leave the state untouched.
func (s *State) Update(callee string) Op {
	for i, f := range s.cat.families {
		switch callee {
		case f.Acquire:
			s.counts[i]++
			return OpAcquire
		case f.Release:
			s.counts[i]--
			return OpRelease
		}
	}
	return OpNone
}

// Balanced reports whether every counter is zero.
func (s *State) Balanced() bool {
	for _, c := range s.counts {
		if c != 0 {
			return false
		}
	}
	return true
}

// Equal reports element-wise equality. States from different catalogs are
// never equal.
func (s *State) Equal(o *State) bool {
	if s.cat != o.cat || len(s.counts) != len(o.counts) {
		return false
	}
	for i, c := range s.counts {
		if c != o.counts[i] {
			return false
		}
	}
	return true
}

// Snapshot freezes the current counters as an immutable value.
func (s *State) Snapshot() Snapshot {
	snap := make(Snapshot, len(s.counts))
	for i, f := range s.cat.families {
		snap[i] = FamilyCount{Family: f.Name, Count: s.counts[i]}
	}
	return snap
}

// FamilyCount is one family's counter in a snapshot.
type FamilyCount struct {
	Family string `json:"family"`
	Count  int    `json:"count"`
}

// Snapshot is an immutable copy of a State's counters in catalog order.
type Snapshot []FamilyCount

// Balanced reports whether every counter in the snapshot is zero.
func (sn Snapshot) Balanced() bool {
	for _, fc := range sn {
		if fc.Count != 0 {
			return false
		}
	}
	return true
}

// String renders the snapshot as "spl=1 mtx=0 …" in catalog order.
func (sn Snapshot) String() string {
	var sb strings.Builder
	for i, fc := range sn {
		if i > 0 {
			sb.WriteByte(' ')
		}
		fmt.Fprintf(&sb, "%s=%d", fc.Family, fc.Count)
	}
	return sb.String()
}
