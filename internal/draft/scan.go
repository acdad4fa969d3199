package draft

import (
	"fmt"

	"eventpos/internal/domain"
)

// ScannedTag pairs a physical tag with the ticket it resolved to.
type ScannedTag struct {
	UID    uint64            `json:"uid"`
	Ticket domain.TicketInfo `json:"ticket"`
}

// Tracker records scanned tags in scan order and rejects duplicates.
// Like SelectionSet, it never mutates a slice it has handed out.
type Tracker struct {
	tags []ScannedTag
}

func (t Tracker) IsKnown(uid uint64) bool {
	for _, tag := range t.tags {
		if tag.UID == uid {
			return true
		}
	}
	return false
}

func (t Tracker) TryAdd(tag ScannedTag) (Tracker, bool) {
	if t.IsKnown(tag.UID) {
		return t, false
	}
	next := make([]ScannedTag, len(t.tags), len(t.tags)+1)
	copy(next, t.tags)
	return Tracker{tags: append(next, tag)}, true
}

func (t Tracker) ScannedCount() int {
	return len(t.tags)
}

func (t Tracker) Tags() []ScannedTag {
	out := make([]ScannedTag, len(t.tags))
	copy(out, t.tags)
	return out
}

func (t Tracker) UIDs() []uint64 {
	uids := make([]uint64, 0, len(t.tags))
	for _, tag := range t.tags {
		uids = append(uids, tag.UID)
	}
	return uids
}

type ScanStatusKind int

const (
	NoScan ScanStatusKind = iota
	Scanning
	ScanningNext
	Duplicate
)

func (k ScanStatusKind) String() string {
	switch k {
	case NoScan:
		return "no_scan"
	case Scanning:
		return "scanning"
	case ScanningNext:
		return "scanning_next"
	case Duplicate:
		return "duplicate"
	default:
		return "unknown"
	}
}

func (k ScanStatusKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// ScanStatus drives the scan indicator. Step is the 1-based number of the
// scan being waited for, Wanted the number of scans required in total.
type ScanStatus struct {
	Kind   ScanStatusKind `json:"kind"`
	Step   int            `json:"step,omitempty"`
	Wanted int            `json:"wanted,omitempty"`
}

func (s ScanStatus) String() string {
	switch s.Kind {
	case Scanning:
		return fmt.Sprintf("scan tag %d of %d", s.Step, s.Wanted)
	case ScanningNext:
		return fmt.Sprintf("scan next tag (%d of %d)", s.Step, s.Wanted)
	case Duplicate:
		return fmt.Sprintf("tag already scanned, scan tag %d of %d", s.Step, s.Wanted)
	default:
		return "no scan"
	}
}

func scanStatus(scanned, wanted int, duplicate bool) ScanStatus {
	if wanted == 0 || scanned >= wanted {
		return ScanStatus{Kind: NoScan}
	}
	step := scanned + 1
	switch {
	case duplicate:
		return ScanStatus{Kind: Duplicate, Step: step, Wanted: wanted}
	case scanned == 0:
		return ScanStatus{Kind: Scanning, Step: step, Wanted: wanted}
	default:
		return ScanStatus{Kind: ScanningNext, Step: step, Wanted: wanted}
	}
}
