package clock

import "fmt"

const (
	maxNumerology = 4
	sfnPeriod     = 1024
	msPerFrame    = 10

	// boundaryPeriod is the number of distinct millisecond boundaries in one
	// SFN cycle.
	boundaryPeriod = sfnPeriod * msPerFrame
)

// SlotPoint identifies a slot within the SFN cycle.
type SlotPoint struct {
	Numerology uint8
	Sfn        uint16
	Slot       uint16 // slot within the frame
}

func (s SlotPoint) SlotsPerMs() uint16 { return 1 << s.Numerology }

func (s SlotPoint) SlotsPerFrame() uint16 { return msPerFrame * s.SlotsPerMs() }

// IsMsBoundary is true for the first slot of a millisecond.
func (s SlotPoint) IsMsBoundary() bool { return s.Slot%s.SlotsPerMs() == 0 }

// Millisecond is the index of the slot's millisecond within the SFN cycle.
func (s SlotPoint) Millisecond() int64 {
	return int64(s.Sfn)*msPerFrame + int64(s.Slot/s.SlotsPerMs())
}

func (s SlotPoint) Valid() bool {
	return s.Numerology <= maxNumerology && s.Sfn < sfnPeriod && s.Slot < s.SlotsPerFrame()
}

// Next returns the following slot, wrapping frames and the SFN cycle.
func (s SlotPoint) Next() SlotPoint {
	s.Slot++
	if s.Slot == s.SlotsPerFrame() {
		s.Slot = 0
		s.Sfn = (s.Sfn + 1) % sfnPeriod
	}
	return s
}

func (s SlotPoint) String() string {
	return fmt.Sprintf("%d.%d@mu%d", s.Sfn, s.Slot, s.Numerology)
}
