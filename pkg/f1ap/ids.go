// Package f1ap holds the decoded, semantic form of the F1AP PDUs exchanged
// between the DU and the CU. Encoding lives elsewhere.
package f1ap

import "fmt"

type GnbDuUeF1apId uint32

type GnbCuUeF1apId uint32

const MaxGnbDuUeF1apId GnbDuUeF1apId = 1<<32 - 1

// DuUeIndex is the DU-internal UE key.
type DuUeIndex uint16

const InvalidDuUeIndex DuUeIndex = 1<<16 - 1

type CellIndex uint16

type Rnti uint16

type SrbId uint8

const (
	Srb0 SrbId = iota
	Srb1
	Srb2
	Srb3
)

func (s SrbId) String() string { return fmt.Sprintf("SRB%d", uint8(s)) }

type DrbId uint8

// PdcpSn is an SRB PDCP sequence number (12 bits).
type PdcpSn uint32

// Nrcgi identifies an NR cell globally.
type Nrcgi struct {
	Plmn     Plmn
	NrCellId uint64 // 36 bits
}

type Plmn struct {
	Mcc string
	Mnc string
}

func (p Plmn) String() string { return p.Mcc + p.Mnc }
