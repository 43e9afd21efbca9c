package utils

import (
	"fmt"

	"distributed-unit/pkg/f1ap"
)

const (
	SrbPdcpSnBits = 12
	SrbPdcpSnMod  = 1 << SrbPdcpSnBits
)

// SrbPdcpSn reads the 12 bit SN from the header of an SRB PDCP data PDU.
func SrbPdcpSn(pdu []byte) (f1ap.PdcpSn, error) {
	if len(pdu) < 2 {
		return 0, fmt.Errorf("PDCP PDU too short (%d bytes)", len(pdu))
	}
	return f1ap.PdcpSn(uint32(pdu[0]&0x0f)<<8 | uint32(pdu[1])), nil
}

// SnReached reports whether watermark is at or past sn in 12 bit serial
// arithmetic: a watermark less than half the SN space ahead of sn has reached it,
// one further ahead is taken as behind.
func SnReached(sn, watermark f1ap.PdcpSn) bool {
	return (uint32(watermark)-uint32(sn))%SrbPdcpSnMod < SrbPdcpSnMod/2
}
