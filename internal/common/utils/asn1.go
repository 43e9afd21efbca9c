package utils

import (
	"encoding/hex"
	"fmt"
	"strings"

	"distributed-unit/pkg/f1ap"

	"github.com/lvdund/ngap/aper"
	"github.com/lvdund/ngap/utils"
)

const NrCellIdentityBits = 36

func BitStringToUint64(asn *aper.BitString) uint64 {
	var result uint64
	bitsUnused := (len(asn.Bytes) * 8) - int(asn.NumBits)

	if len(asn.Bytes) == 0 || len(asn.Bytes) > 8 {
		panic(fmt.Sprintf("invalid BitString size: %d (must be 1-8)", len(asn.Bytes)))
	}

	shift := ((len(asn.Bytes) - 1) * 8) - bitsUnused
	for index := 0; index < len(asn.Bytes)-1; index++ {
		result |= uint64(asn.Bytes[index]) << shift
		shift -= 8
	}
	result |= uint64(asn.Bytes[len(asn.Bytes)-1]) >> bitsUnused

	return result
}

// Uint64ToBitString left-aligns the low numBits of v, the way APER bit
// strings carry their value.
func Uint64ToBitString(v uint64, numBits uint64) aper.BitString {
	nbytes := (numBits + 7) / 8
	bitsUnused := nbytes*8 - numBits
	v <<= bitsUnused
	b := make([]byte, nbytes)
	for i := int(nbytes) - 1; i >= 0; i-- {
		b[i] = byte(v)
		v >>= 8
	}
	return aper.BitString{Bytes: b, NumBits: numBits}
}

func NrCellIdentityToBitString(nci uint64) aper.BitString {
	return Uint64ToBitString(nci&(1<<NrCellIdentityBits-1), NrCellIdentityBits)
}

func PlmnToOctets(p f1ap.Plmn) []byte {
	return utils.PlmnIdToNgap(utils.PlmnId{Mcc: p.Mcc, Mnc: p.Mnc})
}

// PlmnFromOctets decodes the 3 octet TBCD form of a PLMN identity.
func PlmnFromOctets(b []byte) (f1ap.Plmn, error) {
	if len(b) != 3 {
		return f1ap.Plmn{}, fmt.Errorf("PLMN identity (%x) must be 3 bytes", b)
	}
	s := hex.EncodeToString([]byte{swapNibbles(b[0]), swapNibbles(b[1]), swapNibbles(b[2])})
	// s = mcc1 mcc2 mcc3 mnc3 mnc1 mnc2
	mcc := s[0:3]
	mnc := s[4:6]
	if s[3] != 'f' {
		mnc += s[3:4]
	}
	return f1ap.Plmn{Mcc: mcc, Mnc: strings.ToLower(mnc)}, nil
}

func swapNibbles(b byte) byte {
	return b<<4 | b>>4
}

func NrcgiToBytes(n f1ap.Nrcgi) ([]byte, aper.BitString) {
	return PlmnToOctets(n.Plmn), NrCellIdentityToBitString(n.NrCellId)
}
