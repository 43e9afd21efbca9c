package utils

import (
	"testing"

	"distributed-unit/pkg/f1ap"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNrCellIdentityRoundTrip(t *testing.T) {
	for _, nci := range []uint64{0, 1, 0x66c000, 0xfffffffff} {
		bs := NrCellIdentityToBitString(nci)
		require.Len(t, bs.Bytes, 5)
		assert.Equal(t, uint64(NrCellIdentityBits), bs.NumBits)
		assert.Equal(t, nci, BitStringToUint64(&bs))
	}
}

func TestPlmnFromOctets(t *testing.T) {
	p, err := PlmnFromOctets([]byte{0x00, 0xf1, 0x10})
	require.NoError(t, err)
	assert.Equal(t, f1ap.Plmn{Mcc: "001", Mnc: "01"}, p)

	p, err = PlmnFromOctets([]byte{0x13, 0x00, 0x14})
	require.NoError(t, err)
	assert.Equal(t, f1ap.Plmn{Mcc: "310", Mnc: "410"}, p)

	_, err = PlmnFromOctets([]byte{1})
	assert.Error(t, err)
}

func TestSrbPdcpSn(t *testing.T) {
	sn, err := SrbPdcpSn([]byte{0xf4, 0x56, 0x00})
	require.NoError(t, err)
	assert.Equal(t, f1ap.PdcpSn(0x456), sn)

	_, err = SrbPdcpSn([]byte{0x01})
	assert.Error(t, err)
}

func TestSnReached(t *testing.T) {
	assert.True(t, SnReached(5, 5))
	assert.True(t, SnReached(5, 9))
	assert.False(t, SnReached(9, 5))
	assert.True(t, SnReached(4094, 2))
	assert.False(t, SnReached(2, 4094))

	// half window: up to 2047 ahead is reached, anything further reads as behind
	assert.True(t, SnReached(0, 2047))
	assert.False(t, SnReached(0, 2048))
	assert.False(t, SnReached(2048, 2047))
	assert.False(t, SnReached(2048, 0))
	assert.True(t, SnReached(2049, 0))
}
