package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const minimal = `
du:
  gnb_du_id: 1
  name: du
  plmn: {mcc: "001", mnc: "01"}
  cells:
    - {index: 0, nr_cell_id: 6733824, pci: 1, numerology: 1}
f1ap:
  cu_address: 127.0.0.5
`

func TestParseDefaults(t *testing.T) {
	cfg, err := Parse([]byte(minimal))
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, "json", cfg.Logging.Format)
	assert.Equal(t, 38472, cfg.F1AP.CUPort)
	assert.Equal(t, "127.0.0.5:38472", cfg.F1AP.CUEndpoint())
	assert.Empty(t, cfg.F1AP.LocalEndpoint())
	assert.Equal(t, 5*time.Second, cfg.F1AP.Timers.F1SetupRetry)
	assert.Equal(t, time.Second, cfg.F1AP.Timers.UeReleaseTimeout)
	assert.Equal(t, 1024, cfg.Tunables.MaxUes)
	assert.Equal(t, uint8(1), cfg.DU.Cells[0].Numerology)
}

func TestParseUnknownField(t *testing.T) {
	_, err := Parse([]byte(minimal + "ngap:\n  gnb_id: 1\n"))
	assert.Error(t, err)
}

func TestValidateAggregates(t *testing.T) {
	cfg, err := Parse([]byte(`
du:
  plmn: {mcc: "1", mnc: "01"}
  cells:
    - {index: 0, pci: 2000, numerology: 7}
    - {index: 0}
f1ap:
  cu_address: ""
logging:
  format: xml
`))
	require.NoError(t, err)

	err = cfg.Validate()
	require.Error(t, err)
	for _, want := range []string{
		"du.name is required",
		"du.plmn: mcc must be 3 digits",
		"du.cells[0].pci",
		"du.cells[0].numerology",
		"du.cells[1]: duplicate index 0",
		"f1ap.cu_address",
		"logging.format",
	} {
		assert.Contains(t, err.Error(), want)
	}
}

func TestLoadSample(t *testing.T) {
	cfg, err := Load(filepath.Join("..", "..", "config", "config.yml"))
	require.NoError(t, err)
	assert.NoError(t, cfg.Validate())
	assert.Equal(t, "du-cp-0", cfg.DU.Name)
	assert.Equal(t, "127.0.0.3:0", cfg.F1AP.LocalEndpoint())

	_, err = Load(filepath.Join(t.TempDir(), "missing.yml"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}
