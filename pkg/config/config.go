package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config groups all runtime configuration for the DU-CP binary.
type Config struct {
	DU       DUConfig       `yaml:"du"`
	F1AP     F1APConfig     `yaml:"f1ap"`
	Logging  LoggingConfig  `yaml:"logging"`
	Metrics  MetricsConfig  `yaml:"metrics"`
	Tunables TunablesConfig `yaml:"tunables"`
}

type DUConfig struct {
	GnbDuId uint64 `yaml:"gnb_du_id"`
	Name    string `yaml:"name"`
	PLMN    PLMN   `yaml:"plmn"`
	Cells   []Cell `yaml:"cells"`
}

type PLMN struct {
	MCC string `yaml:"mcc"`
	MNC string `yaml:"mnc"`
}

type Cell struct {
	Index      uint16 `yaml:"index"`
	NrCellId   uint64 `yaml:"nr_cell_id"`
	PCI        uint16 `yaml:"pci"`
	TAC        uint32 `yaml:"tac"`
	Numerology uint8  `yaml:"numerology"`
}

type SCTPConfig struct {
	InStreams  uint16 `yaml:"in_streams"`
	OutStreams uint16 `yaml:"out_streams"`
}

type F1Timers struct {
	F1SetupRetry          time.Duration `yaml:"f1_setup_retry"`
	UeReleaseTimeout      time.Duration `yaml:"ue_release_timeout"`
	ReestablishmentWindow time.Duration `yaml:"reestablishment_window"`
}

type F1APConfig struct {
	CUAddress    string     `yaml:"cu_address"`
	CUPort       int        `yaml:"cu_port"`
	LocalAddress string     `yaml:"local_address"`
	LocalPort    int        `yaml:"local_port"`
	SCTP         SCTPConfig `yaml:"sctp"`
	Timers       F1Timers   `yaml:"timers"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

type MetricsConfig struct {
	ListenAddress string `yaml:"listen_address"`
}

type TunablesConfig struct {
	MaxUes         int `yaml:"max_ues"`
	WorkerPoolSize int `yaml:"worker_pool_size"`
}

// Load reads configuration from disk and applies defaults.
func Load(path string) (Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}
	return Parse(raw)
}

// Parse decodes a YAML document and applies defaults. Unknown keys are errors.
func Parse(raw []byte) (Config, error) {
	var cfg Config
	dec := yaml.NewDecoder(strings.NewReader(string(raw)))
	dec.KnownFields(true)

	if err := dec.Decode(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}

	cfg.applyDefaults()
	return cfg, nil
}

// CUEndpoint is the host:port of the CU F1-C listener.
func (c F1APConfig) CUEndpoint() string {
	return fmt.Sprintf("%s:%d", c.CUAddress, c.CUPort)
}

// LocalEndpoint is the local bind address, empty to let the kernel pick.
func (c F1APConfig) LocalEndpoint() string {
	if c.LocalAddress == "" {
		return ""
	}
	return fmt.Sprintf("%s:%d", c.LocalAddress, c.LocalPort)
}

// Validate ensures required fields are present and well-formed.
func (c Config) Validate() error {
	var problems []string

	if c.DU.GnbDuId >= 1<<36 {
		problems = append(problems, "du.gnb_du_id must fit in 36 bits")
	}
	if c.DU.Name == "" {
		problems = append(problems, "du.name is required")
	}
	if err := c.DU.PLMN.validate(); err != nil {
		problems = append(problems, fmt.Sprintf("du.plmn: %v", err))
	}
	if len(c.DU.Cells) == 0 {
		problems = append(problems, "du.cells must list at least one cell")
	}
	seen := make(map[uint16]bool)
	for i, cell := range c.DU.Cells {
		if seen[cell.Index] {
			problems = append(problems, fmt.Sprintf("du.cells[%d]: duplicate index %d", i, cell.Index))
		}
		seen[cell.Index] = true
		if cell.NrCellId >= 1<<36 {
			problems = append(problems, fmt.Sprintf("du.cells[%d].nr_cell_id must fit in 36 bits", i))
		}
		if cell.PCI > 1007 {
			problems = append(problems, fmt.Sprintf("du.cells[%d].pci must be 0..1007", i))
		}
		if cell.Numerology > 4 {
			problems = append(problems, fmt.Sprintf("du.cells[%d].numerology must be 0..4", i))
		}
	}

	if c.F1AP.CUAddress == "" || c.F1AP.CUPort <= 0 {
		problems = append(problems, "f1ap.cu_address and f1ap.cu_port are required")
	}
	if c.F1AP.LocalAddress != "" && c.F1AP.LocalPort < 0 {
		problems = append(problems, "f1ap.local_port must not be negative")
	}
	if err := validateSCTP("f1ap.sctp", c.F1AP.SCTP); err != nil {
		problems = append(problems, err.Error())
	}
	if c.F1AP.Timers.F1SetupRetry <= 0 {
		problems = append(problems, "f1ap.timers.f1_setup_retry must be >0")
	}
	if c.F1AP.Timers.UeReleaseTimeout <= 0 {
		problems = append(problems, "f1ap.timers.ue_release_timeout must be >0")
	}
	if c.F1AP.Timers.ReestablishmentWindow <= 0 {
		problems = append(problems, "f1ap.timers.reestablishment_window must be >0")
	}

	if c.Logging.Level == "" {
		problems = append(problems, "logging.level is required")
	}
	if c.Logging.Format != "json" && c.Logging.Format != "text" {
		problems = append(problems, "logging.format must be either \"json\" or \"text\"")
	}

	if c.Tunables.MaxUes <= 0 || c.Tunables.MaxUes >= 1<<16-1 {
		problems = append(problems, "tunables.max_ues must be 1..65534")
	}

	if len(problems) > 0 {
		return fmt.Errorf("config validation failed: %s", strings.Join(problems, "; "))
	}
	return nil
}

func (c *Config) applyDefaults() {
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Logging.Format == "" {
		c.Logging.Format = "json"
	}
	if c.F1AP.CUPort == 0 {
		c.F1AP.CUPort = 38472
	}
	if c.F1AP.SCTP.InStreams == 0 {
		c.F1AP.SCTP.InStreams = 2
	}
	if c.F1AP.SCTP.OutStreams == 0 {
		c.F1AP.SCTP.OutStreams = 2
	}
	if c.F1AP.Timers.F1SetupRetry == 0 {
		c.F1AP.Timers.F1SetupRetry = 5 * time.Second
	}
	if c.F1AP.Timers.UeReleaseTimeout == 0 {
		c.F1AP.Timers.UeReleaseTimeout = time.Second
	}
	if c.F1AP.Timers.ReestablishmentWindow == 0 {
		c.F1AP.Timers.ReestablishmentWindow = 5 * time.Second
	}
	if c.Tunables.MaxUes <= 0 {
		c.Tunables.MaxUes = 1024
	}
	if c.Tunables.WorkerPoolSize <= 0 {
		c.Tunables.WorkerPoolSize = 64
	}
}

func (p PLMN) validate() error {
	var problems []string
	if len(p.MCC) != 3 {
		problems = append(problems, "mcc must be 3 digits")
	}
	if len(p.MNC) != 2 && len(p.MNC) != 3 {
		problems = append(problems, "mnc must be 2 or 3 digits")
	}
	if len(problems) > 0 {
		return fmt.Errorf("%s", strings.Join(problems, "; "))
	}
	return nil
}

func validateSCTP(name string, cfg SCTPConfig) error {
	if cfg.InStreams == 0 || cfg.OutStreams == 0 {
		return fmt.Errorf("%s.in_streams and %s.out_streams must be non-zero", name, name)
	}
	return nil
}
