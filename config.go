package docan

import (
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// rawServerConfig is the YAML document shape (spec.md §6): a flat table
// of scalars and two DID maps keyed by decimal or hex-string
// DataIdentifier. Grounded on the teacher's config-file conventions
// (od_parser.go reads an ini-format EDS; this module's server
// configuration has no CANopen analogue so it is read with yaml.v3, the
// teacher's already-indirect but unused YAML dependency).
type rawServerConfig struct {
	Address struct {
		TxID uint32 `yaml:"tx_id"`
		RxID uint32 `yaml:"rx_id"`
		FID  uint32 `yaml:"fid"`
	} `yaml:"address"`
	Timing struct {
		P2Ms     uint16 `yaml:"p2_ms"`
		P2StarMs uint32 `yaml:"p2_star_ms"`
	} `yaml:"timing"`
	KeepDurationMs int              `yaml:"keep_duration_ms"`
	ExtendSALevel  uint8            `yaml:"extend_sa_level"`
	ProgramSALevel uint8            `yaml:"program_sa_level"`
	SeedLen        int              `yaml:"seed_len"`
	SASalt         []byte           `yaml:"sa_salt"`
	DidCfg         map[uint16]int   `yaml:"did_cfg"`
	DidSALevel     map[uint16]uint8 `yaml:"did_sa_level"`
	ByteOrder      string           `yaml:"byte_order"`
}

// LoadServerConfig reads and parses a server configuration file per
// spec.md §6 ("external configuration ... via a structured file format
// (e.g. YAML)").
func LoadServerConfig(path string) (*ServerConfig, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var doc rawServerConfig
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return nil, &CodecError{Kind: "invalid_config: " + err.Error()}
	}

	timing := DefaultSessionTiming
	if doc.Timing.P2Ms != 0 {
		timing.P2Ms = doc.Timing.P2Ms
	}
	if doc.Timing.P2StarMs != 0 {
		timing.P2StarMs = doc.Timing.P2StarMs
	}

	keepDuration := DefaultKeepDuration
	if doc.KeepDurationMs > 0 {
		keepDuration = time.Duration(doc.KeepDurationMs) * time.Millisecond
	}

	order := BigEndian
	if doc.ByteOrder == "little" {
		order = LittleEndian
	}

	seedLen := doc.SeedLen
	if seedLen <= 0 {
		seedLen = 4
	}

	return &ServerConfig{
		Timing:         timing,
		KeepDuration:   keepDuration,
		ExtendSALevel:  doc.ExtendSALevel,
		ProgramSALevel: doc.ProgramSALevel,
		SeedLen:        seedLen,
		SASalt:         doc.SASalt,
		DidCfg:         DidConfig(doc.DidCfg),
		DidSALevel:     DidSecurityLevels(doc.DidSALevel),
		ByteOrder:      order,
	}, nil
}

// AddressFromConfig reads the bound Address (needed to construct a
// Server) from the same configuration file LoadServerConfig reads. It
// reads and parses the file on its own, so a caller that uses both, as
// cmd/docan-server does, parses the document twice.
func AddressFromConfig(path string) (Address, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return Address{}, err
	}
	var doc rawServerConfig
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return Address{}, &CodecError{Kind: "invalid_config: " + err.Error()}
	}
	addr := Address{TxID: doc.Address.TxID, RxID: doc.Address.RxID, FID: doc.Address.FID}
	if addr.TxID == 0 || addr.RxID == 0 || addr.TxID == addr.RxID {
		return Address{}, ErrInvalidAddress
	}
	return addr, nil
}
