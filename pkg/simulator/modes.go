package simulator

import (
	"errors"
	"fmt"
	"strings"
)

// ErrUnknownMode is returned for controller mode names that are not recognized
var ErrUnknownMode = errors.New("unknown controller mode")

// ControllerMode selects which feedforward and feedback terms are active
type ControllerMode int

const (
	ModeFF ControllerMode = iota
	ModeP
	ModePI
	ModePD
	ModePDI
	ModePIFF
	ModePDIFF
)

// TermSet flags the terms a controller mode uses
type TermSet struct {
	Feedforward bool
	P           bool
	I           bool
	D           bool
}

// Terms returns the active terms for the mode
func (m ControllerMode) Terms() TermSet {
	switch m {
	case ModeFF:
		return TermSet{Feedforward: true}
	case ModeP:
		return TermSet{P: true}
	case ModePI:
		return TermSet{P: true, I: true}
	case ModePD:
		return TermSet{P: true, D: true}
	case ModePDI:
		return TermSet{P: true, I: true, D: true}
	case ModePIFF:
		return TermSet{Feedforward: true, P: true, I: true}
	case ModePDIFF:
		return TermSet{Feedforward: true, P: true, I: true, D: true}
	default:
		return TermSet{}
	}
}

// Valid reports whether m is a known mode
func (m ControllerMode) Valid() bool {
	return m >= ModeFF && m <= ModePDIFF
}

func (m ControllerMode) String() string {
	switch m {
	case ModeFF:
		return "ff"
	case ModeP:
		return "p"
	case ModePI:
		return "pi"
	case ModePD:
		return "pd"
	case ModePDI:
		return "pdi"
	case ModePIFF:
		return "pi+ff"
	case ModePDIFF:
		return "pdi+ff"
	default:
		return fmt.Sprintf("mode(%d)", int(m))
	}
}

// MarshalText implements encoding.TextMarshaler
func (m ControllerMode) MarshalText() ([]byte, error) {
	if !m.Valid() {
		return nil, fmt.Errorf("%w: %d", ErrUnknownMode, int(m))
	}
	return []byte(m.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler
func (m *ControllerMode) UnmarshalText(text []byte) error {
	parsed, err := ParseControllerMode(string(text))
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}

// ParseControllerMode parses a string into a ControllerMode. Both "pdi+ff" and
// "pdi_ff" spellings are accepted.
func ParseControllerMode(s string) (ControllerMode, error) {
	normalized := strings.ReplaceAll(strings.ToLower(strings.TrimSpace(s)), "_", "+")
	switch normalized {
	case "ff":
		return ModeFF, nil
	case "p":
		return ModeP, nil
	case "pi":
		return ModePI, nil
	case "pd":
		return ModePD, nil
	case "pdi", "pid":
		return ModePDI, nil
	case "pi+ff":
		return ModePIFF, nil
	case "pdi+ff", "pid+ff":
		return ModePDIFF, nil
	default:
		return 0, fmt.Errorf("%w: %s", ErrUnknownMode, s)
	}
}

// AllControllerModes returns every controller mode
func AllControllerModes() []ControllerMode {
	return []ControllerMode{ModeFF, ModeP, ModePI, ModePD, ModePDI, ModePIFF, ModePDIFF}
}
