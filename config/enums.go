package config

import (
	"fmt"
	"strings"
)

// PrescaleMode specifies whether raster images should be physically resized
// to their resolved target dimensions when output is written.
type PrescaleMode int

const (
	PrescaleModeNone PrescaleMode = iota
	PrescaleModeKeepAR
	PrescaleModeStretch
)

var prescaleModeNames = map[PrescaleMode]string{
	PrescaleModeNone:    "none",
	PrescaleModeKeepAR:  "keepAR",
	PrescaleModeStretch: "stretch",
}

func (m PrescaleMode) String() string {
	if n, ok := prescaleModeNames[m]; ok {
		return n
	}
	return fmt.Sprintf("PrescaleMode(%d)", int(m))
}

func ParsePrescaleMode(name string) (PrescaleMode, error) {
	for m, n := range prescaleModeNames {
		if strings.EqualFold(n, name) {
			return m, nil
		}
	}
	return PrescaleModeNone, fmt.Errorf("%s is not a valid PrescaleMode", name)
}

// PrescaleModeNames returns all valid mode names for command line help.
func PrescaleModeNames() []string {
	return []string{"none", "keepAR", "stretch"}
}

func (m PrescaleMode) MarshalYAML() (any, error) {
	return m.String(), nil
}

func (m *PrescaleMode) UnmarshalYAML(unmarshal func(any) error) error {
	var s string
	if err := unmarshal(&s); err != nil {
		return err
	}
	v, err := ParsePrescaleMode(s)
	if err != nil {
		return err
	}
	*m = v
	return nil
}
