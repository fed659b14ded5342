package scpi

import (
	"bytes"
	"context"
)

// EchoDevice replies to every command with the command itself. Useful for
// transport-level testing.
type EchoDevice struct{}

func (EchoDevice) Execute(_ context.Context, cmd []byte) ([]byte, error) {
	resp := make([]byte, len(cmd))
	copy(resp, cmd)
	return resp, nil
}

// DefaultIDN is the identification string of SimpleDevice.
const DefaultIDN = "Cyberdyne systems,T800 Model 101,A9012.C,V2.4"

// SimpleDevice implements a small fixed command set for examples and tests:
//
//	*IDN?   -> identification string
//	QUERY?  -> "RESPONSE"
//	EVENT   -> no reply
//
// Unknown commands are echoed back. Command matching is case-insensitive.
type SimpleDevice struct {
	idn string
}

// NewSimpleDevice creates a SimpleDevice with the default identification
// string.
func NewSimpleDevice() *SimpleDevice {
	return &SimpleDevice{idn: DefaultIDN}
}

// NewSimpleDeviceIDN creates a SimpleDevice with a custom identification
// string.
func NewSimpleDeviceIDN(idn string) *SimpleDevice {
	return &SimpleDevice{idn: idn}
}

func (d *SimpleDevice) Execute(_ context.Context, cmd []byte) ([]byte, error) {
	switch {
	case bytes.EqualFold(cmd, []byte("*IDN?")):
		return []byte(d.idn), nil
	case bytes.EqualFold(cmd, []byte("QUERY?")):
		return []byte("RESPONSE"), nil
	case bytes.EqualFold(cmd, []byte("EVENT")):
		return nil, nil
	default:
		resp := make([]byte, len(cmd))
		copy(resp, cmd)
		return resp, nil
	}
}
