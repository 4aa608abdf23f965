//go:build linux

package device

import (
	"context"
	"fmt"

	"github.com/warthog618/go-gpiocdev"
)

// GPIOValve drives a relay-controlled valve through a Linux GPIO character
// device line. It is the Switch variant only: the relay has no notion of
// duration, so the engine's timeout timer is the sole stop authority.
type GPIOValve struct {
	line *gpiocdev.Line
}

// NewGPIOValve requests the given line as an output, initially closed.
func NewGPIOValve(chip string, offset int) (*GPIOValve, error) {
	line, err := gpiocdev.RequestLine(chip, offset, gpiocdev.AsOutput(0))
	if err != nil {
		return nil, fmt.Errorf("request gpio line %s:%d: %w", chip, offset, err)
	}
	return &GPIOValve{line: line}, nil
}

func (v *GPIOValve) Open(_ context.Context) error {
	if err := v.line.SetValue(1); err != nil {
		return fmt.Errorf("open gpio valve: %w", err)
	}
	return nil
}

func (v *GPIOValve) Close(_ context.Context) error {
	if err := v.line.SetValue(0); err != nil {
		return fmt.Errorf("close gpio valve: %w", err)
	}
	return nil
}

func (v *GPIOValve) State(_ context.Context) (ValveState, error) {
	raw, err := v.line.Value()
	if err != nil {
		return ValveClosed, fmt.Errorf("read gpio valve state: %w", err)
	}
	if raw == 1 {
		return ValveOpen, nil
	}
	return ValveClosed, nil
}

// Release drives the line low and frees it.
func (v *GPIOValve) Release() error {
	if err := v.line.SetValue(0); err != nil {
		return err
	}
	return v.line.Close()
}
