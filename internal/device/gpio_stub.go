//go:build !linux

package device

import (
	"context"
	"errors"
)

// GPIOValve is not available on non-Linux platforms.
type GPIOValve struct{}

func NewGPIOValve(chip string, offset int) (*GPIOValve, error) {
	return nil, errors.New("gpio valve: not supported on this platform (requires Linux)")
}

func (v *GPIOValve) Open(_ context.Context) error { return errors.New("gpio valve: not supported") }

func (v *GPIOValve) Close(_ context.Context) error { return errors.New("gpio valve: not supported") }

func (v *GPIOValve) State(_ context.Context) (ValveState, error) {
	return ValveClosed, errors.New("gpio valve: not supported")
}

func (v *GPIOValve) Release() error { return nil }
