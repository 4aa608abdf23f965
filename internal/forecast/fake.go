package forecast

import "context"

// FakeProvider returns a scripted forecast and records how often it was
// consulted.
type FakeProvider struct {
	Days  []Day
	Err   error
	Calls int
}

func (f *FakeProvider) Daily(_ context.Context, _ Location) ([]Day, error) {
	f.Calls++
	if f.Err != nil {
		return nil, f.Err
	}
	return f.Days, nil
}
