package location

// FakeProvider is a test double that returns scripted fixes.
type FakeProvider struct {
	// Fixes contains scripted fixes. Each call to Current consumes the
	// next one; the last fix repeats once the script is exhausted.
	Fixes []Fix

	// Err, if set, is returned by Current instead of a fix.
	Err error

	// Closed tracks if Close was called.
	Closed bool

	index int
}

// NewFakeProvider creates a FakeProvider with the given fixes.
func NewFakeProvider(fixes []Fix) *FakeProvider {
	return &FakeProvider{Fixes: fixes}
}

// Current returns the next scripted fix.
func (f *FakeProvider) Current() (Fix, error) {
	if f.Err != nil {
		return Fix{}, f.Err
	}
	if len(f.Fixes) == 0 {
		return Fix{}, ErrUnavailable
	}
	fix := f.Fixes[f.index]
	if f.index < len(f.Fixes)-1 {
		f.index++
	}
	return fix, nil
}

// Close marks the provider as closed.
func (f *FakeProvider) Close() error {
	f.Closed = true
	return nil
}

// Reset rewinds the script.
func (f *FakeProvider) Reset() {
	f.index = 0
	f.Closed = false
	f.Err = nil
}
