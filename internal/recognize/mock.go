package recognize

// MockRecognizer replays a scripted sequence of finalized utterances. A
// boundary is reported every Every chunks (default 1) until the script is
// exhausted; Final is returned by FinalResult.
type MockRecognizer struct {
	Script []Result
	Final  Result
	Every  int
	Fail   error // returned by Accept when set, to exercise failure paths

	calls int
	next  int
}

func (m *MockRecognizer) Accept(_ []byte) (bool, error) {
	if m.Fail != nil {
		return false, &EngineError{Op: "accept", Err: m.Fail}
	}
	m.calls++
	every := m.Every
	if every <= 0 {
		every = 1
	}
	return m.next < len(m.Script) && m.calls%every == 0, nil
}

func (m *MockRecognizer) Result() (Result, error) {
	if m.next >= len(m.Script) {
		return Result{}, nil
	}
	r := m.Script[m.next]
	m.next++
	defaultConfidence(r.Words)
	return r, nil
}

func (m *MockRecognizer) FinalResult() (Result, error) {
	r := m.Final
	defaultConfidence(r.Words)
	return r, nil
}

func (m *MockRecognizer) Close() error { return nil }
