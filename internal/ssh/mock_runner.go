package ssh

import "io"

// MockRunner is a test double that records commands and returns configured
// results.
type MockRunner struct {
	CallFunc func(command string, out io.Writer) (int, error)
	Commands []string
	Closed   bool
}

// Call records the command and delegates to CallFunc.
func (m *MockRunner) Call(command string, out io.Writer) (int, error) {
	m.Commands = append(m.Commands, command)
	if m.CallFunc != nil {
		return m.CallFunc(command, out)
	}
	return 0, nil
}

// Close records that the runner was released.
func (m *MockRunner) Close() error {
	m.Closed = true
	return nil
}
