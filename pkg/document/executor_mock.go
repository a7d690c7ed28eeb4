package document

import (
	"context"
)

// MockExecutor is a mock implementation of Executor for testing
type MockExecutor struct {
	MockOutput []byte
	MockError  error
	Calls      int
}

func (m *MockExecutor) PDFToText(ctx context.Context, pdf []byte) ([]byte, error) {
	m.Calls++
	return m.MockOutput, m.MockError
}
