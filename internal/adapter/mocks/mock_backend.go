// Package mocks provides testify mocks for the adapter interfaces.
package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"synthtest.dev/pkg/synthtest/internal/adapter"
	m "synthtest.dev/pkg/synthtest/internal/model"
)

// MockBackend is a mock implementation of adapter.Backend.
type MockBackend struct {
	mock.Mock
}

// NewMockBackend creates a MockBackend and registers expectation checks on cleanup.
func NewMockBackend(t interface {
	mock.TestingT
	Cleanup(func())
}) *MockBackend {
	mockBackend := &MockBackend{}
	mockBackend.Mock.Test(t)

	t.Cleanup(func() { mockBackend.AssertExpectations(t) })

	return mockBackend
}

// Name provides a mock function.
func (_m *MockBackend) Name() string {
	ret := _m.Called()

	return ret.String(0)
}

// Generate provides a mock function.
func (_m *MockBackend) Generate(ctx context.Context, req m.GenerationRequest) (adapter.ChunkStream, error) {
	ret := _m.Called(ctx, req)

	var stream adapter.ChunkStream
	if fn, ok := ret.Get(0).(func(context.Context, m.GenerationRequest) adapter.ChunkStream); ok {
		stream = fn(ctx, req)
	} else if ret.Get(0) != nil {
		stream = ret.Get(0).(adapter.ChunkStream)
	}

	return stream, ret.Error(1)
}

// Chunks returns a stream yielding each chunk in order.
func Chunks(chunks ...string) adapter.ChunkStream {
	return func(yield func(string, error) bool) {
		for _, chunk := range chunks {
			if !yield(chunk, nil) {
				return
			}
		}
	}
}

// FailingStream returns a stream yielding the given chunks and then err.
func FailingStream(err error, chunks ...string) adapter.ChunkStream {
	return func(yield func(string, error) bool) {
		for _, chunk := range chunks {
			if !yield(chunk, nil) {
				return
			}
		}

		yield("", err)
	}
}
