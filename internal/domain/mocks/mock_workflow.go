// Package mocks provides testify mocks for the domain interfaces.
package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"synthtest.dev/pkg/synthtest/internal/domain"
	m "synthtest.dev/pkg/synthtest/internal/model"
)

// MockWorkflow is a mock implementation of domain.Workflow.
type MockWorkflow struct {
	mock.Mock
}

// NewMockWorkflow creates a MockWorkflow and registers expectation checks on cleanup.
func NewMockWorkflow(t interface {
	mock.TestingT
	Cleanup(func())
}) *MockWorkflow {
	workflow := &MockWorkflow{}
	workflow.Mock.Test(t)

	t.Cleanup(func() { workflow.AssertExpectations(t) })

	return workflow
}

// Generate provides a mock function.
func (_m *MockWorkflow) Generate(ctx context.Context, args domain.GenerateArgs) (m.RunReport, error) {
	ret := _m.Called(ctx, args)

	var report m.RunReport
	if r, ok := ret.Get(0).(m.RunReport); ok {
		report = r
	}

	return report, ret.Error(1)
}

// ProcessFile provides a mock function.
func (_m *MockWorkflow) ProcessFile(ctx context.Context, path m.Path) m.FileResult {
	ret := _m.Called(ctx, path)

	var result m.FileResult
	if r, ok := ret.Get(0).(m.FileResult); ok {
		result = r
	}

	return result
}

// View provides a mock function.
func (_m *MockWorkflow) View(ctx context.Context, args domain.ViewArgs) error {
	ret := _m.Called(ctx, args)

	return ret.Error(0)
}

// Scan provides a mock function.
func (_m *MockWorkflow) Scan(ctx context.Context, args domain.ScanArgs) ([]m.Path, error) {
	ret := _m.Called(ctx, args)

	var paths []m.Path
	if p, ok := ret.Get(0).([]m.Path); ok {
		paths = p
	}

	return paths, ret.Error(1)
}

// Watch provides a mock function.
func (_m *MockWorkflow) Watch(ctx context.Context, args domain.WatchArgs) error {
	ret := _m.Called(ctx, args)

	return ret.Error(0)
}
