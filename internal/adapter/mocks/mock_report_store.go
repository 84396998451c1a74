package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	m "synthtest.dev/pkg/synthtest/internal/model"
)

// MockReportStore is a mock implementation of adapter.ReportStore.
type MockReportStore struct {
	mock.Mock
}

// NewMockReportStore creates a MockReportStore and registers expectation checks on cleanup.
func NewMockReportStore(t interface {
	mock.TestingT
	Cleanup(func())
}) *MockReportStore {
	store := &MockReportStore{}
	store.Mock.Test(t)

	t.Cleanup(func() { store.AssertExpectations(t) })

	return store
}

// SaveReport provides a mock function.
func (_m *MockReportStore) SaveReport(ctx context.Context, path m.Path, report m.RunReport) error {
	ret := _m.Called(ctx, path, report)

	return ret.Error(0)
}

// LoadReport provides a mock function.
func (_m *MockReportStore) LoadReport(ctx context.Context, path m.Path) (m.RunReport, error) {
	ret := _m.Called(ctx, path)

	var report m.RunReport
	if r, ok := ret.Get(0).(m.RunReport); ok {
		report = r
	}

	return report, ret.Error(1)
}
