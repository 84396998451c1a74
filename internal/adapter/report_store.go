package adapter

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	m "synthtest.dev/pkg/synthtest/internal/model"
)

// ReportStore persists run reports between invocations.
type ReportStore interface {
	SaveReport(ctx context.Context, path m.Path, report m.RunReport) error
	LoadReport(ctx context.Context, path m.Path) (m.RunReport, error)
}

// YAMLReportStore stores reports as YAML documents on the local filesystem.
type YAMLReportStore struct{}

// NewYAMLReportStore constructs a YAMLReportStore.
func NewYAMLReportStore() *YAMLReportStore {
	return &YAMLReportStore{}
}

// SaveReport writes the report, creating parent directories as needed.
func (s *YAMLReportStore) SaveReport(ctx context.Context, path m.Path, report m.RunReport) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	data, err := yaml.Marshal(report)
	if err != nil {
		return fmt.Errorf("marshal report: %w", err)
	}

	if dir := filepath.Dir(string(path)); dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return fmt.Errorf("create report dir: %w", err)
		}
	}

	if err := os.WriteFile(string(path), data, 0o600); err != nil {
		return fmt.Errorf("write report %s: %w", path, err)
	}

	return nil
}

// LoadReport reads a report previously written by SaveReport.
func (s *YAMLReportStore) LoadReport(ctx context.Context, path m.Path) (m.RunReport, error) {
	if err := ctx.Err(); err != nil {
		return m.RunReport{}, err
	}

	// #nosec G304 - report path comes from configuration
	data, err := os.ReadFile(string(path))
	if err != nil {
		return m.RunReport{}, fmt.Errorf("read report %s: %w", path, err)
	}

	var report m.RunReport
	if err := yaml.Unmarshal(data, &report); err != nil {
		return m.RunReport{}, fmt.Errorf("parse report %s: %w", path, err)
	}

	return report, nil
}
