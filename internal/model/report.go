package model

import "time"

// FileResult holds the outcome of processing a single source file.
type FileResult struct {
	Source      Path           `yaml:"source"`
	Output      Path           `yaml:"output,omitempty"`
	Functions   []FunctionName `yaml:"functions,omitempty"`
	Attempts    int            `yaml:"attempts,omitempty"`
	Failures    []string       `yaml:"failures,omitempty"`
	Degraded    bool           `yaml:"degraded,omitempty"`
	Synthesized int            `yaml:"synthesized,omitempty"`
	Skipped     bool           `yaml:"skipped,omitempty"`
	Diff        string         `yaml:"-"`
	Error       string         `yaml:"error,omitempty"`
}

// Succeeded reports whether an output file was produced.
func (r FileResult) Succeeded() bool {
	return r.Error == "" && r.Output != ""
}

// RunReport records one batch run.
type RunReport struct {
	ID         string       `yaml:"id"`
	StartedAt  time.Time    `yaml:"started_at"`
	FinishedAt time.Time    `yaml:"finished_at"`
	Backend    string       `yaml:"backend"`
	Model      string       `yaml:"model,omitempty"`
	Scheme     string       `yaml:"scheme"`
	Files      []FileResult `yaml:"files"`
}

// Outputs returns the paths of successfully produced test files in input order.
func (r RunReport) Outputs() []Path {
	outputs := make([]Path, 0, len(r.Files))
	for _, f := range r.Files {
		if f.Succeeded() {
			outputs = append(outputs, f.Output)
		}
	}

	return outputs
}

// Failed returns the results that did not produce an output and were not skipped.
func (r RunReport) Failed() []FileResult {
	var failed []FileResult

	for _, f := range r.Files {
		if !f.Succeeded() && !f.Skipped {
			failed = append(failed, f)
		}
	}

	return failed
}
