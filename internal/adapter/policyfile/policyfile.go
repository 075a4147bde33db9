// Package policyfile loads optional operator tightening of the fixed sandbox
// policy from a YAML file. A policy file can add forbidden patterns and lower
// the row cap; it can never rename the managed table, allow new verbs or
// raise the cap.
package policyfile

import (
	"fmt"
	"os"

	"github.com/guillermoBallester/strait/internal/core/domain"
	"gopkg.in/yaml.v3"
)

// File is the YAML shape of a policy file.
//
//	max_rows: 500
//	forbidden:
//	  - '\bexec\b'
type File struct {
	MaxRows   int      `yaml:"max_rows"`
	Forbidden []string `yaml:"forbidden"`
}

// Load reads the file at path and derives the effective policy by tightening
// the defaults. baseMaxRows is the configured cap the file may only lower.
func Load(path string, baseMaxRows int) (*domain.Policy, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading policy file: %w", err)
	}

	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parsing policy YAML: %w", err)
	}

	maxRows := baseMaxRows
	if f.MaxRows != 0 {
		if f.MaxRows < 0 || f.MaxRows > baseMaxRows {
			return nil, fmt.Errorf("policy file max_rows %d may only lower the cap (current %d)", f.MaxRows, baseMaxRows)
		}
		maxRows = f.MaxRows
	}

	pol, err := domain.NewPolicy(domain.DefaultTableName, maxRows, f.Forbidden)
	if err != nil {
		return nil, fmt.Errorf("applying policy file: %w", err)
	}
	return pol, nil
}
