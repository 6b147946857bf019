// Package evals runs offline regression cases against the planning
// loop: each case describes a scenario, the hard staffing constraints
// the best plan must respect, and optional expression checks evaluated
// against the session outcome. The default driver is a deterministic
// stub, so eval runs need no reasoning-service credentials.
package evals

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/shiftcast/shiftcast/pkg/models"
)

// Case is one eval scenario. Checks are boolean expressions evaluated
// against {scenario, constraints, plan, scores, aggregate}.
type Case struct {
	ID               string                  `json:"id" yaml:"id"`
	Description      string                  `json:"description,omitempty" yaml:"description,omitempty"`
	Scenario         models.Scenario         `json:"scenario" yaml:"scenario"`
	Constraints      *models.Constraints     `json:"constraints,omitempty" yaml:"constraints,omitempty"`
	OperatorPriority models.OperatorPriority `json:"operator_priority,omitempty" yaml:"operator_priority,omitempty"`
	ExpectedFocus    string                  `json:"expected_focus,omitempty" yaml:"expected_focus,omitempty"`
	Checks           []string                `json:"checks,omitempty" yaml:"checks,omitempty"`
}

// caseFile is the on-disk YAML document shape.
type caseFile struct {
	Cases []Case `yaml:"cases"`
}

// LoadCases reads eval cases from a YAML file, or from every
// .yaml/.yml file in a directory.
func LoadCases(path string) ([]Case, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("stat eval cases: %w", err)
	}

	if !info.IsDir() {
		return loadCaseFile(path)
	}

	entries, err := os.ReadDir(path)
	if err != nil {
		return nil, fmt.Errorf("read eval cases dir: %w", err)
	}

	var cases []Case
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if ext := filepath.Ext(e.Name()); ext != ".yaml" && ext != ".yml" {
			continue
		}
		loaded, err := loadCaseFile(filepath.Join(path, e.Name()))
		if err != nil {
			return nil, err
		}
		cases = append(cases, loaded...)
	}
	if len(cases) == 0 {
		return nil, fmt.Errorf("no eval cases found in %s", path)
	}
	return cases, nil
}

func loadCaseFile(path string) ([]Case, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read eval case file %s: %w", filepath.Base(path), err)
	}
	var cf caseFile
	if err := yaml.Unmarshal(data, &cf); err != nil {
		return nil, fmt.Errorf("parse eval case file %s: %w", filepath.Base(path), err)
	}
	for i, c := range cf.Cases {
		if c.ID == "" {
			return nil, fmt.Errorf("eval case file %s: case #%d has no id", filepath.Base(path), i+1)
		}
	}
	return cf.Cases, nil
}
