// Package compat rewrites saved objects captured under an older platform
// schema so they import cleanly into a newer one.
//
// Migrations are expressed as an explicit, ordered [Chain] of named
// [Step]s. Every step is idempotent: it detects already-migrated documents
// and leaves them untouched.
package compat

import (
	"fmt"

	"github.com/Masterminds/semver/v3"

	"github.com/hupe1980/panelport/internal/savedobject"
)

// MigrationThreshold is the constraint a target schema version must
// satisfy for the chain to run. The pre-release suffix lets 6.0.0 betas
// qualify.
const MigrationThreshold = ">= 6.0.0-0"

// Step is a single named migration.
type Step interface {
	// Name identifies the step in logs and reports.
	Name() string

	// Matches reports whether the step handles objects of type t.
	Matches(t savedobject.Type) bool

	// Apply migrates o in place and reports whether anything changed.
	Apply(o *savedobject.Object) (bool, error)
}

// Chain runs steps in order against objects they match.
type Chain struct {
	steps     []Step
	threshold *semver.Constraints
}

// NewChain creates a chain from steps, gated by MigrationThreshold.
func NewChain(steps ...Step) *Chain {
	c, err := semver.NewConstraint(MigrationThreshold)
	if err != nil {
		panic(fmt.Sprintf("invalid migration threshold %q: %v", MigrationThreshold, err))
	}

	return &Chain{steps: steps, threshold: c}
}

// DefaultChain returns the built-in migrations in their required order:
// boolean filters, then panel heights, then the metric style upgrade.
func DefaultChain() *Chain {
	return NewChain(BoolFilters{}, PanelHeights{}, MetricStyle{})
}

// Steps returns the names of the steps in execution order.
func (c *Chain) Steps() []string {
	names := make([]string, 0, len(c.steps))
	for _, s := range c.steps {
		names = append(names, s.Name())
	}

	return names
}

// Applies reports whether the chain runs for the given target version.
// An unknown (nil) target runs every step.
func (c *Chain) Applies(target *semver.Version) bool {
	if target == nil {
		return true
	}

	return c.threshold.Check(target)
}

// Apply returns a migrated copy of o and the names of the steps that
// changed it. The input object is never modified.
func (c *Chain) Apply(o *savedobject.Object, target *semver.Version) (*savedobject.Object, []string, error) {
	out := o.Clone()

	if !c.Applies(target) {
		return out, nil, nil
	}

	var applied []string

	for _, s := range c.steps {
		if !s.Matches(out.Type) {
			continue
		}

		changed, err := s.Apply(out)
		if err != nil {
			return nil, nil, fmt.Errorf("%s on %s: %w", s.Name(), out.Key(), err)
		}

		if changed {
			applied = append(applied, s.Name())
		}
	}

	return out, applied, nil
}

// ParseVersion parses a platform version such as "7.10.2".
func ParseVersion(s string) (*semver.Version, error) {
	v, err := semver.NewVersion(s)
	if err != nil {
		return nil, fmt.Errorf("invalid platform version %q: %w", s, err)
	}

	return v, nil
}
