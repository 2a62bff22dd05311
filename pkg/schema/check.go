package schema

import (
	"fmt"
	"sort"
	"strings"

	"github.com/Masterminds/semver/v3"
)

const checkLogPrefix = "schema:check"

// SupportedRange is the artifact version range this binary's encoders were written against.
const SupportedRange = "~1.0"

// DriftError lists every difference between the artifact and the local table.
type DriftError struct {
	Schema     string
	Mismatches []string
}

func (e *DriftError) Error() string {
	return fmt.Sprintf("%s - broker schema %s drifted from local encoders: %s", checkLogPrefix, e.Schema, strings.Join(e.Mismatches, "; "))
}

// Check verifies that s is within SupportedRange and that every discriminant the
// allocator encodes matches it.
func Check(s *BrokerSchema) error {
	if s == nil {
		return fmt.Errorf("%s - nil schema", checkLogPrefix)
	}
	constraint, err := semver.NewConstraint(SupportedRange)
	if err != nil {
		return fmt.Errorf("%s - invalid supported range %q: %w", checkLogPrefix, SupportedRange, err)
	}
	v, err := semver.NewVersion(s.Version)
	if err != nil {
		return fmt.Errorf("%s - schema %s: invalid version %q: %w", checkLogPrefix, s.Name, s.Version, err)
	}

	local := LocalSchema()
	var mismatches []string
	if ok, errs := constraint.Validate(v); !ok {
		for _, e := range errs {
			mismatches = append(mismatches, fmt.Sprintf("version: %v", e))
		}
	}
	if s.PalletIndex != local.PalletIndex {
		mismatches = append(mismatches, fmt.Sprintf("pallet index: artifact %d, local %d", s.PalletIndex, local.PalletIndex))
	}

	names := make([]string, 0, len(local.Calls))
	for name := range local.Calls {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		got, ok := s.Calls[name]
		switch {
		case !ok:
			mismatches = append(mismatches, fmt.Sprintf("call %s: missing from artifact", name))
		case got != local.Calls[name]:
			mismatches = append(mismatches, fmt.Sprintf("call %s: artifact %d, local %d", name, got, local.Calls[name]))
		}
	}

	for _, f := range []struct {
		name          string
		artifact, own uint8
	}{
		{"xcm version", s.Xcm.Version, local.Xcm.Version},
		{"xcm UnpaidExecution", s.Xcm.UnpaidExecution, local.Xcm.UnpaidExecution},
		{"xcm Transact", s.Xcm.Transact, local.Xcm.Transact},
		{"xcm OriginKind::Native", s.Xcm.OriginNative, local.Xcm.OriginNative},
	} {
		if f.artifact != f.own {
			mismatches = append(mismatches, fmt.Sprintf("%s: artifact %d, local %d", f.name, f.artifact, f.own))
		}
	}

	if len(mismatches) > 0 {
		return &DriftError{Schema: fmt.Sprintf("%s@%s", s.Name, s.Version), Mismatches: mismatches}
	}
	return nil
}
