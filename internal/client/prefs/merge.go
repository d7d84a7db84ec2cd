package prefs

import (
	"golang.org/x/text/cases"

	"github.com/atinyakov/HomeKeeper/internal/models"
)

var fold = cases.Fold()

// Union returns local in its existing order followed by every element of
// remote whose case-folded value is not already in the result.
func Union(local, remote []string) []string {
	out := make([]string, 0, len(local)+len(remote))
	seen := make(map[string]struct{}, len(local)+len(remote))
	for _, s := range local {
		out = append(out, s)
		seen[fold.String(s)] = struct{}{}
	}
	for _, s := range remote {
		key := fold.String(s)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, s)
	}
	return out
}

// SameLabel reports whether a and b name the same list entry.
func SameLabel(a, b string) bool {
	return fold.String(a) == fold.String(b)
}

// Decision is the outcome of reconciling a local and a remote snapshot.
type Decision int

const (
	// DecisionNone leaves the local snapshot as it is.
	DecisionNone Decision = iota
	// DecisionReplace adopts the remote snapshot (new device bootstrap).
	DecisionReplace
	// DecisionMerge unions the list fields and keeps everything else local.
	DecisionMerge
)

func (d Decision) String() string {
	switch d {
	case DecisionReplace:
		return "replace"
	case DecisionMerge:
		return "merge"
	default:
		return "none"
	}
}

// Reconcile decides how remote is applied to local and returns the result.
//
// An empty local active tab set with a non-empty remote one means a fresh
// device and the remote snapshot is adopted whole. A non-empty local set
// protects every local scalar, the active tabs and the view modes; only the
// custom and hidden-default lists are unioned, each independently. Anything
// else leaves local alone.
func Reconcile(local, remote models.PreferenceSnapshot) (models.PreferenceSnapshot, Decision) {
	switch {
	case len(local.ActiveTabs) == 0 && len(remote.ActiveTabs) > 0:
		out := remote.Clone()
		normalize(&out)
		// exchange rates are a local cache and never come from remote
		out.ExchangeRates = local.Clone().ExchangeRates
		return out, DecisionReplace
	case len(local.ActiveTabs) > 0:
		out := local.Clone()
		src := remote.ListFields()
		for i, f := range out.ListFields() {
			*f = Union(*f, *src[i])
		}
		return out, DecisionMerge
	}
	return local, DecisionNone
}

// normalize dedupes every list field case-insensitively, keeping the first
// spelling of each label.
func normalize(p *models.PreferenceSnapshot) {
	for _, f := range p.ListFields() {
		*f = Union(nil, *f)
	}
}
