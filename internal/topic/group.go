package topic

import "slices"

// TaskGroup is a titled list of topics, as shown in a page's Topics or See
// Also section.
type TaskGroup struct {
	Title      string
	References []Reference
}

// Contains reports whether the group lists ref (ignoring fragment and
// language).
func (g TaskGroup) Contains(ref Reference) bool {
	return slices.ContainsFunc(g.References, ref.IsSamePage)
}

// Flatten returns the references of every group in order.
func Flatten(groups []TaskGroup) []Reference {
	var out []Reference
	for _, g := range groups {
		out = append(out, g.References...)
	}
	return out
}
