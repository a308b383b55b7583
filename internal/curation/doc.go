// Package curation organizes topics into Topics and See Also groups.
//
// Explicit curation comes from the Topics sections authors write; the
// Crawler resolves those links and records the curation in the topic graph.
// Automatic curation fills in what authors left out: the remaining children
// of a page grouped by kind, and the siblings of a page as its See Also.
package curation
