// Package topicgraph stores documentation topics and the curation edges
// between them.
//
// Nodes live in an arena indexed by an interned integer key; forward and
// reverse adjacency are index lists that are always updated together. An edge
// from A to B means "A curates B": B is listed in A's Topics and A is one of
// B's parents in the rendered hierarchy.
//
// A Graph is not safe for concurrent mutation. Once curation is complete the
// graph is only read, and concurrent readers are fine.
package topicgraph
