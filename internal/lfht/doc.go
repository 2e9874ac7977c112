// Package lfht implements a lock-free resizable hash table in the
// split-ordered list layout.
//
// All entries live in one linked list sorted by the bit-reversed hash. The
// bucket array holds dummy nodes that serve as entry points into the list,
// so doubling the array only inserts new dummies and never moves entries.
//
// Every next pointer is an immutable link value swapped by CAS. A link with
// removed set marks its owner as logically deleted. Lookups never write to
// shared memory and skip removed nodes. Mutations help unlink removed nodes
// they pass.
//
// Replacing an entry marks the old node removed while pointing its next link
// at the new node, so a concurrent lookup observes either the old or the
// new entry, never neither.
//
// The table does not manage memory lifetime. Callers run lookups inside a
// read-side critical section and retire deleted nodes through a grace-period
// domain (see package urcu); Node embeds the urcu.Head that needs.
package lfht
