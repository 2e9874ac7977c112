// Package urcu implements a userspace read-copy-update grace-period domain.
//
// Readers register once per goroutine and then bracket their accesses with
// Reader.Lock and Reader.Unlock. Read-side critical sections nest, never
// block and never write shared state other than the reader's own padded
// slot.
//
// Writers unlink shared objects and hand them to Domain.Retire. A single
// reclaimer goroutine per domain batches retired objects, waits for one
// grace period (Synchronize) and then calls Reclaim on each. A grace period
// ends once every reader that was inside a critical section when it began
// has left that section.
//
// The process-wide Default domain is created on first use and is never torn
// down. NewDomain creates private domains, mostly for tests.
package urcu
