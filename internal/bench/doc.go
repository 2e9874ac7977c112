// Package bench measures read throughput of the table against lock-based
// baselines while a writer churns keys, and soak-tests reclamation safety.
//
// A run places one reader goroutine on each configured core except the
// last, which runs the writer. Readers look up key 0 in a loop and count
// hits and misses. The writer inserts keys 0..objects-1, paces itself,
// emits a Sample once per second and then removes the keys again.
package bench
