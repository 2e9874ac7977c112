// Package rcuht provides a concurrent hash table with lock-free readers.
//
// Readers run inside read-side critical sections that never block, never
// take a lock and never contend with each other. Writers are serialized by
// one mutex per table. A removed or replaced entry stays readable by every
// session that could still reference it and is released only after a grace
// period.
//
// Usage:
//
//	t, err := rcuht.New[string, int](64, 64, 64, false)
//	if err != nil {
//		return err
//	}
//	ctx := t.Thread()
//	defer ctx.Close()
//
//	ws, err := ctx.Write()
//	if err != nil {
//		return err
//	}
//	ws.InsertOrReplace("a", 1)
//	ws.Close()
//
//	rs := ctx.Read()
//	if ref, ok := rs.Get("a"); ok {
//		fmt.Println(ref.Value())
//	}
//	rs.Close()
//
// Thread Safety:
//
// A Table is shared by all goroutines. A ThreadContext, and every session
// and Ref derived from it, belongs to the goroutine that called
// Table.Thread and must not be handed to another goroutine. WithOwnerCheck
// turns cross-goroutine use into a panic.
package rcuht
