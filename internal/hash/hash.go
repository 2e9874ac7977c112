// Package hash builds key hash functions for the table.
//
// Keys whose underlying kind is a string or a fixed-size integer are hashed
// with murmur3 over their raw bytes. Every other comparable key falls back
// to hash/maphash, whose seed is random per hasher.
package hash

import (
	"hash/maphash"
	"reflect"
	"unsafe"

	"github.com/spaolacci/murmur3"
)

// DefaultSeed is the murmur3 seed used when none is configured.
const DefaultSeed uint32 = 3

// Func hashes a key to 64 bits.
type Func[K comparable] func(K) uint64

// For returns a hash function for K seeded with seed.
func For[K comparable](seed uint32) Func[K] {
	t := reflect.TypeFor[K]()
	switch t.Kind() {
	case reflect.String:
		return func(k K) uint64 {
			s := *(*string)(unsafe.Pointer(&k))
			return murmur3.Sum64WithSeed(unsafe.Slice(unsafe.StringData(s), len(s)), seed)
		}
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		size := int(t.Size())
		return func(k K) uint64 {
			return murmur3.Sum64WithSeed(unsafe.Slice((*byte)(unsafe.Pointer(&k)), size), seed)
		}
	}

	ms := maphash.MakeSeed()
	return func(k K) uint64 {
		return maphash.Comparable(ms, k)
	}
}

// Bytes hashes b with murmur3.
func Bytes(b []byte, seed uint32) uint64 {
	return murmur3.Sum64WithSeed(b, seed)
}
