package hash

import (
	"encoding/binary"
	"testing"
)

type userID string

type point struct{ X, Y int }

func TestFor_String(t *testing.T) {
	h := For[string](DefaultSeed)

	if got, want := h("alpha"), Bytes([]byte("alpha"), DefaultSeed); got != want {
		t.Errorf("h(alpha) = %x, want %x", got, want)
	}
	if h("alpha") == h("beta") {
		t.Error("distinct keys should not collide")
	}
	if h("") != Bytes(nil, DefaultSeed) {
		t.Error("empty string should hash like empty bytes")
	}
}

func TestFor_NamedString(t *testing.T) {
	h := For[userID](DefaultSeed)
	if got, want := h("u-1"), For[string](DefaultSeed)("u-1"); got != want {
		t.Errorf("named string hash = %x, want %x", got, want)
	}
}

func TestFor_Integer(t *testing.T) {
	h := For[uint64](DefaultSeed)

	var buf [8]byte
	binary.NativeEndian.PutUint64(buf[:], 42)
	if got, want := h(42), Bytes(buf[:], DefaultSeed); got != want {
		t.Errorf("h(42) = %x, want %x", got, want)
	}

	h32 := For[int32](DefaultSeed)
	if h32(1) == h32(2) {
		t.Error("distinct int32 keys should not collide")
	}
}

func TestFor_Seed(t *testing.T) {
	if For[string](1)("k") == For[string](2)("k") {
		t.Error("different seeds should give different hashes")
	}
}

func TestFor_Comparable(t *testing.T) {
	h := For[point](DefaultSeed)

	if h(point{1, 2}) != h(point{1, 2}) {
		t.Error("equal struct keys must hash equal")
	}
	if h(point{1, 2}) == h(point{2, 1}) {
		t.Error("distinct struct keys should not collide")
	}
}

func BenchmarkFor_String(b *testing.B) {
	h := For[string](DefaultSeed)
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		_ = h("session:0123456789")
	}
}

func BenchmarkFor_Uint64(b *testing.B) {
	h := For[uint64](DefaultSeed)
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		_ = h(uint64(i))
	}
}
