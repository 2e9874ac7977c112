package rcuht

import (
	"testing"

	"github.com/yndnr/rcuht-go/internal/telemetry/logger"
	"github.com/yndnr/rcuht-go/internal/telemetry/metric"
	"github.com/yndnr/rcuht-go/internal/urcu"
)

func newBenchTable(b *testing.B, keys uint32) *Table[uint32, uint32] {
	b.Helper()
	d := urcu.NewDomain(urcu.WithName(b.Name()), urcu.WithLogger(logger.Discard()))
	tbl, err := New[uint32, uint32](1024, 1024, 1024, false,
		WithDomain(d),
		WithLogger(logger.Discard()),
		WithMetrics(metric.NewRegistry()))
	if err != nil {
		b.Fatalf("New() error = %v", err)
	}

	tc := tbl.Thread()
	err = tc.Update(func(ws *WriteSession[uint32, uint32]) error {
		for k := uint32(0); k < keys; k++ {
			ws.InsertOrReplace(k, k)
		}
		return nil
	})
	tc.Close()
	if err != nil {
		b.Fatalf("Update() error = %v", err)
	}

	b.Cleanup(func() {
		tbl.Close()
		d.Close()
	})
	return tbl
}

func BenchmarkReadSession_Get(b *testing.B) {
	tbl := newBenchTable(b, 4096)
	b.ReportAllocs()
	b.ResetTimer()

	b.RunParallel(func(pb *testing.PB) {
		tc := tbl.Thread()
		defer tc.Close()
		k := uint32(0)
		for pb.Next() {
			rs := tc.Read()
			if ref, ok := rs.Get(k & 4095); ok {
				_ = ref.Value()
			}
			rs.Close()
			k++
		}
	})
}

func BenchmarkWriteSession_InsertOrReplace(b *testing.B) {
	tbl := newBenchTable(b, 0)
	tc := tbl.Thread()
	defer tc.Close()
	ws, err := tc.Write()
	if err != nil {
		b.Fatalf("Write() error = %v", err)
	}
	defer ws.Close()

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		ws.InsertOrReplace(uint32(i&4095), uint32(i))
	}
}

func BenchmarkReadDuringWrites(b *testing.B) {
	tbl := newBenchTable(b, 1024)
	stop := make(chan struct{})
	done := make(chan struct{})
	go func() {
		defer close(done)
		tc := tbl.Thread()
		defer tc.Close()
		for i := uint32(0); ; i++ {
			select {
			case <-stop:
				return
			default:
			}
			tc.Update(func(ws *WriteSession[uint32, uint32]) error {
				ws.InsertOrReplace(i&1023, i)
				return nil
			})
		}
	}()

	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		tc := tbl.Thread()
		defer tc.Close()
		k := uint32(0)
		for pb.Next() {
			tc.View(func(rs ReadSession[uint32, uint32]) error {
				rs.Contains(k & 1023)
				return nil
			})
			k++
		}
	})
	b.StopTimer()
	close(stop)
	<-done
}
