package rcuht_test

import (
	"errors"
	"fmt"

	"github.com/yndnr/rcuht-go/pkg/rcuht"
)

func Example() {
	t, err := rcuht.New[string, int](64, 64, 64, false)
	if err != nil {
		panic(err)
	}
	ctx := t.Thread()

	ws, _ := ctx.Write()
	ws.InsertOrReplace("A", 1)
	ws.InsertOrReplace("B", 2)
	ws.Close()

	rs := ctx.Read()
	if ref, ok := rs.Get("A"); ok {
		fmt.Println("A =", ref.Value())
	}
	rs.Close()

	_ = ctx.Update(func(ws *rcuht.WriteSession[string, int]) error {
		ws.InsertOrReplace("A", 3)
		return ws.Remove("B")
	})

	_ = ctx.View(func(rs rcuht.ReadSession[string, int]) error {
		v, _ := rs.Lookup("A")
		fmt.Println("A =", v)
		fmt.Println("B present:", rs.Contains("B"))
		return nil
	})

	ws, _ = ctx.Write()
	err = ws.Remove("B")
	ws.Close()
	fmt.Println("remove B again:", errors.Is(err, rcuht.ErrNotFound))

	ctx.Close()
	_ = t.Close()

	// Output:
	// A = 1
	// A = 3
	// B present: false
	// remove B again: true
}
