// Command rcuht-bench benchmarks and soak-tests the RCU hash table.
//
//	rcuht-bench bench -c 0,1,2,3 -o 1 -s 10
//	rcuht-bench bench -c 0,1 -m rwlock --output json
//	rcuht-bench soak -d 5m --config rcuht.yaml
package main

import (
	"fmt"
	"os"

	"github.com/yndnr/rcuht-go/internal/cli/command"
)

func main() {
	app := command.App()

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}
