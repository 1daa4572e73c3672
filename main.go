// pulsebar is a status line generator for i3bar and swaybar.
//
// Usage:
//
//	pulsebar [run] [--config FILE] [--preview]
//	pulsebar ipc info|bar|click|refresh|reload
//	pulsebar themes [show NAME]
//	pulsebar items
//	pulsebar version
package main

import (
	"fmt"
	"os"

	"gitlab.com/tinyland/lab/pulsebar/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
