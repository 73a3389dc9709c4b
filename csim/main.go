// Command csim simulates a set-associative cache over a trace of memory
// addresses.
package main

import "github.com/sarchlab/csim/csim/cmd"

func main() {
	cmd.Execute()
}
