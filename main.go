// The main package for the minerva executable.
package main

import (
	"github.com/Tifany-Devil/Billboard-Minerva/cmd"
)

func main() {
	cmd.Execute()
}
