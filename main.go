// The main package for the budzetmapa executable.
package main

import (
	"github.com/budzetlodz/budzetmapa/cmd"
)

func main() {
	cmd.Execute()
}
