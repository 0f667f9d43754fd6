// Command slopectl inspects and applies slope limits against a networks file
// without starting the control server.
package main

import (
	"os"

	"github.com/charleschow/slope-limits/internal/config"
)

func main() {
	if err := newRootCmd(config.Load()).Execute(); err != nil {
		os.Exit(1)
	}
}
