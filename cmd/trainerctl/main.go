// Command trainerctl talks to the emotion classifier from a terminal: it
// classifies image files and fetches challenges the way the games do.
package main

import (
	"github.com/spf13/cobra"
)

func main() {
	cobra.CheckErr(newRootCmd().Execute())
}
