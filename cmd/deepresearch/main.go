// Command deepresearch runs the research pipeline from the terminal or
// serves it over HTTP.
package main

import "os"

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
