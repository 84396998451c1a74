// Package main is the entry point for the synthtest CLI.
package main

import "synthtest.dev/pkg/synthtest/cmd"

func main() {
	cmd.Execute()
}
