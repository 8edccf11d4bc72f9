// Package main is the entry point for the forcebridge CLI.
package main

import (
	"seedfast/forcebridge/cmd"
)

func main() {
	cmd.Execute()
}
