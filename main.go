package main

import "github.com/davenport-labs/spindle/cmd"

func main() {
	cmd.Execute()
}
