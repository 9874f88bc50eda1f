package main

import "github.com/opsledger/opsledger/cmd"

func main() {
	cmd.Execute()
}
