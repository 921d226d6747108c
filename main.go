package main

import "github.com/darmiel/fxrelay/cmd"

func main() {
	cmd.Execute()
}
