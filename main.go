package main

import "github.com/alenjb/deli/cmd"

func main() {
	cmd.Execute()
}
