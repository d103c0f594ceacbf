package main

import "github.com/v2x-tools/scenedex/cmd"

func main() {
	cmd.Execute()
}
