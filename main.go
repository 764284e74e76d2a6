package main

import "github.com/metal-toolbox/netsync/cmd"

func main() {
	cmd.Execute()
}
