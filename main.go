package main

import "github.com/maxvaer/dirgraph/cmd"

func main() {
	cmd.Execute()
}
