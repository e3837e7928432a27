package main

import "github.com/kestrelplan/pulsar/cmd"

func main() {
	cmd.Execute()
}
