package main

import "github.com/athena-robotics/workcell-go/internal/adapters/cli"

func main() {
	cli.Execute()
}
