package main

import "fraud-monitor/internal/cli"

func main() {
	cli.Execute()
}
