package main

import (
	"platform-pulse/internal/cli"
)

func main() {
	cli.Execute()
}
