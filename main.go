package main

import "github.com/kozaktomas/attendance-scanner/cmd"

func main() {
	cmd.Execute()
}
