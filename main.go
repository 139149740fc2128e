package main

import "sheet-agent/cmd"

func main() {
	cmd.Execute()
}
