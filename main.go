package main

import "dwpipe/cmd"

func main() {
	cmd.Execute()
}
