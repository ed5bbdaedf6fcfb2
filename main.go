package main

import "github.com/theirongolddev/promptroute/cmd"

func main() {
	cmd.Execute()
}
