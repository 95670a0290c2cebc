package main

import "github.com/yknothing/clipdown/cmd"

func main() {
	cmd.Execute()
}
