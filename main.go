package main

import "github.com/lepinkainen/boxset/cmd"

var execute = cmd.Execute

func main() {
	execute()
}
