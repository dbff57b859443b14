package main

import "github.com/killallgit/markstream/cmd"

func main() {
	cmd.Execute()
}
