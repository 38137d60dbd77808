package main

import "kidney-story/cmd/kidneyctl/commands"

func main() {
	commands.Execute()
}
