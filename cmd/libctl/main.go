package main

import "libraryhub/cmd/libctl/command"

func main() {
	command.Execute()
}
