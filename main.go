package main

import "office-chat/cli"

func main() {
	cli.Execute()
}
