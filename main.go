package main

import "lobby-tracker/cmd"

func main() {
	cmd.Execute()
}
