package main

import "fraudguard/cmd"

func main() {
	cmd.Execute()
}
