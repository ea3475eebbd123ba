package main

import "retint/cmd"

func main() {
	cmd.Execute()
}
