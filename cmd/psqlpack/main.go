package main

import "github.com/psqlpack/psqlpack/cmd"

func main() {
	cmd.Execute()
}
