package main

import "github.com/abstractors/go-rewards/cmd"

func main() {
	cmd.Execute()
}
