package main

import (
	"fmt"
	"os"

	"github.com/gonuts/commander"

	"evcoref/app"
)

var cmd *commander.Command

func init() {
	cmd = app.AllCommands()
}

func main() {
	err := cmd.Dispatch(os.Args[1:])
	if err != nil {
		fmt.Printf("**err**: %v\n", err)
		os.Exit(1)
	}
}
