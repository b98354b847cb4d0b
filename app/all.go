package app

import (
	"os"

	"github.com/gonuts/commander"
)

func AllCommands() *commander.Command {
	return &commander.Command{
		UsageLine: os.Args[0],
		Short:     "event coreference with latent mention trees",
		Subcommands: []*commander.Command{
			TrainCmd(),
			ResolveCmd(),
			EvalCmd(),
		},
	}
}
