package main

import (
	"fmt"
	"os"

	"github.com/go-extras/cobraflags"
	"github.com/spf13/cobra"
)

const envFileFlag = "env-file"

var rootFlags = map[string]cobraflags.Flag{
	envFileFlag: &cobraflags.StringFlag{
		Name:  envFileFlag,
		Value: ".env",
		Usage: "Optional dotenv file read before the environment",
	},
}

func newRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:   "service-user",
		Short: "User, role and permission service",
		Long: `service-user manages accounts, roles and role permissions.

Available subcommands:
  serve    - Run the HTTP gateway and, when enabled, the redis broker
  migrate  - Create missing tables
  seed     - Insert the built-in roles and grants
  call     - Send one command through the redis broker`,
		SilenceUsage: true,
	}
	for _, sub := range []*cobra.Command{
		newServeCommand(),
		newMigrateCommand(),
		newSeedCommand(),
		newCallCommand(),
	} {
		cobraflags.RegisterMap(sub, rootFlags)
		root.AddCommand(sub)
	}
	return root
}

func main() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
