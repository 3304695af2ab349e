package main

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-extras/cobraflags"
	"github.com/go-redis/redis/v8"
	"github.com/spf13/cobra"

	"github.com/ovaphlow/pitchfork/service-user-go/internal/rpc"
)

const callTimeoutFlag = "timeout"

var callFlags = map[string]cobraflags.Flag{
	callTimeoutFlag: &cobraflags.StringFlag{
		Name:  callTimeoutFlag,
		Value: "10s",
		Usage: "How long to wait for the reply",
	},
}

func newCallCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "call <cmd> [json-payload]",
		Short: "Send one command through the redis broker and print the reply",
		Example: `  service-user call user.findOne '{"id":1}'
  service-user call role.findAll`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			timeout, err := time.ParseDuration(callFlags[callTimeoutFlag].GetString())
			if err != nil {
				return fmt.Errorf("--%s: %w", callTimeoutFlag, err)
			}
			var payload json.RawMessage
			if len(args) == 2 {
				if !json.Valid([]byte(args[1])) {
					return fmt.Errorf("payload is not valid JSON")
				}
				payload = json.RawMessage(args[1])
			}

			cfg, lg, err := bootstrap()
			if err != nil {
				return err
			}
			defer lg.Sync()

			rdb := redis.NewClient(&redis.Options{
				Addr:     cfg.Broker.Addr,
				Password: cfg.Broker.Password,
				DB:       cfg.Broker.DB,
			})
			defer rdb.Close()

			var out json.RawMessage
			if err := rpc.NewClient(rdb, cfg.Broker.Queue, timeout).Call(cmd.Context(), args[0], payload, &out); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(out))
			return nil
		},
	}
	cobraflags.RegisterMap(cmd, callFlags)
	return cmd
}
