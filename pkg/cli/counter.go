package cli

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/nimburion/lazycounter/pkg/adapter"
	"github.com/nimburion/lazycounter/pkg/config"
	"github.com/nimburion/lazycounter/pkg/observability/logger"
)

const disposeTimeout = 10 * time.Second

type runner struct {
	opts       ServiceCommandOptions
	loadConfig func(flags *pflag.FlagSet) (*config.Config, logger.Logger, error)
}

func (r *runner) counterCommands() []*cobra.Command {
	initCmd := &cobra.Command{
		Use:   "init",
		Short: "Create the counter record and seed it with 0",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return r.withCounter(cmd, func(ctx context.Context, counter adapter.Counter) error {
				if err := counter.Init(ctx); err != nil {
					return fmt.Errorf("init counter: %w", err)
				}
				fmt.Fprintln(cmd.OutOrStdout(), "initialized")
				return nil
			})
		},
	}
	SetCommandPolicies(initCmd, map[string]CommandPolicy{defaultPolicyContext: PolicyOnce})

	getCmd := &cobra.Command{
		Use:   "get",
		Short: "Print the current counter value",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return r.withCounter(cmd, func(ctx context.Context, counter adapter.Counter) error {
				value, err := counter.Get(ctx)
				if err != nil {
					return fmt.Errorf("get counter: %w", err)
				}
				fmt.Fprintln(cmd.OutOrStdout(), value)
				return nil
			})
		},
	}
	SetCommandPolicies(getCmd, map[string]CommandPolicy{defaultPolicyContext: PolicyOnDemand})

	setCmd := &cobra.Command{
		Use:   "set <value>",
		Short: "Write the counter; the store decides the resulting value",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			value, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid value %q: must be an integer", args[0])
			}
			return r.withCounter(cmd, func(ctx context.Context, counter adapter.Counter) error {
				if err := counter.Set(ctx, value); err != nil {
					return fmt.Errorf("set counter: %w", err)
				}
				current, err := counter.Get(ctx)
				if err != nil {
					return fmt.Errorf("read back counter: %w", err)
				}
				fmt.Fprintln(cmd.OutOrStdout(), current)
				return nil
			})
		},
	}
	SetCommandPolicies(setCmd, map[string]CommandPolicy{defaultPolicyContext: PolicyOnDemand})

	return []*cobra.Command{initCmd, getCmd, setCmd}
}

// healthcheck forces a connection with a read. A reachable store without
// a counter record is still healthy.
func (r *runner) healthcheck(cmd *cobra.Command, args []string) error {
	return r.withCounter(cmd, func(ctx context.Context, counter adapter.Counter) error {
		_, err := counter.Get(ctx)
		switch {
		case err == nil:
			fmt.Fprintln(cmd.OutOrStdout(), "healthy")
		case errors.Is(err, adapter.ErrNotInitialized):
			fmt.Fprintln(cmd.OutOrStdout(), "healthy (counter not initialized)")
		default:
			return fmt.Errorf("store unreachable: %w", err)
		}
		return counter.HealthCheck(ctx)
	})
}

// withCounter builds the configured counter, runs fn and disposes the
// counter whatever fn returned.
func (r *runner) withCounter(cmd *cobra.Command, fn func(context.Context, adapter.Counter) error) (err error) {
	cfg, log, err := r.loadConfig(cmd.Flags())
	if err != nil {
		return err
	}
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	counter, err := r.opts.NewCounter(cfg.Store, log)
	if err != nil {
		return fmt.Errorf("create counter: %w", err)
	}
	defer func() {
		disposeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), disposeTimeout)
		defer cancel()
		if disposeErr := counter.Dispose(disposeCtx); disposeErr != nil {
			log.Error("failed to dispose counter", "error", disposeErr)
			if err == nil {
				err = fmt.Errorf("dispose counter: %w", disposeErr)
			}
		}
	}()

	return fn(ctx, counter)
}
