// eventctl manipulates named system events from the shell: one-shot
// set/reset/pulse, state queries, blocking waits and a watch loop that
// runs until a stop event fires. Useful for coordinating shell scripts
// with long-running processes, and for poking at events while debugging.
package main

import (
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/AlexionSoftware/events"
)

// Exit codes: 0 ok/set, 1 unset or failure, 2 wait timed out.
const exitTimeout = 2

var (
	log = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).With().Timestamp().Logger()

	flagInitialState bool
	flagManualReset  bool
	flagTimeout      time.Duration
	flagStopName     string
	flagVerbose      bool
)

func main() {
	root := &cobra.Command{
		Use:           "eventctl",
		Short:         "Manipulate named system events",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if flagVerbose {
				log = log.Level(zerolog.DebugLevel)
			} else {
				log = log.Level(zerolog.InfoLevel)
			}
		},
	}
	root.PersistentFlags().BoolVar(&flagInitialState, "initial-state", false,
		"create the event already signaled (ignored if the name exists)")
	root.PersistentFlags().BoolVar(&flagManualReset, "manual-reset", false,
		"create a manual-reset event (ignored if the name exists)")
	root.PersistentFlags().BoolVarP(&flagVerbose, "verbose", "v", false,
		"debug logging")

	root.AddCommand(opCommand("set", "Signal the event", events.Event.Set))
	root.AddCommand(opCommand("reset", "Return the event to not-signaled", events.Event.Reset))
	root.AddCommand(opCommand("pulse", "Release currently blocked waiters, leave not-signaled", events.Event.Pulse))
	root.AddCommand(stateCommand())
	root.AddCommand(waitCommand())
	root.AddCommand(watchCommand())
	root.AddCommand(unlinkCommand())

	if err := root.Execute(); err != nil {
		if errors.Is(err, events.ErrTimeout) {
			os.Exit(exitTimeout)
		}
		log.Error().Err(err).Msg("eventctl failed")
		os.Exit(1)
	}
}

func openEvent(name string) (*events.NamedEvent, error) {
	return events.NewNamedEvent(name, flagInitialState, flagManualReset)
}

func opCommand(use, short string, op func(events.Event) error) *cobra.Command {
	return &cobra.Command{
		Use:   use + " NAME",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ev, err := openEvent(args[0])
			if err != nil {
				return err
			}
			defer ev.Close()
			if err := op(ev); err != nil {
				return err
			}
			log.Debug().Str("event", args[0]).Str("op", use).Msg("done")
			return nil
		},
	}
}

func stateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "state NAME",
		Short: "Print set/unset; exit 0 when set, 1 when unset",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ev, err := openEvent(args[0])
			if err != nil {
				return err
			}
			defer ev.Close()
			if ev.IsSet() {
				fmt.Println("set")
				return nil
			}
			fmt.Println("unset")
			os.Exit(1)
			return nil
		},
	}
}

func waitCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "wait NAME",
		Short: "Block until the event fires; exit 2 on timeout",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ev, err := openEvent(args[0])
			if err != nil {
				return err
			}
			defer ev.Close()
			start := time.Now()
			if err := ev.Wait(flagTimeout); err != nil {
				return err
			}
			log.Debug().Str("event", args[0]).Dur("waited", time.Since(start)).Msg("signaled")
			return nil
		},
	}
	cmd.Flags().DurationVar(&flagTimeout, "timeout", events.Forever,
		"give up after this long (default: wait forever)")
	return cmd
}

func watchCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "watch NAME",
		Short: "Print a line each time the event fires, until the stop event fires or SIGINT",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			action, err := openEvent(args[0])
			if err != nil {
				return err
			}
			defer action.Close()

			var stop events.Event
			if flagStopName != "" {
				named, err := openEvent(flagStopName)
				if err != nil {
					return err
				}
				defer named.Close()
				stop = named
			} else {
				stop = events.NewInProcessEvent("watch_stop", false, false)
			}

			n := 0
			h := events.NewEventHandler(func() {
				n++
				log.Info().Str("event", args[0]).Int("count", n).Msg("fired")
			}, action, stop)

			sigc := make(chan os.Signal, 1)
			signal.Notify(sigc, os.Interrupt, syscall.SIGTERM)
			select {
			case <-sigc:
				log.Info().Msg("interrupted, stopping")
				h.Stop()
				return h.Join(5 * time.Second)
			case <-h.Done():
				log.Info().Int("count", n).Msg("stop event fired")
				return nil
			}
		},
	}
	cmd.Flags().StringVar(&flagStopName, "stop", "",
		"named event that terminates the watch")
	return cmd
}

func unlinkCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "unlink NAME",
		Short: "Remove the named event so the next creation starts fresh",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return events.Unlink(args[0])
		},
	}
}
