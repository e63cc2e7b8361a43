/* Copyright 2024 Comcast Cable Communications Management, LLC
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 * http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

// Command lightswitch is a oneM2M demo lightswitch.
//
// Usage:
//
//    lightswitch [-c config.yaml] [-binding b] [-listen addr] [-v] COMMAND [ARGS]
//
// Commands:
//
//    toggle [ARGS]          run the lightswitch script
//    status                 show the current state
//    autorun                run the autorun scripts passively
//    run NAME [ARGS]        run a script
//    serve [-service ACT]   serve HTTP, run startup and scheduled scripts
//    repl                   interactive console
//    doc                    write the scripts page to stdout
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/Comcast/lightswitch/config"
	"github.com/Comcast/lightswitch/script"
	"github.com/Comcast/lightswitch/tools"
)

func init() {
	log.SetFlags(log.Ldate | log.Ltime | log.Lmicroseconds | log.LUTC)
}

// options are the global flags.
type options struct {
	cfgFile string
	binding string
	listen  string
	verbose bool
}

// config loads the configuration file, if any, and applies flag
// overrides.
func (o options) config() (*config.Config, error) {
	var (
		cfg *config.Config
		err error
	)
	if o.cfgFile == "" {
		cfg = config.Default()
	} else if cfg, err = config.Load(o.cfgFile); err != nil {
		return nil, err
	}
	if o.binding != "" {
		cfg.CSE.Binding = o.binding
	}
	if o.listen != "" {
		cfg.HTTP.Listen = o.listen
	}
	if err = cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func usage() {
	fmt.Fprintf(flag.CommandLine.Output(), `Usage: %s [flags] COMMAND [ARGS]

Commands: toggle, status, autorun, run NAME, serve, repl, doc

Flags:
`, os.Args[0])
	flag.PrintDefaults()
}

func main() {
	var opts options
	flag.StringVar(&opts.cfgFile, "c", "", "configuration file (YAML)")
	flag.StringVar(&opts.binding, "binding", "", "override cse.binding (http, mqtt, ws, memory)")
	flag.StringVar(&opts.listen, "listen", "", "override http.listen")
	flag.BoolVar(&opts.verbose, "v", false, "verbose logging")
	flag.Usage = usage
	flag.Parse()

	args := flag.Args()
	if len(args) == 0 {
		usage()
		os.Exit(2)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := dispatch(ctx, opts, args[0], args[1:]); err != nil {
		log.Printf("%s: %s", args[0], err)
		cancel()
		os.Exit(1)
	}
}

func dispatch(ctx context.Context, opts options, cmd string, args []string) error {
	switch cmd {
	case "serve":
		fs := flag.NewFlagSet("serve", flag.ExitOnError)
		action := fs.String("service", "", "install, uninstall, start, stop, restart, or run")
		fs.Parse(args)
		if *action != "" {
			return controlService(opts, *action)
		}
		return withApp(ctx, opts, func(a *app) error {
			return a.serve(ctx)
		})

	case "repl":
		return repl(ctx, opts)

	case "doc":
		cfg, err := opts.config()
		if err != nil {
			return err
		}
		return tools.ReadAndRenderScriptsPage(cfg.Scripts.Dir, os.Stdout, nil)

	case "toggle":
		return withApp(ctx, opts, func(a *app) error {
			return a.run(ctx, os.Stdout, "lightswitch", args)
		})

	case "run":
		if len(args) == 0 {
			return fmt.Errorf("run what?")
		}
		return withApp(ctx, opts, func(a *app) error {
			return a.run(ctx, os.Stdout, args[0], args[1:])
		})

	case "status":
		return withApp(ctx, opts, func(a *app) error {
			state, src := a.toggler.Status(ctx)
			fmt.Printf("%s (%s)\n", state, src)
			return nil
		})

	case "autorun":
		return withApp(ctx, opts, func(a *app) error {
			var failed error
			for _, o := range a.runner.RunAutorun(ctx) {
				if o.Err != nil {
					log.Printf("%s: %s", o.Name, o.Err)
					failed = o.Err
				}
			}
			return failed
		})

	default:
		usage()
		return fmt.Errorf("unknown command %q", cmd)
	}
}

func withApp(ctx context.Context, opts options, f func(*app) error) error {
	cfg, err := opts.config()
	if err != nil {
		return err
	}
	a, err := newApp(ctx, cfg, opts.verbose, os.Stdout)
	if err != nil {
		return err
	}
	defer a.close(context.Background())
	return f(a)
}

// run runs a script interactively and prints its result.
func (a *app) run(ctx context.Context, out io.Writer, name string, args []string) error {
	x, err := a.runner.Run(ctx, name, script.Invocation{
		Args:        args,
		Interactive: true,
	})
	if err != nil {
		return err
	}
	if s := script.FormatResult(x); s != "" {
		fmt.Fprintln(out, s)
	}
	return nil
}
