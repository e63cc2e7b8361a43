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

package main

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/chzyer/readline"
)

const replHelp = `Commands:
  toggle            toggle the switch
  status            show the current state and where it came from
  run NAME [ARG..]  run a script
  scripts           list scripts
  help              this message
  quit              exit
`

// repl reads commands until EOF or "quit".  Autorun scripts run
// first.
func repl(ctx context.Context, opts options) error {
	rl, err := readline.NewEx(&readline.Config{
		Prompt:          "lightswitch> ",
		InterruptPrompt: "^C",
		EOFPrompt:       "quit",
	})
	if err != nil {
		return fmt.Errorf("failed to create readline: %w", err)
	}
	defer rl.Close()

	cfg, err := opts.config()
	if err != nil {
		return err
	}
	a, err := newApp(ctx, cfg, opts.verbose, rl.Stdout())
	if err != nil {
		return err
	}
	defer a.close(context.Background())

	out := rl.Stdout()
	for _, o := range a.runner.RunAutorun(ctx) {
		if o.Err != nil {
			fmt.Fprintf(out, "%s: %s\n", o.Name, o.Err)
		}
	}
	fmt.Fprint(out, replHelp)

	for {
		line, err := rl.Readline()
		if err == readline.ErrInterrupt {
			continue
		}
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}
		if quit := a.command(ctx, out, strings.Fields(line)); quit {
			return nil
		}
		if ctx.Err() != nil {
			return nil
		}
	}
}

// command executes one REPL line and reports whether to quit.
func (a *app) command(ctx context.Context, out io.Writer, args []string) bool {
	if len(args) == 0 {
		return false
	}
	switch args[0] {
	case "quit", "exit":
		return true
	case "help", "?":
		fmt.Fprint(out, replHelp)
	case "toggle":
		if err := a.run(ctx, out, "lightswitch", args[1:]); err != nil {
			fmt.Fprintf(out, "error: %s\n", err)
		}
	case "status":
		state, src := a.toggler.Status(ctx)
		fmt.Fprintf(out, "%s (%s)\n", state, src)
	case "run":
		if len(args) < 2 {
			fmt.Fprintln(out, "run what?")
			break
		}
		if err := a.run(ctx, out, args[1], args[2:]); err != nil {
			fmt.Fprintf(out, "error: %s\n", err)
		}
	case "scripts":
		for _, s := range a.runner.Scripts() {
			desc := s.Description
			if i := strings.Index(desc, "\n"); 0 <= i {
				desc = desc[:i]
			}
			fmt.Fprintf(out, "  %-16s %s\n", s.Name, desc)
		}
	default:
		fmt.Fprintf(out, "unknown command %q (try help)\n", args[0])
	}
	return false
}
