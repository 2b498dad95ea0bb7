package main

import (
	"bufio"
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/rakunlabs/into"
	"github.com/rakunlabs/logi"

	"github.com/rakunlabs/symshell/internal/shell/config"
	"github.com/rakunlabs/symshell/internal/shell/core"
	"github.com/rakunlabs/symshell/internal/shell/events"
	"github.com/rakunlabs/symshell/internal/shell/fsio"
	"github.com/rakunlabs/symshell/internal/shell/help"
	"github.com/rakunlabs/symshell/internal/shell/llmbridge"
	"github.com/rakunlabs/symshell/internal/shell/runner"
)

var (
	name    = "symshell"
	version = "v0.0.0"
)

func main() {
	into.Init(run,
		into.WithLogger(logi.InitializeLog(logi.WithCaller(false))),
		into.WithMsgf("%s [%s]", name, version),
	)
}

func run(ctx context.Context) error {
	engine := core.NewEngine()

	config.LoadCore(ctx, engine)

	runner.New(engine)
	events.New(ctx, engine)
	fsio.New(engine)

	if llmCfg, err := config.LoadLLM(ctx); err != nil {
		slog.Info("llm bridge disabled: config/llm/default.json not loaded or missing base_url", "error", err)
	} else if _, err := llmbridge.New(engine, llmCfg); err != nil {
		slog.Warn("llm bridge failed to start", "error", err)
	}

	return replLoop(ctx, engine)
}

// replLoop is the thin REPL shell: read a line, dispatch it, print the
// result.
func replLoop(ctx context.Context, engine *core.Engine) error {
	fmt.Println(name + " " + version + " — type 'help' for the command table, 'quit' to exit")

	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("> ")

		lineCh := make(chan string, 1)
		okCh := make(chan bool, 1)
		go func() {
			ok := scanner.Scan()
			lineCh <- scanner.Text()
			okCh <- ok
		}()

		select {
		case <-ctx.Done():
			return ctx.Err()
		case ok := <-okCh:
			line := <-lineCh
			if !ok {
				return nil
			}

			trimmed := strings.TrimSpace(line)
			switch trimmed {
			case "":
				continue
			case "quit", "exit":
				return nil
			}

			fields := strings.Fields(trimmed)
			if fields[0] == "help" {
				arg := ""
				if len(fields) > 1 {
					arg = fields[1]
				}
				fmt.Println(help.Render(engine, arg))
				continue
			}

			out := engine.Execute(trimmed)
			if out != "" {
				fmt.Println(out)
			}
		}
	}
}
