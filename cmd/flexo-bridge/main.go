package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/mbsekit/flexo-bridge/internal/bridge"
	"github.com/mbsekit/flexo-bridge/internal/cache"
	"github.com/mbsekit/flexo-bridge/internal/config"
	"github.com/mbsekit/flexo-bridge/internal/diff"
	"github.com/mbsekit/flexo-bridge/internal/flexo"
	"github.com/mbsekit/flexo-bridge/internal/logger"
	"github.com/mbsekit/flexo-bridge/internal/mcp"
	"github.com/mbsekit/flexo-bridge/internal/notation"
	"github.com/mbsekit/flexo-bridge/internal/syside"
	"github.com/mbsekit/flexo-bridge/internal/tools"
	"github.com/mbsekit/flexo-bridge/internal/workspace"
	"github.com/mbsekit/flexo-bridge/pkg/version"
)

const usage = `flexo-bridge - sync SysML v2 textual models with a Flexo repository

Usage:
  flexo-bridge <command> [flags]

Commands:
  convert    Convert between textual notation and element graph JSON
  pull       Pull a project's latest commit as textual notation
  push       Push a source file to a project as a new commit
  diff       Compare two snapshots ignoring element UUIDs
  projects   List repository projects
  watch      Watch a workspace and push sources on change
  serve      Serve bridge tools over stdio (MCP)
  version    Print the version
`

func main() {
	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}

	if _, err := config.LoadEnvFile("."); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load .env: %v\n", err)
		os.Exit(1)
	}

	cfg := config.Load()
	logger.Init(logger.Config{
		Level:  logger.ParseLevel(cfg.LogLevel),
		Format: cfg.LogFormat,
		Output: os.Stderr,
	})

	var err error
	switch os.Args[1] {
	case "convert":
		err = runConvert(cfg, os.Args[2:])
	case "pull":
		err = runPull(cfg, os.Args[2:])
	case "push":
		err = runPush(cfg, os.Args[2:])
	case "diff":
		err = runDiff(os.Args[2:])
	case "projects":
		err = runProjects(cfg, os.Args[2:])
	case "watch":
		err = runWatch(cfg, os.Args[2:])
	case "serve":
		err = runServe(cfg, os.Args[2:])
	case "version":
		fmt.Println(version.Version)
	case "-h", "--help", "help":
		fmt.Print(usage)
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n%s", os.Args[1], usage)
		os.Exit(2)
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

type app struct {
	bridge  *bridge.Bridge
	client  *flexo.Client
	checker *syside.Checker
	cleanup func()
}

func newApp(cfg *config.Config) (*app, error) {
	clientCfg := flexo.DefaultClientConfig()
	clientCfg.BaseURL = cfg.BaseURL()
	clientCfg.Token = cfg.BearerToken()

	client, err := flexo.NewClient(clientCfg)
	if err != nil {
		return nil, err
	}

	var store *cache.Store
	cleanup := func() {}
	if cfg.Cache.Enabled {
		store, err = cache.NewStore(cfg.Cache.DBPath)
		if err != nil {
			logger.Warn("cache unavailable", "error", err)
			store = nil
		} else {
			cleanup = func() { store.Close() }
		}
	}

	checker := syside.NewChecker(cfg.Checker)
	if checker.Enabled() {
		wd, _ := os.Getwd()
		if err := checker.Start(context.Background(), wd); err != nil {
			logger.Warn("semantic checker unavailable", "error", err)
		}
	}

	closeStore := cleanup
	cleanup = func() {
		if checker.Enabled() {
			stopCtx, stopCancel := context.WithTimeout(context.Background(), 10*time.Second)
			checker.Stop(stopCtx)
			stopCancel()
		}
		closeStore()
	}

	return &app{
		bridge:  bridge.New(client, store, checker),
		client:  client,
		checker: checker,
		cleanup: cleanup,
	}, nil
}

func runConvert(cfg *config.Config, args []string) error {
	fs := flag.NewFlagSet("convert", flag.ExitOnError)
	toText := fs.Bool("to-text", false, "convert element graph JSON to textual notation")
	input := fs.String("in", "", "input file (default stdin)")
	output := fs.String("o", "", "output file (default stdout)")
	wrap := fs.Bool("wrap", false, "wrap output elements as commit change entries")
	minimal := fs.Bool("minimal", false, "omit derived properties the repository recomputes")
	fs.Parse(args)

	var data []byte
	var err error
	if *input != "" {
		src, _, rerr := workspace.ReadFileAsUTF8(*input)
		if rerr != nil {
			return rerr
		}
		data = []byte(src)
	} else {
		data, err = io.ReadAll(os.Stdin)
		if err != nil {
			return err
		}
	}

	conv := bridge.NewConverter()
	conv.Encoding.Minimal = *minimal

	emit := func(s string) error {
		if *output != "" {
			return os.WriteFile(*output, []byte(s), 0644)
		}
		fmt.Print(s)
		return nil
	}

	if *toText {
		text, err := conv.JSONToText(data)
		if err != nil {
			return err
		}
		return emit(text)
	}

	var out any
	var diags *notation.Diagnostics
	if *wrap {
		payload, d, err := conv.TextToPayload(string(data))
		if err != nil {
			return err
		}
		out, diags = payload, d
	} else {
		elements, d, err := conv.TextToElements(string(data))
		if err != nil {
			return err
		}
		out, diags = elements, d
	}

	if diags != nil {
		for _, d := range diags.Items {
			fmt.Fprintln(os.Stderr, d.String())
		}
	}

	encoded, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return err
	}
	return emit(string(encoded) + "\n")
}

func runPull(cfg *config.Config, args []string) error {
	fs := flag.NewFlagSet("pull", flag.ExitOnError)
	project := fs.String("project", cfg.ProjectName, "project name")
	output := fs.String("out", "", "write textual notation to file (default stdout)")
	fs.Parse(args)

	a, err := newApp(cfg)
	if err != nil {
		return err
	}
	defer a.cleanup()

	ctx, cancel := signalContext()
	defer cancel()

	result, err := a.bridge.Pull(ctx, *project)
	if err != nil {
		return err
	}

	logger.Info("pulled model",
		"project", result.Project.Name,
		"commit", result.Commit.ID,
		"from_cache", result.FromCache)

	if *output != "" {
		return os.WriteFile(*output, []byte(result.Textual), 0644)
	}
	fmt.Print(result.Textual)
	return nil
}

func runPush(cfg *config.Config, args []string) error {
	fs := flag.NewFlagSet("push", flag.ExitOnError)
	project := fs.String("project", cfg.ProjectName, "project name")
	message := fs.String("m", "", "commit description")
	fs.Parse(args)

	if fs.NArg() != 1 {
		return fmt.Errorf("usage: flexo-bridge push [flags] <file.sysml>")
	}

	a, err := newApp(cfg)
	if err != nil {
		return err
	}
	defer a.cleanup()

	ctx, cancel := signalContext()
	defer cancel()

	result, err := a.bridge.PushFile(ctx, *project, fs.Arg(0), *message)
	if err != nil {
		return err
	}

	if result.CreatedProject {
		fmt.Printf("Created project %s (%s)\n", result.Project.Name, result.Project.ID)
	}
	fmt.Printf("Committed %s\n", result.Commit.ID)
	return nil
}

func runDiff(args []string) error {
	fs := flag.NewFlagSet("diff", flag.ExitOnError)
	strict := fs.Bool("strict-whitespace", false, "count whitespace differences")
	fs.Parse(args)

	if fs.NArg() != 2 {
		return fmt.Errorf("usage: flexo-bridge diff <a> <b>")
	}

	a, _, err := workspace.ReadFileAsUTF8(fs.Arg(0))
	if err != nil {
		return err
	}
	b, _, err := workspace.ReadFileAsUTF8(fs.Arg(1))
	if err != nil {
		return err
	}

	opts := diff.DefaultOptions()
	if *strict {
		opts.NormalizeWhitespace = false
	}

	text, err := diff.Diff(a, b, opts)
	if err != nil {
		return err
	}

	if text == "" {
		fmt.Println("Snapshots are equivalent")
		return nil
	}
	fmt.Print(text)
	os.Exit(1)
	return nil
}

func runProjects(cfg *config.Config, args []string) error {
	a, err := newApp(cfg)
	if err != nil {
		return err
	}
	defer a.cleanup()

	ctx, cancel := signalContext()
	defer cancel()

	projects, err := a.client.ListProjects(ctx)
	if err != nil {
		return err
	}

	for _, p := range projects {
		fmt.Printf("%s\t%s\n", p.ID, p.Name)
	}
	return nil
}

func runWatch(cfg *config.Config, args []string) error {
	fs := flag.NewFlagSet("watch", flag.ExitOnError)
	project := fs.String("project", cfg.ProjectName, "project name")
	root := fs.String("root", ".", "workspace root to watch")
	fs.Parse(args)

	a, err := newApp(cfg)
	if err != nil {
		return err
	}
	defer a.cleanup()

	ctx, cancel := signalContext()
	defer cancel()

	watcher, err := workspace.NewWatcher(cfg.Watcher, func(events []workspace.FileEvent) {
		for _, event := range events {
			if event.Type == workspace.EventDelete {
				continue
			}

			pushCtx, pushCancel := context.WithTimeout(ctx, time.Minute)
			result, err := a.bridge.PushFile(pushCtx, *project, event.Path, "auto-push on save")
			pushCancel()

			if err != nil {
				logger.Error("push failed", "path", event.Path, "error", err)
				continue
			}
			logger.Info("pushed on change",
				"path", event.Path, "commit", result.Commit.ID)
		}
	})
	if err != nil {
		return err
	}

	if err := watcher.AddRoot(*root); err != nil {
		return err
	}
	if err := watcher.Start(ctx); err != nil {
		return err
	}
	defer watcher.Stop()

	logger.Info("watching workspace", "root", *root, "project", *project)
	<-ctx.Done()
	return nil
}

func runServe(cfg *config.Config, args []string) error {
	a, err := newApp(cfg)
	if err != nil {
		return err
	}
	defer a.cleanup()

	registry := tools.NewRegistry()
	for _, tool := range []tools.Tool{
		tools.NewConvertTextToJSONTool(a.bridge.Converter()),
		tools.NewConvertJSONToTextTool(a.bridge.Converter()),
		tools.NewPullModelTool(a.bridge),
		tools.NewPushModelTool(a.bridge),
		tools.NewDiffModelsTool(),
		tools.NewListProjectsTool(a.client),
		tools.NewHealthTool(cfg.BaseURL(), a.checker),
	} {
		if err := registry.Register(tool); err != nil {
			return err
		}
	}

	logger.Info("serving MCP on stdio",
		"version", version.Version, "tools", len(registry.Names()))

	server := mcp.NewServer(registry)
	return server.ProcessStream(os.Stdin, os.Stdout)
}

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

