// Package main is the kotae CLI entry point.
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/hyperjump/kotae/internal/cli"
	"github.com/hyperjump/kotae/internal/config"
	"github.com/hyperjump/kotae/internal/metrics"
	"github.com/hyperjump/kotae/internal/models"
	"github.com/hyperjump/kotae/internal/pipeline"
	"github.com/hyperjump/kotae/internal/server"
	"github.com/hyperjump/kotae/internal/watcher"
	"github.com/hyperjump/kotae/pkg/utils"
	"go.uber.org/zap"
)

var version = "dev"

const defaultConfigPath = "/usr/local/etc/kotae/config.yaml"

// loadConfig loads config from path. When path is the default, config.yaml in
// the current directory wins if present; when neither exists, built-in
// defaults rooted at the current directory are used. The returned path is
// empty in that last case.
func loadConfig(path string) (*config.Config, string, error) {
	if path == defaultConfigPath {
		cwd, err := os.Getwd()
		if err != nil {
			return nil, "", err
		}
		local := filepath.Join(cwd, "config.yaml")
		if _, err := os.Stat(local); err == nil {
			cfg, err := config.Load(local)
			if err != nil {
				return nil, "", err
			}
			return cfg, local, nil
		}
		if _, err := os.Stat(path); os.IsNotExist(err) {
			if err := config.LoadDotEnv(filepath.Join(cwd, ".env")); err != nil {
				return nil, "", err
			}
			return config.Default(cwd), "", nil
		}
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, "", err
	}
	return cfg, path, nil
}

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}
	command := os.Args[1]
	args := os.Args[2:]
	switch command {
	case "build":
		runBuild(args)
	case "ask":
		runAsk(args)
	case "run":
		runRun(args)
	case "serve", "server":
		runServe(args)
	case "watch":
		runWatch(args)
	case "status":
		runStatus(args)
	case "init":
		runInit(args)
	case "version", "--version", "-v":
		fmt.Printf("kotae version %s\n", version)
	case "help", "--help", "-h":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", command)
		printUsage()
		os.Exit(1)
	}
}

// commonFlags are shared by every subcommand that opens an engine.
type commonFlags struct {
	configPath *string
	key        *string
	debug      *bool
	output     *string
}

func addCommonFlags(fs *flag.FlagSet) commonFlags {
	return commonFlags{
		configPath: fs.String("config", defaultConfigPath, "config file path"),
		key:        fs.String("key", "", "index key (default: storage.default_key)"),
		debug:      fs.Bool("debug", false, "enable debug logging"),
		output:     fs.String("output", "text", "output format: text or json"),
	}
}

// session is a loaded config plus the engine built from it.
type session struct {
	cfg     *config.Config
	logger  *zap.Logger
	metrics *metrics.Metrics
	engine  *pipeline.Engine
	key     string
	format  cli.OutputFormat
}

func (s *session) Close() {
	if s.engine != nil {
		if err := s.engine.Close(); err != nil {
			s.logger.Warn("close engine", zap.Error(err))
		}
	}
	_ = s.logger.Sync()
}

// openSession loads config and builds the engine. CLI commands log warnings
// to stderr only, unless debug is on; serve uses the full logger.
func openSession(ctx context.Context, f commonFlags, verbose bool) *session {
	format, err := cli.ParseOutputFormat(*f.output)
	if err != nil {
		fatalf("%v", err)
	}
	cfg, resolved, err := loadConfig(*f.configPath)
	if err != nil {
		fatalf("Failed to load config: %v", err)
	}
	debug := cfg.Debug || *f.debug
	var logger *zap.Logger
	if verbose {
		logger, err = utils.NewLogger(debug)
	} else {
		logger, err = utils.NewCLILogger(debug)
	}
	if err != nil {
		fatalf("Failed to create logger: %v", err)
	}
	logger.Debug("config loaded", zap.String("config_path", resolved), zap.Bool("debug", debug))

	m := metrics.New()
	engine, err := pipeline.FromConfig(ctx, cfg, logger, m)
	if err != nil {
		_ = logger.Sync()
		fatalf("Failed to initialize: %v", err)
	}
	key := *f.key
	if key == "" {
		key = cfg.Storage.DefaultKey
	}
	return &session{cfg: cfg, logger: logger, metrics: m, engine: engine, key: key, format: format}
}

func fatalf(format string, a ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", a...)
	os.Exit(1)
}

// argsReorder moves any flags (and their values) that appear after the
// positional arguments to the front so that flag.Parse sees them. Go's flag
// package stops at the first non-flag argument.
func argsReorder(args []string) []string {
	for i, a := range args {
		if len(a) > 0 && a[0] == '-' {
			if i == 0 {
				return args
			}
			reordered := make([]string, 0, len(args))
			reordered = append(reordered, args[i:]...)
			reordered = append(reordered, args[:i]...)
			return reordered
		}
	}
	return args
}

// joinArgs joins positional args so multi-word questions work with or
// without shell quoting.
func joinArgs(args []string) string {
	return strings.TrimSpace(strings.Join(args, " "))
}

func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

func runBuild(args []string) {
	fs := flag.NewFlagSet("build", flag.ExitOnError)
	f := addCommonFlags(fs)
	_ = fs.Parse(argsReorder(args))

	ctx, cancel := signalContext()
	defer cancel()
	s := openSession(ctx, f, false)
	defer s.Close()

	path := s.cfg.Ingest.SourcePath
	if fs.NArg() > 0 {
		path = fs.Arg(0)
	}
	if path == "" {
		fatalf("Usage: kotae build [flags] <file>")
	}
	res, err := s.engine.BuildFromFile(ctx, s.key, path)
	if err != nil {
		fatalf("Build failed: %v", err)
	}
	if err := cli.WriteBuild(os.Stdout, res, s.format); err != nil {
		fatalf("Output failed: %v", err)
	}
}

func runAsk(args []string) {
	fs := flag.NewFlagSet("ask", flag.ExitOnError)
	f := addCommonFlags(fs)
	serverURL := fs.String("server", "", "server URL; when set the question is sent to a running server")
	_ = fs.Parse(argsReorder(args))

	question := joinArgs(fs.Args())
	if question == "" {
		fatalf("Usage: kotae ask [flags] <question>")
	}

	if *serverURL != "" {
		format, err := cli.ParseOutputFormat(*f.output)
		if err != nil {
			fatalf("%v", err)
		}
		ans, err := askViaHTTP(*serverURL, *f.key, question)
		if err != nil {
			fatalf("Ask failed: %v", err)
		}
		if err := cli.WriteAnswer(os.Stdout, ans, format); err != nil {
			fatalf("Output failed: %v", err)
		}
		return
	}

	ctx, cancel := signalContext()
	defer cancel()
	s := openSession(ctx, f, false)
	defer s.Close()

	ans, err := s.engine.Ask(ctx, s.key, question)
	if err != nil {
		fatalf("Ask failed: %v", err)
	}
	if err := cli.WriteAnswer(os.Stdout, ans, s.format); err != nil {
		fatalf("Output failed: %v", err)
	}
}

func askViaHTTP(serverURL, key, question string) (*models.Answer, error) {
	body, err := json.Marshal(map[string]string{"key": key, "question": question})
	if err != nil {
		return nil, err
	}
	resp, err := http.Post(strings.TrimRight(serverURL, "/")+"/api/v1/ask", "application/json", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("server returned %d: %s", resp.StatusCode, strings.TrimSpace(string(b)))
	}
	var ans models.Answer
	if err := json.NewDecoder(resp.Body).Decode(&ans); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return &ans, nil
}

func runRun(args []string) {
	fs := flag.NewFlagSet("run", flag.ExitOnError)
	f := addCommonFlags(fs)
	source := fs.String("source", "", "document to index (default: ingest.source_path)")
	_ = fs.Parse(argsReorder(args))

	question := joinArgs(fs.Args())
	if question == "" {
		fatalf("Usage: kotae run --source <file> [flags] <question>")
	}

	ctx, cancel := signalContext()
	defer cancel()
	s := openSession(ctx, f, false)
	defer s.Close()

	path := *source
	if path == "" {
		path = s.cfg.Ingest.SourcePath
	}
	if path == "" {
		fatalf("No source document: pass --source or set ingest.source_path")
	}
	res, err := s.engine.Run(ctx, s.key, path, question)
	if res != nil && res.Build != nil && s.format == cli.OutputText {
		_ = cli.WriteBuild(os.Stderr, res.Build, cli.OutputText)
	}
	if err != nil {
		fatalf("Run failed: %v", err)
	}
	if s.format == cli.OutputJSON {
		if err := json.NewEncoder(os.Stdout).Encode(res); err != nil {
			fatalf("Output failed: %v", err)
		}
		return
	}
	if err := cli.WriteAnswer(os.Stdout, res.Answer, s.format); err != nil {
		fatalf("Output failed: %v", err)
	}
}

func runServe(args []string) {
	fs := flag.NewFlagSet("serve", flag.ExitOnError)
	f := addCommonFlags(fs)
	watch := fs.Bool("watch", false, "rebuild the index when ingest.source_path changes (also enabled by watch.enabled)")
	_ = fs.Parse(args)

	ctx, cancel := signalContext()
	defer cancel()
	s := openSession(ctx, f, true)
	defer s.Close()

	if (*watch || s.cfg.Watch.Enabled) && s.cfg.Ingest.SourcePath != "" {
		w := startWatcher(ctx, s, s.cfg.Ingest.SourcePath)
		defer w.Stop()
	}

	srv := server.NewServer(s.engine, &s.cfg.Server, s.key, s.metrics, s.logger)
	errCh := make(chan error, 1)
	go func() { errCh <- srv.Start() }()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("Server failed", zap.Error(err))
		}
	case <-ctx.Done():
		s.logger.Info("Shutting down...")
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		_ = srv.Stop(shutdownCtx)
	}
}

func runWatch(args []string) {
	fs := flag.NewFlagSet("watch", flag.ExitOnError)
	f := addCommonFlags(fs)
	initial := fs.Bool("initial", true, "build once before watching")
	_ = fs.Parse(argsReorder(args))

	ctx, cancel := signalContext()
	defer cancel()
	s := openSession(ctx, f, true)
	defer s.Close()

	path := s.cfg.Ingest.SourcePath
	if fs.NArg() > 0 {
		path = fs.Arg(0)
	}
	if path == "" {
		fatalf("Usage: kotae watch [flags] <file>")
	}
	if *initial {
		res, err := s.engine.BuildFromFile(ctx, s.key, path)
		if err != nil {
			fatalf("Build failed: %v", err)
		}
		_ = cli.WriteBuild(os.Stdout, res, s.format)
	}
	w := startWatcher(ctx, s, path)
	defer w.Stop()
	s.logger.Info("watching for changes", zap.String("path", path), zap.String("key", s.key))
	<-ctx.Done()
}

func startWatcher(ctx context.Context, s *session, path string) *watcher.Watcher {
	build := func(ctx context.Context, key, path string) error {
		_, err := s.engine.BuildFromFile(ctx, key, path)
		return err
	}
	w, err := watcher.NewWatcher([]string{path},
		watcher.Rebuilder(ctx, s.key, build, s.logger),
		watcher.WithLogger(s.logger),
		watcher.WithDebounce(s.cfg.Watch.Debounce))
	if err != nil {
		fatalf("Failed to create watcher: %v", err)
	}
	if err := w.Start(ctx); err != nil {
		fatalf("Failed to start watcher: %v", err)
	}
	return w
}

func runStatus(args []string) {
	fs := flag.NewFlagSet("status", flag.ExitOnError)
	f := addCommonFlags(fs)
	_ = fs.Parse(args)

	ctx, cancel := signalContext()
	defer cancel()
	s := openSession(ctx, f, false)
	defer s.Close()

	st, err := s.engine.Status(ctx, s.key)
	if err != nil {
		fatalf("Status failed: %v", err)
	}
	if err := cli.WriteStatus(os.Stdout, st, s.format); err != nil {
		fatalf("Output failed: %v", err)
	}
}

func runInit(args []string) {
	fs := flag.NewFlagSet("init", flag.ExitOnError)
	path := fs.String("config", "config.yaml", "where to write the config file")
	force := fs.Bool("force", false, "overwrite an existing file")
	_ = fs.Parse(args)

	if _, err := os.Stat(*path); err == nil && !*force {
		fatalf("%s already exists (use --force to overwrite)", *path)
	}
	abs, err := filepath.Abs(*path)
	if err != nil {
		fatalf("%v", err)
	}
	cfg := config.Default(filepath.Dir(abs))
	if err := config.Save(abs, cfg); err != nil {
		fatalf("Failed to write config: %v", err)
	}
	fmt.Printf("Wrote %s\n", abs)
}

func printUsage() {
	fmt.Println(`kotae - answer questions from a document with an embedding index

Usage:
  kotae build [flags] <file>                 Extract passages, embed, and save the index
  kotae ask [flags] <question>               Answer a question from a saved index
  kotae run --source <file> [flags] <question>
                                             Build, save, reload, and answer in one go
  kotae serve [flags]                        Start the HTTP server
  kotae watch [flags] <file>                 Rebuild the index whenever the file changes
  kotae status [flags]                       Show stored indexes and the current key
  kotae init [--config path]                 Write a default config file
  kotae version                              Show version
  kotae help                                 Show this help

Common Flags:
  --config string    Config file path (default: ./config.yaml, then /usr/local/etc/kotae/config.yaml)
  --key string       Index key (default: storage.default_key, "test")
  --output string    Output format: text or json (default: text)
  --debug            Enable debug logging

Ask Flags:
  --server string    Send the question to a running server instead of loading the index

Serve Flags:
  --watch            Rebuild when ingest.source_path changes

Examples:
  kotae build handbook.pdf
  kotae ask "How many vacation days do I get?"
  kotae ask --output json --key handbook what is the dress code
  kotae run --source notes.md "When is the deadline?"
  kotae serve --watch
  kotae status --output json`)
}
