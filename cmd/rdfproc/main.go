// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"strings"

	"github.com/poiesic/graphstore"
	"github.com/poiesic/graphstore/storage"
	"github.com/urfave/cli/v2"
	"gopkg.in/yaml.v3"
)

const program = "rdfproc"

func main() {
	if err := newApp().Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:      program,
		Usage:     "Manipulate an RDF graph store",
		ArgsUsage: "STORE COMMAND [ARG...]",
		Description: "Commands:\n" + commandHelp() +
			"\nA '-' stands for any node in find. An object that does not look like a URI is a literal.",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:    "contexts",
				Aliases: []string{"c"},
				Usage:   "Use a store with contexts",
			},
			&cli.BoolFlag{
				Name:    "new",
				Aliases: []string{"n"},
				Usage:   "Create a new store, replacing any existing content",
			},
			&cli.StringFlag{
				Name:    "storage",
				Aliases: []string{"s"},
				Usage:   "Storage type",
				Value:   "hashes",
			},
			&cli.StringFlag{
				Name:    "storage-options",
				Aliases: []string{"t"},
				Usage:   "Storage options",
				Value:   "hash-type='disk',dir='.'",
			},
			&cli.StringFlag{
				Name:  "config",
				Usage: "YAML profile with storage, storage-options, contexts and new",
			},
			&cli.StringFlag{
				Name:    "log-level",
				Aliases: []string{"l"},
				Usage:   "Set logging level (debug, info, warn, error)",
				Value:   "warn",
			},
		},
		Before: setupLogger,
		Action: run,
	}
}

// profile is the YAML form of the storage flags. Flags given on the command
// line take precedence.
type profile struct {
	Storage        string `yaml:"storage"`
	StorageOptions string `yaml:"storage-options"`
	Contexts       bool   `yaml:"contexts"`
	New            bool   `yaml:"new"`
}

func loadProfile(path string) (*profile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}
	var p profile
	if err := yaml.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("failed to parse config yaml: %w", err)
	}
	return &p, nil
}

// settings resolves the storage flags against an optional profile.
func settings(c *cli.Context) (*profile, error) {
	p := &profile{}
	if path := c.String("config"); path != "" {
		loaded, err := loadProfile(path)
		if err != nil {
			return nil, err
		}
		p = loaded
	}
	if c.IsSet("storage") || p.Storage == "" {
		p.Storage = c.String("storage")
	}
	if c.IsSet("storage-options") || p.StorageOptions == "" {
		p.StorageOptions = c.String("storage-options")
	}
	if c.IsSet("contexts") {
		p.Contexts = c.Bool("contexts")
	}
	if c.IsSet("new") {
		p.New = c.Bool("new")
	}
	return p, nil
}

func run(c *cli.Context) error {
	ctx := context.Background()

	if c.NArg() < 2 {
		return fmt.Errorf("expected STORE COMMAND [ARG...], try --help")
	}
	store := c.Args().Get(0)
	name := c.Args().Get(1)
	args := c.Args().Slice()[2:]

	cmd, ok := lookupCommand(name)
	if !ok {
		return fmt.Errorf("unknown command %q", name)
	}
	if len(args) < cmd.minArgs || len(args) > cmd.maxArgs {
		return fmt.Errorf("%s: expected %s", name, cmd.usage)
	}

	p, err := settings(c)
	if err != nil {
		return err
	}

	opts, err := storage.ParseOptions(p.StorageOptions)
	if err != nil {
		return fmt.Errorf("invalid storage options: %w", err)
	}
	opts.Identifier = store
	opts.Contexts = opts.Contexts || p.Contexts
	opts.New = opts.New || p.New
	opts.Write = opts.Write || cmd.write

	world, err := graphstore.NewWorld()
	if err != nil {
		return err
	}
	defer world.Close()

	st, err := world.NewStorage(ctx, p.Storage, opts)
	if err != nil {
		return fmt.Errorf("failed to open %s storage: %w", p.Storage, err)
	}
	model, err := world.NewModel(ctx, store, st)
	if err != nil {
		st.Close()
		return fmt.Errorf("failed to open %s storage: %w", p.Storage, err)
	}
	defer model.Close()

	slog.Debug("running command", "command", name, "store", store, "storage", p.Storage, "options", opts.String())
	env := &env{
		ctx:   ctx,
		model: model,
		out:   c.App.Writer,
		err:   c.App.ErrWriter,
	}
	return cmd.run(env, args)
}

func setupLogger(c *cli.Context) error {
	// Get log level from flag and normalize to lowercase
	levelStr := strings.ToLower(c.String("log-level"))

	// Map string to slog.Level
	var level slog.Level
	switch levelStr {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		return fmt.Errorf("invalid log level %q: must be one of debug, info, warn, error", levelStr)
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)

	return nil
}
