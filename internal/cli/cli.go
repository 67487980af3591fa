// Package cli builds the cobra command tree for asyncify, mirroring
// cmd/cli/main.go's root-command-plus-subcommands assembly in the teacher
// (one rootCmd, AddCommand per subcommand, zerolog to stderr, non-zero
// exit on any reported failure).
package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/asyncify/asyncify/internal/ast"
	"github.com/asyncify/asyncify/internal/config"
	"github.com/asyncify/asyncify/internal/engine"
	"github.com/asyncify/asyncify/internal/htmlextract"
	"github.com/asyncify/asyncify/internal/report"
	"github.com/asyncify/asyncify/internal/reportwriter"
)

var version = "dev"

// NewRootCommand builds the asyncify root command with its three
// subcommands: standalone, html, configuration (spec.md §6).
func NewRootCommand() *cobra.Command {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	root := &cobra.Command{
		Use:     "asyncify",
		Short:   "Static async-propagation analysis for JavaScript",
		Version: version,
	}

	root.AddCommand(standaloneCmd())
	root.AddCommand(htmlCmd())
	root.AddCommand(configurationCmd())

	return root
}

// runOptions holds the flags shared by standalone and html: §6's
// "path line [--fnIndex N] [--save-config FILE] [--save-output FILE]".
type runOptions struct {
	fnIndex    int
	saveConfig string
	saveOutput string
	serializer string
}

func addRunFlags(cmd *cobra.Command, opts *runOptions) {
	cmd.Flags().IntVar(&opts.fnIndex, "fnIndex", 0, "index of the seed function among functions on the given line")
	cmd.Flags().StringVar(&opts.saveConfig, "save-config", "", "write the resolved driver configuration to this file")
	cmd.Flags().StringVar(&opts.saveOutput, "save-output", "", "write the rendered report to this file instead of stdout")
	cmd.Flags().StringVar(&opts.serializer, "serializer", "markdown", "report format: markdown or plain")
}

func standaloneCmd() *cobra.Command {
	opts := &runOptions{}
	var root string
	var scripts []string

	cmd := &cobra.Command{
		Use:   "standalone <path> <line>",
		Short: "Run propagation over one or more plain JavaScript files",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			path, line, err := parsePathLine(args)
			if err != nil {
				return err
			}
			if root == "" {
				root = "."
			}
			seedListed := false
			for _, s := range scripts {
				if s == path {
					seedListed = true
				}
			}
			if !seedListed {
				scripts = append(scripts, path)
			}

			eng := engine.New(root, engine.Options{})
			for _, s := range scripts {
				if _, err := eng.AppendFile(s); err != nil {
					return exitErr(err)
				}
			}

			driverCfg := &config.DriverConfig{}
			driverCfg.Driver.Type = "javascript"
			driverCfg.Driver.Root = root
			driverCfg.Driver.Scripts = scripts

			return runAndReport(cmd, eng, path, line, opts, driverCfg)
		},
	}
	cmd.Flags().StringVar(&root, "root", "", "filesystem root for relative script paths")
	cmd.Flags().StringSliceVar(&scripts, "scripts", nil, "additional scripts to append before the seed file")
	addRunFlags(cmd, opts)
	return cmd
}

func htmlCmd() *cobra.Command {
	opts := &runOptions{}
	var htmlPath string

	cmd := &cobra.Command{
		Use:   "html <path> <line>",
		Short: "Run propagation over inline scripts extracted from an HTML file",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			path, line, err := parsePathLine(args)
			if err != nil {
				return err
			}
			if htmlPath == "" {
				htmlPath = path
			}

			data, err := os.ReadFile(htmlPath)
			if err != nil {
				return exitErr(fmt.Errorf("reading %s: %w", htmlPath, err))
			}

			x := htmlextract.New()
			frags, err := x.Extract(htmlPath, string(data))
			if err != nil {
				return exitErr(err)
			}

			eng := engine.New(".", engine.Options{})
			for _, f := range frags {
				if err := eng.AppendSource(htmlPath, f.FirstLine, f.Text); err != nil {
					return exitErr(err)
				}
			}

			driverCfg := &config.DriverConfig{}
			driverCfg.Driver.Type = "html"
			driverCfg.Driver.Root = "."
			driverCfg.Driver.PathToHTML = htmlPath

			return runAndReport(cmd, eng, htmlPath, line, opts, driverCfg)
		},
	}
	cmd.Flags().StringVar(&htmlPath, "html", "", "HTML file to extract inline scripts from (defaults to <path>)")
	addRunFlags(cmd, opts)
	return cmd
}

func configurationCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "configuration <file>",
		Short: "Run propagation from a driver configuration document",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			configPath = args[0]
			cfg, err := config.LoadDriverConfig(configPath)
			if err != nil {
				return exitErr(err)
			}

			eng := engine.New(cfg.Driver.Root, engine.Options{})
			switch cfg.Driver.Type {
			case "javascript":
				for _, s := range cfg.Driver.Scripts {
					if _, err := eng.AppendFile(s); err != nil {
						return exitErr(err)
					}
				}
			case "html":
				data, err := os.ReadFile(cfg.Driver.PathToHTML)
				if err != nil {
					return exitErr(fmt.Errorf("reading %s: %w", cfg.Driver.PathToHTML, err))
				}
				x := htmlextract.New()
				frags, err := x.Extract(cfg.Driver.PathToHTML, string(data))
				if err != nil {
					return exitErr(err)
				}
				for _, f := range frags {
					if err := eng.AppendSource(cfg.Driver.PathToHTML, f.FirstLine, f.Text); err != nil {
						return exitErr(err)
					}
				}
			}

			if err := eng.Parse(context.Background()); err != nil {
				return exitErr(err)
			}

			for _, ig := range cfg.Driver.Ignore {
				n, ok := eng.NodeByLineFilterIndex(ig.Path, ig.Line, ig.Index, func(k ast.Kind) bool { return ig.Type == "" || string(k) == ig.Type })
				if ok {
					eng.MarkIgnored(n)
				}
			}

			seed, ok := eng.FunctionNodeFromLine(cfg.Driver.MarkAsync.Path, cfg.Driver.MarkAsync.Line, cfg.Driver.MarkAsync.FunctionIndex)
			if !ok {
				return exitErr(fmt.Errorf("markAsync target not found at %s:%d[%d]", cfg.Driver.MarkAsync.Path, cfg.Driver.MarkAsync.Line, cfg.Driver.MarkAsync.FunctionIndex))
			}

			m, err := eng.GetAsyncStacks(seed)
			if err != nil {
				return exitErr(err)
			}

			return writeReport(cmd, eng, seed, m, cfg.Serializer.Type, "")
		},
	}
	return cmd
}

func parsePathLine(args []string) (path string, line int, err error) {
	path = args[0]
	if _, err = fmt.Sscanf(args[1], "%d", &line); err != nil {
		return "", 0, fmt.Errorf("invalid line %q: %w", args[1], err)
	}
	return path, line, nil
}

func runAndReport(cmd *cobra.Command, eng *engine.Engine, path string, line int, opts *runOptions, driverCfg *config.DriverConfig) error {
	if err := eng.Parse(context.Background()); err != nil {
		return exitErr(err)
	}
	seed, ok := eng.FunctionNodeFromLine(path, line, opts.fnIndex)
	if !ok {
		return exitErr(fmt.Errorf("no function at %s:%d[%d]", path, line, opts.fnIndex))
	}

	driverCfg.Driver.MarkAsync = config.MarkAsync{Path: path, Line: line, FunctionIndex: opts.fnIndex}
	driverCfg.Serializer.Type = opts.serializer
	if opts.saveConfig != "" {
		if err := driverCfg.Save(opts.saveConfig); err != nil {
			return exitErr(err)
		}
	}

	m, err := eng.GetAsyncStacks(seed)
	if err != nil {
		return exitErr(err)
	}
	return writeReport(cmd, eng, seed, m, opts.serializer, opts.saveOutput)
}

func writeReport(cmd *cobra.Command, eng *engine.Engine, seed ast.NodeID, m *report.AsyncMap, serializerName, saveTo string) error {
	reg := reportwriter.NewRegistry()
	w, err := reg.Get(serializerName)
	if err != nil {
		return exitErr(err)
	}
	out, err := w.Write(reportwriter.FromModel(eng.Report(seed, m)))
	if err != nil {
		return exitErr(err)
	}

	if saveTo == "" {
		fmt.Fprint(cmd.OutOrStdout(), out)
		return nil
	}
	return os.WriteFile(saveTo, []byte(out), 0o644)
}

func exitErr(err error) error {
	log.Error().Err(err).Msg("asyncify run failed")
	return err
}
