package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"easel/internal/app"
	"easel/internal/config"
	"easel/internal/domain"
	"easel/internal/service"
)

// cli carries the configuration shared by every subcommand.
type cli struct {
	cfg      config.Config
	dataDir  string
	store    string
	dbDriver string
	dbDSN    string
}

func newRootCmd() *cobra.Command {
	c := &cli{}

	root := &cobra.Command{
		Use:           "easel",
		Short:         "Read and edit .easel canvas documents",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return c.loadConfig()
		},
	}
	root.PersistentFlags().StringVar(&c.dataDir, "data-dir", "", "data directory (overrides EASEL_DATA_DIR)")
	root.PersistentFlags().StringVar(&c.store, "store", "", "document store: file, sql or mongo (overrides EASEL_DOCUMENT_STORE)")
	root.PersistentFlags().StringVar(&c.dbDriver, "db-driver", "", "database driver: sqlite, postgres or mysql (overrides EASEL_DB_DRIVER)")
	root.PersistentFlags().StringVar(&c.dbDSN, "db-dsn", "", "database DSN (overrides EASEL_DB_DSN)")

	root.AddCommand(
		&cobra.Command{
			Use:   "mcp",
			Short: "Serve the MCP tools on stdin/stdout",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				return app.ServeMCP(c.cfg)
			},
		},
		c.newCmd(),
		c.lsCmd(),
		c.catCmd(),
		c.nodeCmd(),
	)
	return root
}

// loadConfig reads the environment, applies flag overrides, then resolves
// defaults once.
func (c *cli) loadConfig() error {
	cfg, err := config.Parse()
	if err != nil {
		return err
	}
	if c.dataDir != "" {
		cfg.DataDir = c.dataDir
	}
	if c.store != "" {
		cfg.DocumentStore = c.store
	}
	if c.dbDriver != "" {
		cfg.DBDriver = c.dbDriver
	}
	if c.dbDSN != "" {
		cfg.DBDSN = c.dbDSN
	}
	if err := cfg.Resolve(); err != nil {
		return err
	}
	c.cfg = cfg
	return nil
}

// withCanvas opens the configured document store for the duration of fn.
func (c *cli) withCanvas(ctx context.Context, fn func(*service.CanvasService) error) error {
	canvas, closeFn, err := app.OpenCanvasService(ctx, c.cfg)
	if err != nil {
		return err
	}
	defer closeFn()
	return fn(canvas)
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// ── Documents ──────────────────────────────────────────────

func (c *cli) newCmd() *cobra.Command {
	var name string
	cmd := &cobra.Command{
		Use:   "new <path>",
		Short: "Create an empty document",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.withCanvas(cmd.Context(), func(canvas *service.CanvasService) error {
				doc, err := canvas.CreateDocument(cmd.Context(), args[0], name)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Created %s (%s)\n", args[0], doc.Name)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&name, "name", domain.DefaultName, "canvas name")
	return cmd
}

func (c *cli) lsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "ls <directory>",
		Short: "List documents under a directory",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.withCanvas(cmd.Context(), func(canvas *service.CanvasService) error {
				infos, err := canvas.ListDocuments(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				for _, info := range infos {
					fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\t%d\n", info.Path, info.Name, info.ObjectCount)
				}
				return nil
			})
		},
	}
}

func (c *cli) catCmd() *cobra.Command {
	var nodeID string
	cmd := &cobra.Command{
		Use:   "cat <path>",
		Short: "Print a document's object tree, or a single node",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.withCanvas(cmd.Context(), func(canvas *service.CanvasService) error {
				if nodeID != "" {
					n, err := canvas.ReadNode(cmd.Context(), args[0], nodeID)
					if err != nil {
						return err
					}
					return printJSON(cmd.OutOrStdout(), n)
				}
				doc, err := canvas.ReadDocument(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), doc.Canvas)
			})
		},
	}
	cmd.Flags().StringVar(&nodeID, "node", "", "print only the node with this id")
	return cmd
}

// ── Nodes ──────────────────────────────────────────────────

func (c *cli) nodeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "node",
		Short: "Create, update and delete nodes",
	}
	cmd.AddCommand(c.nodeAddCmd(), c.nodeSetCmd(), c.nodeRmCmd())
	return cmd
}

func (c *cli) nodeAddCmd() *cobra.Command {
	var (
		kind                     string
		x, y, width, height      float64
		fill, stroke, name, text string
		fontSize                 float64
	)
	cmd := &cobra.Command{
		Use:   "add <path>",
		Short: "Append a rect, ellipse, text or frame node",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			spec := domain.NewNodeSpec(kind)
			f := cmd.Flags()
			for flag, set := range map[string]func(){
				"x":         func() { spec.X = x },
				"y":         func() { spec.Y = y },
				"width":     func() { spec.Width = width },
				"height":    func() { spec.Height = height },
				"fill":      func() { spec.Fill = fill },
				"stroke":    func() { spec.Stroke = stroke },
				"name":      func() { spec.Name = name },
				"text":      func() { spec.Text = text },
				"font-size": func() { spec.FontSize = fontSize },
			} {
				if f.Changed(flag) {
					set()
				}
			}
			return c.withCanvas(cmd.Context(), func(canvas *service.CanvasService) error {
				n, err := canvas.CreateNode(cmd.Context(), args[0], spec)
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), n)
			})
		},
	}
	f := cmd.Flags()
	f.StringVar(&kind, "type", domain.KindRect, "node type: rect, ellipse, text or frame")
	f.Float64Var(&x, "x", domain.DefaultPosition, "left")
	f.Float64Var(&y, "y", domain.DefaultPosition, "top")
	f.Float64Var(&width, "width", domain.DefaultSize, "width")
	f.Float64Var(&height, "height", domain.DefaultSize, "height")
	f.StringVar(&fill, "fill", "", "fill color (default depends on type)")
	f.StringVar(&stroke, "stroke", "", "stroke color (default depends on type)")
	f.StringVar(&name, "name", "", "node name (default depends on type)")
	f.StringVar(&text, "text", "", "text content (text nodes)")
	f.Float64Var(&fontSize, "font-size", domain.DefaultFontSize, "font size (text nodes)")
	return cmd
}

func (c *cli) nodeSetCmd() *cobra.Command {
	var props string
	cmd := &cobra.Command{
		Use:   "set <path> <id>",
		Short: "Merge a JSON object of properties into a node",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			var fields map[string]any
			if err := json.Unmarshal([]byte(props), &fields); err != nil {
				return fmt.Errorf("%w: --props must be a JSON object: %v", domain.ErrInvalidArgument, err)
			}
			return c.withCanvas(cmd.Context(), func(canvas *service.CanvasService) error {
				n, err := canvas.UpdateNode(cmd.Context(), args[0], args[1], domain.PropsFromMap(fields))
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), n)
			})
		},
	}
	cmd.Flags().StringVar(&props, "props", "", `properties, e.g. '{"fill":"#ff0000"}'`)
	cmd.MarkFlagRequired("props")
	return cmd
}

func (c *cli) nodeRmCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "rm <path> <id>...",
		Short: "Delete nodes by id",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.withCanvas(cmd.Context(), func(canvas *service.CanvasService) error {
				res, err := canvas.DeleteNodes(cmd.Context(), args[0], args[1:])
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), res)
			})
		},
	}
}
