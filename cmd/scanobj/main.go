// scanobj converts captured scan meshes into OBJ or GLB models and keeps a
// catalog of the results.
package main

import (
	"fmt"
	"os"
	"path/filepath"
	"text/tabwriter"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	scanobj "github.com/flywave/go-scanobj"
	"github.com/flywave/go-scanobj/internal/catalog"
	"github.com/flywave/go-scanobj/internal/config"
	"github.com/flywave/go-scanobj/internal/logger"
	"github.com/flywave/go-scanobj/internal/workspace"
)

type app struct {
	configPath string
	overrides  config.Overrides

	cfg *config.Config
	log *zap.Logger
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:           "scanobj",
		Short:         "Export captured scan meshes as OBJ or GLB models",
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup()
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if a.log != nil {
				_ = a.log.Sync()
			}
		},
	}
	pf := root.PersistentFlags()
	pf.StringVar(&a.configPath, "config", "", "path to config file")
	pf.StringVar(&a.overrides.Root, "root", "", "directory holding the Scans folder")
	pf.StringVar(&a.overrides.Catalog, "catalog", "", "catalog file")
	pf.StringVar(&a.overrides.LogLevel, "log-level", "", "debug, info, warn or error")
	pf.StringVar(&a.overrides.LogFile, "log-file", "", "also log to this rotating file")
	pf.BoolVar(&a.overrides.Debug, "debug", false, "enable debug logging")

	root.AddCommand(a.exportCmd(), a.infoCmd(), a.listCmd(), a.removeCmd())
	return root
}

func (a *app) setup() error {
	cfg, err := config.Load(a.configPath, a.overrides)
	if err != nil {
		return err
	}
	a.cfg = cfg
	fileCfg := logger.FileConfig{}
	if cfg.Logging.LogFile != "" {
		fileCfg = logger.DefaultFileConfig(cfg.Logging.LogFile)
	}
	a.log = logger.New(cfg.Logging.Level, os.Stderr, fileCfg)
	a.log.Debug("config loaded", zap.Any("config", cfg))
	return nil
}

func (a *app) exportCmd() *cobra.Command {
	var out, format string
	var noCatalog bool
	cmd := &cobra.Command{
		Use:   "export <capture.scan|model.glb>",
		Short: "Convert a capture into a model file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if format == "" {
				format = a.cfg.Export.Format
			}
			exp := &scanobj.Exporter{Logger: a.log, Generator: a.cfg.Export.Generator}
			var export func([]*scanobj.MeshSurface, string) (*scanobj.ExportResult, error)
			switch format {
			case scanobj.FORMAT_OBJ:
				export = exp.ExportOBJ
			case scanobj.FORMAT_GLB:
				export = exp.ExportGLB
			default:
				return errors.Errorf("unknown format %q", format)
			}

			surfaces, err := scanobj.LoadSurfaces(args[0])
			if err != nil {
				return err
			}

			now := time.Now()
			dest := out
			if dest == "" {
				session, err := workspace.NewSession(a.cfg.Export.Root, now)
				if err != nil {
					return err
				}
				dest = session.ModelPath(a.cfg.Export.FilePrefix, format, now)
			}

			res, err := export(surfaces, dest)
			if err != nil {
				return err
			}

			if !noCatalog {
				cat, err := catalog.Open(a.cfg.Catalog.Path)
				if err != nil {
					return err
				}
				rec := cat.Add(res, now)
				if err := cat.Save(); err != nil {
					return err
				}
				a.log.Debug("catalog updated", zap.String("id", rec.ID), zap.String("catalog", cat.Path()))
			}

			w := cmd.OutOrStdout()
			fmt.Fprintf(w, "Path:     %s\n", res.Path)
			fmt.Fprintf(w, "Meshes:   %d\n", res.MeshCount)
			fmt.Fprintf(w, "Vertices: %d\n", res.TotalVertexCount)
			fmt.Fprintf(w, "Faces:    %d\n", res.FaceCount)
			return nil
		},
	}
	cmd.Flags().StringVarP(&out, "out", "o", "", "output file (default: a new session folder)")
	cmd.Flags().StringVarP(&format, "format", "f", "", "obj or glb (default from config)")
	cmd.Flags().BoolVar(&noCatalog, "no-catalog", false, "do not record the export in the catalog")
	return cmd
}

func (a *app) infoCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "info <capture.scan|model.glb>",
		Short: "Show surfaces, counts and bounds of a capture",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			surfaces, err := scanobj.LoadSurfaces(args[0])
			if err != nil {
				return err
			}
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "MESH\tVERTICES\tFACES\tSTRIDE\tINDEX\tSTATUS")
			for i, s := range surfaces {
				status := "ok"
				if err := s.Validate(i + 1); err != nil {
					status = err.Error()
				}
				fmt.Fprintf(w, "%d\t%d\t%d\t%d\t%d\t%s\n", i+1, s.VertexCount, s.FaceCount, s.VertexStride, s.IndexWidth, status)
			}
			if err := w.Flush(); err != nil {
				return err
			}
			if box, err := scanobj.ComputeBounds(surfaces); err == nil {
				fmt.Fprintf(cmd.OutOrStdout(), "Bounds: min (%g, %g, %g) max (%g, %g, %g)\n",
					box.Min[0], box.Min[1], box.Min[2], box.Max[0], box.Max[1], box.Max[2])
			}
			return nil
		},
	}
}

func (a *app) listCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List exported models, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cat, err := catalog.Open(a.cfg.Catalog.Path)
			if err != nil {
				return err
			}
			recs := cat.List()
			if len(recs) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No saved models. Scan an object to create one.")
				return nil
			}
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tFILE\tCREATED\tMESHES\tVERTICES")
			for _, r := range recs {
				fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%d\n", r.ID, r.FileName, r.CreatedAt.Local().Format("2006-01-02 15:04"), r.MeshCount, r.VertexCount)
			}
			return w.Flush()
		},
	}
}

func (a *app) removeCmd() *cobra.Command {
	var deleteFile bool
	cmd := &cobra.Command{
		Use:   "remove <id>",
		Short: "Remove a model from the catalog",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cat, err := catalog.Open(a.cfg.Catalog.Path)
			if err != nil {
				return err
			}
			rec, err := cat.Remove(args[0])
			if err != nil {
				return err
			}
			if err := cat.Save(); err != nil {
				return err
			}
			if deleteFile {
				if err := os.Remove(rec.FilePath); err != nil && !os.IsNotExist(err) {
					return err
				}
			}
			a.log.Info("model removed", zap.String("id", rec.ID), zap.String("file", filepath.Base(rec.FilePath)))
			return nil
		},
	}
	cmd.Flags().BoolVar(&deleteFile, "delete-file", false, "also delete the model file")
	return cmd
}
