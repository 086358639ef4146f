package main

import (
	"fmt"
	"os"

	"sigrank/internal/app"
	"sigrank/internal/logger"
	"sigrank/internal/notify"
	"sigrank/internal/pipeline"
	"sigrank/internal/report"
	"sigrank/internal/snapshot"

	"github.com/spf13/cobra"
)

type rankOptions struct {
	file     string
	format   string
	htmlPath string
	pngPath  string
	guard    bool
}

func newRankCmd(root *rootOptions) *cobra.Command {
	opts := &rankOptions{}
	cmd := &cobra.Command{
		Use:   "rank",
		Short: "Rank one snapshot from a file or the newest archive and print the result",
		RunE: func(cmd *cobra.Command, args []string) error {
			format, err := report.ParseFormat(opts.format)
			if err != nil {
				return err
			}
			logger.SetOutput(cmd.ErrOrStderr())
			cfg, cleanup, err := root.loadConfig()
			if err != nil {
				return err
			}
			defer cleanup()

			a, err := app.NewApp(cfg, app.WithNotifier(notify.Nop{}))
			if err != nil {
				return err
			}
			defer a.Close()

			res, err := rankPayload(cmd, a.Service(), opts)
			if err != nil {
				return err
			}
			if err := writeArtifacts(cmd, res, opts); err != nil {
				return err
			}
			return report.Write(cmd.OutOrStdout(), res, format)
		},
	}
	flags := cmd.Flags()
	flags.StringVarP(&opts.file, "file", "f", "", "snapshot file (default: newest archived snapshot)")
	flags.StringVarP(&opts.format, "format", "o", "table", "output format: table, json or yaml")
	flags.StringVar(&opts.htmlPath, "html", "", "also write an HTML chart report to this path")
	flags.StringVar(&opts.pngPath, "png", "", "also write a PNG chart report to this path (needs a headless browser)")
	flags.BoolVar(&opts.guard, "guard", false, "apply the miner-count guard and update its stored count")
	return cmd
}

func rankPayload(cmd *cobra.Command, svc *app.RankService, opts *rankOptions) (pipeline.Result, error) {
	if opts.file == "" {
		return svc.RankLatestArchive(cmd.Context(), opts.guard)
	}
	raw, fetchedAt, err := snapshot.LoadFile(opts.file)
	if err != nil {
		return pipeline.Result{}, err
	}
	return svc.Rank(cmd.Context(), raw, fetchedAt, opts.guard)
}

func writeArtifacts(cmd *cobra.Command, res pipeline.Result, opts *rankOptions) error {
	if opts.htmlPath != "" {
		html, err := report.RenderHTML(res)
		if err != nil {
			return err
		}
		if err := os.WriteFile(opts.htmlPath, html, 0o644); err != nil {
			return fmt.Errorf("write html report: %w", err)
		}
	}
	if opts.pngPath != "" {
		png, err := report.RenderPNG(cmd.Context(), res)
		if err != nil {
			return err
		}
		if err := os.WriteFile(opts.pngPath, png, 0o644); err != nil {
			return fmt.Errorf("write png report: %w", err)
		}
	}
	return nil
}
