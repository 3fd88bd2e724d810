package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/samber/lo"
	"github.com/spf13/cobra"

	"lyricwidget/internal/app"
	"lyricwidget/internal/config"
	"lyricwidget/internal/host"
	"lyricwidget/internal/lyrics"
	"lyricwidget/internal/timecodec"
)

var configPath string

func loadConfig() (*config.Config, error) {
	if configPath == "" {
		return config.Load(), nil
	}
	return config.LoadFrom(configPath)
}

func playCmd() *cobra.Command {
	var (
		opts       app.PlayOptions
		payload    string
		noAutoplay bool
	)
	cmd := &cobra.Command{
		Use:   "play [audio]",
		Short: "Play an audio file, file:// URL or host view URL",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if len(args) == 1 {
				opts.Source = args[0]
			}
			if payload != "" {
				data, err := os.ReadFile(payload)
				if err != nil {
					return fmt.Errorf("failed to read payload: %w", err)
				}
				opts.Payload = data
			}
			if !cmd.Flags().Changed("variant") {
				opts.Variant = cfg.Widget.Variant
			}
			if !cmd.Flags().Changed("visualizer") {
				opts.Visualizer = cfg.Widget.ShowVisualizer
			}
			opts.Autoplay = cfg.Widget.Autoplay && !noAutoplay

			a, err := app.New(cfg)
			if err != nil {
				return err
			}
			defer a.Close()

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return a.Play(ctx, opts)
		},
	}
	f := cmd.Flags()
	f.StringVar(&payload, "payload", "", "executed-node message (JSON file) instead of an audio argument")
	f.StringVarP(&opts.LyricsFile, "lyrics", "l", "", "lyrics file (.lrc, .srt, .txt)")
	f.StringVar(&opts.Variant, "variant", "full", "widget variant: full or compact")
	f.BoolVar(&noAutoplay, "no-autoplay", false, "do not start playing after load")
	f.BoolVar(&opts.Visualizer, "visualizer", true, "show the spectrum when there are no lyrics")
	f.BoolVarP(&opts.Watch, "watch", "w", false, "reload the lyrics file when it changes")
	f.BoolVar(&opts.TUI, "tui", false, "interactive terminal view")
	f.StringVar(&opts.Snapshot, "snapshot", "", "write the last spectrum frame to this PNG on exit")
	return cmd
}

func parseCmd() *cobra.Command {
	var convert string
	cmd := &cobra.Command{
		Use:   "parse <file>",
		Short: "Print the cues parsed from a lyrics file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			text, err := lyrics.LoadFile(args[0])
			if err != nil {
				return err
			}
			if convert != "" {
				conv, err := lyrics.NewOpenCC(convert)
				if err != nil {
					return err
				}
				text = lyrics.ConvertText(conv, text)
			}
			res := lyrics.ParseDetailed(text)
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "# format=%s cues=%d fallback=%v\n", res.Format, len(res.Cues), res.Fallback)
			for _, line := range lo.Map(res.Cues, func(c lyrics.Cue, _ int) string {
				return timecodec.FormatSeconds(c.Time) + " " + c.Text
			}) {
				fmt.Fprintln(out, line)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&convert, "convert", "", "OpenCC conversion applied before parsing, e.g. t2s")
	return cmd
}

func saveCmd() *cobra.Command {
	var format, encoding, dir string
	cmd := &cobra.Command{
		Use:   "save <src> <name>",
		Short: "Re-encode a lyrics file into the output directory",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			text, err := lyrics.LoadFile(args[0])
			if err != nil {
				return err
			}
			if dir == "" {
				cfg, err := loadConfig()
				if err != nil {
					return err
				}
				dir = lo.Ternary(cfg.Host.OutputDir != "", cfg.Host.OutputDir, ".")
			}
			name, err := lyrics.SaveFile(dir, args[1], text, format, encoding)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), name)
			return nil
		},
	}
	f := cmd.Flags()
	f.StringVar(&format, "format", "lrc", "lrc, srt or txt")
	f.StringVar(&encoding, "encoding", "utf-8", "utf-8, gbk or gb2312")
	f.StringVar(&dir, "dir", "", "output directory (default [host] output_dir)")
	return cmd
}

func urlCmd() *cobra.Command {
	var ref host.FileRef
	var base string
	cmd := &cobra.Command{
		Use:   "url <filename>",
		Short: "Print the view URL the widget would load for a file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ref.Filename = args[0]
			if base == "" {
				cfg, err := loadConfig()
				if err != nil {
					return err
				}
				base = cfg.Host.BaseURL
			}
			fmt.Fprintln(cmd.OutOrStdout(), host.ViewURL(base, ref))
			return nil
		},
	}
	f := cmd.Flags()
	f.StringVar(&ref.Type, "type", "output", "input, output or temp")
	f.StringVar(&ref.Subfolder, "subfolder", "", "subfolder inside the type directory")
	f.StringVar(&base, "base", "", "host base URL (default [host] base_url)")
	return cmd
}
