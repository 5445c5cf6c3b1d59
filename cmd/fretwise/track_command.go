package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/ayusman/fretwise/internal/app"
	"github.com/ayusman/fretwise/internal/capture"
	"github.com/ayusman/fretwise/internal/config"
)

func newTrackCommand(ctx *commandContext) *cobra.Command {
	var videoFlag string
	var deviceFlag int
	var jsonFlag bool

	cmd := &cobra.Command{
		Use:   "track",
		Short: "Track a camera or video file and print finger positions",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			log, err := ctx.logger(cmd)
			if err != nil {
				return err
			}

			video := strings.TrimSpace(videoFlag)
			if video == "" {
				video = cfg.Capture.Video
			}
			device := cfg.Capture.Device
			if cmd.Flags().Changed("device") {
				device = deviceFlag
			}
			src, label := newSource(cfg, video, device)

			svc, release, err := ctx.openService(log)
			if err != nil {
				return err
			}
			defer release()

			out := cmd.OutOrStdout()
			printer := newResultPrinter(out, jsonFlag)

			runCtx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			log.WithField("source", label).Info("tracking")
			if err := svc.Run(runCtx, src, label, printer.print); err != nil {
				return fmt.Errorf("track %s: %w", label, err)
			}
			if printer.err != nil {
				return printer.err
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "Processed %d frames\n", printer.frames)
			return nil
		},
	}

	cmd.Flags().StringVar(&videoFlag, "video", "", "Replay a video file instead of the camera")
	cmd.Flags().IntVar(&deviceFlag, "device", 0, "Camera device index (overrides capture.device)")
	cmd.Flags().BoolVar(&jsonFlag, "json", false, "Print every frame result as a JSON line")
	return cmd
}

func newSource(cfg *config.Config, video string, device int) (capture.Source, string) {
	if video != "" {
		return capture.NewVideoFile(video), "video:" + video
	}
	cam := capture.NewCamera(device)
	cam.SetResolution(cfg.Capture.Width, cfg.Capture.Height)
	return cam, "camera:" + strconv.Itoa(device)
}

// resultPrinter writes frame results. In text mode it prints only when the
// anchoring state or the best chord changes.
type resultPrinter struct {
	out      io.Writer
	jsonMode bool
	enc      *json.Encoder

	frames   int
	anchored bool
	chord    string
	err      error
}

func newResultPrinter(out io.Writer, jsonMode bool) *resultPrinter {
	return &resultPrinter{out: out, jsonMode: jsonMode, enc: json.NewEncoder(out)}
}

func (p *resultPrinter) print(res app.FrameResult) {
	p.frames++
	if p.err != nil {
		return
	}

	if p.jsonMode {
		p.err = p.enc.Encode(res)
		return
	}

	if res.DetectionDone != p.anchored {
		p.anchored = res.DetectionDone
		if p.anchored {
			fmt.Fprintf(p.out, "frame %d: fretboard anchored\n", p.frames)
		} else {
			fmt.Fprintf(p.out, "frame %d: fretboard lost\n", p.frames)
		}
	}

	best := ""
	if len(res.Chords) > 0 {
		best = res.Chords[0].Shape.Name
	}
	if best != p.chord {
		p.chord = best
		if best == "" {
			fmt.Fprintf(p.out, "frame %d: no chord\n", p.frames)
		} else {
			fmt.Fprintf(p.out, "frame %d: %s (%.2f)\n", p.frames, best, res.Chords[0].Score)
		}
	}
}
