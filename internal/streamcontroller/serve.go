package streamcontroller

import (
	"context"
	"io"

	"github.com/lanestream/broadcastcore/internal/encoder"
	"github.com/lanestream/broadcastcore/internal/encoderplan"
	"github.com/lanestream/broadcastcore/internal/models"
	"github.com/lanestream/broadcastcore/internal/store"
)

// Serve implements step 10's encoder spawn and step 11's byte pump: it
// builds the encoder plan for resolved, starts the encoder process, and
// pumps its output to w until the process ends, errors, or ctx is
// cancelled by the client disconnecting. The returned bool reports
// whether the encoder ever produced a stdout byte before Serve
// returned, so a caller recording a "failed to produce bytes" attempt
// (spec's attempt-throttling counter) can tell an ordinary disconnect
// mid-stream apart from a genuine zero-byte encoder crash.
func (c *Controller) Serve(ctx context.Context, channel *models.Channel, resolved *models.ResolvedItem, settings *store.FFmpegSettings, audioOnly bool, w io.Writer) (bool, error) {
	input := c.BuildEncoderInput(ctx, channel, &resolved.Item, settings, encoderplan.OutputMPEGTS, "", audioOnly)

	plan, err := encoderplan.Build(input)
	if err != nil {
		return false, err
	}

	proc := encoder.New(settings.BinaryPath, plan.Args)
	if err := proc.Start(ctx); err != nil {
		return false, err
	}

	err = PumpToWriter(ctx, proc, w)
	return proc.BytesProduced(), err
}

// PumpToWriter copies proc's stdout events to w until the process ends,
// errors, or ctx is cancelled, flushing w after every write when it
// supports http.Flusher. Exported so the outer concat-loop handlers
// (/video, /radio), which spawn their own stream-copy ffmpeg process
// rather than going through Serve's per-item encoderplan, can reuse the
// same pump instead of duplicating it.
func PumpToWriter(ctx context.Context, proc *encoder.Process, w io.Writer) error {
	fl, canFlush := w.(flusher)

	for {
		select {
		case <-ctx.Done():
			proc.Kill()
			return ctx.Err()
		case ev, ok := <-proc.Events():
			if !ok {
				return nil
			}
			switch ev.Kind {
			case encoder.EventData:
				if _, werr := w.Write(ev.Data); werr != nil {
					proc.Kill()
					return werr
				}
				if canFlush {
					fl.Flush()
				}
			case encoder.EventError:
				return ev.Err
			case encoder.EventEnd, encoder.EventClose:
				// Drained on the next recv; EventClose closes the channel.
			}
		}
	}
}

// flusher mirrors http.Flusher without importing net/http, so non-HTTP
// writers (tests, pipes) can be passed to Serve directly.
type flusher interface {
	Flush()
}
