// ABOUTME: WAV recording of raw PCM streams
// ABOUTME: Writes the wire samples unchanged into a PCM WAV file
package player

import (
	"context"
	"errors"
	"fmt"
	"io"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"

	"github.com/Resonate-Protocol/rawstream-go/pkg/audio/decode"
	"github.com/Resonate-Protocol/rawstream-go/pkg/rawpcm"
)

const recordFrames = 4096

// Record copies body into a WAV file on w until the stream ends or ctx is
// cancelled, returning the number of frames written. A trailing partial
// frame is dropped.
func Record(ctx context.Context, info rawpcm.Info, body io.Reader, w io.WriteSeeker) (int64, error) {
	format := info.Format
	if err := format.Validate(); err != nil {
		return 0, err
	}
	dec, err := decode.NewPCM(format)
	if err != nil {
		return 0, err
	}

	enc := wav.NewEncoder(w, format.SampleRate, format.BitDepth, format.Channels, 1)
	frameBytes := dec.Width() * format.Channels
	raw := make([]byte, frameBytes*recordFrames)
	buf := &goaudio.IntBuffer{
		Format:         &goaudio.Format{NumChannels: format.Channels, SampleRate: format.SampleRate},
		SourceBitDepth: format.BitDepth,
		Data:           make([]int, 0, recordFrames*format.Channels),
	}

	var frames int64
	var readErr error
	for ctx.Err() == nil {
		n, err := io.ReadFull(body, raw)
		n -= n % frameBytes

		if n > 0 {
			samples, err := dec.Decode(raw[:n])
			if err != nil {
				enc.Close()
				return frames, fmt.Errorf("failed to decode stream: %w", err)
			}
			buf.Data = buf.Data[:0]
			for _, s := range samples {
				buf.Data = append(buf.Data, int(s))
			}
			if err := enc.Write(buf); err != nil {
				enc.Close()
				return frames, fmt.Errorf("failed to write wav data: %w", err)
			}
			frames += int64(n / frameBytes)
		}

		if err != nil {
			if !errors.Is(err, io.EOF) && !errors.Is(err, io.ErrUnexpectedEOF) && ctx.Err() == nil {
				readErr = fmt.Errorf("stream read: %w", err)
			}
			break
		}
	}

	if err := enc.Close(); err != nil {
		return frames, fmt.Errorf("failed to finalize wav file: %w", err)
	}
	return frames, readErr
}
