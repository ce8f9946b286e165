// ABOUTME: Raw PCM over HTTP header contract
// ABOUTME: Writes and parses the headers describing a raw sample stream
// Package rawpcm describes a raw PCM byte stream in HTTP headers so a player
// can start decoding without any in-band framing.
package rawpcm

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/Resonate-Protocol/rawstream-go/pkg/audio"
)

const (
	HeaderTitle      = "X-Raw-Title"
	HeaderSampleRate = "X-Raw-SampleRate"
	HeaderChannels   = "X-Raw-Channels"
	HeaderFormat     = "X-Raw-Format"

	// DefaultMarker is the media subtype marker understood by HQPlayer
	DefaultMarker = "hqplayer-raw"
)

// ErrNotRaw is returned when a response does not carry a raw stream
var ErrNotRaw = errors.New("response is not a raw PCM stream")

// Info is the stream description carried in headers
type Info struct {
	Title  string
	Format audio.Format
}

// ContentType builds the media type for a marker, e.g. application/x-hqplayer-raw
func ContentType(marker string) string {
	return "application/x-" + marker
}

// SetHeaders writes the raw stream description to h
func SetHeaders(h http.Header, marker string, info Info) {
	h.Set("Content-Type", ContentType(marker))
	h.Set(HeaderTitle, info.Title)
	h.Set(HeaderSampleRate, strconv.Itoa(info.Format.SampleRate))
	h.Set(HeaderChannels, strconv.Itoa(info.Format.Channels))
	h.Set(HeaderFormat, info.Format.Name())
	h.Set("Cache-Control", "no-store")
}

// ParseHeaders reads a raw stream description from h
func ParseHeaders(h http.Header) (Info, error) {
	if !strings.HasPrefix(h.Get("Content-Type"), "application/x-") {
		return Info{}, fmt.Errorf("%w: content type %q", ErrNotRaw, h.Get("Content-Type"))
	}

	rate, err := strconv.Atoi(h.Get(HeaderSampleRate))
	if err != nil {
		return Info{}, fmt.Errorf("invalid %s: %w", HeaderSampleRate, err)
	}
	channels, err := strconv.Atoi(h.Get(HeaderChannels))
	if err != nil {
		return Info{}, fmt.Errorf("invalid %s: %w", HeaderChannels, err)
	}
	bits, err := ParseFormat(h.Get(HeaderFormat))
	if err != nil {
		return Info{}, err
	}

	format := audio.Format{SampleRate: rate, Channels: channels, BitDepth: bits, Kind: audio.KindInt}
	if err := format.Validate(); err != nil {
		return Info{}, err
	}
	return Info{Title: h.Get(HeaderTitle), Format: format}, nil
}

// ParseFormat parses an "int<bits>le" label
func ParseFormat(label string) (int, error) {
	if !strings.HasPrefix(label, "int") || !strings.HasSuffix(label, "le") {
		return 0, fmt.Errorf("%w: format %q", audio.ErrUnsupportedFormat, label)
	}
	bits, err := strconv.Atoi(strings.TrimSuffix(strings.TrimPrefix(label, "int"), "le"))
	if err != nil {
		return 0, fmt.Errorf("%w: format %q", audio.ErrUnsupportedFormat, label)
	}
	return bits, nil
}
