// ABOUTME: Tests for the raw header contract
// ABOUTME: Tests header round-trips and rejection of malformed descriptions
package rawpcm

import (
	"net/http"
	"testing"

	"github.com/Resonate-Protocol/rawstream-go/pkg/audio"
)

func TestSetHeaders(t *testing.T) {
	h := http.Header{}
	SetHeaders(h, DefaultMarker, Info{
		Title:  "NetworkInput",
		Format: audio.Format{SampleRate: 48000, Channels: 2, BitDepth: 24},
	})

	expected := map[string]string{
		"Content-Type":   "application/x-hqplayer-raw",
		HeaderTitle:      "NetworkInput",
		HeaderSampleRate: "48000",
		HeaderChannels:   "2",
		HeaderFormat:     "int24le",
	}
	for key, want := range expected {
		if got := h.Get(key); got != want {
			t.Errorf("%s: expected %q, got %q", key, want, got)
		}
	}
}

func TestParseHeaders(t *testing.T) {
	valid := func() http.Header {
		h := http.Header{}
		SetHeaders(h, "custom-raw", Info{
			Title:  "crosswalk",
			Format: audio.Format{SampleRate: 44100, Channels: 2, BitDepth: 16},
		})
		return h
	}

	tests := []struct {
		name    string
		mutate  func(http.Header)
		wantErr bool
	}{
		{"valid", func(http.Header) {}, false},
		{"wrong content type", func(h http.Header) { h.Set("Content-Type", "audio/mpeg") }, true},
		{"bad rate", func(h http.Header) { h.Set(HeaderSampleRate, "fast") }, true},
		{"missing channels", func(h http.Header) { h.Del(HeaderChannels) }, true},
		{"float format", func(h http.Header) { h.Set(HeaderFormat, "float32le") }, true},
		{"odd depth", func(h http.Header) { h.Set(HeaderFormat, "int20le") }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := valid()
			tt.mutate(h)

			info, err := ParseHeaders(h)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseHeaders() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err == nil {
				want := audio.Format{SampleRate: 44100, Channels: 2, BitDepth: 16, Kind: audio.KindInt}
				if info.Format != want || info.Title != "crosswalk" {
					t.Errorf("unexpected info %+v", info)
				}
			}
		})
	}
}
