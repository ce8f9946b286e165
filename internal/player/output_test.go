// ABOUTME: Tests for audio output
// ABOUTME: Tests volume control without opening an audio device
package player

import "testing"

func TestVolumeMultiplier(t *testing.T) {
	tests := []struct {
		volume   int
		muted    bool
		expected float64
	}{
		{100, false, 1.0},
		{50, false, 0.5},
		{0, false, 0.0},
		{80, true, 0.0}, // Muted overrides volume
	}

	for _, tt := range tests {
		result := getVolumeMultiplier(tt.volume, tt.muted)
		if result != tt.expected {
			t.Errorf("volume=%d, muted=%v: expected %f, got %f",
				tt.volume, tt.muted, tt.expected, result)
		}
	}
}

func TestSetVolumeClamps(t *testing.T) {
	tests := []struct {
		in, want int
	}{
		{150, 100},
		{-5, 0},
		{42, 42},
	}

	o := NewOutput()
	for _, tt := range tests {
		o.SetVolume(tt.in)
		if got := o.GetVolume(); got != tt.want {
			t.Errorf("SetVolume(%d): expected %d, got %d", tt.in, tt.want, got)
		}
	}
}

func TestVolumeReachesReader(t *testing.T) {
	o := NewOutput()
	r, err := NewFloatReader(nil, 16)
	if err != nil {
		t.Fatal(err)
	}
	o.reader = r

	o.SetVolume(50)
	if got := gainOf(r); got != 0.5 {
		t.Errorf("expected gain 0.5, got %f", got)
	}

	o.SetMuted(true)
	if !o.IsMuted() || gainOf(r) != 0 {
		t.Errorf("expected muted reader, gain %f", gainOf(r))
	}
}
