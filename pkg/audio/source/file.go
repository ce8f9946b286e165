// ABOUTME: File source dispatch by extension
// ABOUTME: Opens WAV, MP3 or FLAC files as Readers
package source

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// OpenFile opens a decoded audio file as a Reader
func OpenFile(path string) (Reader, error) {
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("audio file not found: %s: %w", path, fs.ErrNotExist)
		}
		return nil, fmt.Errorf("failed to stat audio file: %w", err)
	}

	ext := strings.ToLower(filepath.Ext(path))
	switch ext {
	case ".wav", ".wave":
		return NewWAVReader(path)
	case ".mp3":
		return NewMP3Reader(path)
	case ".flac":
		return NewFLACReader(path)
	default:
		return nil, fmt.Errorf("unsupported audio format: %s (supported: .wav, .mp3, .flac)", ext)
	}
}

// titleFromPath uses the file name without extension as the title
func titleFromPath(path string) string {
	filename := filepath.Base(path)
	return strings.TrimSuffix(filename, filepath.Ext(filename))
}
