package audio

import (
	"bytes"
	"path/filepath"
	"strings"
)

// Sniff guesses the container from magic bytes. Bytes it cannot place are
// reported as ContainerUnknown so the pipeline goes straight to salvage.
func Sniff(data []byte) Container {
	switch {
	case len(data) >= 12 && bytes.Equal(data[0:4], []byte("RIFF")) && bytes.Equal(data[8:12], []byte("WAVE")):
		return ContainerWAV
	case bytes.HasPrefix(data, []byte("fLaC")):
		return ContainerFLAC
	case bytes.HasPrefix(data, []byte("OggS")):
		if bytes.Contains(data[:min(len(data), 128)], []byte("OpusHead")) {
			return ContainerOggOpus
		}
		return ContainerUnknown
	case bytes.HasPrefix(data, []byte{0x1A, 0x45, 0xDF, 0xA3}):
		return ContainerWebMOpus
	case bytes.HasPrefix(data, []byte("ID3")):
		return ContainerMP3
	case len(data) >= 2 && data[0] == 0xFF && data[1]&0xE0 == 0xE0:
		// MPEG frame sync
		return ContainerMP3
	}
	return ContainerUnknown
}

// ContainerFromPath picks a container from the file extension, falling back
// to Sniff for unknown extensions.
func ContainerFromPath(path string, data []byte) Container {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".wav", ".wave":
		return ContainerWAV
	case ".mp3":
		return ContainerMP3
	case ".flac":
		return ContainerFLAC
	case ".opus", ".ogg", ".oga":
		return ContainerOggOpus
	case ".webm", ".weba":
		return ContainerWebMOpus
	case ".pcm", ".raw", ".s16":
		return ContainerPCMS16LE
	}
	return Sniff(data)
}

// ParseContainer maps a user supplied tag to a Container
func ParseContainer(tag string) (Container, bool) {
	c := Container(strings.ToLower(strings.TrimSpace(tag)))
	switch c {
	case ContainerWAV, ContainerMP3, ContainerFLAC, ContainerOggOpus,
		ContainerWebMOpus, ContainerPCMS16LE, ContainerUnknown:
		return c, true
	}
	return "", false
}
