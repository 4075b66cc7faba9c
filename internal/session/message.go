package session

import (
	"errors"

	"github.com/petems/clipwav/internal/audio"
	"github.com/petems/clipwav/internal/normalize"
	"github.com/petems/clipwav/internal/wav"
)

// UserMessage maps a session error to the text shown to the user. It
// returns "" for errors the user should not see.
func UserMessage(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrReset):
		return ""
	case errors.Is(err, wav.ErrUnsupportedFormat):
		return ""
	case errors.Is(err, audio.ErrDeviceUnavailable):
		return "Microphone unavailable. Check that an input device is connected and not in use."
	case errors.Is(err, ErrAlreadyRecording):
		return "A recording is already in progress."
	case errors.Is(err, ErrNotRecording):
		return "Nothing is being recorded."
	case errors.Is(err, normalize.ErrUnrecoverableAudio):
		return "The recording could not be decoded. Please try again."
	}
	return "Recording failed. Please try again."
}
