package app

import "github.com/rs/zerolog"

// LogStatus reports status changes on the log
type LogStatus struct {
	Logger zerolog.Logger
}

func (s LogStatus) SetIdle()       { s.Logger.Info().Str("status", "idle").Msg("Ready") }
func (s LogStatus) SetRecording()  { s.Logger.Info().Str("status", "recording").Msg("Recording...") }
func (s LogStatus) SetProcessing() { s.Logger.Info().Str("status", "processing").Msg("Processing...") }
func (s LogStatus) SetError()      { s.Logger.Warn().Str("status", "error").Msg("Last dictation failed") }
