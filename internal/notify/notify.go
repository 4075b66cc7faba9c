package notify

import (
	"github.com/gen2brain/beeep"
	"github.com/rs/zerolog"
)

// Desktop shows messages as native desktop notifications
type Desktop struct {
	Icon string
}

func (d Desktop) Notify(title, message string) error {
	return beeep.Notify(title, message, d.Icon)
}

// Console writes messages to the log so headless runs still surface them
type Console struct {
	Logger zerolog.Logger
}

func (c Console) Notify(title, message string) error {
	c.Logger.Warn().Str("title", title).Msg(message)
	return nil
}

// Notifier is the method set shared by Desktop and Console
type Notifier interface {
	Notify(title, message string) error
}

// Multi fans a message out to every notifier and returns the first error
type Multi []Notifier

func (m Multi) Notify(title, message string) error {
	var first error
	for _, n := range m {
		if err := n.Notify(title, message); err != nil && first == nil {
			first = err
		}
	}
	return first
}
