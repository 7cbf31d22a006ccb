package logging

import (
	"os"

	"github.com/charmbracelet/log"
)

// New returns a key-value logger for a component. Setting DEBUG=1 in the
// environment lowers the level and turns on caller/timestamp reporting.
func New(component string) *log.Logger {
	if os.Getenv("DEBUG") == "1" {
		l := log.NewWithOptions(os.Stderr, log.Options{
			ReportCaller:    true,
			ReportTimestamp: true,
			Prefix:          component,
		})
		l.SetLevel(log.DebugLevel)
		return l
	}

	l := log.New(os.Stderr)
	l.SetPrefix(component)
	l.SetLevel(log.InfoLevel)
	return l
}
