package commands

import (
	"fmt"
	"io"
	"time"

	"github.com/briandowns/spinner"

	"keyward/internal/logging"
)

// startSpinner creates and starts a spinner with the given message when
// not in verbose or debug mode. The returned function stops it and
// prints FinalMSG, if set, on its own line.
func startSpinner(w io.Writer, message string, log logging.Logger) (*spinner.Spinner, func()) {
	s := spinner.New(spinner.CharSets[14], 100*time.Millisecond, spinner.WithWriter(w))
	s.Suffix = " " + message
	if err := s.Color("cyan"); err != nil {
		log.Debugf("Failed to set spinner color: %v", err)
	}

	quiet := log.Quiet()
	if quiet {
		s.Start()
	} else {
		log.Infof("%s", message)
	}

	return s, func() {
		final := s.FinalMSG
		s.FinalMSG = ""
		if quiet {
			s.Stop()
		}
		if final != "" {
			fmt.Fprintln(w, final)
		}
	}
}
