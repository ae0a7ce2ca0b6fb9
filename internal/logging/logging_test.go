package logging

import (
	"bytes"
	"strings"
	"testing"

	"github.com/fatih/color"
)

func TestLoggerLevels(t *testing.T) {
	color.NoColor = true

	tests := []struct {
		name      string
		log       Logger
		wantInfo  bool
		wantDebug bool
	}{
		{"quiet", Logger{}, false, false},
		{"verbose", Logger{Verbose: true}, true, false},
		{"debug", Logger{Debug: true}, true, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var out, errOut bytes.Buffer
			l := tt.log
			l.Out, l.Err = &out, &errOut

			l.Infof("hello %d", 1)
			l.Debugf("detail %s", "x")
			l.Warnf("careful")
			l.Errorf("broken")

			if got := strings.Contains(out.String(), "[info] hello 1"); got != tt.wantInfo {
				t.Errorf("info shown = %v, want %v", got, tt.wantInfo)
			}
			if got := strings.Contains(out.String(), "[debug] detail x"); got != tt.wantDebug {
				t.Errorf("debug shown = %v, want %v", got, tt.wantDebug)
			}
			if !strings.Contains(errOut.String(), "[warn] careful") || !strings.Contains(errOut.String(), "[error] broken") {
				t.Errorf("warnings and errors must always be shown, got %q", errOut.String())
			}
		})
	}
}
