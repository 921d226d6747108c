package cmd

import (
	"errors"
	"fmt"
	"time"

	"github.com/fatih/color"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/rs/zerolog/log"

	"github.com/darmiel/fxrelay/pkg/client"
)

var (
	bold  = color.New(color.Bold).SprintFunc()
	faint = color.New(color.Faint).SprintFunc()

	greenCheck = color.GreenString("✔")
	redCross   = color.RedString("✘")
)

// BeQuietError is returned by commands which already logged their failure.
type BeQuietError struct{}

func (BeQuietError) Error() string {
	return "command failed"
}

// logError logs a failed remote call together with its correlation id.
func logError(err error, correlation, msg string) error {
	if errors.Is(err, client.ErrInvalidSession) {
		log.Error().Msgf("%s %s: session expired or invalid, run 'fxrelay login' again", redCross, msg)
		return BeQuietError{}
	}
	log.Error().Str("correlation_id", correlation).Msgf("%s %s", redCross, msg)
	log.Error().Msgf("error: %v", err)
	return BeQuietError{}
}

func applyTableFormat(t table.Writer) {
	t.SetStyle(table.StyleLight)
	t.Style().Options.SeparateRows = false
	t.Style().Format.Header = 0
}

func since(t time.Time) string {
	if t.IsZero() {
		return "never"
	}
	return fmt.Sprintf("%s ago", time.Since(t).Round(time.Second))
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return s[:maxLen]
	}
	return s[:maxLen-3] + "..."
}
