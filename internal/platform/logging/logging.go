// Package logging builds the process-wide slog.Logger, wrapping the
// structured JSON handler with the teacher's privacy-sanitizing handler.
// Grounded on the teacher's app.DefaultLogger.
package logging

import (
	"log/slog"
	"os"

	"ghostcore/internal/platform/privacylog"
)

func Default() *slog.Logger {
	base := slog.NewJSONHandler(os.Stdout, nil)
	return slog.New(privacylog.WrapHandler(base))
}
