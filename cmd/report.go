package cmd

import (
	"github.com/crytic/solbuild/compilation/diagnostics"
	"github.com/crytic/solbuild/logging"
	"github.com/crytic/solbuild/logging/colors"
)

// reportDiagnostics logs each diagnostic as a single event, errors at error level and everything else as warnings.
func reportDiagnostics(messages []*diagnostics.Diagnostic) {
	for _, message := range messages {
		buffer := logging.NewLogBuffer()
		if message.IsError() {
			buffer.Append(colors.RedBold, message.Type)
		} else {
			buffer.Append(colors.YellowBold, message.Type)
		}
		if message.ErrorCode != "" {
			buffer.Append(colors.Reset, " (", message.ErrorCode, ")")
		}
		buffer.Append(colors.Reset, ": ", message.Message)
		if message.SourceLocation != nil {
			buffer.Append(colors.DarkGray, "\n --> ", message.SourceLocation.String(), colors.Reset)
		}

		if message.IsError() {
			cmdLogger.Error(buffer)
		} else {
			cmdLogger.Warn(buffer)
		}
	}
}
