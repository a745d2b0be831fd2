package alerts

import (
	"fmt"
	"strings"
)

// CloseUnresolved reports a close that did not end Closed.
func CloseUnresolved(venueID, symbol, outcome string, attempts int, remaining float64) string {
	msg := fmt.Sprintf("[dual-dex-bot] close %s on %s %s after %d order(s)", outcome, venueID, symbol, attempts)
	if remaining > 0 {
		msg += fmt.Sprintf(", residual %g", remaining)
	}
	return msg + ". Check the venue manually."
}

func PartialFill(cycleID, symbol, opened, failed string, cause error) string {
	reason := "unknown error"
	if cause != nil {
		reason = cause.Error()
	}
	return fmt.Sprintf("[dual-dex-bot] cycle %s %s: %s open failed (%s), compensating close on %s", cycleID, symbol, failed, reason, opened)
}

// SweepSummary lists what the startup sweep found, one venue/symbol per entry.
func SweepSummary(closed, unresolved []string) string {
	if len(closed) == 0 && len(unresolved) == 0 {
		return "[dual-dex-bot] startup sweep: no open positions"
	}
	var b strings.Builder
	b.WriteString("[dual-dex-bot] startup sweep:")
	if len(closed) > 0 {
		fmt.Fprintf(&b, " closed %s.", strings.Join(closed, ", "))
	}
	if len(unresolved) > 0 {
		fmt.Fprintf(&b, " unresolved %s.", strings.Join(unresolved, ", "))
	}
	return b.String()
}
