package anchor

import (
	"encoding/base64"
	"strings"

	"github.com/cockroachdb/errors"
)

const (
	programLogPrefix  = "Program "
	programDataPrefix = "Program data: "
	invokeMarker      = " invoke ["
)

// ParseLogs extracts the program's events from the log lines of one transaction.
//
// Only `Program data:` lines emitted while programID is the executing program are decoded,
// so events of CPI callers or callees are ignored. A line that fails to decode is reported
// in the returned error and skipped; the events decoded from the other lines are still returned.
func ParseLogs(programID string, lines []string) ([]Event, error) {
	var (
		stack  []string
		events []Event
		errs   []error
	)
	for i, line := range lines {
		switch {
		case strings.HasPrefix(line, programDataPrefix):
			if len(stack) == 0 || stack[len(stack)-1] != programID {
				continue
			}
			event, ok, err := parseDataLine(strings.TrimPrefix(line, programDataPrefix))
			if err != nil {
				errs = append(errs, errors.Wrapf(err, "log line %d", i))
				continue
			}
			if ok {
				events = append(events, event)
			}
		case strings.HasPrefix(line, programLogPrefix):
			rest := strings.TrimPrefix(line, programLogPrefix)
			if idx := strings.Index(rest, invokeMarker); idx > 0 && strings.HasSuffix(rest, "]") {
				stack = append(stack, rest[:idx])
				continue
			}
			fields := strings.Fields(rest)
			if len(fields) >= 2 && len(stack) > 0 && fields[0] == stack[len(stack)-1] &&
				(fields[1] == "success" || strings.HasPrefix(fields[1], "failed")) {
				stack = stack[:len(stack)-1]
			}
		}
	}
	return events, errors.Join(errs...)
}

func parseDataLine(encoded string) (Event, bool, error) {
	data, err := base64.StdEncoding.DecodeString(strings.TrimSpace(encoded))
	if err != nil {
		return Event{}, false, errors.Wrap(err, "invalid base64 event data")
	}
	event, ok, err := DecodeEvent(data)
	if err != nil {
		return Event{}, false, errors.WithStack(err)
	}
	return event, ok, nil
}
