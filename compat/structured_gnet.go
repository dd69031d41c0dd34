package compat

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/lixenwraith/applog"
)

var (
	keyValuePattern = regexp.MustCompile(`(\w+)\s*[:=]\s*%[vsdqxXeEfFgGpbcU]`)
	verbPattern     = regexp.MustCompile(`%[vsdqxXeEfFgGpbcU]`)
)

// parseFormat splits a printf-style format such as "served status=%d ip=%s"
// into its free text and a field map. Formats with verbs that are not part
// of a key=value pair are rendered whole, with no fields.
func parseFormat(format string, args []any) (string, map[string]any) {
	matches := keyValuePattern.FindAllStringSubmatchIndex(format, -1)
	verbs := len(verbPattern.FindAllStringIndex(strings.ReplaceAll(format, "%%", ""), -1))
	if len(matches) == 0 || verbs != len(matches) || len(args) != len(matches) {
		return fmt.Sprintf(format, args...), nil
	}

	fields := make(map[string]any, len(matches)+1)
	var text strings.Builder
	lastEnd := 0
	for i, match := range matches {
		text.WriteString(format[lastEnd:match[0]])
		text.WriteByte(' ')
		fields[format[match[2]:match[3]]] = args[i]
		lastEnd = match[1]
	}
	text.WriteString(format[lastEnd:])

	msg := strings.Join(strings.Fields(strings.ReplaceAll(text.String(), "%%", "%")), " ")
	return msg, fields
}

// StructuredGnetAdapter is a GnetAdapter that lifts key=value pairs out of
// format strings into a field map logged after the message
type StructuredGnetAdapter struct {
	*GnetAdapter
}

// NewStructuredGnetAdapter creates a gnet adapter with field extraction
func NewStructuredGnetAdapter(logger *applog.Logger, opts ...GnetOption) *StructuredGnetAdapter {
	return &StructuredGnetAdapter{GnetAdapter: NewGnetAdapter(logger, opts...)}
}

func (a *StructuredGnetAdapter) Debugf(format string, args ...any) {
	a.logStructured(applog.LevelDebug, format, args)
}

func (a *StructuredGnetAdapter) Infof(format string, args ...any) {
	a.logStructured(applog.LevelInfo, format, args)
}

func (a *StructuredGnetAdapter) Warnf(format string, args ...any) {
	a.logStructured(applog.LevelWarn, format, args)
}

func (a *StructuredGnetAdapter) Errorf(format string, args ...any) {
	a.logStructured(applog.LevelError, format, args)
}

func (a *StructuredGnetAdapter) logStructured(level int64, format string, args []any) {
	msg, fields := parseFormat(format, args)
	if fields == nil {
		a.logger.Log(level, msg, sourceField("gnet"))
		return
	}
	fields["source"] = "gnet"
	a.logger.Log(level, msg, fields)
}
