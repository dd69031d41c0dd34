// Package formatter renders log records as single text lines:
// "[<timestamp>] [<LEVEL>] <message>[ <arg> <arg>...]\n".
package formatter

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/davecgh/go-spew/spew"

	"github.com/lixenwraith/applog/sanitizer"
)

// DefaultTimestampFormat is ISO-8601 in UTC with millisecond precision
const DefaultTimestampFormat = "2006-01-02T15:04:05.000Z07:00"

// dumper renders values that encoding/json rejects (channels, funcs, cycles)
var dumper = &spew.ConfigState{
	Indent:                  " ",
	MaxDepth:                10,
	DisablePointerAddresses: true,
	DisableCapacities:       true,
	SortKeys:                true,
}

// Formatter builds log lines. It reuses an internal buffer and is not safe for
// concurrent use; the logger calls it under its write lock.
type Formatter struct {
	sanitizer       *sanitizer.Sanitizer
	timestampFormat string
	buf             []byte
}

// New creates a formatter. Without a sanitizer, strings are hex-encoded with the txt policy.
func New(s ...*sanitizer.Sanitizer) *Formatter {
	var san *sanitizer.Sanitizer
	if len(s) > 0 && s[0] != nil {
		san = s[0]
	} else {
		san = sanitizer.New().Policy(sanitizer.PolicyTxt)
	}
	return &Formatter{
		sanitizer:       san,
		timestampFormat: DefaultTimestampFormat,
		buf:             make([]byte, 0, 512),
	}
}

// TimestampFormat sets the layout used for the line prefix and time.Time arguments
func (f *Formatter) TimestampFormat(format string) *Formatter {
	if format != "" {
		f.timestampFormat = format
	}
	return f
}

// Format renders one record. The timestamp is converted to UTC.
// The returned slice is a copy and stays valid after the next call.
func (f *Formatter) Format(ts time.Time, level string, message string, args []any) []byte {
	f.buf = f.buf[:0]

	f.buf = append(f.buf, '[')
	f.buf = ts.UTC().AppendFormat(f.buf, f.timestampFormat)
	f.buf = append(f.buf, "] ["...)
	f.buf = append(f.buf, level...)
	f.buf = append(f.buf, "] "...)
	f.buf = append(f.buf, f.sanitizer.Sanitize(message)...)

	for _, arg := range args {
		f.buf = append(f.buf, ' ')
		f.buf = f.appendValue(f.buf, arg)
	}

	f.buf = append(f.buf, '\n')
	return bytes.Clone(f.buf)
}

// FormatValue renders a single argument as it would appear in a line
func (f *Formatter) FormatValue(v any) string {
	return string(f.appendValue(nil, v))
}

// appendValue renders v onto buf. A panic while rendering yields a placeholder.
func (f *Formatter) appendValue(buf []byte, v any) (out []byte) {
	start := len(buf)
	defer func() {
		if r := recover(); r != nil {
			out = append(buf[:start], fmt.Sprintf("<unformattable:%T>", v)...)
		}
	}()

	switch val := v.(type) {
	case nil:
		return append(buf, "null"...)
	case string:
		return append(buf, f.sanitizer.Sanitize(val)...)
	case []byte:
		return append(buf, f.sanitizer.Sanitize(string(val))...)
	case bool:
		return strconv.AppendBool(buf, val)
	case int:
		return strconv.AppendInt(buf, int64(val), 10)
	case int8:
		return strconv.AppendInt(buf, int64(val), 10)
	case int16:
		return strconv.AppendInt(buf, int64(val), 10)
	case int32:
		return strconv.AppendInt(buf, int64(val), 10)
	case int64:
		return strconv.AppendInt(buf, val, 10)
	case uint:
		return strconv.AppendUint(buf, uint64(val), 10)
	case uint8:
		return strconv.AppendUint(buf, uint64(val), 10)
	case uint16:
		return strconv.AppendUint(buf, uint64(val), 10)
	case uint32:
		return strconv.AppendUint(buf, uint64(val), 10)
	case uint64:
		return strconv.AppendUint(buf, val, 10)
	case float32:
		return strconv.AppendFloat(buf, float64(val), 'f', -1, 32)
	case float64:
		return strconv.AppendFloat(buf, val, 'f', -1, 64)
	case time.Time:
		return val.UTC().AppendFormat(buf, f.timestampFormat)
	case error:
		return append(buf, f.sanitizer.Sanitize(val.Error())...)
	case fmt.Stringer:
		return append(buf, f.sanitizer.Sanitize(val.String())...)
	}

	var b bytes.Buffer
	enc := json.NewEncoder(&b)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err == nil {
		return append(buf, f.sanitizer.Sanitize(string(bytes.TrimRight(b.Bytes(), "\n")))...)
	}

	return append(buf, f.sanitizer.Sanitize(dumper.Sprintf("%+v", v))...)
}
