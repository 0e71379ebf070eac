// Package bflog provides the leveled, printf-style logging calls used
// throughout branchfs, mirroring the (object, format, args...) calling
// convention of the teacher's fs.Debugf/fs.Infof/fs.Errorf.
package bflog

import (
	"fmt"

	"github.com/sirupsen/logrus"
)

// std is the process-wide logger. Foreground/debug mode (-d on the CLI)
// raises its level to debug; both modes log plain text lines unless
// SetOutputJSON switches the formatter.
var std = logrus.New()

func init() {
	std.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	std.SetLevel(logrus.InfoLevel)
}

// SetDebug switches between debug and info verbosity, matching rclone's
// -vv behavior. The formatter is left as it is.
func SetDebug(on bool) {
	if on {
		std.SetLevel(logrus.DebugLevel)
	} else {
		std.SetLevel(logrus.InfoLevel)
	}
}

// SetOutputJSON switches to structured JSON lines, for daemon supervisors
// that want to parse log output instead of scraping text.
func SetOutputJSON(on bool) {
	if on {
		std.SetFormatter(&logrus.JSONFormatter{})
	} else {
		std.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
}

func tag(obj any) string {
	if obj == nil {
		return ""
	}
	if s, ok := obj.(string); ok {
		return s
	}
	if s, ok := obj.(fmt.Stringer); ok {
		return s.String()
	}
	return fmt.Sprintf("%v", obj)
}

func line(obj any, format string, args ...any) string {
	msg := fmt.Sprintf(format, args...)
	if t := tag(obj); t != "" {
		return t + ": " + msg
	}
	return msg
}

// Debugf logs at debug level. obj carries context (a branch, a path, a
// handle id, ...) and is rendered as a prefix; pass nil for none.
func Debugf(obj any, format string, args ...any) {
	std.Debug(line(obj, format, args...))
}

// Infof logs at info level.
func Infof(obj any, format string, args ...any) {
	std.Info(line(obj, format, args...))
}

// Errorf logs at error level. It does not itself build an error value;
// callers still return their own errtype.Error.
func Errorf(obj any, format string, args ...any) {
	std.Error(line(obj, format, args...))
}
