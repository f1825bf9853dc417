package logging

import (
	"fmt"
	"io"
	"log"
	"os"
)

// LogLevel selects how much gets written.  Error is always on.
type LogLevel int

const (
	LogLevelError   LogLevel = 0
	LogLevelWarning LogLevel = 1
	LogLevelInfo    LogLevel = 2
	LogLevelDebug   LogLevel = 3
)

var logLevel = LogLevelError

func SetLogLevel(newLevel int) {
	logLevel = LogLevel(newLevel)
}

// SetLogFile duplicates log output to the given file as well as stdout.
func SetLogFile(logFile io.Writer) {
	log.SetFlags(log.Ldate | log.Ltime | log.Lmicroseconds)
	log.SetOutput(io.MultiWriter(os.Stdout, logFile))
}

func prefixed(level, format string) string {
	return fmt.Sprintf("[%s] %s", level, format)
}

func Fatalf(format string, args ...interface{}) {
	log.Fatalf(format, args...)
}

func Fatal(args ...interface{}) {
	log.Fatal(args...)
}

func Debugf(format string, args ...interface{}) {
	if logLevel >= LogLevelDebug {
		log.Printf(prefixed("DEBUG", format), args...)
	}
}

func Infof(format string, args ...interface{}) {
	if logLevel >= LogLevelInfo {
		log.Printf(prefixed("INFO", format), args...)
	}
}

func Warnf(format string, args ...interface{}) {
	if logLevel >= LogLevelWarning {
		log.Printf(prefixed("WARN", format), args...)
	}
}

func Errorf(format string, args ...interface{}) {
	if logLevel >= LogLevelError {
		log.Printf(prefixed("ERROR", format), args...)
	}
}

func Debugln(args ...interface{}) {
	if logLevel >= LogLevelDebug {
		log.Println(append([]interface{}{"[DEBUG]"}, args...)...)
	}
}

func Infoln(args ...interface{}) {
	if logLevel >= LogLevelInfo {
		log.Println(append([]interface{}{"[INFO]"}, args...)...)
	}
}

func Warnln(args ...interface{}) {
	if logLevel >= LogLevelWarning {
		log.Println(append([]interface{}{"[WARN]"}, args...)...)
	}
}

func Errorln(args ...interface{}) {
	if logLevel >= LogLevelError {
		log.Println(append([]interface{}{"[ERROR]"}, args...)...)
	}
}

// SetupTestLogs turns everything on for tests.
func SetupTestLogs() {
	logLevel = LogLevelDebug
}
