package log

import (
	"os"

	"github.com/sirupsen/logrus"
)

// Logger is shared by every package of the node. Packages keep a pointer to it:
//
//	var logger = &log.Logger
var Logger = logrus.Logger{
	Out: os.Stderr,
	Formatter: &logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "2006-01-02 15:04:05.000",
	},
	Hooks:        make(logrus.LevelHooks),
	Level:        logrus.InfoLevel,
	ExitFunc:     os.Exit,
	ReportCaller: false,
}

// SetLevel parses level ("debug", "info", "warn", ...) and applies it.
// Unknown levels leave the logger at info.
func SetLevel(level string) {
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		Logger.Warnf("unknown log level %q, using info", level)
		lvl = logrus.InfoLevel
	}
	Logger.SetLevel(lvl)
}

// UseJSON switches the formatter, used when logs are shipped to a collector.
func UseJSON() {
	Logger.SetFormatter(&logrus.JSONFormatter{})
}
