package tool

import (
	"github.com/charmbracelet/log"
)

// DefaultLogger is the process-wide logger; main picks the level from
// the -log flag.
var DefaultLogger = log.Default()

func InitLogger() {
	DefaultLogger.SetTimeFormat("2006-01-02 15:04:05")
	DefaultLogger.SetReportCaller(true)
}
