package tool

import (
	"flag"

	"github.com/shareflow/shareflow-go/types"
)

// SetFlags parses CLI flags and returns the override config.
func SetFlags() types.Config {
	var cfg types.Config
	flag.StringVar(&cfg.Log, "log", "", "log mode: dev|prod|none")
	flag.StringVar(&cfg.UseConfigPath, "useConfigPath", "", "override config file path")
	flag.IntVar(&cfg.UsePort, "usePort", 0, "override listen port")
	flag.StringVar(&cfg.UsePublicBaseURL, "usePublicBaseUrl", "", "override public base URL used in share links")
	flag.StringVar(&cfg.UseStorageDir, "useStorageDir", "", "override blob storage directory")
	flag.Parse()
	return cfg
}
