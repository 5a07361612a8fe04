package main

import (
	"os"

	"github.com/gaspardpetit/mcpwrap/internal/app"
	"github.com/gaspardpetit/mcpwrap/internal/config"
	"github.com/gaspardpetit/mcpwrap/internal/logx"
)

var (
	version   = "dev"
	buildSHA  = "unknown"
	buildDate = "unknown"
)

func main() {
	build := app.BuildInfo{Version: version, SHA: buildSHA, Date: buildDate}
	if err := app.Main("database-wrapper", config.ProfileDatabase, build, os.Args[1:], os.Stdout); err != nil {
		logx.Log.Fatal().Err(err).Msg("database-wrapper exited")
	}
}
