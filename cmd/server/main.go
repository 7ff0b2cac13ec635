package main

import (
	"deeplink-engine/internal/app/server"
	"deeplink-engine/internal/config"
)

func main() {
	cfg := config.Load()
	config.SetupLogging(cfg.Server.LogLevel, false)
	server.Run(cfg)
}
