package main

import (
	"embed"
	"os"
	"path/filepath"

	"github.com/charmbracelet/log"
	"github.com/wailsapp/wails/v2"
	"github.com/wailsapp/wails/v2/pkg/options"
	"github.com/wailsapp/wails/v2/pkg/options/assetserver"

	"github.com/bodyforge/bodyforge/pkg/config"
)

//go:embed all:frontend/dist
var assets embed.FS

func main() {
	logger := log.NewWithOptions(os.Stderr, log.Options{Prefix: "bodyforge"})

	settings := config.Default()
	if dir, err := os.UserConfigDir(); err == nil {
		path := filepath.Join(dir, "bodyforge", "settings.toml")
		loaded, err := config.Load(path)
		if err != nil {
			logger.Warn("falling back to default settings", "path", path, "err", err)
		} else {
			settings = loaded
		}
	}

	app := NewApp(settings)

	err := wails.Run(&options.App{
		Title:  "bodyforge",
		Width:  1280,
		Height: 800,
		AssetServer: &assetserver.Options{
			Assets: assets,
		},
		OnStartup: app.startup,
		Bind: []interface{}{
			app,
		},
	})
	if err != nil {
		logger.Fatal("wails run failed", "err", err)
	}
}
