// Command bodygen evaluates a body script and writes the extracted
// mesh to disk. With --watch it stays running and regenerates the
// output whenever the script changes.
package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/bep/debounce"
	"github.com/charmbracelet/log"
	"github.com/fsnotify/fsnotify"

	"github.com/bodyforge/bodyforge/pkg/config"
	"github.com/bodyforge/bodyforge/pkg/engine"
	"github.com/bodyforge/bodyforge/pkg/extract"
	"github.com/bodyforge/bodyforge/pkg/extract/dual"
	"github.com/bodyforge/bodyforge/pkg/mesh"
)

func main() {
	var (
		output     = flag.String("o", "", "output path (default: script name with format extension)")
		format     = flag.String("format", "bin", "output format: bin or gltf")
		resolution = flag.Int("resolution", 0, "grid resolution (default: from script or settings)")
		fast       = flag.Bool("fast", false, "skip vertex refinement (cell centers)")
		brickMap   = flag.Bool("brickmap", false, "use sparse brick storage for sampling")
		watch      = flag.Bool("watch", false, "regenerate on script changes")
		configPath = flag.String("config", "", "settings file (TOML)")
	)
	flag.Parse()

	logger := log.NewWithOptions(os.Stderr, log.Options{
		ReportTimestamp: true,
		TimeFormat:      time.RFC3339,
		Prefix:          "bodygen",
	})

	if flag.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "usage: bodygen [flags] script.body")
		flag.PrintDefaults()
		os.Exit(2)
	}
	script := flag.Arg(0)

	if *format != "bin" && *format != "gltf" {
		logger.Fatal("unknown format", "format", *format)
	}

	settings := config.Default()
	if *configPath != "" {
		loaded, err := config.Load(*configPath)
		if err != nil {
			logger.Fatal("loading settings", "path", *configPath, "err", err)
		}
		settings = loaded
	}

	out := *output
	if out == "" {
		out = strings.TrimSuffix(script, filepath.Ext(script)) + "." + *format
	}

	g := generator{
		logger:     logger,
		engine:     engine.NewEngine(),
		settings:   settings,
		script:     script,
		output:     out,
		format:     *format,
		resolution: *resolution,
		fast:       *fast,
		brickMap:   *brickMap,
	}

	if err := g.generate(); err != nil {
		logger.Fatal("generation failed", "err", err)
	}

	if *watch {
		if err := g.watch(); err != nil {
			logger.Fatal("watch failed", "err", err)
		}
	}
}

type generator struct {
	logger     *log.Logger
	engine     *engine.Engine
	settings   config.Settings
	script     string
	output     string
	format     string
	resolution int
	fast       bool
	brickMap   bool
}

// generate runs one full evaluate-extract-write cycle.
func (g *generator) generate() error {
	start := time.Now()

	source, err := os.ReadFile(g.script)
	if err != nil {
		return fmt.Errorf("reading script: %w", err)
	}

	m, evalErrs, err := g.engine.Evaluate(string(source))
	if err != nil {
		return fmt.Errorf("evaluating script: %w", err)
	}
	if len(evalErrs) > 0 {
		for _, e := range evalErrs {
			g.logger.Error("script error", "line", e.Line, "msg", e.Message)
		}
		return fmt.Errorf("script has %d error(s)", len(evalErrs))
	}

	resolution := g.resolution
	if resolution == 0 {
		resolution = m.Resolution
	}
	if resolution == 0 {
		resolution = g.settings.FullResolution
	}

	opts := extract.Options{
		Resolution:  resolution,
		Bounds:      m.Bounds,
		FastMode:    g.fast,
		UseBrickMap: g.brickMap || g.settings.UseBrickMap,
	}
	out, err := dual.New().Extract(m.Moulds, opts)
	if err != nil {
		return fmt.Errorf("extracting mesh: %w", err)
	}
	out.Name = m.Name

	switch g.format {
	case "gltf":
		doc, err := mesh.ExportGLTF(out)
		if err != nil {
			return fmt.Errorf("encoding glTF: %w", err)
		}
		err = os.WriteFile(g.output, []byte(doc), 0o644)
		if err != nil {
			return fmt.Errorf("writing output: %w", err)
		}
	default:
		if err := os.WriteFile(g.output, mesh.EncodeBinary(out), 0o644); err != nil {
			return fmt.Errorf("writing output: %w", err)
		}
	}

	g.logger.Info("wrote mesh",
		"path", g.output,
		"vertices", out.VertexCount(),
		"triangles", out.TriangleCount(),
		"resolution", resolution,
		"took", time.Since(start).Round(time.Millisecond))
	return nil
}

// watch regenerates the output whenever the script file changes.
// Editors often emit several events per save, so regeneration is
// debounced by the configured interval.
func (g *generator) watch() error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()

	// Watch the directory rather than the file itself: many editors
	// save by rename, which drops a watch on the bare file.
	dir := filepath.Dir(g.script)
	if err := watcher.Add(dir); err != nil {
		return err
	}

	g.logger.Info("watching for changes", "script", g.script)

	interval := time.Duration(g.settings.DebounceMillis) * time.Millisecond
	regen := debounce.New(interval)

	target, err := filepath.Abs(g.script)
	if err != nil {
		return err
	}

	for {
		select {
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			abs, err := filepath.Abs(event.Name)
			if err != nil || abs != target {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			regen(func() {
				if err := g.generate(); err != nil {
					g.logger.Error("regeneration failed", "err", err)
				}
			})
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			g.logger.Error("watcher error", "err", err)
		}
	}
}
