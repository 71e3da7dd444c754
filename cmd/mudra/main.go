package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/ayusman/mudra/internal/app"
	"github.com/ayusman/mudra/internal/config"
	"github.com/ayusman/mudra/internal/server"
	"github.com/ayusman/mudra/internal/store"
	"github.com/ayusman/mudra/internal/tray"
)

func main() {
	var (
		configPath = flag.String("config", "", "path to the YAML config file")
		camera     = flag.String("camera", "", "camera device index, overrides the config")
		calibrate  = flag.Bool("calibrate", false, "run the calibration procedure on startup")
		noPreview  = flag.Bool("no-preview", false, "disable the camera preview and landmark streams")
		addr       = flag.String("addr", "", "HTTP listen address, overrides the config")
	)
	flag.Parse()

	fmt.Println("Mudra - Hand Gesture Control")

	stateDir := config.Dir()
	if err := os.MkdirAll(stateDir, 0755); err != nil {
		log.Fatalf("Failed to create data directory: %v", err)
	}

	path := *configPath
	if path == "" {
		path = filepath.Join(stateDir, "config.yaml")
	}
	cfg, err := config.Load(path)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if *camera != "" {
		if _, err := fmt.Sscanf(*camera, "%d", &cfg.Camera.Device); err != nil {
			log.Fatalf("Invalid camera index %q", *camera)
		}
	}
	if *addr != "" {
		cfg.Server.Addr = *addr
	}

	st, err := store.New(cfg.Store.Path)
	if err != nil {
		log.Fatalf("Failed to initialize store: %v", err)
	}
	defer st.Close()

	var snapshots *server.Snapshots
	if !*noPreview {
		snapshots = server.NewSnapshots()
	}

	a, err := app.New(app.Config{
		Settings:  cfg,
		Store:     st,
		Snapshots: snapshots,
	})
	if err != nil {
		log.Fatalf("Failed to initialize: %v", err)
	}

	t := tray.New()
	t.SetEnabled(a.IsEnabled())
	t.OnToggle(a.SetEnabled)
	t.OnRecalibrate(a.StartCalibration)
	t.OnQuit(t.Quit)
	a.OnCommand = t.SetLastCommand
	a.OnKeyboardMode(t.SetKeyboardMode)

	if err := a.Start(); err != nil {
		log.Fatalf("Failed to start: %v", err)
	}

	if *calibrate {
		a.StartCalibration()
	}

	if cfg.Server.Enabled {
		srv := server.New(server.Config{
			Store:     st,
			Snapshots: snapshots,
		})
		go func() {
			log.Printf("HTTP server listening on %s", cfg.Server.Addr)
			if err := srv.ListenAndServe(cfg.Server.Addr); err != nil {
				log.Printf("HTTP server stopped: %v", err)
			}
		}()
	}

	// A signal tears the tray down, which unblocks Run below.
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		t.Quit()
	}()

	// systray owns the main goroutine until quit.
	t.Run()

	a.Stop()
}
