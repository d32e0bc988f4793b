package main

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/ayusman/mudra/internal/app"
	"github.com/ayusman/mudra/internal/server"
	"github.com/ayusman/mudra/internal/store"
	"github.com/ayusman/mudra/internal/tray"
)

func main() {
	fmt.Println("Mudra - Hand Gesture Control")

	homeDir, err := os.UserHomeDir()
	if err != nil {
		log.Fatalf("Failed to get home directory: %v", err)
	}

	dataDir := filepath.Join(homeDir, ".mudra")
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		log.Fatalf("Failed to create data directory: %v", err)
	}

	st, err := store.New(filepath.Join(dataDir, "mudra.db"))
	if err != nil {
		log.Fatalf("Failed to initialize store: %v", err)
	}
	defer st.Close()

	settings := st.Settings()
	appConfig := app.DefaultConfig()
	appConfig.Store = st
	appConfig.PluginDir = filepath.Join(dataDir, "plugins")
	appConfig.CameraID = settings.GetInt(store.SettingCameraID, 0)
	appConfig.MotionThresh = settings.GetFloat(store.SettingMotionThresh, 1.0)
	appConfig.FlipHandedness = settings.GetBool(store.SettingFlipHandedness, true)
	if cooldownMS := settings.GetInt(store.SettingCooldownMS, 0); cooldownMS > 0 {
		appConfig.Cooldown = time.Duration(cooldownMS) * time.Millisecond
	}

	a := app.New(appConfig)

	if err := a.DiscoverPlugins(); err != nil {
		log.Printf("Plugin discovery failed: %v", err)
	}
	if err := a.LoadBindings(); err != nil {
		log.Fatalf("Failed to load bindings: %v", err)
	}

	webDir := findWebDir()
	if webDir != "" {
		fmt.Printf("Serving static files from: %s\n", webDir)
	}

	srv := server.New(server.Config{
		StaticDir: webDir,
		Store:     st,
		Camera:    a.Camera(),
		State:     a.State(),
	})

	addr := ":8080"
	go func() {
		fmt.Printf("Starting server on %s\n", addr)
		if err := srv.ListenAndServe(addr); err != nil {
			log.Fatalf("Server failed: %v", err)
		}
	}()

	if err := a.Start(); err != nil {
		log.Fatalf("Failed to start detection pipeline: %v", err)
	}
	a.SetEnabled(true)

	t := tray.New()
	a.SetGestureListener(t.SetLastGesture)
	t.OnToggle(a.SetEnabled)
	t.OnQuit(a.Stop)

	// Blocks until quit is selected from the tray menu.
	t.Run()
}

// findWebDir searches for the web directory in common locations.
// It checks: "web", "../web", "../../web", and ~/.mudra/web.
// Returns the first existing directory or empty string if none found.
func findWebDir() string {
	relativePaths := []string{"web", "../web", "../../web"}
	for _, p := range relativePaths {
		if info, err := os.Stat(p); err == nil && info.IsDir() {
			absPath, err := filepath.Abs(p)
			if err == nil {
				return absPath
			}
			return p
		}
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return ""
	}

	homeWebDir := filepath.Join(homeDir, ".mudra", "web")
	if info, err := os.Stat(homeWebDir); err == nil && info.IsDir() {
		return homeWebDir
	}

	return ""
}
