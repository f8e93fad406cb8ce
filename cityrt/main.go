package main

import (
	"flag"
	"runtime"

	instancer "github.com/gekko3d/instancer"
	"github.com/gekko3d/instancer/cityrt/rt/app"

	"github.com/go-gl/glfw/v3.3/glfw"
)

func init() {
	runtime.LockOSThread()
}

func main() {
	configPath := flag.String("config", "", "YAML config file")
	variant := flag.String("variant", "", "Shader variant: static, matrix, scale or palette")
	debug := flag.Bool("debug", false, "Enable debug logging (per-frame batch counts, fps)")
	flag.Parse()

	cfg, err := instancer.LoadConfig(*configPath)
	if err != nil {
		panic(err)
	}
	if *variant != "" {
		cfg.Variant = *variant
	}
	if *debug {
		cfg.Debug = true
	}
	if err := cfg.Validate(); err != nil {
		panic(err)
	}
	logger := instancer.NewDefaultLogger("cityrt", cfg.Debug)

	if err := glfw.Init(); err != nil {
		panic(err)
	}
	defer glfw.Terminate()

	glfw.WindowHint(glfw.ClientAPI, glfw.NoAPI)
	window, err := glfw.CreateWindow(cfg.Window.Width, cfg.Window.Height, cfg.Window.Title, nil, nil)
	if err != nil {
		panic(err)
	}
	defer window.Destroy()

	application, err := app.NewApp(window, cfg, logger.Named("app"))
	if err != nil {
		panic(err)
	}
	if err := application.Init(); err != nil {
		panic(err)
	}
	defer application.Release()

	window.SetFramebufferSizeCallback(func(w *glfw.Window, width, height int) {
		application.Resize(width, height)
	})

	window.SetCursorPosCallback(func(w *glfw.Window, xpos, ypos float64) {
		application.Look(xpos, ypos)
	})

	window.SetKeyCallback(func(w *glfw.Window, key glfw.Key, scancode int, action glfw.Action, mods glfw.ModifierKey) {
		if action != glfw.Press {
			return
		}
		switch key {
		case glfw.KeyTab:
			application.SetMouseCaptured(!application.MouseCaptured)
		case glfw.KeyEscape:
			w.SetShouldClose(true)
		case glfw.KeyF3:
			logger.SetDebug(!logger.DebugEnabled())
		}
	})

	for !window.ShouldClose() {
		glfw.PollEvents()
		application.Update()
		application.Render()
	}
}
