// SPDX-License-Identifier: MIT
package main

import (
	"context"
	"fmt"
	"math"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"vibesrgb/cmd"
	"vibesrgb/internal/audio"
	"vibesrgb/internal/config"
	"vibesrgb/internal/dsp"
	"vibesrgb/internal/layout"
	applog "vibesrgb/internal/log"
	"vibesrgb/internal/openrgb"
	"vibesrgb/internal/paint"
	"vibesrgb/internal/pipeline"
	"vibesrgb/internal/transport"
	"vibesrgb/internal/transport/udp"
	"vibesrgb/pkg/build"
)

// main is the entry point for the lighting pipeline. The program flow
// is divided into three distinct phases:
//
// 1. Startup Phase (Cold Path):
//   - Initialize build information
//   - Parse command line arguments and load configuration
//   - Initialize PortAudio
//   - Execute one-off commands if requested
//   - Load the LED layout and connect to the lighting server
//
// 2. Concurrent Phase (Hot Path):
//   - Start the capture stream feeding the accumulator
//   - Start recording if enabled
//   - Run the analysis pipeline at the window period
//
// 3. Shutdown Phase (Cold Path):
//   - Handle termination signals
//   - Stop recording if active
//   - Clean up resources
func main() {
	// ==================== STARTUP PHASE (Cold Path) ====================

	build.Initialize()

	// One thread for the capture callback, one for delivery and I/O.
	runtime.GOMAXPROCS(2)

	cfg, err := cmd.ParseArgs()
	if err != nil {
		applog.Fatalf("%v", err)
	}
	if cfg == nil {
		// Help or version output was requested.
		return
	}

	if level, ok := applog.ParseLevel(cfg.LogLevel); ok {
		applog.SetLevel(level)
	} else {
		applog.Warnf("Unknown log level %q, using info", cfg.LogLevel)
	}

	if err := audio.Initialize(); err != nil {
		applog.Fatalf("Failed to initialize audio subsystem: %v", err)
	}
	defer audio.Terminate()

	// One-off commands that don't require the pipeline to be running.
	if cfg.Command != "" {
		if err := executeCommand(cfg); err != nil {
			applog.Fatalf("%v", err)
		}
		return
	}

	if err := run(cfg); err != nil {
		applog.Fatalf("%v", err)
	}
}

// run wires the full pipeline from the configuration and blocks until
// a termination signal arrives.
func run(cfg *config.Config) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// LED layout, written by the configurator.
	l, err := layout.Load(cfg.Layout.Path)
	if err != nil {
		return fmt.Errorf("failed to load layout: %w", err)
	}
	applog.Infof("Layout: %d elements, %d placed", l.Len(), l.Placed())

	// Lighting server connection.
	client, err := openrgb.Dial(ctx, cfg.OpenRGB.Addr(), cfg.OpenRGB.ClientName)
	if err != nil {
		return fmt.Errorf("failed to connect to lighting server at %s: %w", cfg.OpenRGB.Addr(), err)
	}
	defer client.Close()

	controller, err := client.Controller(ctx, cfg.OpenRGB.ControllerID)
	if err != nil {
		return fmt.Errorf("failed to query controller %d: %w", cfg.OpenRGB.ControllerID, err)
	}
	applog.Infof("Controller %d: %s (%d LEDs)", cfg.OpenRGB.ControllerID, controller.Name, len(controller.LEDs))

	// The layout must describe exactly the controller's LED string,
	// otherwise frames would land on the wrong elements.
	if l.Len() != len(controller.LEDs) {
		return fmt.Errorf("layout has %d elements but controller %q has %d LEDs",
			l.Len(), controller.Name, len(controller.LEDs))
	}

	// Capture stream.
	capture, err := audio.NewCapture(audio.CaptureParams{
		DeviceID:        cfg.Audio.InputDevice,
		DeviceName:      cfg.Audio.DeviceName,
		Channels:        cfg.Audio.InputChannels,
		SampleRate:      cfg.Audio.SampleRate,
		FramesPerBuffer: cfg.Audio.FramesPerBuffer,
		LowLatency:      cfg.Audio.LowLatency,
	})
	if err != nil {
		return fmt.Errorf("failed to open capture device: %w", err)
	}
	defer capture.Close()

	sampleRate := capture.SampleRate()
	windowLen := int(math.Round(cfg.Audio.WindowMillis / 1000.0 * sampleRate))
	if windowLen < 2 {
		return fmt.Errorf("window of %vms at %vHz yields %d samples, need at least 2",
			cfg.Audio.WindowMillis, sampleRate, windowLen)
	}
	applog.Infof("Capturing from %q at %vHz, %d-sample window",
		capture.DeviceName(), sampleRate, windowLen)

	// Analysis chain.
	analyzer, err := dsp.NewAnalyzer(windowLen)
	if err != nil {
		return err
	}
	binner, err := cfg.Binning.NewBinner(sampleRate)
	if err != nil {
		return fmt.Errorf("failed to build binner: %w", err)
	}
	active, err := cfg.Paint.Color()
	if err != nil {
		return err
	}
	painter := paint.New(l, cfg.Paint.Threshold, active)

	acc := audio.NewAccumulator(windowLen)
	capture.Attach(acc)

	// Observability taps.
	var taps []transport.Transport
	if cfg.Monitor.WebSocketEnabled {
		monitor := transport.NewMonitor(cfg.Monitor.WebSocketAddr, cfg.Monitor.SendInterval())
		defer monitor.Close()
		taps = append(taps, monitor)
	}
	if cfg.Monitor.UDPEnabled {
		sender, err := udp.NewSender(cfg.Monitor.UDPTargetAddress)
		if err != nil {
			return fmt.Errorf("failed to create UDP sender: %w", err)
		}
		publisher := udp.NewPublisher(cfg.Monitor.SendInterval(), sender)
		defer publisher.Close()
		taps = append(taps, publisher)
	}

	period := time.Duration(cfg.Audio.WindowMillis * float64(time.Millisecond))
	sched, err := pipeline.New(pipeline.Options{
		Accumulator:     acc,
		Analyzer:        analyzer,
		Binner:          binner,
		Painter:         painter,
		Sink:            client,
		ControllerID:    cfg.OpenRGB.ControllerID,
		Period:          period,
		DeliveryTimeout: cfg.OpenRGB.DeliveryTimeout(),
		Taps:            taps,
	})
	if err != nil {
		return err
	}

	// ==================== CONCURRENT PHASE (Hot Path) ====================

	if err := capture.Start(); err != nil {
		return fmt.Errorf("failed to start capture: %w", err)
	}

	// Stream errors reported by the capture callback are logged but do
	// not stop the pipeline.
	go func() {
		for err := range capture.Errors() {
			applog.Errorf("Capture: %v", err)
		}
	}()

	outputFile := cfg.Recording.OutputFile
	if cfg.Recording.Enabled {
		if outputFile == "" {
			outputFile = "recording-" + time.Now().UTC().Format("02-01-2006-150405") + ".wav"
		}
		if err := capture.StartRecording(outputFile); err != nil {
			return fmt.Errorf("failed to start recording: %w", err)
		}
	}

	err = sched.Run(ctx)

	// ==================== SHUTDOWN PHASE (Cold Path) ====================

	if cfg.Recording.Enabled {
		if stopErr := capture.StopRecording(); stopErr != nil {
			applog.Errorf("Error stopping recording: %v", stopErr)
		} else {
			applog.Infof("Recording saved to: %s", outputFile)
		}
	}

	if stopErr := capture.Stop(); stopErr != nil {
		applog.Errorf("Error stopping capture: %v", stopErr)
	}

	return err
}

// executeCommand handles one-off commands that don't require the
// pipeline to be running.
func executeCommand(cfg *config.Config) error {
	switch cfg.Command {
	case "list":
		return audio.ListDevices()
	case "blink":
		return blink(cfg)
	default:
		return fmt.Errorf("unknown command %q", cfg.Command)
	}
}

// blink flashes a single LED so a physical element can be matched to
// its index while editing the layout.
func blink(cfg *config.Config) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	client, err := openrgb.Dial(ctx, cfg.OpenRGB.Addr(), cfg.OpenRGB.ClientName)
	if err != nil {
		return fmt.Errorf("failed to connect to lighting server at %s: %w", cfg.OpenRGB.Addr(), err)
	}
	defer client.Close()

	controller, err := client.Controller(ctx, cfg.OpenRGB.ControllerID)
	if err != nil {
		return err
	}
	if cfg.BlinkLED < 0 || cfg.BlinkLED >= len(controller.LEDs) {
		return fmt.Errorf("LED index %d out of range, controller %q has %d LEDs",
			cfg.BlinkLED, controller.Name, len(controller.LEDs))
	}

	applog.Infof("Blinking LED %d on %q", cfg.BlinkLED, controller.Name)
	for i := 0; i < 5; i++ {
		if err := client.UpdateLED(ctx, cfg.OpenRGB.ControllerID, cfg.BlinkLED, openrgb.Red); err != nil {
			return err
		}
		time.Sleep(250 * time.Millisecond)
		if err := client.UpdateLED(ctx, cfg.OpenRGB.ControllerID, cfg.BlinkLED, openrgb.Off); err != nil {
			return err
		}
		time.Sleep(250 * time.Millisecond)
	}
	return nil
}
