// SPDX-License-Identifier: MIT
package cmd

import (
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"vibesrgb/internal/config"
	"vibesrgb/pkg/build"
)

// ParseArgs parses the command line, loads the YAML configuration and
// applies flag overrides on top of it. The returned config carries the
// requested one-off command, if any.
func ParseArgs() (*config.Config, error) {
	buildInfo := build.GetBuildFlags()

	var (
		cfg        *config.Config
		configPath string

		deviceID   int
		deviceName string
		layoutPath string
		host       string
		port       int
		controller int
		record     bool
		outputFile string
		verbose    bool
	)

	rootCmd := &cobra.Command{
		Use:           buildInfo.Name,
		Short:         "Paint RGB lighting from live audio",
		Version:       buildInfo.Version,
		SilenceErrors: true,
		SilenceUsage:  true,
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd:   true,
			DisableDescriptions: true,
			DisableNoDescFlag:   true,
			HiddenDefaultCmd:    true,
		},
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			loaded, err := config.LoadConfig(configPath)
			if err != nil {
				return err
			}

			// Flags the user actually set win over file and env values.
			flags := cmd.Flags()
			if flags.Changed("device") {
				loaded.Audio.InputDevice = deviceID
			}
			if flags.Changed("device-name") {
				loaded.Audio.DeviceName = deviceName
			}
			if flags.Changed("layout") {
				loaded.Layout.Path = layoutPath
			}
			if flags.Changed("host") {
				loaded.OpenRGB.Host = host
			}
			if flags.Changed("port") {
				loaded.OpenRGB.Port = port
			}
			if flags.Changed("controller") {
				loaded.OpenRGB.ControllerID = controller
			}
			if flags.Changed("record") {
				loaded.Recording.Enabled = record
			}
			if flags.Changed("output") {
				loaded.Recording.OutputFile = outputFile
			}
			if verbose {
				loaded.LogLevel = "debug"
			}

			cfg = loaded
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return nil
		},
	}

	rootCmd.SetHelpCommand(&cobra.Command{Hidden: true})

	// List command
	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List available audio input devices",
		Run: func(cmd *cobra.Command, args []string) {
			cfg.Command = "list"
		},
	}
	rootCmd.AddCommand(listCmd)

	// Blink command, used while editing the layout to find a physical
	// LED by index.
	blinkCmd := &cobra.Command{
		Use:   "blink <led-index>",
		Short: "Flash a single LED on the configured controller",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			index, err := strconv.Atoi(args[0])
			if err != nil {
				return err
			}
			cfg.Command = "blink"
			cfg.BlinkLED = index
			return nil
		},
	}
	rootCmd.AddCommand(blinkCmd)

	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "f", "",
		"Path to the YAML configuration file")

	// Audio Device Configuration
	rootCmd.PersistentFlags().IntVarP(&deviceID, "device", "d", -1,
		"Input device ID. Use 'list' command to see available devices.")
	rootCmd.PersistentFlags().StringVarP(&deviceName, "device-name", "n", "",
		"Input device name substring; overrides --device when set")

	// Lighting Configuration
	rootCmd.PersistentFlags().StringVar(&layoutPath, "layout", "layout.json",
		"Path to the LED layout file")
	rootCmd.PersistentFlags().StringVar(&host, "host", "localhost",
		"Lighting server host")
	rootCmd.PersistentFlags().IntVar(&port, "port", 6742,
		"Lighting server port")
	rootCmd.PersistentFlags().IntVar(&controller, "controller", 0,
		"Lighting controller ID")

	// Recording Configuration
	rootCmd.PersistentFlags().BoolVarP(&record, "record", "r", false,
		"Record the mixed mono stream to a WAV file")
	rootCmd.PersistentFlags().StringVarP(&outputFile, "output", "o", "",
		"Output file name. Default is recording-DD-MM-YYYY-HHMMSS.wav")

	// Debug Configuration
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false,
		"Show verbose output")

	rootCmd.SetArgs(os.Args[1:])
	if err := rootCmd.Execute(); err != nil {
		return nil, err
	}

	return cfg, nil
}
