// Package main provides the entry point for the voicebox CLI application.
package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/caarlos0/env/v11"
	"github.com/charmbracelet/log"
	"github.com/mitchellh/go-homedir"
	gap "github.com/muesli/go-app-paths"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/term"

	"github.com/dgnsrekt/voicebox/internal/audio"
	"github.com/dgnsrekt/voicebox/internal/cache"
	"github.com/dgnsrekt/voicebox/ui"
	"github.com/dgnsrekt/voicebox/voice"
)

var (
	// Version as provided by goreleaser.
	Version = ""
	// CommitSHA as provided by goreleaser.
	CommitSHA = ""

	configFile string
	cacheDir   string
	mouse      bool
	showSizes  bool
	mockAudio  bool

	rootCmd = &cobra.Command{
		Use:   "voicebox [MANIFEST]",
		Short: "Play voice messages in the terminal",
		Long: paragraph(
			fmt.Sprintf("\nListen to voice messages %s. Point voicebox at a playlist manifest and every clip is one keypress away, downloaded once and cached forever.", keyword("without leaving the terminal")),
		),
		SilenceErrors:    false,
		SilenceUsage:     true,
		TraverseChildren: true,
		Args:             cobra.MaximumNArgs(1),
		ValidArgsFunction: func(*cobra.Command, []string, string) ([]string, cobra.ShellCompDirective) {
			return nil, cobra.ShellCompDirectiveFilterFileExt
		},
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return validateOptions(cmd)
		},
		RunE: execute,
	}
)

func validateOptions(_ *cobra.Command) error {
	mouse = viper.GetBool("mouse")
	showSizes = viper.GetBool("sizes")
	cacheDir = viper.GetString("cache_dir")

	if !term.IsTerminal(int(os.Stdout.Fd())) {
		return errors.New("voicebox needs a terminal to run in")
	}

	if cacheDir == "" {
		scope := gap.NewScope(gap.User, "voicebox")
		dir, err := scope.CacheDir()
		if err != nil {
			return fmt.Errorf("unable to determine cache directory: %w", err)
		}
		cacheDir = dir
	}
	expanded, err := homedir.Expand(cacheDir)
	if err != nil {
		return fmt.Errorf("unable to expand cache directory: %w", err)
	}
	cacheDir = expanded
	return nil
}

func execute(_ *cobra.Command, args []string) error {
	manifestPath := viper.GetString("manifest")
	if len(args) == 1 {
		manifestPath = args[0]
	}
	if manifestPath == "" {
		manifestPath = "voicebox.yml"
	}
	if _, err := os.Stat(manifestPath); err != nil {
		return fmt.Errorf("unable to open manifest: %w", err)
	}

	return runTUI(manifestPath)
}

func runTUI(manifestPath string) error {
	// Read environment to get debugging stuff
	cfg, err := env.ParseAs[ui.Config]()
	if err != nil {
		return fmt.Errorf("error parsing config: %v", err)
	}

	cfg.ManifestPath = manifestPath
	cfg.CacheDir = cacheDir
	cfg.EnableMouse = mouse
	cfg.ShowSizes = showSizes
	if mockAudio {
		cfg.MockAudio = true
	}

	store, err := cache.NewStore(cfg.CacheDir)
	if err != nil {
		return fmt.Errorf("unable to open cache: %w", err)
	}
	watcher, err := store.Watch()
	if err != nil {
		log.Warn("cache watcher unavailable", "err", err)
	} else {
		defer watcher.Close() //nolint:errcheck
	}

	var device audio.Device = audio.NewDevice()
	if cfg.MockAudio {
		device = audio.NewMockDevice()
	}
	controller := audio.NewController(device, audio.DefaultSnapshotInterval)
	defer controller.Close() //nolint:errcheck

	deps := ui.Deps{
		Cache:    store,
		Fetcher:  voice.NewHTTPFetcher(store.TempDir()),
		Controls: controller,
	}

	// Run Bubble Tea program
	if _, err := ui.NewProgram(cfg, deps).Run(); err != nil {
		return fmt.Errorf("unable to run tui program: %w", err)
	}
	return nil
}

func main() {
	closer, err := setupLog()
	if err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
	if err := rootCmd.Execute(); err != nil {
		_ = closer()
		os.Exit(1)
	}
	_ = closer()
}

func init() {
	tryLoadConfigFromDefaultPlaces()
	if len(CommitSHA) >= 7 {
		vt := rootCmd.VersionTemplate()
		rootCmd.SetVersionTemplate(vt[:len(vt)-1] + " (" + CommitSHA[0:7] + ")\n")
	}
	if Version == "" {
		Version = "unknown (built from source)"
	}
	rootCmd.Version = Version
	rootCmd.InitDefaultCompletionCmd()

	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", fmt.Sprintf("config file (default %s)", viper.GetViper().ConfigFileUsed()))
	rootCmd.Flags().StringVar(&cacheDir, "cache-dir", "", "directory for downloaded clips")
	rootCmd.Flags().BoolVarP(&mouse, "mouse", "m", false, "enable mouse wheel")
	_ = rootCmd.Flags().MarkHidden("mouse")
	rootCmd.Flags().BoolVar(&showSizes, "sizes", false, "show clip sizes in the playlist")
	rootCmd.Flags().BoolVar(&mockAudio, "mock-audio", false, "use a silent audio device")
	_ = rootCmd.Flags().MarkHidden("mock-audio")

	// Config bindings
	_ = viper.BindPFlag("cache_dir", rootCmd.Flags().Lookup("cache-dir"))
	_ = viper.BindPFlag("mouse", rootCmd.Flags().Lookup("mouse"))
	_ = viper.BindPFlag("sizes", rootCmd.Flags().Lookup("sizes"))

	viper.SetDefault("manifest", "")
	viper.SetDefault("cache_dir", "")
	viper.SetDefault("sizes", false)

	rootCmd.AddCommand(configCmd, manCmd)
}

func tryLoadConfigFromDefaultPlaces() {
	scope := gap.NewScope(gap.User, "voicebox")
	dirs, err := scope.ConfigDirs()
	if err != nil {
		fmt.Println("Could not load find configuration directory.")
		os.Exit(1)
	}

	if c := os.Getenv("XDG_CONFIG_HOME"); c != "" {
		dirs = append([]string{filepath.Join(c, "voicebox")}, dirs...)
	}

	if c := os.Getenv("VOICEBOX_CONFIG_HOME"); c != "" {
		dirs = append([]string{c}, dirs...)
	}

	for _, v := range dirs {
		viper.AddConfigPath(v)
	}

	viper.SetConfigName("voicebox")
	viper.SetConfigType("yaml")
	viper.SetEnvPrefix("voicebox")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			log.Warn("Could not parse configuration file", "err", err)
		}
	}

	if used := viper.ConfigFileUsed(); used != "" {
		log.Debug("Using configuration file", "path", viper.ConfigFileUsed())
		return
	}

	if viper.ConfigFileUsed() == "" {
		configFile = filepath.Join(dirs[0], "voicebox.yml")
	}
	if err := ensureConfigFile(); err != nil {
		log.Error("Could not create default configuration", "error", err)
	}
}
