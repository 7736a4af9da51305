package cmd

import (
	"os"
	"path/filepath"

	"github.com/cockroachdb/errors"
	"github.com/gaze-network/inscriber/internal/config"
	"github.com/gaze-network/inscriber/pkg/logger"
	"github.com/gaze-network/inscriber/pkg/logger/slogx"
	"github.com/spf13/cobra"
)

const defaultConfigFile = "config.yaml"

var defaultDataDirs = []string{
	filepath.Join("data", "files"),
	filepath.Join("data", "archive"),
}

type initCmdOptions struct {
	root *rootCmdOptions
}

func NewInitCommand(root *rootCmdOptions) *cobra.Command {
	opts := &initCmdOptions{root: root}

	return &cobra.Command{
		Use:         "init",
		Short:       "Generate a default config file and the data directories",
		Annotations: map[string]string{annotationSkipConfig: "true"},
		RunE: func(cmd *cobra.Command, args []string) error {
			return initHandler(opts, cmd, args)
		},
	}
}

func initHandler(opts *initCmdOptions, _ *cobra.Command, _ []string) error {
	path := opts.root.ConfigFile
	if path == "" {
		path = defaultConfigFile
	}

	switch _, err := os.Stat(path); {
	case err == nil:
		logger.Warn("Config file already exists, keeping it", slogx.String("path", path))
	case errors.Is(err, os.ErrNotExist):
		if dir := filepath.Dir(path); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return errors.Wrapf(err, "can't create directory %s", dir)
			}
		}
		if err := os.WriteFile(path, config.DefaultFile, 0o600); err != nil {
			return errors.Wrapf(err, "can't write config file %s", path)
		}
		logger.Success("Config file created", slogx.String("path", path))
	default:
		return errors.Wrapf(err, "can't stat config file %s", path)
	}

	for _, dir := range defaultDataDirs {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return errors.Wrapf(err, "can't create directory %s", dir)
		}
	}
	logger.Success("Data directories ready", slogx.Strings("dirs", defaultDataDirs))
	return nil
}
