package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/mark3labs/oas2validator/internal/emitter"
)

const defaultConfigFile = "oas2validator.yaml"

// InitConfig captures the options for the init command.
type InitConfig struct {
	OutputPath string
	Force      bool
	Verbose    bool
}

var initRunner = runInit

func newInitCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Scaffold a sample oas2validator configuration file",
		Long:  "Scaffold a commented oas2validator configuration file that documents available options.",
		RunE: func(cmd *cobra.Command, args []string) error {
			out, err := cmd.Flags().GetString("out")
			if err != nil {
				return err
			}
			force, err := cmd.Flags().GetBool("force")
			if err != nil {
				return err
			}
			verbose, err := cmd.Flags().GetBool("verbose")
			if err != nil {
				return err
			}
			return initRunner(cmd.Context(), &InitConfig{OutputPath: out, Force: force, Verbose: verbose})
		},
	}

	cmd.Flags().String("out", defaultConfigFile, "Where to write the sample config file")
	cmd.Flags().Bool("force", false, "Overwrite the target file if it already exists")

	return cmd
}

func runInit(ctx context.Context, cfg *InitConfig) error {
	_ = ctx
	logger := newLogger(cfg.Verbose)

	out := strings.TrimSpace(cfg.OutputPath)
	if out == "" {
		out = defaultConfigFile
	}
	absPath, err := filepath.Abs(out)
	if err != nil {
		return fmt.Errorf("init: resolve output path: %w", err)
	}

	content := strings.TrimSpace(sampleConfigYAML) + "\n"
	if err := emitter.Write(map[string][]byte{absPath: []byte(content)}, cfg.Force); err != nil {
		return newUsageError(fmt.Sprintf("init: %v\nHint: choose a different --out or check directory permissions.", err))
	}
	logger.Debug("sample config written", "path", absPath, "bytes", len(content))
	fmt.Fprintf(os.Stdout, "Wrote sample config to %s\n", absPath)
	return nil
}

// sampleConfigYAML is a commented example config documenting available options.
const sampleConfigYAML = `# oas2validator configuration (YAML)
# All fields are optional. Command-line flags override config values.

# Path or URL to the Swagger/OpenAPI document. go-getter sources such as
# git::https://example.com/repo.git//openapi.yaml are accepted too.
# input: ./openapi.yaml

# Output language (go|zod). Defaults to go when omitted.
# target: go

# Output file. The source is printed to stdout when omitted.
# out: ./validators/schemas.go

# Go package name of the generated file.
# package: validators

# Prefix for every generated identifier, lookup tables included.
# namePrefix: Api

# Omit the Request and Response lookup tables.
# noRoutes: false

# Also write a route manifest; .json selects JSON, anything else YAML.
# manifest: ./validators/routes.yaml

# Keep only operations carrying one of these tags (list or comma-separated string).
# includeTags: [public,read]

# Drop operations carrying any of these tags (list or comma-separated string).
# excludeTags: [internal]

# Print the planned files instead of writing them.
# dryRun: false

# Overwrite existing output files.
# force: false

# Enable debug logging.
# verbose: false
`
