package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"dario.cat/mergo"
	"github.com/charmbracelet/log"
	"github.com/spf13/cast"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"gopkg.in/yaml.v3"

	"github.com/mark3labs/oas2validator/internal/emitter"
	"github.com/mark3labs/oas2validator/internal/generator"
	"github.com/mark3labs/oas2validator/internal/spec"
)

// GenerateConfig is the resolved generate configuration: config file first,
// flags on top, defaults for whatever is left empty.
type GenerateConfig struct {
	Input       string
	Target      string
	Out         string
	Package     string
	NamePrefix  string
	NoRoutes    bool
	Manifest    string
	IncludeTags []string
	ExcludeTags []string
	ConfigPath  string
	DryRun      bool
	Force       bool
	Verbose     bool
}

func defaultGenerateConfig() GenerateConfig {
	return GenerateConfig{Target: string(generator.TargetGo), Package: "validators"}
}

var generateRunner = runGenerate

func newGenerateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Generate validators from an OpenAPI/Swagger document",
		Long: "Generate runtime validators and route lookup tables from an OpenAPI/Swagger document. " +
			"Flags override values read from --config.",
		Example: strings.TrimSpace(`  oas2validator generate --input openapi.yaml --out ./validators/schemas.go
  oas2validator generate --input https://example.com/openapi.json --target zod --out src/schemas.ts
  oas2validator --config oas2validator.yaml generate --force --dry-run`),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := resolveGenerateConfig(cmd)
			if err != nil {
				return err
			}
			return generateRunner(cmd.Context(), cfg)
		},
	}

	flags := cmd.Flags()
	flags.String("input", "", "OpenAPI or Swagger document (file path, URL or go-getter source)")
	flags.String("target", "", "Output language (go|zod); defaults to go")
	flags.String("out", "", "Output file (stdout when omitted)")
	flags.String("package", "", "Go package name of the generated file")
	flags.String("name-prefix", "", "Prefix for every generated identifier")
	flags.Bool("no-routes", false, "Omit the Request and Response lookup tables")
	flags.String("manifest", "", "Also write a route manifest (.json or .yaml)")
	flags.StringSlice("include-tags", nil, "Keep only operations tagged with one of these")
	flags.StringSlice("exclude-tags", nil, "Drop operations tagged with any of these")
	flags.Bool("dry-run", false, "Print the files that would be written and exit")
	flags.Bool("force", false, "Replace output files that already exist")

	return cmd
}

func resolveGenerateConfig(cmd *cobra.Command) (*GenerateConfig, error) {
	var cfg GenerateConfig

	configPath, err := cmd.Flags().GetString("config")
	if err != nil {
		return nil, err
	}
	configPath = strings.TrimSpace(configPath)
	if configPath != "" {
		cfg.ConfigPath = configPath
		if err := applyGenerateConfigFromFile(&cfg, configPath); err != nil {
			return nil, err
		}
	}

	if err := applyGenerateFlagOverrides(cmd.Flags(), &cfg); err != nil {
		return nil, err
	}

	cfg.normalize()
	// Fields still empty after the file and the flags take their defaults.
	if err := mergo.Merge(&cfg, defaultGenerateConfig()); err != nil {
		return nil, err
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func applyGenerateFlagOverrides(flags *pflag.FlagSet, cfg *GenerateConfig) error {
	strFlags := map[string]*string{
		"input":       &cfg.Input,
		"target":      &cfg.Target,
		"out":         &cfg.Out,
		"package":     &cfg.Package,
		"name-prefix": &cfg.NamePrefix,
		"manifest":    &cfg.Manifest,
	}
	for name, dst := range strFlags {
		if !flags.Changed(name) {
			continue
		}
		value, err := flags.GetString(name)
		if err != nil {
			return err
		}
		*dst = strings.TrimSpace(value)
	}

	sliceFlags := map[string]*[]string{
		"include-tags": &cfg.IncludeTags,
		"exclude-tags": &cfg.ExcludeTags,
	}
	for name, dst := range sliceFlags {
		if !flags.Changed(name) {
			continue
		}
		value, err := flags.GetStringSlice(name)
		if err != nil {
			return err
		}
		*dst = sanitizeTags(value)
	}

	boolFlags := map[string]*bool{
		"no-routes": &cfg.NoRoutes,
		"dry-run":   &cfg.DryRun,
		"force":     &cfg.Force,
		"verbose":   &cfg.Verbose,
	}
	for name, dst := range boolFlags {
		if !flags.Changed(name) {
			continue
		}
		value, err := flags.GetBool(name)
		if err != nil {
			return err
		}
		*dst = value
	}

	return nil
}

func (c *GenerateConfig) normalize() {
	c.Input = strings.TrimSpace(c.Input)
	c.Target = strings.ToLower(strings.TrimSpace(c.Target))
	c.Out = strings.TrimSpace(c.Out)
	c.Package = strings.TrimSpace(c.Package)
	c.NamePrefix = strings.TrimSpace(c.NamePrefix)
	c.Manifest = strings.TrimSpace(c.Manifest)
	c.IncludeTags = sanitizeTags(c.IncludeTags)
	c.ExcludeTags = sanitizeTags(c.ExcludeTags)
}

func (c *GenerateConfig) validate() error {
	if c.Input == "" {
		return newUsageError("generate: --input is required (set via flag or config file)")
	}

	if _, err := generator.ParseTarget(c.Target); err != nil {
		return newUsageError(fmt.Sprintf("generate: %v", err))
	}

	overlap := intersect(c.IncludeTags, c.ExcludeTags)
	if len(overlap) > 0 {
		return newUsageError(fmt.Sprintf("generate: include/exclude tags overlap: %s", strings.Join(overlap, ", ")))
	}

	if c.Manifest != "" && c.Out == "" && !c.DryRun {
		return newUsageError("generate: --manifest requires --out")
	}

	return nil
}

func newLogger(verbose bool) *log.Logger {
	level := log.InfoLevel
	if verbose {
		level = log.DebugLevel
	}
	return log.NewWithOptions(os.Stderr, log.Options{
		ReportTimestamp: false,
		Prefix:          "oas2validator",
		Level:           level,
	})
}

func runGenerate(ctx context.Context, cfg *GenerateConfig) error {
	logger := newLogger(cfg.Verbose)

	doc, err := spec.Load(ctx, cfg.Input, spec.WithLogger(logger))
	if err != nil {
		var se *spec.SpecError
		if errors.As(err, &se) {
			msg := fmt.Sprintf("spec: %s", se.Message)
			if se.Location != "" {
				msg = fmt.Sprintf("%s\nLocation: %s", msg, se.Location)
			}
			if se.JSONPointer != "" {
				msg = fmt.Sprintf("%s\nPointer: %s", msg, se.JSONPointer)
			}
			return newUsageError(msg)
		}
		return err
	}

	target, _ := generator.ParseTarget(cfg.Target)
	opts := generator.DefaultOptions()
	opts.Target = target
	opts.Package = cfg.Package
	opts.NamePrefix = cfg.NamePrefix
	opts.IncludeRoutes = !cfg.NoRoutes
	opts.IncludeTags = cfg.IncludeTags
	opts.ExcludeTags = cfg.ExcludeTags
	opts.Logger = logger

	res, err := generator.Generate(ctx, doc, opts)
	if err != nil {
		if errors.Is(err, spec.ErrGeneration) {
			return newUsageError(fmt.Sprintf("generate: %v", err))
		}
		return fmt.Errorf("generate: %w", err)
	}
	logger.Debug("generated", "declarations", len(res.Declarations), "target", target)
	for _, m := range res.CheckExamples() {
		logger.Warn("document example rejected", "pointer", m.Pointer, "declaration", m.Declaration, "err", m.Err)
	}

	files := map[string][]byte{}
	if cfg.Out != "" {
		files[cfg.Out] = res.Source
	}
	if cfg.Manifest != "" {
		data, err := manifestBytes(res, cfg.Manifest)
		if err != nil {
			return fmt.Errorf("manifest: %w", err)
		}
		files[cfg.Manifest] = data
	}

	if cfg.DryRun {
		printPlan(emitter.Plan(files))
		return nil
	}
	if cfg.Out == "" {
		_, err := os.Stdout.Write(res.Source)
		return err
	}
	if err := emitter.Write(files, cfg.Force); err != nil {
		return wrapOutputError(err, cfg.Out)
	}
	logger.Info("wrote validators", "path", cfg.Out, "declarations", len(res.Declarations))
	return nil
}

func manifestBytes(res *generator.Result, path string) ([]byte, error) {
	if strings.EqualFold(filepath.Ext(path), ".json") {
		return res.Manifest.JSON()
	}
	return res.Manifest.YAML()
}

func printPlan(planned []emitter.PlannedFile) {
	fmt.Fprintf(os.Stdout, "Planned writes (%d files):\n", len(planned))
	for _, p := range planned {
		abs := p.Path
		if ap, err := filepath.Abs(p.Path); err == nil {
			abs = ap
		}
		fmt.Fprintf(os.Stdout, "- %s (%d bytes)\n", abs, p.Size)
	}
}

func wrapOutputError(err error, out string) error {
	msg := err.Error()
	lower := strings.ToLower(msg)
	if strings.Contains(lower, "permission") || strings.Contains(lower, "read-only") || strings.Contains(lower, "mkdir") ||
		strings.Contains(lower, "rename") || strings.Contains(lower, "already exists") || strings.Contains(lower, "is a directory") {
		return newUsageError(fmt.Sprintf("output error for %s: %s\nHint: choose a different --out or use --force when appropriate.", out, msg))
	}
	return err
}

func sanitizeTags(tags []string) []string {
	if len(tags) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(tags))
	result := make([]string, 0, len(tags))
	for _, tag := range tags {
		trimmed := strings.TrimSpace(tag)
		if trimmed == "" {
			continue
		}
		if _, exists := seen[trimmed]; exists {
			continue
		}
		seen[trimmed] = struct{}{}
		result = append(result, trimmed)
	}
	if len(result) == 0 {
		return nil
	}
	return result
}

func intersect(a, b []string) []string {
	if len(a) == 0 || len(b) == 0 {
		return nil
	}
	set := make(map[string]struct{}, len(a))
	for _, item := range a {
		set[item] = struct{}{}
	}
	var result []string
	for _, item := range b {
		if _, ok := set[item]; ok {
			result = append(result, item)
		}
	}
	return result
}

func applyGenerateConfigFromFile(cfg *GenerateConfig, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return newUsageError(fmt.Sprintf("read config file %q: %v", path, err))
	}

	var raw map[string]any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return newUsageError(fmt.Sprintf("parse config file %q: %v", path, err))
	}

	strFields := map[string]*string{
		"input":      &cfg.Input,
		"target":     &cfg.Target,
		"out":        &cfg.Out,
		"package":    &cfg.Package,
		"nameprefix": &cfg.NamePrefix,
		"manifest":   &cfg.Manifest,
	}
	sliceFields := map[string]*[]string{
		"includetags": &cfg.IncludeTags,
		"excludetags": &cfg.ExcludeTags,
	}
	boolFields := map[string]*bool{
		"noroutes": &cfg.NoRoutes,
		"dryrun":   &cfg.DryRun,
		"force":    &cfg.Force,
		"verbose":  &cfg.Verbose,
	}

	for key, value := range raw {
		normalized := normalizeKey(key)
		if dst, ok := strFields[normalized]; ok {
			str, err := cast.ToStringE(value)
			if err != nil {
				return newUsageError(fmt.Sprintf("config field %q: %v", key, err))
			}
			*dst = strings.TrimSpace(str)
			continue
		}
		if dst, ok := sliceFields[normalized]; ok {
			list, err := valueAsStringSlice(value)
			if err != nil {
				return newUsageError(fmt.Sprintf("config field %q: %v", key, err))
			}
			*dst = sanitizeTags(list)
			continue
		}
		if dst, ok := boolFields[normalized]; ok {
			val, err := cast.ToBoolE(value)
			if err != nil {
				return newUsageError(fmt.Sprintf("config field %q: %v", key, err))
			}
			*dst = val
			continue
		}
		return newUsageError(fmt.Sprintf("config file %q: unknown field %q", path, key))
	}

	return nil
}

func normalizeKey(raw string) string {
	lowered := strings.ToLower(strings.TrimSpace(raw))
	lowered = strings.ReplaceAll(lowered, "-", "")
	lowered = strings.ReplaceAll(lowered, "_", "")
	return lowered
}

func valueAsStringSlice(v any) ([]string, error) {
	switch val := v.(type) {
	case nil:
		return nil, nil
	case string:
		return splitAndTrim(val), nil
	}
	return cast.ToStringSliceE(v)
}

func splitAndTrim(csv string) []string {
	parts := strings.Split(csv, ",")
	cleaned := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			cleaned = append(cleaned, trimmed)
		}
	}
	return cleaned
}
