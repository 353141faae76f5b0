// SPDX-License-Identifier: MPL-2.0

package config

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/relgate/relgate/internal/issue"
	"github.com/relgate/relgate/pkg/cueutil"

	"cuelang.org/go/cue"
	"github.com/spf13/viper"
)

const (
	// AppName is the application name.
	AppName = "relgate"
	// ConfigFileName is the name of the workspace file (without extension).
	ConfigFileName = "relgate"
	// ConfigFileExt is the workspace file extension.
	ConfigFileExt = "cue"
	// EnvPrefix prefixes environment overrides, e.g. RELGATE_EXECUTION_PARALLELISM.
	EnvPrefix = "RELGATE"
)

//go:embed config_schema.cue
var configSchema []byte

// Schema returns the embedded CUE schema.
func Schema() []byte { return configSchema }

type (
	// LoadOptions defines explicit configuration loading inputs.
	LoadOptions struct {
		// ConfigFilePath forces loading from a specific file when set.
		ConfigFilePath string
		// WorkspaceDir is searched for relgate.cue; defaults to ".".
		WorkspaceDir string
	}

	// Loaded is a configuration together with where it came from.
	Loaded struct {
		Config *Config
		// Path is the loaded file, or "" when only defaults apply.
		Path string
		// Root is the workspace root all relative paths resolve against.
		Root string
	}

	// Provider loads configuration from explicit options.
	Provider interface {
		Load(ctx context.Context, opts LoadOptions) (*Loaded, error)
	}

	fileProvider struct{}
)

// NewProvider creates a configuration provider.
func NewProvider() Provider {
	return &fileProvider{}
}

// Load reads configuration from the requested source.
func (p *fileProvider) Load(ctx context.Context, opts LoadOptions) (*Loaded, error) {
	return loadWithOptions(ctx, opts)
}

func loadWithOptions(ctx context.Context, opts LoadOptions) (*Loaded, error) {
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("load config canceled: %w", ctx.Err())
	default:
	}

	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	root := opts.WorkspaceDir
	if root == "" {
		root = "."
	}
	path := opts.ConfigFilePath
	if path == "" {
		candidate := filepath.Join(root, ConfigFileName+"."+ConfigFileExt)
		if fileExists(candidate) {
			path = candidate
		}
	} else {
		if !fileExists(path) {
			return nil, issue.NewErrorContext().
				WithOperation("load configuration").
				WithResource(path).
				WithSuggestion("Verify the file path is correct").
				WithSuggestion("Use 'relgate config show' to see the default configuration").
				WithIssue(issue.ConfigLoadFailedId).
				Wrap(fmt.Errorf("config file not found: %s", path)).
				BuildError()
		}
		if opts.WorkspaceDir == "" {
			root = filepath.Dir(path)
		}
	}

	var properties map[string]string
	if path != "" {
		props, err := loadCUEIntoViper(v, path)
		if err != nil {
			return nil, issue.NewErrorContext().
				WithOperation("load configuration").
				WithResource(path).
				WithSuggestion("Check that the file contains valid CUE syntax").
				WithSuggestion("Verify the configuration values match the expected schema").
				WithIssue(issue.ConfigLoadFailedId).
				Wrap(err).
				BuildError()
		}
		properties = props
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	// Viper lowercases map keys; credential names are case-sensitive.
	if properties != nil {
		cfg.Credentials.Properties = properties
	}
	if cfg.Credentials.Properties == nil {
		cfg.Credentials.Properties = map[string]string{}
	}

	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolve workspace root: %w", err)
	}

	if err := ResolveIncludedBuildVersions(&cfg, absRoot); err != nil {
		return nil, issue.NewErrorContext().
			WithOperation("resolve included build versions").
			WithResource(filepath.Join(absRoot, cfg.Workspace.VersionCatalog)).
			WithIssue(issue.VersionCatalogInvalidId).
			Wrap(err).
			BuildError()
	}

	if valid, errs := cfg.IsValid(); !valid {
		return nil, issue.NewErrorContext().
			WithOperation("validate configuration").
			WithResource(path).
			WithSuggestion("Ensure module and included build names are unique").
			WithSuggestion("Use semantic versions such as 1.2.0 for publications and included builds").
			WithIssue(issue.ConfigLoadFailedId).
			Wrap(errors.Join(errs...)).
			BuildError()
	}

	return &Loaded{Config: &cfg, Path: path, Root: absRoot}, nil
}

func setDefaults(v *viper.Viper) {
	d := DefaultConfig()
	v.SetDefault("workspace.umbrella", d.Workspace.Umbrella)
	v.SetDefault("workspace.format_exclusions", d.Workspace.FormatExclusions)
	v.SetDefault("workspace.meta_analysis_modules", d.Workspace.MetaAnalysisModules)
	v.SetDefault("workspace.release_build_types", d.Workspace.ReleaseBuildTypes)
	v.SetDefault("workspace.module_descriptors", d.Workspace.ModuleDescriptors)
	v.SetDefault("workspace.version_catalog", d.Workspace.VersionCatalog)
	v.SetDefault("modules", d.Modules)
	v.SetDefault("analysis.min_severity", d.Analysis.MinSeverity)
	v.SetDefault("analysis.detail_level", d.Analysis.DetailLevel)
	v.SetDefault("analysis.max_violations", d.Analysis.MaxViolations)
	v.SetDefault("analysis.diff_max_violations", d.Analysis.DiffMaxViolations)
	v.SetDefault("analysis.diff_base", d.Analysis.DiffBase)
	v.SetDefault("tools.format", d.Tools.Format)
	v.SetDefault("tools.checkstyle", d.Tools.Checkstyle)
	v.SetDefault("tools.lint", d.Tools.Lint)
	v.SetDefault("tools.pmd", d.Tools.PMD)
	v.SetDefault("tools.build_config", d.Tools.BuildConfig)
	v.SetDefault("credentials.properties_files", d.Credentials.PropertiesFiles)
	v.SetDefault("publishing.signing_key", d.Publishing.SigningKey)
	v.SetDefault("publishing.private.name", d.Publishing.Private.Name)
	v.SetDefault("publishing.private.url", d.Publishing.Private.URL)
	v.SetDefault("publishing.private.region", d.Publishing.Private.Region)
	v.SetDefault("publishing.private.access_key", d.Publishing.Private.AccessKey)
	v.SetDefault("publishing.private.secret_key", d.Publishing.Private.SecretKey)
	v.SetDefault("publishing.private.endpoint", d.Publishing.Private.Endpoint)
	v.SetDefault("publishing.private.path_style", d.Publishing.Private.PathStyle)
	v.SetDefault("publishing.staging.name", d.Publishing.Staging.Name)
	v.SetDefault("publishing.staging.url", d.Publishing.Staging.URL)
	v.SetDefault("publishing.staging.username", d.Publishing.Staging.Username)
	v.SetDefault("publishing.staging.api_key", d.Publishing.Staging.APIKey)
	v.SetDefault("publishing.local_repository", d.Publishing.LocalRepository)
	v.SetDefault("publishing.gate_local_publish", d.Publishing.GateLocalPublish)
	v.SetDefault("included_builds", d.IncludedBuilds)
	v.SetDefault("execution.parallelism", d.Execution.Parallelism)
	v.SetDefault("metrics.textfile", d.Metrics.Textfile)
	v.SetDefault("ui.color_scheme", string(d.UI.ColorScheme))
	v.SetDefault("ui.verbose", d.UI.Verbose)
}

// loadCUEIntoViper validates the file against #Config and merges it into
// Viper. It returns the inline credential properties with their original
// key case.
func loadCUEIntoViper(v *viper.Viper, path string) (map[string]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}
	if err := cueutil.CheckFileSize(data, cueutil.DefaultMaxFileSize, path); err != nil {
		return nil, err
	}

	unified, err := cueutil.Unify(configSchema, data, "#Config", path)
	if err != nil {
		return nil, err
	}
	// Fields are optional, so values need not be concrete.
	if err := unified.Validate(cue.Concrete(false)); err != nil {
		return nil, cueutil.FormatError(err, path)
	}

	var configMap map[string]any
	if err := unified.Decode(&configMap); err != nil {
		return nil, cueutil.FormatError(err, path)
	}
	if err := v.MergeConfigMap(configMap); err != nil {
		return nil, fmt.Errorf("failed to merge config: %w", err)
	}

	var props map[string]string
	if p := unified.LookupPath(cue.ParsePath("credentials.properties")); p.Exists() {
		if err := p.Decode(&props); err != nil {
			return nil, cueutil.FormatError(err, path)
		}
	}
	return props, nil
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
