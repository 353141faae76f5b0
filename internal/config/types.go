// SPDX-License-Identifier: MPL-2.0

package config

import (
	"errors"
	"fmt"
	"slices"

	"github.com/Masterminds/semver/v3"
)

const (
	// ColorSchemeAuto detects the terminal color scheme automatically.
	ColorSchemeAuto ColorScheme = "auto"
	// ColorSchemeDark forces the dark color scheme.
	ColorSchemeDark ColorScheme = "dark"
	// ColorSchemeLight forces the light color scheme.
	ColorSchemeLight ColorScheme = "light"

	// DefaultVersionCatalog is the catalog path relative to the workspace root.
	DefaultVersionCatalog = "gradle/libs.versions.toml"
	// DefaultPropertiesFile holds explicit credential properties.
	DefaultPropertiesFile = "gradle.properties"
)

var (
	// ErrInvalidColorScheme is returned when a ColorScheme value is not recognized.
	ErrInvalidColorScheme = errors.New("invalid color scheme")
	// ErrInvalidConfig is the sentinel error wrapped by InvalidConfigError.
	ErrInvalidConfig = errors.New("invalid config")
)

type (
	// ColorScheme selects the terminal palette.
	ColorScheme string

	// InvalidColorSchemeError is returned when a ColorScheme value is not recognized.
	InvalidColorSchemeError struct {
		Value ColorScheme
	}

	// InvalidConfigError aggregates every validation failure of a Config.
	InvalidConfigError struct {
		FieldErrors []error
	}

	// WorkspaceConfig describes the workspace as a whole.
	WorkspaceConfig struct {
		// Umbrella is the aggregate module that only re-exports the others.
		Umbrella string `json:"umbrella" mapstructure:"umbrella"`
		// FormatExclusions are modules exempt from the formatting check.
		// The umbrella module is always exempt.
		FormatExclusions []string `json:"format_exclusions" mapstructure:"format_exclusions"`
		// MetaAnalysisModules are exempt from the lint policy.
		MetaAnalysisModules []string `json:"meta_analysis_modules" mapstructure:"meta_analysis_modules"`
		// ReleaseBuildTypes mark variants that governance ignores.
		ReleaseBuildTypes []string `json:"release_build_types" mapstructure:"release_build_types"`
		// ModuleDescriptors are globs of module.cue files, relative to the root.
		ModuleDescriptors []string `json:"module_descriptors" mapstructure:"module_descriptors"`
		VersionCatalog    string   `json:"version_catalog" mapstructure:"version_catalog"`
	}

	// VariantConfig is one build variant of a module.
	VariantConfig struct {
		Name      string `json:"name" mapstructure:"name"`
		BuildType string `json:"build_type" mapstructure:"build_type"`
	}

	// PublicationConfig is the Maven coordinate set a module publishes.
	PublicationConfig struct {
		GroupID    string `json:"group_id" mapstructure:"group_id"`
		ArtifactID string `json:"artifact_id" mapstructure:"artifact_id"`
		Version    string `json:"version" mapstructure:"version"`
		// Artifacts are file globs relative to the module directory.
		Artifacts []string `json:"artifacts,omitempty" mapstructure:"artifacts"`
	}

	// ModuleConfig declares one workspace module.
	ModuleConfig struct {
		Name         string             `json:"name" mapstructure:"name"`
		Path         string             `json:"path" mapstructure:"path"`
		Kind         string             `json:"kind" mapstructure:"kind"`
		Capabilities []string           `json:"capabilities,omitempty" mapstructure:"capabilities"`
		Variants     []VariantConfig    `json:"variants,omitempty" mapstructure:"variants"`
		Publication  *PublicationConfig `json:"publication,omitempty" mapstructure:"publication"`
	}

	// AnalysisConfig configures the violation gate.
	AnalysisConfig struct {
		MinSeverity       string `json:"min_severity" mapstructure:"min_severity"`
		DetailLevel       string `json:"detail_level" mapstructure:"detail_level"`
		MaxViolations     int    `json:"max_violations" mapstructure:"max_violations"`
		DiffMaxViolations int    `json:"diff_max_violations" mapstructure:"diff_max_violations"`
		// DiffBase is the git revision the changeset is computed against.
		DiffBase string `json:"diff_base" mapstructure:"diff_base"`
	}

	// ToolsConfig holds the shell commands of the black-box tools. An empty
	// command leaves the task without an action.
	ToolsConfig struct {
		Format      string `json:"format" mapstructure:"format"`
		Checkstyle  string `json:"checkstyle" mapstructure:"checkstyle"`
		Lint        string `json:"lint" mapstructure:"lint"`
		PMD         string `json:"pmd" mapstructure:"pmd"`
		BuildConfig string `json:"build_config" mapstructure:"build_config"`
	}

	// CredentialsConfig configures explicit credential properties.
	CredentialsConfig struct {
		PropertiesFiles []string          `json:"properties_files" mapstructure:"properties_files"`
		Properties      map[string]string `json:"properties" mapstructure:"properties"`
	}

	// PrivateRepositoryConfig is the S3-backed private artifact store.
	PrivateRepositoryConfig struct {
		Name      string `json:"name" mapstructure:"name"`
		URL       string `json:"url" mapstructure:"url"`
		Region    string `json:"region" mapstructure:"region"`
		AccessKey string `json:"access_key" mapstructure:"access_key"`
		SecretKey string `json:"secret_key" mapstructure:"secret_key"`
		// Endpoint overrides the S3 endpoint (S3-compatible stores).
		Endpoint  string `json:"endpoint" mapstructure:"endpoint"`
		PathStyle bool   `json:"path_style" mapstructure:"path_style"`
	}

	// StagingRepositoryConfig is the public staging service.
	StagingRepositoryConfig struct {
		Name     string `json:"name" mapstructure:"name"`
		URL      string `json:"url" mapstructure:"url"`
		Username string `json:"username" mapstructure:"username"`
		APIKey   string `json:"api_key" mapstructure:"api_key"`
	}

	// PublishingConfig configures repositories and signing. Credential fields
	// hold credential names, never secrets.
	PublishingConfig struct {
		SigningKey      string                  `json:"signing_key" mapstructure:"signing_key"`
		Private         PrivateRepositoryConfig `json:"private" mapstructure:"private"`
		Staging         StagingRepositoryConfig `json:"staging" mapstructure:"staging"`
		LocalRepository string                  `json:"local_repository" mapstructure:"local_repository"`
		// GateLocalPublish makes publishToMavenLocal wait for the violation gate.
		GateLocalPublish bool `json:"gate_local_publish" mapstructure:"gate_local_publish"`
	}

	// IncludedBuildConfig composes a separately versioned build.
	IncludedBuildConfig struct {
		Name string `json:"name" mapstructure:"name"`
		Path string `json:"path" mapstructure:"path"`
		// Version is used as is; VersionRef names a [versions] catalog entry.
		Version    string `json:"version,omitempty" mapstructure:"version"`
		VersionRef string `json:"version_ref,omitempty" mapstructure:"version_ref"`
		// Command runs a task of the build; $RELGATE_TASK holds the task path.
		Command          string `json:"command,omitempty" mapstructure:"command"`
		PublishTask      string `json:"publish_task,omitempty" mapstructure:"publish_task"`
		LocalPublishTask string `json:"local_publish_task,omitempty" mapstructure:"local_publish_task"`
	}

	// ExecutionConfig tunes the task executor.
	ExecutionConfig struct {
		Parallelism int `json:"parallelism" mapstructure:"parallelism"`
	}

	// MetricsConfig configures the Prometheus textfile output.
	MetricsConfig struct {
		Textfile string `json:"textfile" mapstructure:"textfile"`
	}

	// UIConfig configures terminal output.
	UIConfig struct {
		ColorScheme ColorScheme `json:"color_scheme" mapstructure:"color_scheme"`
		Verbose     bool        `json:"verbose" mapstructure:"verbose"`
	}

	// Config is the workspace configuration.
	Config struct {
		Workspace      WorkspaceConfig       `json:"workspace" mapstructure:"workspace"`
		Modules        []ModuleConfig        `json:"modules" mapstructure:"modules"`
		Analysis       AnalysisConfig        `json:"analysis" mapstructure:"analysis"`
		Tools          ToolsConfig           `json:"tools" mapstructure:"tools"`
		Credentials    CredentialsConfig     `json:"credentials" mapstructure:"credentials"`
		Publishing     PublishingConfig      `json:"publishing" mapstructure:"publishing"`
		IncludedBuilds []IncludedBuildConfig `json:"included_builds" mapstructure:"included_builds"`
		Execution      ExecutionConfig       `json:"execution" mapstructure:"execution"`
		Metrics        MetricsConfig         `json:"metrics" mapstructure:"metrics"`
		UI             UIConfig              `json:"ui" mapstructure:"ui"`
	}
)

// String returns the string representation of the ColorScheme.
func (c ColorScheme) String() string { return string(c) }

// IsValid returns whether the ColorScheme is one of the defined schemes.
func (c ColorScheme) IsValid() (bool, []error) {
	switch c {
	case ColorSchemeAuto, ColorSchemeDark, ColorSchemeLight:
		return true, nil
	default:
		return false, []error{&InvalidColorSchemeError{Value: c}}
	}
}

// Error implements the error interface for InvalidColorSchemeError.
func (e *InvalidColorSchemeError) Error() string {
	return fmt.Sprintf("invalid color scheme %q (valid: auto, dark, light)", e.Value)
}

// Unwrap returns ErrInvalidColorScheme for errors.Is() compatibility.
func (e *InvalidColorSchemeError) Unwrap() error { return ErrInvalidColorScheme }

// Error implements the error interface for InvalidConfigError.
func (e *InvalidConfigError) Error() string {
	return fmt.Sprintf("invalid config: %s", errors.Join(e.FieldErrors...))
}

// Unwrap returns ErrInvalidConfig for errors.Is() compatibility.
func (e *InvalidConfigError) Unwrap() error { return ErrInvalidConfig }

// IsValid checks the constraints the CUE schema cannot express: unique
// names, semantic versions and consistent numeric limits.
func (c *Config) IsValid() (bool, []error) {
	var errs []error
	if valid, fieldErrs := c.UI.ColorScheme.IsValid(); !valid {
		errs = append(errs, fieldErrs...)
	}

	seenModules := make(map[string]bool, len(c.Modules))
	for i, m := range c.Modules {
		if seenModules[m.Name] {
			errs = append(errs, fmt.Errorf("modules[%d]: duplicate module name %q", i, m.Name))
		}
		seenModules[m.Name] = true
		if m.Publication != nil && m.Publication.Version != "" {
			if _, err := semver.NewVersion(m.Publication.Version); err != nil {
				errs = append(errs, fmt.Errorf("modules[%d].publication.version: %q: %w", i, m.Publication.Version, err))
			}
		}
	}

	seenBuilds := make(map[string]bool, len(c.IncludedBuilds))
	for i, b := range c.IncludedBuilds {
		if seenBuilds[b.Name] {
			errs = append(errs, fmt.Errorf("included_builds[%d]: duplicate build name %q", i, b.Name))
		}
		seenBuilds[b.Name] = true
		if b.Version != "" && b.VersionRef != "" {
			errs = append(errs, fmt.Errorf("included_builds[%d]: version and version_ref are mutually exclusive", i))
		}
		if b.Version != "" {
			if _, err := semver.NewVersion(b.Version); err != nil {
				errs = append(errs, fmt.Errorf("included_builds[%d].version: %q: %w", i, b.Version, err))
			}
		}
	}

	if c.Analysis.MaxViolations < 0 || c.Analysis.DiffMaxViolations < 0 {
		errs = append(errs, errors.New("analysis: violation thresholds must not be negative"))
	}
	if c.Execution.Parallelism < 1 {
		errs = append(errs, fmt.Errorf("execution.parallelism: must be at least 1, got %d", c.Execution.Parallelism))
	}

	if len(errs) > 0 {
		return false, []error{&InvalidConfigError{FieldErrors: errs}}
	}
	return true, nil
}

// FormatExclusions returns the configured exclusions plus the umbrella module.
func (c *Config) FormatExclusions() []string {
	out := slices.Clone(c.Workspace.FormatExclusions)
	if c.Workspace.Umbrella != "" && !slices.Contains(out, c.Workspace.Umbrella) {
		out = append(out, c.Workspace.Umbrella)
	}
	return out
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Workspace: WorkspaceConfig{
			Umbrella:            "glide",
			FormatExclusions:    []string{"third_party", "gif_decoder", "gif_encoder", "disklrucache"},
			MetaAnalysisModules: []string{"pmd"},
			ReleaseBuildTypes:   []string{"release"},
			ModuleDescriptors:   []string{},
			VersionCatalog:      DefaultVersionCatalog,
		},
		Modules: []ModuleConfig{},
		Analysis: AnalysisConfig{
			MinSeverity:       "INFO",
			DetailLevel:       "VERBOSE",
			MaxViolations:     0,
			DiffMaxViolations: 0,
			DiffBase:          "HEAD",
		},
		Credentials: CredentialsConfig{
			PropertiesFiles: []string{DefaultPropertiesFile},
			Properties:      map[string]string{},
		},
		Publishing: PublishingConfig{
			SigningKey: "signingKey",
			Private: PrivateRepositoryConfig{
				Name:      "streem",
				URL:       "s3://maven.streem.com.s3.us-west-2.amazonaws.com/",
				Region:    "us-west-2",
				AccessKey: "streemAccessKey",
				SecretKey: "streemSecretKey",
			},
			Staging: StagingRepositoryConfig{
				Name:     "sonatype",
				URL:      "https://oss.sonatype.org/service/local/staging/deploy/maven2/",
				Username: "sonatypeUsername",
				APIKey:   "sonatypeApiKey",
			},
		},
		IncludedBuilds: []IncludedBuildConfig{},
		Execution:      ExecutionConfig{Parallelism: 4},
		UI:             UIConfig{ColorScheme: ColorSchemeAuto},
	}
}
