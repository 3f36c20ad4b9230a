package core

// RepoConfig represents the structure of the .doc-sentry.yml file that a
// target repository may carry to adjust how its documentation is managed.
type RepoConfig struct {
	// DocsDir is the documentation directory relative to the repo root.
	DocsDir string `yaml:"docs_dir"`

	// DocsExtras lists additional doc files outside DocsDir, e.g. README.md.
	DocsExtras []string `yaml:"docs_extras"`

	// ExcludePaths lists path prefixes, e.g. ["scripts/", "tests/"]. It is
	// parsed but not applied: the analysis pipeline does not read it.
	ExcludePaths []string `yaml:"exclude_paths"`

	// MinConfidence overrides the confidence floor for accepting rewrites.
	// Zero means "use the global default".
	MinConfidence float64 `yaml:"min_confidence"`
}

// DefaultRepoConfig returns a config with default values.
func DefaultRepoConfig() *RepoConfig {
	return &RepoConfig{
		DocsDir:      "docs",
		DocsExtras:   []string{"README.md"},
		ExcludePaths: []string{"scripts/", ".github/", "tests/"},
	}
}
