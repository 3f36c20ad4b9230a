package rewriter

import (
	"bytes"
	"embed"
	"fmt"
	"path/filepath"
	"strings"
	"text/template"
)

//go:embed prompts/*.prompt
var promptFiles embed.FS

// PromptKey selects a prompt template; ProviderName selects a
// provider-specific variant, with "default" as the shared fallback.
type (
	PromptKey    string
	ProviderName string
)

const (
	DefaultProvider ProviderName = "default"
	DocUpdatePrompt PromptKey    = "doc_update"
)

// PromptManager loads the embedded prompt templates, named
// "<key>_<provider>.prompt".
type PromptManager struct {
	prompts map[PromptKey]map[ProviderName]*template.Template
}

// NewPromptManager parses every embedded prompt file.
func NewPromptManager() (*PromptManager, error) {
	pm := &PromptManager{prompts: make(map[PromptKey]map[ProviderName]*template.Template)}

	files, err := promptFiles.ReadDir("prompts")
	if err != nil {
		return nil, fmt.Errorf("failed to read embedded prompts directory: %w", err)
	}
	for _, file := range files {
		if file.IsDir() {
			continue
		}
		name := file.Name()
		base := strings.TrimSuffix(name, filepath.Ext(name))
		sep := strings.LastIndex(base, "_")
		if sep <= 0 || sep == len(base)-1 {
			return nil, fmt.Errorf("invalid prompt filename format: %s (expected 'key_provider.prompt')", name)
		}

		content, err := promptFiles.ReadFile("prompts/" + name)
		if err != nil {
			return nil, fmt.Errorf("failed to read embedded prompt file %s: %w", name, err)
		}
		if err := pm.register(PromptKey(base[:sep]), ProviderName(base[sep+1:]), string(content)); err != nil {
			return nil, fmt.Errorf("failed to register prompt from file %s: %w", name, err)
		}
	}
	return pm, nil
}

func (pm *PromptManager) register(key PromptKey, provider ProviderName, content string) error {
	tmpl, err := template.New(string(key) + "_" + string(provider)).Parse(content)
	if err != nil {
		return fmt.Errorf("could not parse template: %w", err)
	}
	if pm.prompts[key] == nil {
		pm.prompts[key] = make(map[ProviderName]*template.Template)
	}
	pm.prompts[key][provider] = tmpl
	return nil
}

// Render executes the template for (key, provider), falling back to the
// default provider variant.
func (pm *PromptManager) Render(key PromptKey, provider ProviderName, data any) (string, error) {
	variants, ok := pm.prompts[key]
	if !ok {
		return "", fmt.Errorf("no prompts found for key '%s'", key)
	}
	tmpl, ok := variants[provider]
	if !ok {
		tmpl, ok = variants[DefaultProvider]
	}
	if !ok {
		return "", fmt.Errorf("no template for key '%s' and provider '%s', and no default available", key, provider)
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("failed to render template: %w", err)
	}
	return buf.String(), nil
}
