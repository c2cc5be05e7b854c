// Package prompts holds the analyst persona and the per-job LLM instructions.
// They live in gtm.json, embedded at compile time and parsed once.
package prompts

import (
	"embed"
	"encoding/json"
	"fmt"
	"io/fs"
	"sort"
	"strings"
	"sync"
	"text/template"
)

//go:embed gtm.json
var embedded embed.FS

const file = "gtm.json"

// Key names one prompt in gtm.json.
type Key string

// Prompt keys.
const (
	Persona      Key = "persona"
	MorningBrief Key = "morning-brief"
	LeadScore    Key = "lead-score"
	WeeklyReport Key = "weekly-report"
	Query        Key = "query"
)

// All lists every key gtm.json must define.
var All = []Key{Persona, MorningBrief, LeadScore, WeeklyReport, Query}

var load = sync.OnceValues(func() (map[Key]string, error) {
	return loadFrom(embedded, file)
})

// loadFrom parses a prompt file and checks that every key in All is present.
func loadFrom(fsys fs.FS, name string) (map[Key]string, error) {
	data, err := fs.ReadFile(fsys, name)
	if err != nil {
		return nil, fmt.Errorf("failed to read prompt file %s: %w", name, err)
	}

	var prompts map[Key]string
	if err := json.Unmarshal(data, &prompts); err != nil {
		return nil, fmt.Errorf("failed to parse prompt file %s: %w", name, err)
	}

	var missing []string
	for _, k := range All {
		if strings.TrimSpace(prompts[k]) == "" {
			missing = append(missing, string(k))
		}
	}
	if len(missing) > 0 {
		sort.Strings(missing)
		return nil, fmt.Errorf("prompt file %s is missing %s", name, strings.Join(missing, ", "))
	}
	return prompts, nil
}

// Get returns the prompt stored under key.
func Get(key Key) (string, error) {
	prompts, err := load()
	if err != nil {
		return "", err
	}
	p, ok := prompts[key]
	if !ok {
		return "", fmt.Errorf("prompt key %q not found in %s", key, file)
	}
	return p, nil
}

// MustGet is Get for keys in All, which are checked when the file is parsed.
func MustGet(key Key) string {
	p, err := Get(key)
	if err != nil {
		panic(fmt.Sprintf("failed to load prompt: %v", err))
	}
	return p
}

// Render executes the prompt under key as a text/template. Fields missing
// from data are an error.
func Render(key Key, data any) (string, error) {
	raw, err := Get(key)
	if err != nil {
		return "", err
	}
	tmpl, err := template.New(string(key)).Option("missingkey=error").Parse(raw)
	if err != nil {
		return "", fmt.Errorf("parsing prompt %s: %w", key, err)
	}
	var sb strings.Builder
	if err := tmpl.Execute(&sb, data); err != nil {
		return "", fmt.Errorf("rendering prompt %s: %w", key, err)
	}
	return sb.String(), nil
}
