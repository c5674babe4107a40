// Package policy loads the optional per-repository attribution policy from
// an ai-blame.toml file at the repo root. The policy maps raw hook tool
// names to display identities and excludes paths from capture.
package policy

import (
	"os"
	"path"
	"path/filepath"
	"strings"

	toml "github.com/pelletier/go-toml/v2"

	aberr "aiblame/internal/errors"
)

// FileName is the policy file looked up at the repository root.
const FileName = "ai-blame.toml"

// Policy is the parsed attribution policy. The zero value applies no
// aliasing and ignores nothing.
type Policy struct {
	// ToolAliases maps hook tool names to a display identity,
	// e.g. Edit / Write / MultiEdit -> claude-code.
	ToolAliases map[string]string `toml:"tool_aliases,omitempty"`

	// Ignore lists path globs excluded from capture. A trailing "/"
	// or "/**" matches everything under a directory.
	Ignore []string `toml:"ignore,omitempty"`
}

// Load reads the policy file from the repository root. A missing file
// yields the zero policy; a malformed one is an error.
func Load(repoRoot string) (*Policy, error) {
	filePath := filepath.Join(repoRoot, FileName)

	data, err := os.ReadFile(filePath)
	if err != nil {
		if os.IsNotExist(err) {
			return &Policy{}, nil
		}
		return nil, aberr.Newf(aberr.InternalError, err, "cannot read %s", FileName)
	}

	var pol Policy
	if err := toml.Unmarshal(data, &pol); err != nil {
		return nil, aberr.Newf(aberr.InternalError, err, "cannot parse %s", FileName)
	}
	return &pol, nil
}

// ResolveTool returns the display identity for a hook tool name.
func (p *Policy) ResolveTool(name string) string {
	if p == nil || p.ToolAliases == nil {
		return name
	}
	if alias, ok := p.ToolAliases[name]; ok && alias != "" {
		return alias
	}
	return name
}

// Ignored reports whether a repo-relative slash path is excluded from
// capture.
func (p *Policy) Ignored(relPath string) bool {
	if p == nil {
		return false
	}
	for _, pattern := range p.Ignore {
		if matchIgnore(pattern, relPath) {
			return true
		}
	}
	return false
}

func matchIgnore(pattern, relPath string) bool {
	pattern = strings.TrimSuffix(pattern, "/")
	if strings.HasSuffix(pattern, "/**") {
		prefix := strings.TrimSuffix(pattern, "/**")
		return relPath == prefix || strings.HasPrefix(relPath, prefix+"/")
	}
	if ok, err := path.Match(pattern, relPath); err == nil && ok {
		return true
	}
	// A bare directory name excludes its whole subtree.
	if !strings.ContainsAny(pattern, "*?[") {
		return relPath == pattern || strings.HasPrefix(relPath, pattern+"/")
	}
	return false
}
