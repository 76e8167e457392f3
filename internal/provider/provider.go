// Package provider maps container images to the command that dumps them.
//
// A Provider is plain data plus one function. The Registry is an ordered list
// that is built once at start-up and never mutated; the first provider whose
// patterns match any of a container's image names wins.
package provider

import (
	"context"
	"regexp"
	"strings"

	"github.com/shyim/db-auto-backup/internal/docker"
)

// Inspector reads live state from a running container
type Inspector interface {
	ContainerEnv(ctx context.Context, containerID string) (map[string]string, error)
	BinaryExists(ctx context.Context, containerID, binary string) (bool, error)
}

// CommandFunc derives the dump command to run inside a container
type CommandFunc func(ctx context.Context, container docker.ContainerInfo, inspector Inspector) (string, error)

// Provider describes how to back up one family of database images
type Provider struct {
	Name          string
	Patterns      []string
	Command       CommandFunc
	FileExtension string // without the leading dot
}

// Matches reports whether any of the provider's patterns matches identity
func (p *Provider) Matches(identity string) bool {
	for _, pattern := range p.Patterns {
		if fnmatch(identity, pattern) {
			return true
		}
	}
	return false
}

// Registry is an ordered list of providers
type Registry []Provider

// Match returns the first provider in registry order that matches any of the
// identities, or nil. Registry order decides ties, not identity order.
func (r Registry) Match(identities []string) *Provider {
	for i := range r {
		for _, identity := range identities {
			if r[i].Matches(identity) {
				return &r[i]
			}
		}
	}
	return nil
}

// Names returns provider names in registry order
func (r Registry) Names() []string {
	names := make([]string, 0, len(r))
	for _, p := range r {
		names = append(names, p.Name)
	}
	return names
}

// fnmatch implements shell-style matching where '*' also matches '/'
func fnmatch(name, pattern string) bool {
	re, err := regexp.Compile(translate(pattern))
	if err != nil {
		return false
	}
	return re.MatchString(name)
}

func translate(pattern string) string {
	var b strings.Builder
	b.WriteString("^(?s:")

	n := len(pattern)
	for i := 0; i < n; i++ {
		switch c := pattern[i]; c {
		case '*':
			b.WriteString(".*")
		case '?':
			b.WriteString(".")
		case '[':
			j := i + 1
			if j < n && pattern[j] == '!' {
				j++
			}
			if j < n && pattern[j] == ']' {
				j++
			}
			for j < n && pattern[j] != ']' {
				j++
			}
			if j >= n {
				b.WriteString(`\[`)
				continue
			}
			class := strings.ReplaceAll(pattern[i+1:j], `\`, `\\`)
			switch class[0] {
			case '!':
				class = "^" + class[1:]
			case '^':
				class = `\` + class
			}
			b.WriteString("[" + class + "]")
			i = j
		default:
			b.WriteString(regexp.QuoteMeta(pattern[i : i+1]))
		}
	}

	b.WriteString(")$")
	return b.String()
}
