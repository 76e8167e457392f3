package docker

import (
	"sort"
	"strings"

	"github.com/distribution/reference"
)

const (
	defaultDomain   = "docker.io"
	officialRepoDir = "library/"
)

// ResolveIdentities returns the bare image names a container can be matched
// against: registry host, tag and digest removed, and the "library/" namespace
// of official images on the default registry dropped.
//
//	docker.io/library/redis:7  -> redis
//	ghcr.io/acme/pgvector:16   -> acme/pgvector
func ResolveIdentities(tags []string) []string {
	seen := make(map[string]bool, len(tags))
	names := make([]string, 0, len(tags))

	for _, tag := range tags {
		name, ok := imageName(tag)
		if !ok || seen[name] {
			continue
		}
		seen[name] = true
		names = append(names, name)
	}

	sort.Strings(names)
	return names
}

func imageName(tag string) (string, bool) {
	named, err := reference.ParseNormalizedNamed(tag)
	if err != nil {
		return "", false
	}

	name := reference.Path(named)
	if reference.Domain(named) == defaultDomain {
		name = strings.TrimPrefix(name, officialRepoDir)
	}
	return name, name != ""
}
