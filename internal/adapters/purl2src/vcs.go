package purl2src

import (
	"net/url"
	"strings"

	"go.trai.ch/purl2notices/internal/core/domain"
	"go.trai.ch/zerr"
)

// archiveLayouts maps trusted forge hosts to their source archive URL layout.
var archiveLayouts = map[string]func(owner, repo, ref string) string{
	"github.com": func(owner, repo, ref string) string {
		return "https://github.com/" + owner + "/" + repo + "/archive/" + ref + ".tar.gz"
	},
	"gitlab.com": func(owner, repo, ref string) string {
		return "https://gitlab.com/" + owner + "/" + repo + "/-/archive/" + ref + "/" + repo + "-" + ref + ".tar.gz"
	},
	"codeberg.org": func(owner, repo, ref string) string {
		return "https://codeberg.org/" + owner + "/" + repo + "/archive/" + ref + ".tar.gz"
	},
	"git.fsfe.org": func(owner, repo, ref string) string {
		return "https://git.fsfe.org/" + owner + "/" + repo + "/archive/" + ref + ".tar.gz"
	},
}

// ArchiveURL converts a VCS URL of the form git+https://host/owner/repo[.git]@ref into the
// forge's source archive URL. Only https URLs on known hosts with exactly one owner and one
// repository segment are accepted.
func ArchiveURL(vcsURL string) (string, error) {
	unsupported := zerr.With(domain.ErrUnsupportedVCSURL, "url", vcsURL)

	rest, ok := strings.CutPrefix(vcsURL, "git+")
	if !ok {
		return "", unsupported
	}

	u, err := url.Parse(rest)
	if err != nil || u.Scheme != "https" || u.User != nil || u.RawQuery != "" || u.Fragment != "" {
		return "", unsupported
	}

	layout, ok := archiveLayouts[strings.ToLower(u.Host)]
	if !ok {
		return "", unsupported
	}

	repoPath, ref, ok := strings.Cut(strings.TrimPrefix(u.Path, "/"), "@")
	if !ok || ref == "" || strings.ContainsAny(ref, "/\\") {
		return "", unsupported
	}

	owner, repo, ok := strings.Cut(strings.TrimSuffix(repoPath, ".git"), "/")
	if !ok || owner == "" || repo == "" || strings.Contains(repo, "/") || owner == ".." || repo == ".." {
		return "", unsupported
	}

	return layout(owner, repo, ref), nil
}
