package repolens

import (
	"os"

	"github.com/go-git/gcfg"

	"github.com/repolens/repolens/utils/ioutil"
)

// Config holds the subset of the repository configuration the library
// consumes: core flags, remotes and branch tracking.
// https://www.kernel.org/pub/software/scm/git/docs/git-config.html#FILES
type Config struct {
	Core struct {
		// IsBare if true this repository is assumed to be bare and has
		// no working directory associated with it.
		IsBare bool `gcfg:"bare"`
		// Worktree is the path to the root of the working tree, when it
		// differs from the default location.
		Worktree string `gcfg:"worktree"`
	} `gcfg:"core"`

	// Remotes is keyed by remote name.
	Remotes map[string]*RemoteConfig `gcfg:"remote"`
	// Branches is keyed by local branch name.
	Branches map[string]*BranchConfig `gcfg:"branch"`
}

// RemoteConfig contains the configuration for a given remote repository.
type RemoteConfig struct {
	// URLs the URLs of a remote repository.
	URLs []string `gcfg:"url"`
	// Fetch the default set of refspecs for git-fetch.
	Fetch []string `gcfg:"fetch"`
}

// BranchConfig contains the tracking configuration for a branch.
type BranchConfig struct {
	// Remote is the name of the remote the branch tracks.
	Remote string `gcfg:"remote"`
	// Merge is the remote reference merged into the branch.
	Merge string `gcfg:"merge"`
}

// Config reads and caches the repository configuration. A missing config
// file yields an empty configuration.
func (r *Repository) Config() (_ *Config, err error) {
	if r.closed {
		return nil, ErrRepositoryClosed
	}

	if r.config != nil {
		return r.config, nil
	}

	cfg := &Config{}

	f, err := r.dir.Config()
	if err != nil {
		if os.IsNotExist(err) {
			r.config = cfg
			return cfg, nil
		}

		return nil, err
	}
	defer ioutil.CheckClose(f, &err)

	if err := gcfg.FatalOnly(gcfg.ReadInto(cfg, f)); err != nil {
		return nil, err
	}

	r.config = cfg
	return cfg, nil
}
