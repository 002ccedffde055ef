package gitignore

import (
	"os"

	"github.com/go-git/go-billy/v5"

	"github.com/repolens/repolens/utils/ioutil"
)

const ignoreFile = ".gitignore"

// LoadDirFilter reads the .gitignore of the given directory into a
// filter. A missing file yields a nil filter; patterns are matched
// against paths relative to the directory holding the file.
func LoadDirFilter(fs billy.Filesystem, dir string) (f Filter, err error) {
	path := fs.Join(dir, ignoreFile)

	file, err := fs.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}

		return nil, err
	}

	defer ioutil.CheckClose(file, &err)

	return NewFilterFromReader(file)
}
