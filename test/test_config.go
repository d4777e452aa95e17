//nolint:gochecknoinits,dogsled
package test

import (
	"os"
	"path"
	"runtime"
)

// ConfigTestRootPath - go test runs each package with the package folder as
// working directory. This function changes it to the project root so that
// test resources (init scripts, config files) can be referenced from there.
func ConfigTestRootPath() {
	_, filename, _, _ := runtime.Caller(0)
	dir := path.Join(path.Dir(filename), "..")
	err := os.Chdir(dir)

	if err != nil {
		panic(err)
	}
}
