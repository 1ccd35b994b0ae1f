package version

import (
	"fmt"
	"strings"
)

// buildCharacters are the characters allowed in appBuild
const buildCharacters = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz-."

const (
	appName       = "dashspv"
	appMajor uint = 0
	appMinor uint = 1
	appPatch uint = 0
)

// appBuild can be set at build time with
// '-ldflags "-X github.com/dashevo/dashspv/version.appBuild=foo"'.
// It's ignored when it holds characters outside buildCharacters.
var appBuild string

// Version returns the semantic version of the application, with the build
// metadata appended when there is any.
func Version() string {
	version := fmt.Sprintf("%d.%d.%d", appMajor, appMinor, appPatch)
	if isValidBuild(appBuild) {
		version = fmt.Sprintf("%s+%s", version, appBuild)
	}
	return version
}

// UserAgent returns the name and version of the application in the
// '/name:version/' form of user agents on the Dash network.
func UserAgent() string {
	return fmt.Sprintf("/%s:%s/", appName, Version())
}

func isValidBuild(build string) bool {
	if build == "" {
		return false
	}
	for _, r := range build {
		if !strings.ContainsRune(buildCharacters, r) {
			return false
		}
	}
	return true
}
