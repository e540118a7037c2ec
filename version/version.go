// Package version reports the glittr-go release.
package version

import (
	"fmt"
	"strings"
	"sync"
)

// buildCharacters are the characters allowed in appBuild.
const buildCharacters = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz-."

const (
	appMajor uint = 0
	appMinor uint = 3
	appPatch uint = 0
)

// appBuild can be set at link time with
// '-ldflags "-X github.com/glittrfi/glittr-go/version.appBuild=abc123"'.
// Values with characters outside buildCharacters are ignored.
var appBuild string

var (
	version     string
	versionOnce sync.Once
)

// Version returns the release as major.minor.patch, followed by
// "-<build>" when build metadata was set.
func Version() string {
	versionOnce.Do(func() {
		version = fmt.Sprintf("%d.%d.%d", appMajor, appMinor, appPatch)
		if build := sanitizeBuild(appBuild); build != "" {
			version = fmt.Sprintf("%s-%s", version, build)
		}
	})
	return version
}

// UserAgent is sent with every HTTP request.
func UserAgent() string {
	return "glittr-go/" + Version()
}

func sanitizeBuild(build string) string {
	if strings.Trim(build, buildCharacters) != "" {
		return ""
	}
	return build
}
