// Package appinfo reports what build is running
package appinfo

import (
	"os"
	"runtime"
	"runtime/debug"
	"sync"
)

// version is overridden at link time:
//
//	go build -ldflags "-X memorybox/internal/appinfo.version=1.4.0"
var version = ""

// Info describes the running binary
type Info struct {
	Version   string `json:"version"`
	Revision  string `json:"revision,omitempty"`
	GoVersion string `json:"goVersion"`
}

var (
	once   sync.Once
	cached Info
)

// Get returns the build info. The version is resolved from the link-time
// value, then APP_VERSION, then module build info.
func Get() Info {
	once.Do(func() { cached = resolve() })
	return cached
}

// Version is shorthand for Get().Version
func Version() string {
	return Get().Version
}

func resolve() Info {
	info := Info{Version: version, GoVersion: runtime.Version()}
	if info.Version == "" {
		info.Version = os.Getenv("APP_VERSION")
	}

	if build, ok := debug.ReadBuildInfo(); ok {
		if info.Version == "" && build.Main.Version != "" && build.Main.Version != "(devel)" {
			info.Version = build.Main.Version
		}
		for _, setting := range build.Settings {
			if setting.Key == "vcs.revision" && len(setting.Value) >= 12 {
				info.Revision = setting.Value[:12]
			}
		}
	}

	if info.Version == "" {
		info.Version = "0.0.0-unknown"
	}
	return info
}
