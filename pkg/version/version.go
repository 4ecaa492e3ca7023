package version

import (
	"encoding/json"
	"log"
	"runtime/debug"
)

type Info struct {
	Commit string `json:"commit"`
	Time   string `json:"time"`
}

var info = func() Info {
	v := Info{}
	if bi, ok := debug.ReadBuildInfo(); ok {
		for _, setting := range bi.Settings {
			if setting.Key == "vcs.revision" {
				v.Commit = setting.Value
			}
			if setting.Key == "vcs.time" {
				v.Time = setting.Value
			}
		}
	}
	return v
}()

// Version is the build info as json, logged at startup and served on /health.
var Version = func() string {
	b, err := json.Marshal(&info)
	if err != nil {
		log.Fatal(err)
	}
	return string(b)
}()

// Commit returns the short vcs revision or "dev" when built without vcs info.
func Commit() string {
	if info.Commit == "" {
		return "dev"
	}
	if len(info.Commit) > 7 {
		return info.Commit[:7]
	}
	return info.Commit
}

func Get() Info {
	return info
}
