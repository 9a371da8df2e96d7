package version

import (
	goversion "github.com/caarlos0/go-version"
)

const (
	Application = "ems"
	Description = "Employee management service"
	WebSite     = "https://example.com/ems"
)

// Set through -ldflags at build time.
var (
	Version   = ""
	Commit    = ""
	BuildDate = ""
	BuiltBy   = ""
	TreeState = ""
)

func Info() goversion.Info {
	return goversion.GetVersionInfo(
		goversion.WithAppDetails(Application, Description, WebSite),
		func(i *goversion.Info) {
			if Commit != "" {
				i.GitCommit = Commit
			}
			if Version != "" {
				i.GitVersion = Version
			}
			if TreeState != "" {
				i.GitTreeState = TreeState
			}
			if BuildDate != "" {
				i.BuildDate = BuildDate
			}
			if BuiltBy != "" {
				i.BuiltBy = BuiltBy
			}
		},
	)
}
