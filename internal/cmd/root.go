package cmd

import (
	"github.com/alecthomas/kong"
)

type CLI struct {
	Color   string `help:"Color output: auto, always, never." enum:"auto,always,never" default:"auto"`
	JSON    bool   `help:"JSON output to stdout; disables colors."`
	Verbose bool   `help:"Enable debug logging."`

	VersionFlag kong.VersionFlag `help:"Print version."`

	Run     RunCmd     `cmd:"" help:"Search for new job leads once."`
	Daemon  DaemonCmd  `cmd:"" help:"Run searches on a cron schedule."`
	Jobs    JobsCmd    `cmd:"" help:"Inspect and manage tracked jobs."`
	Queries QueriesCmd `cmd:"" help:"Manage saved search queries."`
	Profile ProfileCmd `cmd:"" help:"Inspect or scaffold the profile file."`
	Migrate MigrateCmd `cmd:"" help:"Copy all data to another storage backend."`
	Version VersionCmd `cmd:"" help:"Print version."`
}

func NewCLI() *CLI {
	return &CLI{}
}
