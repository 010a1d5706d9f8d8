package cmd

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/jobscout/jobscout/internal/config"
)

type ProfileCmd struct {
	Init ProfileInitCmd `cmd:"" help:"Write a starter profile file."`
	Show ProfileShowCmd `cmd:"" help:"Print the loaded profile."`
	Path ProfilePathCmd `cmd:"" help:"Print the profile file location."`
}

type ProfileInitCmd struct{}

func (p *ProfileInitCmd) Run(c *Context) error {
	path := c.Config.ProfilePath()
	if _, err := os.Stat(path); err == nil {
		c.UI.Infof("Profile already exists at %s", path)
		return nil
	} else if !errors.Is(err, os.ErrNotExist) {
		return err
	}

	scaffold := config.Profile{Name: "default", Queries: []string{}}
	if err := config.WriteProfile(path, scaffold); err != nil {
		return err
	}
	c.UI.Successf("Created %s", path)
	c.UI.Infof("Fill in your background so runs can filter leads against it.")
	return nil
}

type ProfileShowCmd struct{}

func (p *ProfileShowCmd) Run(c *Context) error {
	if c.JSONOutput {
		enc := json.NewEncoder(c.Out)
		enc.SetIndent("", "  ")
		return enc.Encode(c.Profile)
	}
	c.UI.Printf("Name: %s\n", c.Profile.User())
	if c.Profile.Background != "" {
		c.UI.Printf("\n%s\n", c.Profile.Background)
	} else {
		c.UI.Infof("No background set, runs keep every lead until %s describes you.", c.Config.ProfilePath())
	}
	if len(c.Profile.Queries) > 0 {
		c.UI.Printf("\nSeed queries:\n")
		for _, q := range c.Profile.Queries {
			c.UI.Printf("  - %s\n", q)
		}
	}
	return nil
}

type ProfilePathCmd struct{}

func (p *ProfilePathCmd) Run(c *Context) error {
	_, err := fmt.Fprintln(c.Out, c.Config.ProfilePath())
	return err
}
