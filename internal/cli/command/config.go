package command

import (
	"fmt"
	"strings"

	"github.com/urfave/cli/v2"

	"github.com/yndnr/rcuht-go/internal/cli/config"
	"github.com/yndnr/rcuht-go/internal/cli/output"
)

// ConfigCommand returns the config command group.
func ConfigCommand() *cli.Command {
	return &cli.Command{
		Name:  "config",
		Usage: "Configuration management",
		Subcommands: []*cli.Command{
			{
				Name:   "show",
				Usage:  "Print the effective configuration as YAML",
				Action: configShow,
			},
			{
				Name:   "validate",
				Usage:  "Load and verify the configuration",
				Action: configValidate,
			},
		},
	}
}

func configShow(c *cli.Context) error {
	cfg, _, err := loadConfig(c, nil)
	if err != nil {
		return err
	}
	return (&output.YAMLFormatter{}).Format(c.App.Writer, cfg)
}

func configValidate(c *cli.Context) error {
	_, sources, err := config.Load(c.String("config"), overrides(c, nil))
	if err != nil {
		return cli.Exit(err.Error(), 2)
	}
	layers := append([]string{"defaults"}, sources...)
	_, err = fmt.Fprintf(c.App.Writer, "configuration OK (%s)\n", strings.Join(layers, " < "))
	return err
}
