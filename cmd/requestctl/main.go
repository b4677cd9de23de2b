package main

import (
	"context"
	"fmt"
	"os"

	"github.com/urfave/cli/v3"
	"go.uber.org/zap"

	"github.com/garyjia/employee-requests/internal/config"
	"github.com/garyjia/employee-requests/internal/container"
	"github.com/garyjia/employee-requests/pkg/utils"
)

func main() {
	cmd := &cli.Command{
		Name:                  "requestctl",
		Usage:                 "Administer approver capabilities and notifications",
		EnableShellCompletion: true,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to the YAML configuration file",
				Value:   "configs/config.yaml",
				Sources: cli.EnvVars("REQUESTS_CONFIG"),
			},
			&cli.StringFlag{
				Name:    "log-level",
				Usage:   "Log level (debug, info, warn, error)",
				Value:   "warn",
				Sources: cli.EnvVars("LOG_LEVEL"),
			},
		},
		Commands: []*cli.Command{
			NewGrantCommand(),
			NewRevokeCommand(),
			NewApproversCommand(),
			NewNotifyCommand(),
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		_, _ = fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

// loadConfig reads the configuration and builds a console logger
func loadConfig(command *cli.Command) (*config.Config, *zap.Logger, error) {
	cfg, err := config.Load(command.String("config"))
	if err != nil {
		return nil, nil, err
	}

	logger, err := utils.NewLogger(utils.LoggerConfig{
		Level:      command.String("log-level"),
		OutputPath: "stderr",
		Format:     "console",
	})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	return cfg, logger, nil
}

// withContainer runs fn against a started container and closes it afterwards
func withContainer(command *cli.Command, fn func(c *container.Container) error) error {
	cfg, logger, err := loadConfig(command)
	if err != nil {
		return err
	}
	defer logger.Sync()

	c, err := container.NewContainer(cfg, logger)
	if err != nil {
		return err
	}
	if err := c.Start(); err != nil {
		return err
	}
	defer c.Close()

	return fn(c)
}
