package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/urfave/cli/v3"

	"github.com/garyjia/employee-requests/internal/application/port"
	"github.com/garyjia/employee-requests/internal/container"
	"github.com/garyjia/employee-requests/internal/domain/workflow"
	"github.com/garyjia/employee-requests/internal/infrastructure/external/lark"
)

var (
	ErrUsage             = errors.New("wrong number of arguments")
	ErrUnknownDepartment = errors.New("unknown approving department")
	ErrLarkNotConfigured = errors.New("lark app_id and app_secret are required")
)

var (
	approvingDepartments = []workflow.Department{workflow.DepartmentManager, workflow.DepartmentHR, workflow.DepartmentFinance}
	requestKinds         = []workflow.Kind{workflow.KindLeave, workflow.KindCashAdvance, workflow.KindReimbursement, workflow.KindCarReservation}
)

// capabilityArgs parses "<kind> <department>" into a module slug and capability name
func capabilityArgs(kindArg, departmentArg string) (string, string, error) {
	kind := workflow.Kind(kindArg)
	known := false
	for _, k := range requestKinds {
		if k == kind {
			known = true
			break
		}
	}
	if !known {
		return "", "", fmt.Errorf("%w: %s", workflow.ErrUnknownKind, kindArg)
	}

	capability := workflow.Department(departmentArg).Capability()
	if capability == "" {
		return "", "", fmt.Errorf("%w: %s (want one of %v)", ErrUnknownDepartment, departmentArg, approvingDepartments)
	}
	return kind.ModuleSlug(), capability, nil
}

func NewGrantCommand() *cli.Command {
	return &cli.Command{
		Name:      "grant",
		Usage:     "Allow an employee to decide for a department on a request kind",
		ArgsUsage: "<actor-id> <kind> <department>",
		Action: func(ctx context.Context, command *cli.Command) error {
			if command.Args().Len() != 3 {
				return fmt.Errorf("%w: %s", ErrUsage, command.ArgsUsage)
			}
			actorID := command.Args().Get(0)
			module, capability, err := capabilityArgs(command.Args().Get(1), command.Args().Get(2))
			if err != nil {
				return err
			}

			return withContainer(command, func(c *container.Container) error {
				if err := c.Repositories().Permissions.Grant(ctx, actorID, module, capability); err != nil {
					return err
				}
				_, _ = fmt.Fprintf(os.Stdout, "granted %s on %s to %s\n", capability, module, actorID)
				return nil
			})
		},
	}
}

func NewRevokeCommand() *cli.Command {
	return &cli.Command{
		Name:      "revoke",
		Usage:     "Remove a previously granted approval capability",
		ArgsUsage: "<actor-id> <kind> <department>",
		Action: func(ctx context.Context, command *cli.Command) error {
			if command.Args().Len() != 3 {
				return fmt.Errorf("%w: %s", ErrUsage, command.ArgsUsage)
			}
			actorID := command.Args().Get(0)
			module, capability, err := capabilityArgs(command.Args().Get(1), command.Args().Get(2))
			if err != nil {
				return err
			}

			return withContainer(command, func(c *container.Container) error {
				if err := c.Repositories().Permissions.Revoke(ctx, actorID, module, capability); err != nil {
					return err
				}
				_, _ = fmt.Fprintf(os.Stdout, "revoked %s on %s from %s\n", capability, module, actorID)
				return nil
			})
		},
	}
}

func NewApproversCommand() *cli.Command {
	return &cli.Command{
		Name:      "approvers",
		Usage:     "List employees allowed to decide for a department on a request kind",
		ArgsUsage: "<kind> <department>",
		Action: func(ctx context.Context, command *cli.Command) error {
			if command.Args().Len() != 2 {
				return fmt.Errorf("%w: %s", ErrUsage, command.ArgsUsage)
			}
			module, capability, err := capabilityArgs(command.Args().Get(0), command.Args().Get(1))
			if err != nil {
				return err
			}

			return withContainer(command, func(c *container.Container) error {
				actors, err := c.Repositories().Permissions.ActorsWithCapability(ctx, module, capability)
				if err != nil {
					return err
				}
				for _, actor := range actors {
					_, _ = fmt.Fprintln(os.Stdout, actor)
				}
				return nil
			})
		},
	}
}

// NewNotifyCommand sends one test notification through Lark, even if lark.enabled is false
func NewNotifyCommand() *cli.Command {
	return &cli.Command{
		Name:      "notify",
		Usage:     "Send a test Lark message to check credentials and recipient IDs",
		ArgsUsage: "<recipient-id>",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "message",
				Usage: "Message body",
				Value: "Test notification from the employee request service",
			},
		},
		Action: func(ctx context.Context, command *cli.Command) error {
			if command.Args().Len() != 1 {
				return fmt.Errorf("%w: %s", ErrUsage, command.ArgsUsage)
			}

			cfg, logger, err := loadConfig(command)
			if err != nil {
				return err
			}
			defer logger.Sync()

			if cfg.Lark.AppID == "" || cfg.Lark.AppSecret == "" {
				return ErrLarkNotConfigured
			}

			client := lark.NewClient(lark.Config{
				AppID:         cfg.Lark.AppID,
				AppSecret:     cfg.Lark.AppSecret,
				ReceiveIDType: cfg.Lark.ReceiveIDType,
			}, logger)
			notifier := lark.NewNotifier(lark.NewMessenger(client, cfg.Lark.ReceiveIDType, logger))

			err = notifier.Notify(ctx, port.Notification{
				RecipientID: command.Args().Get(0),
				Title:       "Notification test",
				Body:        command.String("message"),
			})
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintln(os.Stdout, "message sent")
			return nil
		},
	}
}
