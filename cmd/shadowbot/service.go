package main

import (
	"fmt"
	"path/filepath"

	"github.com/delixor/shadowbot/pkg/app"
	"github.com/kardianos/service"
	"github.com/spf13/cobra"
)

// program adapts app.Instance to the service manager.
type program struct {
	params app.RunParams
	inst   *app.Instance
}

func (p *program) Start(_ service.Service) error {
	inst, err := app.Prepare(p.params)
	if err != nil {
		return err
	}
	if err := inst.Start(); err != nil {
		return err
	}
	p.inst = inst
	return nil
}

func (p *program) Stop(_ service.Service) error {
	if p.inst != nil {
		p.inst.Stop()
	}
	return nil
}

func serviceCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "service",
		Short: "Manage shadowbot as a system service",
	}
	for _, action := range []string{"install", "uninstall", "start", "stop", "restart"} {
		cmd.AddCommand(&cobra.Command{
			Use:   action,
			Short: fmt.Sprintf("%s the system service", action),
			RunE: func(cmd *cobra.Command, _ []string) error {
				svc, err := newService(cmd)
				if err != nil {
					return err
				}
				if err := service.Control(svc, action); err != nil {
					return fmt.Errorf("service %s: %w", action, err)
				}
				fmt.Printf("service %s: ok\n", action)
				return nil
			},
		})
	}
	cmd.AddCommand(&cobra.Command{
		Use:    "run",
		Short:  "Run under the service manager",
		Hidden: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			svc, err := newService(cmd)
			if err != nil {
				return err
			}
			return svc.Run()
		},
	})
	return cmd
}

// newService describes the unit. The config path is resolved now so the
// service does not depend on the working directory or on $HOME.
func newService(cmd *cobra.Command) (service.Service, error) {
	params := runParams(cmd)
	if params.ConfigPath == "" {
		resolved, err := app.ResolveConfigPath()
		if err != nil {
			return nil, err
		}
		params.ConfigPath = resolved
	}
	abs, err := filepath.Abs(params.ConfigPath)
	if err != nil {
		return nil, err
	}
	params.ConfigPath = abs

	args := []string{"service", "run", "--config", abs}
	if params.DataDir != "" {
		args = append(args, "--data-dir", params.DataDir)
	}

	return service.New(&program{params: params}, &service.Config{
		Name:        "shadowbot",
		DisplayName: "shadowbot",
		Description: "Telegram Business bot that keeps edited and deleted messages",
		Arguments:   args,
	})
}
