package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/conn-castle/metal-server/internal/config"
	"github.com/conn-castle/metal-server/internal/messages"
)

func newConfigCmd(opts *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   messages.ConfigUse,
		Short: messages.ConfigShort,
	}
	check := &cobra.Command{
		Use:   messages.ConfigCheckUse,
		Short: messages.ConfigCheckShort,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := loadApp(cmd, opts)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			_, _ = fmt.Fprintf(out, messages.ConfigSourceFmt, a.source)
			for _, name := range []string{config.ServiceDHCP, config.ServiceNamed} {
				svc, _ := a.cfg.Service(name)
				_, _ = fmt.Fprintf(out, messages.ConfigServiceFmt, name, svc.IsEnabled(), svc.Base, svc.Timeout())
				if !svc.IsEnabled() {
					continue
				}
				_, _ = fmt.Fprintf(out, messages.ConfigCommandFmt, "is_running_command", svc.IsRunningCommand)
				_, _ = fmt.Fprintf(out, messages.ConfigCommandFmt, "validate_command", svc.ValidateCommand)
				_, _ = fmt.Fprintf(out, messages.ConfigCommandFmt, "restart_command", svc.RestartCommand)
			}
			return nil
		},
	}
	keys := &cobra.Command{
		Use:   messages.ConfigKeysUse,
		Short: messages.ConfigKeysShort,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			for _, field := range config.Fields() {
				_, _ = fmt.Fprintf(out, messages.ConfigKeyFmt, field.Key, field.Type, field.Description)
				for _, opt := range field.Options {
					_, _ = fmt.Fprintf(out, messages.ConfigOptionFmt, "", opt.Value, strings.TrimSpace(opt.Description))
				}
			}
			return nil
		},
	}
	cmd.AddCommand(check, keys)
	return cmd
}
