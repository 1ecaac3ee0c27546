package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/conn-castle/metal-server/internal/messages"
	"github.com/conn-castle/metal-server/internal/sysconf"
)

type serviceRunE func(cmd *cobra.Command, s *serviceApp, args []string) error

// withService loads the config and binds the service before running fn.
func withService(opts *rootOptions, layout sysconf.Layout, fn serviceRunE) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		a, err := loadApp(cmd, opts)
		if err != nil {
			return err
		}
		defer func() { _ = a.logger.Sync() }()
		s, err := a.forService(layout)
		if err != nil {
			return err
		}
		return fn(cmd, s, args)
	}
}

func newServiceCmd(opts *rootOptions, layout sysconf.Layout) *cobra.Command {
	cmd := &cobra.Command{
		Use:   layout.Service,
		Short: fmt.Sprintf(messages.ServiceShortFmt, layout.Service),
	}
	cmd.AddCommand(
		newLeafCmd(opts, layout),
		newChildCmd(opts, layout),
		newStatusCmd(opts, layout),
		newRegenerateCmd(opts, layout),
		newRecoverCmd(opts, layout),
	)
	return cmd
}

type updateFlags struct {
	file   string
	diff   bool
	dryRun bool
}

func (f *updateFlags) register(cmd *cobra.Command, withFile bool) {
	if withFile {
		cmd.Flags().StringVarP(&f.file, "file", "f", "", messages.FlagFile)
	}
	cmd.Flags().BoolVar(&f.diff, "diff", false, messages.FlagDiff)
	cmd.Flags().BoolVar(&f.dryRun, "dry-run", false, messages.FlagDryRun)
}

func newLeafCmd(opts *rootOptions, layout sysconf.Layout) *cobra.Command {
	cmd := &cobra.Command{
		Use:   layout.LeafNoun,
		Short: fmt.Sprintf(messages.LeafShortFmt, layout.LeafNoun),
	}

	putFlags := &updateFlags{}
	put := &cobra.Command{
		Use:   messages.PutLeafUseFmt,
		Short: fmt.Sprintf(messages.PutShortFmt, layout.LeafNoun),
		Args:  cobra.ExactArgs(1),
		RunE: withService(opts, layout, func(cmd *cobra.Command, s *serviceApp, args []string) error {
			body, err := readBody(cmd, s.fs, putFlags.file)
			if err != nil {
				return err
			}
			return runUpdate(cmd, s, putFlags, func(tx *sysconf.Tx) error {
				return tx.WriteLeaf(args[0], body)
			})
		}),
	}
	putFlags.register(put, true)

	rmFlags := &updateFlags{}
	rm := &cobra.Command{
		Use:   messages.RmLeafUseFmt,
		Short: fmt.Sprintf(messages.RmShortFmt, layout.LeafNoun),
		Long:  messages.RmLeafLong,
		Args:  cobra.ExactArgs(1),
		RunE: withService(opts, layout, func(cmd *cobra.Command, s *serviceApp, args []string) error {
			return runUpdate(cmd, s, rmFlags, func(tx *sysconf.Tx) error {
				return tx.RemoveLeaf(args[0])
			})
		}),
	}
	rmFlags.register(rm, false)

	show := &cobra.Command{
		Use:   messages.ShowLeafUseFmt,
		Short: fmt.Sprintf(messages.ShowShortFmt, layout.LeafNoun),
		Args:  cobra.ExactArgs(1),
		RunE: withService(opts, layout, func(cmd *cobra.Command, s *serviceApp, args []string) error {
			data, err := s.guard.ReadLeaf(s.base(), args[0])
			if err != nil {
				return err
			}
			_, err = cmd.OutOrStdout().Write(data)
			return err
		}),
	}

	list := &cobra.Command{
		Use:   messages.ListUseFmt,
		Short: fmt.Sprintf(messages.ListShortFmt, layout.LeafNoun),
		Args:  cobra.NoArgs,
		RunE: withService(opts, layout, func(cmd *cobra.Command, s *serviceApp, args []string) error {
			status, err := s.guard.Status(s.base())
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			for _, leaf := range status.Leaves {
				_, _ = fmt.Fprintf(out, messages.StatusLeafFmt, leaf.Name, len(leaf.Children), layout.ChildNoun)
			}
			return nil
		}),
	}

	cmd.AddCommand(put, rm, show, list)
	return cmd
}

func newChildCmd(opts *rootOptions, layout sysconf.Layout) *cobra.Command {
	parentArg := strings.ToUpper(layout.LeafNoun)
	cmd := &cobra.Command{
		Use:   layout.ChildNoun,
		Short: fmt.Sprintf(messages.ChildShortFmt, layout.ChildNoun, layout.LeafNoun),
	}

	putFlags := &updateFlags{}
	put := &cobra.Command{
		Use:   fmt.Sprintf(messages.PutChildUseFmt, parentArg),
		Short: fmt.Sprintf(messages.PutShortFmt, layout.ChildNoun),
		Args:  cobra.ExactArgs(2),
		RunE: withService(opts, layout, func(cmd *cobra.Command, s *serviceApp, args []string) error {
			body, err := readBody(cmd, s.fs, putFlags.file)
			if err != nil {
				return err
			}
			return runUpdate(cmd, s, putFlags, func(tx *sysconf.Tx) error {
				return tx.WriteChild(args[0], args[1], body)
			})
		}),
	}
	putFlags.register(put, true)

	rmFlags := &updateFlags{}
	rm := &cobra.Command{
		Use:   fmt.Sprintf(messages.RmChildUseFmt, parentArg),
		Short: fmt.Sprintf(messages.RmShortFmt, layout.ChildNoun),
		Args:  cobra.ExactArgs(2),
		RunE: withService(opts, layout, func(cmd *cobra.Command, s *serviceApp, args []string) error {
			return runUpdate(cmd, s, rmFlags, func(tx *sysconf.Tx) error {
				return tx.RemoveChild(args[0], args[1])
			})
		}),
	}
	rmFlags.register(rm, false)

	show := &cobra.Command{
		Use:   fmt.Sprintf(messages.ShowChildUseFmt, parentArg),
		Short: fmt.Sprintf(messages.ShowShortFmt, layout.ChildNoun),
		Args:  cobra.ExactArgs(2),
		RunE: withService(opts, layout, func(cmd *cobra.Command, s *serviceApp, args []string) error {
			data, err := s.guard.ReadChild(s.base(), args[0], args[1])
			if err != nil {
				return err
			}
			_, err = cmd.OutOrStdout().Write(data)
			return err
		}),
	}

	list := &cobra.Command{
		Use:   fmt.Sprintf(messages.ListChildUseFmt, parentArg),
		Short: fmt.Sprintf(messages.ListShortFmt, layout.ChildNoun),
		Args:  cobra.ExactArgs(1),
		RunE: withService(opts, layout, func(cmd *cobra.Command, s *serviceApp, args []string) error {
			if err := layout.ValidateName(args[0]); err != nil {
				return err
			}
			status, err := s.guard.Status(s.base())
			if err != nil {
				return err
			}
			for _, leaf := range status.Leaves {
				if leaf.Name != args[0] {
					continue
				}
				for _, child := range leaf.Children {
					_, _ = fmt.Fprintln(cmd.OutOrStdout(), child)
				}
				return nil
			}
			return fmt.Errorf("%w: "+messages.SysconfParentMissingFmt, sysconf.ErrNotFound, layout.LeafNoun, args[0])
		}),
	}

	cmd.AddCommand(put, rm, show, list)
	return cmd
}

func newStatusCmd(opts *rootOptions, layout sysconf.Layout) *cobra.Command {
	return &cobra.Command{
		Use:   messages.StatusUse,
		Short: fmt.Sprintf(messages.StatusShortFmt, layout.Service),
		Args:  cobra.NoArgs,
		RunE: withService(opts, layout, func(cmd *cobra.Command, s *serviceApp, args []string) error {
			status, err := s.guard.Status(s.base())
			if err != nil {
				return err
			}
			printStatus(cmd.OutOrStdout(), status, layout)
			return nil
		}),
	}
}

func newRegenerateCmd(opts *rootOptions, layout sysconf.Layout) *cobra.Command {
	flags := &updateFlags{}
	cmd := &cobra.Command{
		Use:   messages.RegenerateUse,
		Short: fmt.Sprintf(messages.RegenerateShortFmt, layout.Service),
		Args:  cobra.NoArgs,
		RunE: withService(opts, layout, func(cmd *cobra.Command, s *serviceApp, args []string) error {
			// Manifests are rebuilt by every transaction; an empty edit is enough.
			return runUpdate(cmd, s, flags, func(*sysconf.Tx) error { return nil })
		}),
	}
	flags.register(cmd, false)
	return cmd
}

func newRecoverCmd(opts *rootOptions, layout sysconf.Layout) *cobra.Command {
	var force bool
	cmd := &cobra.Command{
		Use:   messages.RecoverUse,
		Short: fmt.Sprintf(messages.RecoverShortFmt, layout.Service),
		Args:  cobra.NoArgs,
		RunE: withService(opts, layout, func(cmd *cobra.Command, s *serviceApp, args []string) error {
			recovery, err := s.guard.Recover(s.base(), force)
			if err != nil {
				return err
			}
			printRecovery(cmd.OutOrStdout(), recovery)
			return nil
		}),
	}
	cmd.Flags().BoolVar(&force, "force", false, messages.FlagForce)
	return cmd
}

// runUpdate applies edit through the updater, or plans it on --dry-run.
func runUpdate(cmd *cobra.Command, s *serviceApp, flags *updateFlags, edit sysconf.EditFunc) error {
	updater, err := s.updater()
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	if flags.dryRun {
		res, err := updater.Plan(cmd.Context(), s.base(), edit)
		if err != nil {
			return err
		}
		printResult(out, res, true, flags.diff)
		return nil
	}

	res, err := updater.Update(cmd.Context(), s.base(), edit)
	if err != nil {
		return err
	}
	printResult(out, res, false, flags.diff)
	if res.Interrupted {
		_, _ = fmt.Fprintln(cmd.ErrOrStderr(), color.YellowString(messages.ResultInterrupted))
		return SilentExitError{Code: exitInterrupted}
	}
	return nil
}

// readBody reads the config body from file, or from stdin when file is empty or "-".
func readBody(cmd *cobra.Command, fs afero.Fs, file string) ([]byte, error) {
	if file == "" || file == "-" {
		data, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return nil, fmt.Errorf(messages.ReadInputFmt, "stdin", err)
		}
		return data, nil
	}
	data, err := afero.ReadFile(fs, file)
	if err != nil {
		return nil, fmt.Errorf(messages.ReadInputFmt, file, err)
	}
	return data, nil
}
