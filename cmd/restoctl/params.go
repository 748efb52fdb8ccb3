package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"restoctl/internal/settings"
)

func newParamCmd(opts *cliOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "param",
		Short: "Manage sticky command parameters",
	}
	cmd.AddCommand(
		newParamShowCmd(opts),
		newParamSetCmd(opts),
		newParamUnsetCmd(opts),
	)
	return cmd
}

func newParamShowCmd(opts *cliOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Show the current parameter values",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			if opts.jsonOutput {
				values := map[string]string{}
				for _, key := range settings.ParameterKeys() {
					value, err := opts.params.Get(key)
					if err != nil {
						return err
					}
					values[key] = value
				}
				return writeJSON(values)
			}
			rows := make([][]string, 0, len(settings.ParameterKeys()))
			for _, key := range settings.ParameterKeys() {
				value, err := opts.params.Get(key)
				if err != nil {
					return err
				}
				if value == "" {
					value = "(unset)"
				}
				rows = append(rows, []string{key, value})
			}
			return renderTable([]string{"Parameter", "Value"}, rows)
		},
	}
}

func newParamSetCmd(opts *cliOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "set <key> <value>",
		Short: "Set a parameter",
		Args:  cobra.ExactArgs(2),
		RunE: func(_ *cobra.Command, args []string) error {
			if err := opts.params.Set(args[0], args[1]); err != nil {
				return err
			}
			if err := opts.store.SaveParameters(opts.params); err != nil {
				return err
			}
			value, err := opts.params.Get(args[0])
			if err != nil {
				return err
			}
			if opts.jsonOutput {
				return writeJSON(map[string]string{args[0]: value})
			}
			fmt.Printf("%s=%s\n", args[0], value)
			return nil
		},
	}
}

func newParamUnsetCmd(opts *cliOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "unset <key>",
		Short: "Clear a parameter",
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			if err := opts.params.Unset(args[0]); err != nil {
				return err
			}
			if err := opts.store.SaveParameters(opts.params); err != nil {
				return err
			}
			if opts.jsonOutput {
				return writeJSON(map[string]string{args[0]: ""})
			}
			fmt.Printf("%s unset\n", args[0])
			return nil
		},
	}
}
