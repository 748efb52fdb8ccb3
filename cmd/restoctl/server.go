package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"restoctl/internal/domain"
)

func newServerCmd(opts *cliOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "server",
		Short: "Manage registered resto servers",
	}
	cmd.AddCommand(
		newServerListCmd(opts),
		newServerShowCmd(opts),
		newServerCreateCmd(opts),
		newServerDeleteCmd(opts),
		newServerRenameCmd(opts),
		newServerExportCmd(opts),
		newServerImportCmd(opts),
	)
	return cmd
}

func newServerListCmd(opts *cliOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List registered servers",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			return printServerList(opts.reg.List(), opts.jsonOutput)
		},
	}
}

func newServerShowCmd(opts *cliOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "show <name>",
		Short: "Show one server definition",
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			srv, err := opts.reg.Lookup(args[0])
			if err != nil {
				return err
			}
			return printServer(srv, opts.jsonOutput)
		},
	}
}

type serverCreateArgs struct {
	url          string
	protocol     string
	authURL      string
	authProtocol string
}

func newServerCreateCmd(opts *cliOptions) *cobra.Command {
	createArgs := &serverCreateArgs{}
	cmd := &cobra.Command{
		Use:   "create <name>",
		Short: "Register a new user-defined server",
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			application := domain.ServiceAccess{
				BaseURL:  createArgs.url,
				Protocol: createArgs.protocol,
			}
			var authentication *domain.ServiceAccess
			if createArgs.authURL != "" {
				protocol := createArgs.authProtocol
				if protocol == "" {
					protocol = domain.ProtocolAuthDefault
				}
				authentication = &domain.ServiceAccess{
					BaseURL:  createArgs.authURL,
					Protocol: protocol,
				}
			}
			srv, err := opts.reg.CreateUserDefined(args[0], application, authentication)
			if err != nil {
				return err
			}
			opts.logger.Debug("server created", zap.String("name", srv.Name))
			return printServer(srv, opts.jsonOutput)
		},
	}
	cmd.Flags().StringVar(&createArgs.url, "url", "", "base URL of the application service (required)")
	cmd.Flags().StringVar(&createArgs.protocol, "protocol", "", "application dialect, one of: dotcloud, peps_version, theia_version (required)")
	cmd.Flags().StringVar(&createArgs.authURL, "auth-url", "", "base URL of the authentication service (optional)")
	cmd.Flags().StringVar(&createArgs.authProtocol, "auth-protocol", "", "authentication dialect, one of: default, sso_dotcloud, sso_theia")
	_ = cmd.MarkFlagRequired("url")
	_ = cmd.MarkFlagRequired("protocol")
	return cmd
}

func newServerDeleteCmd(opts *cliOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <name>",
		Short: "Delete a user-defined server",
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			if err := opts.reg.Delete(args[0]); err != nil {
				return err
			}
			if !opts.jsonOutput {
				fmt.Printf("deleted %s\n", domain.CanonicalName(args[0]))
				return nil
			}
			return writeJSON(map[string]string{"deleted": domain.CanonicalName(args[0])})
		},
	}
}

func newServerRenameCmd(opts *cliOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "rename <old> <new>",
		Short: "Rename a user-defined server",
		Args:  cobra.ExactArgs(2),
		RunE: func(_ *cobra.Command, args []string) error {
			if err := opts.reg.Rename(args[0], args[1]); err != nil {
				return err
			}
			srv, err := opts.reg.Lookup(args[1])
			if err != nil {
				return err
			}
			return printServer(srv, opts.jsonOutput)
		},
	}
}
