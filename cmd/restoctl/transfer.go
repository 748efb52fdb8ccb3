package main

import (
	"fmt"
	"os"

	toml "github.com/pelletier/go-toml/v2"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"restoctl/internal/domain"
)

// transferFile is the TOML shape used by server export/import. Only
// user-defined entries travel; the predefined set is built in.
type transferFile struct {
	Servers []transferServer `toml:"servers"`
}

type transferServer struct {
	Name           string          `toml:"name"`
	Application    transferAccess  `toml:"application"`
	Authentication *transferAccess `toml:"authentication,omitempty"`
}

type transferAccess struct {
	URL      string `toml:"url"`
	Protocol string `toml:"protocol"`
}

func newServerExportCmd(opts *cliOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "export <file>",
		Short: "Export user-defined servers to a TOML file",
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			var out transferFile
			for _, srv := range opts.reg.List() {
				if srv.Origin != domain.OriginUserDefined {
					continue
				}
				entry := transferServer{
					Name: srv.Name,
					Application: transferAccess{
						URL:      srv.Application.BaseURL,
						Protocol: srv.Application.Protocol,
					},
				}
				if srv.Authentication != nil {
					entry.Authentication = &transferAccess{
						URL:      srv.Authentication.BaseURL,
						Protocol: srv.Authentication.Protocol,
					}
				}
				out.Servers = append(out.Servers, entry)
			}

			data, err := toml.Marshal(out)
			if err != nil {
				return fmt.Errorf("encode export: %w", err)
			}
			if err := os.WriteFile(args[0], data, 0o600); err != nil {
				return fmt.Errorf("write export: %w", err)
			}
			if opts.jsonOutput {
				return writeJSON(map[string]any{"file": args[0], "exported": len(out.Servers)})
			}
			fmt.Printf("exported %d server(s) to %s\n", len(out.Servers), args[0])
			return nil
		},
	}
}

func newServerImportCmd(opts *cliOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "import <file>",
		Short: "Import user-defined servers from a TOML file",
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("read import: %w", err)
			}
			var in transferFile
			if err := toml.Unmarshal(data, &in); err != nil {
				return fmt.Errorf("decode import: %w", err)
			}

			var imported, skipped int
			for _, entry := range in.Servers {
				application := domain.ServiceAccess{
					BaseURL:  entry.Application.URL,
					Protocol: entry.Application.Protocol,
				}
				var authentication *domain.ServiceAccess
				if entry.Authentication != nil {
					authentication = &domain.ServiceAccess{
						BaseURL:  entry.Authentication.URL,
						Protocol: entry.Authentication.Protocol,
					}
				}
				_, err := opts.reg.CreateUserDefined(entry.Name, application, authentication)
				switch {
				case err == nil:
					imported++
				case domain.IsCode(err, domain.CodeNameConflict):
					opts.logger.Warn("import skipped, name taken", zap.String("name", entry.Name))
					skipped++
				default:
					return err
				}
			}
			if opts.jsonOutput {
				return writeJSON(map[string]any{"imported": imported, "skipped": skipped})
			}
			fmt.Printf("imported %d server(s), skipped %d\n", imported, skipped)
			return nil
		},
	}
}
