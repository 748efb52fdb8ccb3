package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"restoctl/internal/domain"
	"restoctl/internal/journal"
	"restoctl/internal/resto"
)

const envPassword = "RESTOCTL_PASSWORD"

func newCollectionsCmd(opts *cliOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "collections [server]",
		Short: "List the collections a server offers",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			doc, srv, err := fetchCached(cmd.Context(), opts, args, domain.CacheKeyCollections)
			if err != nil {
				return err
			}
			names := resto.CollectionNames(doc)
			if opts.jsonOutput {
				return writeJSON(map[string]any{
					"server":      srv.Name,
					"collections": json.RawMessage(doc),
				})
			}
			if len(names) == 0 {
				fmt.Printf("%s offers no collections\n", srv.Name)
				return nil
			}
			rows := make([][]string, 0, len(names))
			for _, name := range names {
				rows = append(rows, []string{name})
			}
			return renderTable([]string{"Collection"}, rows)
		},
	}
}

func newDescribeCmd(opts *cliOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "describe [server]",
		Short: "Show a server's catalog description",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			doc, srv, err := fetchCached(cmd.Context(), opts, args, domain.CacheKeyDescribe)
			if err != nil {
				return err
			}
			if opts.jsonOutput {
				return writeJSON(map[string]any{
					"server":      srv.Name,
					"description": json.RawMessage(doc),
				})
			}
			if description := resto.ServerDescription(doc); description != "" {
				fmt.Printf("%s: %s\n", srv.Name, description)
			}
			fmt.Println(string(doc))
			return nil
		},
	}
}

type loginArgs struct {
	username string
	password string
}

func newLoginCmd(opts *cliOptions) *cobra.Command {
	login := &loginArgs{}
	cmd := &cobra.Command{
		Use:   "login [server]",
		Short: "Obtain an authentication token from a server",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			name, err := resolveServerName(opts, args)
			if err != nil {
				return err
			}
			srv, err := opts.reg.Lookup(name)
			if err != nil {
				return err
			}
			password := login.password
			if password == "" {
				password = os.Getenv(envPassword)
			}
			if login.username == "" || password == "" {
				return exitWith(2, "login needs --username and --password (or "+envPassword+")")
			}

			client := resto.NewClient(opts.reg, opts.logger)
			token, err := client.Authenticate(cmd.Context(), srv, login.username, password)
			if err != nil {
				return err
			}
			recordInteraction(opts, srv.Name, journal.KindAuth, login.username)

			if opts.jsonOutput {
				return writeJSON(map[string]string{"server": srv.Name, "token": token})
			}
			fmt.Println(token)
			return nil
		},
	}
	cmd.Flags().StringVarP(&login.username, "username", "u", "", "account name on the server")
	cmd.Flags().StringVarP(&login.password, "password", "p", "", "account password (or set "+envPassword+")")
	return cmd
}

// fetchCached serves a catalog document through the server's TTL cache,
// reaching out to the server only when the cached copy is stale or absent.
func fetchCached(ctx context.Context, opts *cliOptions, args []string, key string) (json.RawMessage, domain.ServerDefinition, error) {
	name, err := resolveServerName(opts, args)
	if err != nil {
		return nil, domain.ServerDefinition{}, err
	}
	srv, err := opts.reg.Lookup(name)
	if err != nil {
		return nil, domain.ServerDefinition{}, err
	}

	client := resto.NewClient(opts.reg, opts.logger)
	fetch := func(ctx context.Context) (json.RawMessage, error) {
		switch key {
		case domain.CacheKeyCollections:
			return client.Collections(ctx, srv)
		default:
			return client.Describe(ctx, srv)
		}
	}
	doc, err := opts.reg.GetOrRefresh(ctx, srv.Name, key, opts.params.TTL(), fetch)
	if err != nil {
		return nil, domain.ServerDefinition{}, err
	}
	recordInteraction(opts, srv.Name, journal.KindSearch, key)
	return doc, srv, nil
}

// recordInteraction appends to the journal on a best-effort basis; a broken
// journal never fails the command that caused the entry.
func recordInteraction(opts *cliOptions, server string, kind journal.Kind, subject string) {
	j, err := openJournal(opts)
	if err != nil {
		opts.logger.Warn("journal unavailable", zap.Error(err))
		return
	}
	defer func() { _ = j.Close() }()
	if _, err := j.Append(server, kind, subject); err != nil {
		opts.logger.Warn("journal append failed", zap.Error(err))
	}
}
