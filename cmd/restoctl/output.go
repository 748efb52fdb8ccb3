package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/tw"

	"restoctl/internal/domain"
)

func writeJSON(value any) error {
	data, err := json.MarshalIndent(value, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(data))
	return nil
}

func renderTable(headers []string, rows [][]string) error {
	table := tablewriter.NewWriter(os.Stdout)
	table.Options(
		tablewriter.WithHeader(headers),
		tablewriter.WithRendition(
			tw.Rendition{
				Borders: tw.Border{
					Left:   tw.State(1),
					Top:    tw.State(1),
					Right:  tw.State(1),
					Bottom: tw.State(1),
				},
			},
		),
		tablewriter.WithAlignment(tw.MakeAlign(len(headers), tw.AlignLeft)),
	)
	for _, row := range rows {
		if err := table.Append(row); err != nil {
			return fmt.Errorf("append row: %w", err)
		}
	}
	if err := table.Render(); err != nil {
		return fmt.Errorf("render table: %w", err)
	}
	return nil
}

func printServerList(servers []domain.ServerDefinition, jsonOutput bool) error {
	if jsonOutput {
		return writeJSON(servers)
	}
	if len(servers) == 0 {
		fmt.Println("No servers registered.")
		return nil
	}
	rows := make([][]string, 0, len(servers))
	for _, srv := range servers {
		rows = append(rows, []string{
			srv.Name,
			string(srv.Origin),
			string(srv.Status),
			srv.Application.BaseURL,
			srv.Application.Protocol,
		})
	}
	return renderTable([]string{"Name", "Origin", "Status", "URL", "Protocol"}, rows)
}

func printServer(srv domain.ServerDefinition, jsonOutput bool) error {
	if jsonOutput {
		return writeJSON(srv)
	}
	fmt.Printf("name=%s origin=%s status=%s\n", srv.Name, srv.Origin, srv.Status)
	fmt.Printf("application url=%s protocol=%s\n", srv.Application.BaseURL, srv.Application.Protocol)
	if srv.Authentication != nil {
		fmt.Printf("authentication url=%s protocol=%s\n", srv.Authentication.BaseURL, srv.Authentication.Protocol)
	}
	for _, key := range []string{domain.CacheKeyDescribe, domain.CacheKeyCollections} {
		if entry, ok := srv.Cache.Get(key); ok {
			fmt.Printf("cached %s fetched=%s\n", key, entry.FetchedAt.Format("2006-01-02 15:04:05 UTC"))
		}
	}
	return nil
}
