package main

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/garyellow/sedori-linebot-go/internal/archive"
	"github.com/garyellow/sedori-linebot-go/internal/config"
	"github.com/garyellow/sedori-linebot-go/internal/r2client"
)

func newArchiveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "archive",
		Short: "Read archived analyses",
	}
	cmd.AddCommand(newArchiveCatCmd())
	cmd.AddCommand(newArchiveKeyCmd())
	return cmd
}

func newArchiveCatCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "cat <key>",
		Short: "Download and print one archived analysis",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			archiveCfg, err := config.LoadArchive()
			if err != nil {
				return err
			}
			client, err := r2client.New(cmd.Context(), r2client.Config{
				Endpoint:    archiveCfg.Endpoint,
				AccessKeyID: archiveCfg.AccessKeyID,
				SecretKey:   archiveCfg.SecretAccessKey,
				BucketName:  archiveCfg.Bucket,
			})
			if err != nil {
				return err
			}

			data, err := client.Download(cmd.Context(), args[0])
			if err != nil {
				return fmt.Errorf("download %s: %w", args[0], err)
			}
			rec, err := archive.Decode(data)
			if err != nil {
				return err
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			enc.SetEscapeHTML(false)
			return enc.Encode(rec)
		},
	}
}

func newArchiveKeyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "key <record-id>",
		Short: "Print the object key a record is stored under",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			prefix, _ := cmd.Flags().GetString("prefix")
			dateFlag, _ := cmd.Flags().GetString("date")
			day, err := time.Parse(time.DateOnly, dateFlag)
			if err != nil {
				return fmt.Errorf("--date: %w", err)
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), archive.Key(prefix, day, args[0]))
			return err
		},
	}
	cmd.Flags().String("prefix", "analyses", "archive key prefix")
	cmd.Flags().String("date", time.Now().UTC().Format(time.DateOnly), "record date (YYYY-MM-DD, UTC)")
	return cmd
}
