package cli

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"pagebuilder/internal/config"
	"pagebuilder/internal/slug"
	"pagebuilder/internal/storage"
)

func newSnapshotCmd() *cobra.Command {
	var (
		showURL bool
		presign time.Duration
	)
	cmd := &cobra.Command{
		Use:   "snapshot HANDLE",
		Short: "Fetch the latest published snapshot of a template",
		Long: `Snapshot reads templates/HANDLE/latest.json from the S3 bucket that
publishing uploads to. With --url or --presign only a link is printed.`,
		Example: `  pbctl snapshot landing-page
  pbctl snapshot landing-page --presign 15m`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			handle := args[0]
			if !slug.Valid(handle) {
				return fmt.Errorf("%q is not a valid template handle", handle)
			}
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			client, err := storage.New(cfg.S3Endpoint, cfg.S3Region, cfg.S3AccessKey, cfg.S3SecretKey, cfg.S3Bucket, cfg.S3PublicURL)
			if err != nil {
				return err
			}
			if client == nil {
				return errors.New("S3 storage is not configured (S3_ENDPOINT, S3_ACCESS_KEY, S3_SECRET_KEY)")
			}

			key := storage.LatestKey(handle)
			w := cmd.OutOrStdout()
			switch {
			case presign > 0:
				url, err := client.PresignedURL(cmd.Context(), key, presign)
				if err != nil {
					return err
				}
				fmt.Fprintln(w, url)
			case showURL:
				fmt.Fprintln(w, client.FileURL(key))
			default:
				body, err := client.Download(cmd.Context(), key)
				if err != nil {
					return err
				}
				_, err = w.Write(body)
				return err
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&showURL, "url", false, "print the object URL instead of the content")
	cmd.Flags().DurationVar(&presign, "presign", 0, "print a pre-signed URL valid for this long")
	return cmd
}
