package cli

import (
	"errors"
	"fmt"

	"github.com/apresai/narrator/internal/config"
	"github.com/apresai/narrator/internal/publish"
	"github.com/spf13/cobra"
)

var (
	flagPublishBucket  string
	flagPublishPrefix  string
	flagPublishRegion  string
	flagPublishProfile string
)

var publishCmd = &cobra.Command{
	Use:   "publish <dir>",
	Short: "Upload finished tracks to S3",
	Long: `Uploads every finished *.mp3 directly inside <dir> to the bucket. Scratch
and chunk files left by an interrupted run are skipped. Defaults come from
the publish section of the config file.`,
	Args: cobra.ExactArgs(1),
	RunE: runPublish,
}

func init() {
	rootCmd.AddCommand(publishCmd)
	publishCmd.Flags().StringVar(&flagPublishBucket, "bucket", "", "S3 bucket")
	publishCmd.Flags().StringVar(&flagPublishPrefix, "prefix", "", "Key prefix")
	publishCmd.Flags().StringVar(&flagPublishRegion, "region", "", "AWS region")
	publishCmd.Flags().StringVar(&flagPublishProfile, "profile", "", "AWS shared config profile")
}

func runPublish(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	settings := config.Publish{}
	if cfg, err := loadConfig(cmd); err == nil {
		settings = cfg.Publish
	} else if flagPublishBucket == "" {
		return err
	}
	override := func(dst *string, flag string) {
		if cmd.Flags().Changed(flag) {
			*dst, _ = cmd.Flags().GetString(flag)
		}
	}
	override(&settings.Bucket, "bucket")
	override(&settings.Prefix, "prefix")
	override(&settings.Region, "region")
	override(&settings.Profile, "profile")

	if settings.Bucket == "" {
		return errors.New("no bucket: pass --bucket or set publish.bucket in the config file")
	}

	client, err := publish.NewS3Client(ctx, settings.Region, settings.Profile)
	if err != nil {
		return err
	}
	storage := publish.NewStorage(client, settings.Bucket, settings.Prefix, appFs, logger)

	keys, err := storage.UploadDir(ctx, args[0])
	for _, k := range keys {
		fmt.Fprintf(cmd.OutOrStdout(), "s3://%s/%s\n", settings.Bucket, k)
	}
	if err != nil {
		return err
	}
	if len(keys) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), dimStyle.Render("No tracks to upload in "+args[0]))
	}
	return nil
}
