/*
Copyright © 2026 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"bytes"
	"fmt"
	"os"
	"path"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/veristat/apiserver/config"
	"github.com/veristat/apiserver/internal/model"
	"github.com/veristat/apiserver/internal/storage"
)

// uploadArtifactsCmd pushes a local artifact directory into the configured
// object-storage bucket so servers can load it at startup.
var uploadArtifactsCmd = &cobra.Command{
	Use:   "upload-artifacts [dir]",
	Short: "Upload model artifacts to object storage",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.LoadConfig()

		dir := cfg.Artifacts.LocalDir
		if len(args) == 1 {
			dir = args[0]
		}

		var backend storage.ObjectStorage
		switch cfg.Artifacts.Backend {
		case "minio":
			client, err := storage.NewMinioClient(cfg.Minio)
			if err != nil {
				return err
			}
			backend = client
		case "gcs":
			client, err := storage.NewGCSClient(cmd.Context(), cfg.GCS)
			if err != nil {
				return err
			}
			backend = client
		default:
			return fmt.Errorf("ARTIFACTS_BACKEND must be minio or gcs, got %q", cfg.Artifacts.Backend)
		}

		store := storage.NewStorage(backend)
		if err := store.EnsureBucket(cmd.Context()); err != nil {
			return fmt.Errorf("ensure bucket: %w", err)
		}

		keys := []string{
			model.ClassifierKey,
			model.VectorizerKey,
			model.EncoderKey,
			model.ManifestKey,
		}
		for _, key := range keys {
			data, err := os.ReadFile(filepath.Join(dir, key))
			if err != nil {
				// The manifest is optional metadata; the rest are not.
				if key == model.ManifestKey && os.IsNotExist(err) {
					continue
				}
				return err
			}

			objectKey := path.Join(cfg.Artifacts.Prefix, key)
			if err := store.Put(cmd.Context(), objectKey, bytes.NewReader(data), int64(len(data)), "application/json"); err != nil {
				return fmt.Errorf("upload %s: %w", objectKey, err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "uploaded %s (%d bytes)\n", objectKey, len(data))
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(uploadArtifactsCmd)
}
