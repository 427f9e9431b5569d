package main

import (
	"archive/tar"
	"compress/gzip"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"grouphelper/internal/store"
)

func backupCmd() *cobra.Command {
	var outputPath string

	cmd := &cobra.Command{
		Use:   "backup",
		Short: "Create a backup of grouphelper data (database snapshot + config)",
		Long: `Creates a compressed .tar.gz archive containing a consistent snapshot of the
SQLite database (members, exchange rates, last update id) and the configuration
file. It is safe to run while the bot is running.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfgPath := resolveConfigPath()
			cfg, err := loadConfig(cmd.Context(), false)
			if err != nil {
				return err
			}

			if outputPath == "" {
				backupDir := filepath.Join(filepath.Dir(cfgPath), "backups")
				if err := os.MkdirAll(backupDir, 0o700); err != nil {
					return fmt.Errorf("cannot create backup directory: %w", err)
				}
				ts := time.Now().Format("20060102-150405")
				outputPath = filepath.Join(backupDir, fmt.Sprintf("grouphelper-backup-%s.tar.gz", ts))
			}

			tmpDir, err := os.MkdirTemp("", "grouphelper-backup-")
			if err != nil {
				return err
			}
			defer os.RemoveAll(tmpDir)

			snapshot := filepath.Join(tmpDir, filepath.Base(cfg.Store.DBPath))
			if err := snapshotDatabase(cmd.Context(), cfg.Store.DBPath, snapshot); err != nil {
				return err
			}
			files := []string{snapshot}
			if _, err := os.Stat(cfgPath); err == nil {
				files = append(files, cfgPath)
			}

			if err := createTarGz(outputPath, files); err != nil {
				return fmt.Errorf("backup failed: %w", err)
			}

			fmt.Printf("Backup created: %s\n", outputPath)
			for _, f := range files {
				size := int64(0)
				if info, err := os.Stat(f); err == nil {
					size = info.Size()
				}
				fmt.Printf("  - %s (%s)\n", filepath.Base(f), humanSize(size))
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&outputPath, "output", "o", "", "output file path (default: <config dir>/backups/grouphelper-backup-<timestamp>.tar.gz)")
	return cmd
}

func snapshotDatabase(ctx context.Context, dbPath, dst string) error {
	if _, err := os.Stat(dbPath); err != nil {
		return fmt.Errorf("database %s: %w", dbPath, err)
	}
	st, err := store.NewSQLiteStore(dbPath, logger)
	if err != nil {
		return err
	}
	defer st.Close()
	return st.Backup(ctx, dst)
}

// createTarGz creates a .tar.gz archive from the given files.
func createTarGz(outputPath string, files []string) error {
	outFile, err := os.OpenFile(outputPath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o600)
	if err != nil {
		return err
	}
	defer outFile.Close()

	gzWriter := gzip.NewWriter(outFile)
	defer gzWriter.Close()

	tarWriter := tar.NewWriter(gzWriter)
	defer tarWriter.Close()

	for _, filePath := range files {
		if err := addFileToTar(tarWriter, filePath); err != nil {
			return fmt.Errorf("add %s: %w", filePath, err)
		}
	}
	return nil
}

func addFileToTar(tw *tar.Writer, filePath string) error {
	file, err := os.Open(filePath)
	if err != nil {
		return err
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return err
	}

	header, err := tar.FileInfoHeader(info, "")
	if err != nil {
		return err
	}
	// Use just the base filename in the archive.
	header.Name = filepath.Base(filePath)

	if err := tw.WriteHeader(header); err != nil {
		return err
	}

	_, err = io.Copy(tw, file)
	return err
}

func humanSize(bytes int64) string {
	const (
		kb = 1024
		mb = 1024 * kb
		gb = 1024 * mb
	)
	switch {
	case bytes >= gb:
		return fmt.Sprintf("%.1f GB", float64(bytes)/float64(gb))
	case bytes >= mb:
		return fmt.Sprintf("%.1f MB", float64(bytes)/float64(mb))
	case bytes >= kb:
		return fmt.Sprintf("%.1f KB", float64(bytes)/float64(kb))
	default:
		return fmt.Sprintf("%d B", bytes)
	}
}
