package main

import (
	"fmt"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/tunis-skies/flightwatch/internal/fetcher"
)

var (
	importRemote string
	importLocal  string
)

var importCmd = &cobra.Command{
	Use:   "import-ftp",
	Short: "Download the published SQLite database from the FTP mirror",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cfg.Validate("import"); err != nil {
			return err
		}

		remote := importRemote
		if remote == "" {
			remote = cfg.FTP.RemotePath
		}
		if remote == "" {
			return eris.New("remote path is required (--remote or FLIGHTWATCH_FTP_REMOTE_PATH)")
		}
		local := importLocal
		if local == "" {
			local = cfg.Store.Path
		}

		f := fetcher.NewFTPFetcher(fetcher.FTPOptions{
			Host:     cfg.FTP.Host,
			User:     cfg.FTP.User,
			Password: cfg.FTP.Password,
			Timeout:  30 * time.Second,
		})

		n, err := f.DownloadToFile(cmd.Context(), remote, local)
		if err != nil {
			return err
		}

		fmt.Printf("downloaded %s to %s (%d bytes)\n", remote, local, n)
		return nil
	},
}

func init() {
	importCmd.Flags().StringVar(&importRemote, "remote", "", "remote file path (default from config)")
	importCmd.Flags().StringVar(&importLocal, "local", "", "local destination (default store path)")
	rootCmd.AddCommand(importCmd)
}
