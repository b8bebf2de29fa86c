// Command transpo uploads and downloads end-to-end encrypted files against
// a Transpo server.
package main

import (
	"bufio"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/dexgs/transpo-go/client"
	"github.com/dexgs/transpo-go/transfer"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	var verbose bool
	root := &cobra.Command{
		Use:          "transpo",
		Short:        "End-to-end encrypted file sharing",
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			logrus.SetLevel(logrus.WarnLevel)
			if verbose {
				logrus.SetLevel(logrus.DebugLevel)
			}
		},
	}
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
	root.AddCommand(uploadCmd(), downloadCmd())
	return root
}

func uploadCmd() *cobra.Command {
	var (
		mime     string
		password string
		proxy    string
		days     int
		hours    int
		minutes  int
		limit    int
	)
	cmd := &cobra.Command{
		Use:   "upload <server-url> <file>",
		Short: "Encrypt and upload a file, printing its share link",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			serverURL, path := args[0], args[1]

			file, err := os.Open(path)
			if err != nil {
				return err
			}
			defer file.Close()
			info, err := file.Stat()
			if err != nil {
				return err
			}
			if !info.Mode().IsRegular() {
				return fmt.Errorf("%s is not a regular file", path)
			}

			registry := transfer.NewRegistry()
			uploader := client.NewUploader(client.Config{
				ServerURL: serverURL,
				Proxy:     proxy,
			}, registry)

			up, err := uploader.Upload(bufio.NewReader(file), client.UploadOptions{
				FileName:      filepath.Base(path),
				MIMEType:      mime,
				Days:          days,
				Hours:         hours,
				Minutes:       minutes,
				Password:      password,
				DownloadLimit: limit,
			})
			if err != nil {
				return err
			}

			fmt.Println(up.ShareLink)

			cancelOnInterrupt(up.Transfer)
			return up.Wait()
		},
	}
	cmd.Flags().StringVar(&mime, "mime", "", "MIME type (default application/octet-stream)")
	cmd.Flags().IntVar(&days, "days", 0, "days before the upload expires")
	cmd.Flags().IntVar(&hours, "hours", 0, "hours before the upload expires")
	cmd.Flags().IntVar(&minutes, "minutes", 0, "minutes before the upload expires")
	cmd.Flags().StringVar(&password, "password", "", "password protect downloads")
	cmd.Flags().IntVar(&limit, "limit", 0, "maximum number of downloads")
	cmd.Flags().StringVar(&proxy, "proxy", "", "SOCKS5 proxy address (host:port)")
	return cmd
}

func downloadCmd() *cobra.Command {
	var (
		password string
		output   string
		proxy    string
		force    bool
	)
	cmd := &cobra.Command{
		Use:   "download <share-link>",
		Short: "Download and decrypt a shared file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			registry := transfer.NewRegistry()
			downloader := client.NewDownloader(client.Config{Proxy: proxy}, registry)

			dl, err := downloader.Fetch(cmd.Context(), args[0], password)
			if err != nil {
				return err
			}

			path := resolveOutputPath(output, dl.Name)
			file, err := openOutput(path, force)
			if err != nil {
				dl.Body.Close()
				return err
			}
			defer file.Close()

			fmt.Println(path)

			cancelOnInterrupt(dl.Transfer)
			return dl.Save(file)
		},
	}
	cmd.Flags().StringVar(&password, "password", "", "password for protected uploads")
	cmd.Flags().StringVarP(&output, "output", "o", "", "output file or directory")
	cmd.Flags().BoolVarP(&force, "force", "f", false, "overwrite an existing file")
	cmd.Flags().StringVar(&proxy, "proxy", "", "SOCKS5 proxy address (host:port)")
	return cmd
}

// resolveOutputPath chooses where the download lands: the decoded name in
// the working directory by default, inside output when it is a directory,
// or output itself otherwise.
func resolveOutputPath(output, name string) string {
	if output == "" {
		return name
	}
	if info, err := os.Stat(output); err == nil && info.IsDir() {
		return filepath.Join(output, name)
	}
	return output
}

// openOutput creates the output file, refusing to overwrite an existing
// file unless forced.
func openOutput(path string, force bool) (*os.File, error) {
	if force {
		return os.Create(path)
	}
	return os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
}

// cancelOnInterrupt cancels the transfer on the first interrupt signal so
// the server learns of the abandoned transfer before the process exits.
func cancelOnInterrupt(tr *transfer.Transfer) {
	signalCh := make(chan os.Signal, 1)
	signal.Notify(signalCh, os.Interrupt)
	go func() {
		<-signalCh
		tr.Cancel()
	}()
}
