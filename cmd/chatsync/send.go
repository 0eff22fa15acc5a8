package main

import (
	"context"
	"fmt"
	"io"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/zulandar/chatsync/internal/models"
)

func newSendCmd() *cobra.Command {
	var (
		configPath string
		room       string
		discussion string
		files      []string
	)

	cmd := &cobra.Command{
		Use:   "send [text]",
		Short: "Send a message or media files to a conversation",
		Long:  "Sends a text message, or one media message per --file, to a room or discussion. The message is shown optimistically and reconciled with the server's copy.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSend(cmd, configPath, room, discussion, strings.Join(args, " "), files)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", defaultConfigPath, "path to chatsync config file")
	addContainerFlags(cmd, &room, &discussion)
	cmd.Flags().StringArrayVarP(&files, "file", "f", nil, "media file to upload (repeatable)")
	return cmd
}

func runSend(cmd *cobra.Command, configPath, room, discussion, text string, files []string) error {
	container, err := containerFlags(room, discussion)
	if err != nil {
		return err
	}
	if text == "" && len(files) == 0 {
		return fmt.Errorf("nothing to send: pass text or --file")
	}
	media, err := readMediaFiles(files)
	if err != nil {
		return err
	}

	a, err := loadApp(configPath)
	if err != nil {
		return err
	}
	a.store.SetActive(container)

	out := cmd.OutOrStdout()
	ctx := context.Background()

	if text != "" {
		msg, err := a.pipeline.SendMessage(ctx, container, text, nil)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "Sent message %s to %s\n", msg.UUID, container)
	}

	if len(media) > 0 {
		tty := isTerminal(out)
		sent, err := a.pipeline.SendMedias(ctx, container, media, func(pct *int) {
			printProgress(out, pct, tty)
		})
		for _, m := range sent {
			if m.Status == models.StatusSent {
				fmt.Fprintf(out, "Sent media %s to %s\n", m.UUID, container)
			}
		}
		if err != nil {
			return err
		}
	}
	return nil
}

// printProgress renders upload progress, in place on a terminal.
func printProgress(out io.Writer, pct *int, tty bool) {
	switch {
	case pct == nil && tty:
		fmt.Fprint(out, "\r\033[K")
	case pct == nil:
	case tty:
		fmt.Fprintf(out, "\r\033[KUploading... %d%%", *pct)
	default:
		fmt.Fprintf(out, "Uploading... %d%%\n", *pct)
	}
}

// readMediaFiles loads each path and sniffs its content type.
func readMediaFiles(paths []string) ([]models.MediaFile, error) {
	files := make([]models.MediaFile, 0, len(paths))
	for _, p := range paths {
		data, err := os.ReadFile(p)
		if err != nil {
			return nil, fmt.Errorf("read media %s: %w", p, err)
		}
		ct := mime.TypeByExtension(filepath.Ext(p))
		if ct == "" {
			ct = http.DetectContentType(data)
		}
		files = append(files, models.MediaFile{
			Name:        filepath.Base(p),
			ContentType: ct,
			Data:        data,
		})
	}
	return files, nil
}
