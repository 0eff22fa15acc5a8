package main

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"github.com/zulandar/chatsync/internal/grouping"
	"github.com/zulandar/chatsync/internal/models"
)

func newLogCmd() *cobra.Command {
	var (
		configPath string
		room       string
		discussion string
		pages      int
	)

	cmd := &cobra.Command{
		Use:   "log",
		Short: "Print a conversation grouped by date and minute",
		Long:  "Loads the newest pages of a room or discussion and prints them grouped by date and minute.",
		RunE: func(cmd *cobra.Command, args []string) error {
			container, err := containerFlags(room, discussion)
			if err != nil {
				return err
			}
			a, err := loadApp(configPath)
			if err != nil {
				return err
			}
			a.store.SetActive(container)

			ctx := context.Background()
			cursor := ""
			for i := 0; i < pages; i++ {
				next, err := a.pipeline.LoadOlder(ctx, container, cursor)
				if err != nil {
					return err
				}
				if next == "" {
					break
				}
				cursor = next
			}

			printTree(cmd.OutOrStdout(), a.store.Tree())
			return nil
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", defaultConfigPath, "path to chatsync config file")
	addContainerFlags(cmd, &room, &discussion)
	cmd.Flags().IntVar(&pages, "pages", 1, "number of pages to load")
	return cmd
}

// printTree writes the grouped timeline as indented text.
func printTree(out io.Writer, tree grouping.Tree) {
	if len(tree.Dates) == 0 {
		fmt.Fprintln(out, "No messages.")
		return
	}
	for _, d := range tree.Dates {
		fmt.Fprintf(out, "%s\n", d.Date)
		for _, m := range d.Minutes {
			fmt.Fprintf(out, "  %s\n", m.Minute)
			for _, msg := range m.Messages {
				fmt.Fprintf(out, "    %s: %s%s\n", msg.Sender().Name, msg.Text, mediaSuffix(msg))
			}
		}
	}
}

func mediaSuffix(msg *models.Message) string {
	switch len(msg.Media) {
	case 0:
		return ""
	case 1:
		return " [1 file]"
	default:
		return fmt.Sprintf(" [%d files]", len(msg.Media))
	}
}
