package notify

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/exec"
	"strings"
)

// CommandSink runs a shell command template for each notification, e.g.
// "notify-send {{.Title}} {{.Body}}". Placeholders are replaced with
// shell-quoted values, so templates must not quote them again. Inside
// tmux the title is also shown with display-message.
type CommandSink struct {
	Command string
}

// Name implements Sink.
func (c *CommandSink) Name() string { return "command" }

// Send implements Sink.
func (c *CommandSink) Send(ctx context.Context, n Notification) error {
	if os.Getenv("TMUX") != "" {
		if err := exec.CommandContext(ctx, "tmux", "display-message", n.Title+": "+n.Body).Run(); err != nil {
			log.Printf("notify: tmux display-message failed: %v", err)
		}
	}
	if c.Command == "" {
		return nil
	}
	return runShell(ctx, templateNotification(c.Command, n))
}

// CommandSound plays the audio cue by running a shell command, e.g.
// "paplay /usr/share/sounds/freedesktop/stereo/message.oga".
type CommandSound struct {
	Command string
}

// Play implements SoundPlayer.
func (c *CommandSound) Play(ctx context.Context) error {
	if c.Command == "" {
		return nil
	}
	return runShell(ctx, c.Command)
}

func runShell(ctx context.Context, cmdStr string) error {
	cmd := exec.CommandContext(ctx, "sh", "-c", cmdStr)
	if out, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("command failed: %w: %s", err, strings.TrimSpace(string(out)))
	}
	return nil
}

// templateNotification replaces placeholders in the command template with
// shell-quoted notification values.
func templateNotification(command string, n Notification) string {
	r := strings.NewReplacer(
		"{{.Title}}", shellQuote(n.Title),
		"{{.Body}}", shellQuote(n.Body),
		"{{.Image}}", shellQuote(n.Image),
	)
	return r.Replace(command)
}

func shellQuote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}
