package ui

import (
	"fmt"
	"os/exec"
	"runtime"
	"strconv"
)

// NotificationSender delivers one desktop notification
type NotificationSender interface {
	Send(title, message string) error
}

// desktopSender shells out to the platform notifier
type desktopSender struct {
	goos string
}

func (d desktopSender) Send(title, message string) error {
	name, args, ok := desktopCommand(d.goos, title, message)
	if !ok {
		return fmt.Errorf("notifications unsupported on %s", d.goos)
	}
	return exec.Command(name, args...).Run()
}

// desktopCommand returns the command line that shows a notification on goos
func desktopCommand(goos, title, message string) (string, []string, bool) {
	switch goos {
	case "linux":
		return "notify-send", []string{"--app-name=imgharvest", title, message}, true
	case "darwin":
		script := fmt.Sprintf("display notification %s with title %s", strconv.Quote(message), strconv.Quote(title))
		return "osascript", []string{"-e", script}, true
	default:
		return "", nil, false
	}
}

// Notifier reports the end of a harvest on the console and the desktop
type Notifier struct {
	sender NotificationSender
}

// NewNotifier creates a notifier for the current platform. Platforms
// without a notifier only print.
func NewNotifier() *Notifier {
	if _, _, ok := desktopCommand(runtime.GOOS, "", ""); !ok {
		return &Notifier{}
	}
	return &Notifier{sender: desktopSender{goos: runtime.GOOS}}
}

// NewNotifierWithSender creates a notifier around a custom sender. A nil
// sender only prints.
func NewNotifierWithSender(sender NotificationSender) *Notifier {
	return &Notifier{sender: sender}
}

// notify prints the message and forwards it; delivery errors are ignored
func (n *Notifier) notify(color func(string) string, title, message string) {
	fmt.Printf("\n%s: %s\n", color(title), message)
	if n.sender != nil {
		_ = n.sender.Send(title, message)
	}
}

// HarvestFinished announces a completed run
func (n *Notifier) HarvestFinished(target string, saved, failed int) {
	msg := fmt.Sprintf("%d files saved from %s", saved, target)
	if failed > 0 {
		n.notify(Yellow, "Harvest finished", msg+fmt.Sprintf(", %d failed", failed))
		return
	}
	n.notify(Green, "Harvest finished", msg)
}

// HarvestFailed announces a run that ended early
func (n *Notifier) HarvestFailed(target string, err error) {
	n.notify(Red, "Harvest failed", fmt.Sprintf("%s: %v", target, err))
}
