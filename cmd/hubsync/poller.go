package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/fatih/color"

	"contesthub/internal/model"
	"contesthub/internal/queue"
)

type notificationSource interface {
	VisibleNotifications() []model.Notification
}

// poller refreshes the stores on an interval and publishes every visible
// notification it has not published before.
type poller struct {
	refresh func(ctx context.Context)
	notes   notificationSource
	q       queue.Queue
	log     *slog.Logger

	seen map[string]bool
}

func newPoller(refresh func(ctx context.Context), notes notificationSource, q queue.Queue, log *slog.Logger) *poller {
	return &poller{refresh: refresh, notes: notes, q: q, log: log, seen: make(map[string]bool)}
}

// tick runs one refresh and returns how many notifications were published.
func (p *poller) tick(ctx context.Context) (int, error) {
	p.refresh(ctx)

	notes := p.notes.VisibleNotifications()
	published := 0
	// oldest first, so consumers print in arrival order
	for i := len(notes) - 1; i >= 0; i-- {
		n := notes[i]
		if p.seen[n.ID] {
			continue
		}
		msg, err := queue.NewMessage(queue.TypeNotification, n)
		if err != nil {
			return published, err
		}
		if err := p.q.Publish(ctx, msg); err != nil {
			return published, fmt.Errorf("publish notification %s: %w", n.ID, err)
		}
		p.seen[n.ID] = true
		published++
	}
	return published, nil
}

func (p *poller) run(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		n, err := p.tick(ctx)
		switch {
		case err != nil && ctx.Err() == nil:
			p.log.Warn("poll failed", "err", err)
		case n > 0:
			p.log.Debug("notifications published", "count", n)
		}

		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

var noteColors = map[model.NotificationType]*color.Color{
	model.NotifyInfo:    color.New(color.FgCyan),
	model.NotifySuccess: color.New(color.FgGreen),
	model.NotifyWarning: color.New(color.FgYellow),
	model.NotifyError:   color.New(color.FgRed, color.Bold),
}

// printNotifications writes every notification message from q to w until
// ctx is done.
func printNotifications(ctx context.Context, q queue.Queue, w io.Writer, log *slog.Logger) error {
	msgs, err := q.Consume(ctx)
	if err != nil {
		return fmt.Errorf("consume notifications: %w", err)
	}
	for msg := range msgs {
		if msg.Type != queue.TypeNotification {
			continue
		}
		var n model.Notification
		if err := msg.Decode(&n); err != nil {
			log.Warn("undecodable notification", "err", err)
			continue
		}
		c, ok := noteColors[n.Type]
		if !ok {
			c = noteColors[model.NotifyInfo]
		}
		fmt.Fprintf(w, "%s %s %s\n", n.Date.Local().Format("15:04:05"), c.Sprintf("%-7s", n.Type), n.Text)
	}
	return nil
}
