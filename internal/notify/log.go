package notify

import (
	"context"

	"github.com/rs/zerolog"
	"github.com/stemsi/exstem-proctor/internal/exam"
	"github.com/stemsi/exstem-proctor/internal/feed"
)

// LogNotifier writes every notification to the structured log.
type LogNotifier struct {
	log zerolog.Logger
}

// NewLogNotifier creates a LogNotifier.
func NewLogNotifier(log zerolog.Logger) *LogNotifier {
	return &LogNotifier{log: log.With().Str("component", "notifier").Logger()}
}

// Notify implements exam.Notifier.
func (l *LogNotifier) Notify(_ context.Context, n exam.Notification) {
	ev := l.log.Info()
	if n.Severity == exam.SeverityDestructive {
		ev = l.log.Warn()
	}
	ev.Str("kind", string(n.Kind)).
		Str("session_id", n.SessionID.String()).
		Str("user_id", n.UserID).
		Int("violations", n.ViolationCount).
		Msg(n.Title)
}

// FeedNotifier forwards notifications to the live monitor feed.
type FeedNotifier struct {
	feed feed.Feed
	log  zerolog.Logger
}

// NewFeedNotifier creates a FeedNotifier.
func NewFeedNotifier(f feed.Feed, log zerolog.Logger) *FeedNotifier {
	return &FeedNotifier{
		feed: f,
		log:  log.With().Str("component", "feed_notifier").Logger(),
	}
}

// Notify implements exam.Notifier.
func (f *FeedNotifier) Notify(ctx context.Context, n exam.Notification) {
	if n.Kind == exam.NotifyPenaltyLifted {
		return
	}
	if err := f.feed.Publish(ctx, EventFrom(n)); err != nil {
		f.log.Warn().Err(err).Str("kind", string(n.Kind)).Msg("Failed to publish monitor event")
	}
}

// EventFrom converts a notification into a monitor feed event.
func EventFrom(n exam.Notification) feed.Event {
	return feed.Event{
		Type:           string(n.Kind),
		Severity:       string(n.Severity),
		Title:          n.Title,
		Description:    n.Description,
		SessionID:      n.SessionID,
		AssessmentID:   n.AssessmentID,
		UserID:         n.UserID,
		State:          n.State,
		Score:          n.Score,
		ViolationCount: n.ViolationCount,
		Violation:      n.Violation,
		At:             n.At,
	}
}
