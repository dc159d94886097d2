package chat

import (
	"context"
	"time"

	"github.com/Sumit771/1-2-1/pkg/log"
)

// FileRemover physically deletes the file behind an image reference.
type FileRemover interface {
	Remove(ctx context.Context, ref string) error
}

// OrphanCleaner deletes stored files older than a given age, regardless
// of whether anything still tracks them.
type OrphanCleaner interface {
	CleanupOlderThan(ctx context.Context, age time.Duration) (int, error)
}

// Reaper periodically reconciles expired state: expired image files are
// deleted, expired messages compacted away, and orphaned uploads removed.
type Reaper struct {
	images    *ImageTracker
	messages  *MessageStore
	rooms     *RoomRegistry
	presence  *PresenceTracker
	files     FileRemover
	interval  time.Duration
	orphanAge time.Duration
}

type ReaperConfig struct {
	Interval time.Duration
	// OrphanAge enables orphan cleanup when positive and files implements
	// OrphanCleaner.
	OrphanAge time.Duration
}

func NewReaper(images *ImageTracker, messages *MessageStore, rooms *RoomRegistry, presence *PresenceTracker, files FileRemover, cfg ReaperConfig) *Reaper {
	if cfg.Interval <= 0 {
		cfg.Interval = 5 * time.Minute
	}
	return &Reaper{
		images:    images,
		messages:  messages,
		rooms:     rooms,
		presence:  presence,
		files:     files,
		interval:  cfg.Interval,
		orphanAge: cfg.OrphanAge,
	}
}

// Run sweeps on every tick until ctx is cancelled.
func (r *Reaper) Run(ctx context.Context) error {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	l := log.Ctx(ctx)
	l.Info().Dur("interval", r.interval).Msg("reaper started")

	for {
		select {
		case <-ctx.Done():
			l.Info().Msg("reaper stopped")
			return nil
		case <-ticker.C:
			r.Sweep(ctx)
		}
	}
}

// SweepResult summarises one reaper tick.
type SweepResult struct {
	ImagesExpired     int
	ImagesDeleted     int
	MessagesCompacted int
	OrphansDeleted    int
}

// Sweep runs a single reconciliation pass. Failures are logged and never
// stop the pass.
func (r *Reaper) Sweep(ctx context.Context) SweepResult {
	l := log.Ctx(ctx)
	var res SweepResult

	expired := r.images.SweepExpired()
	res.ImagesExpired = len(expired)
	for _, ref := range expired {
		if r.files == nil {
			break
		}
		if err := r.files.Remove(ctx, ref); err != nil {
			l.Warn().Err(err).Str("image", ref).Msg("reaper: failed to delete expired image")
			continue
		}
		res.ImagesDeleted++
	}

	res.MessagesCompacted = r.messages.Compact()

	if cleaner, ok := r.files.(OrphanCleaner); ok && r.orphanAge > 0 {
		n, err := cleaner.CleanupOlderThan(ctx, r.orphanAge)
		if err != nil {
			l.Error().Err(err).Msg("reaper: orphan cleanup failed")
		}
		res.OrphansDeleted = n
	}

	l.Info().
		Int("active_rooms", r.rooms.Count()).
		Int("online_users", r.presence.OnlineCount()).
		Int("images_expired", res.ImagesExpired).
		Int("images_deleted", res.ImagesDeleted).
		Int("messages_compacted", res.MessagesCompacted).
		Int("orphans_deleted", res.OrphansDeleted).
		Msg("[stats] reaper sweep")
	return res
}
