package tracker

import (
	"lobby-tracker/feature/tracker/journal"
	"lobby-tracker/feature/tracker/models"
)

// advanceStorage moves the feed's storage checkpoint to the event's cursor.
// The storage pair marks the last position whose effects are durably
// committed; duplicate suppression reads it on every event.
func (w *Worker) advanceStorage(ev *journal.Event) error {
	provider := w.providers[ev.Feed]
	pos := &provider.Position
	if pos.StorageFile >= ev.Cursor.Session && pos.StorageOffset >= ev.Cursor.Offset {
		return nil
	}
	pos.StorageFile = ev.Cursor.Session
	pos.StorageOffset = ev.Cursor.Offset
	return w.db.Model(&models.FeedPosition{}).
		Where("provider_id = ?", provider.ID).
		Updates(map[string]any{
			"storage_file":   pos.StorageFile,
			"storage_offset": pos.StorageOffset,
		}).Error
}

// advanceResuming moves the feed's resuming checkpoint to the source's
// resume pointer. The merge lookahead boundary is not the effect-commit
// boundary, so the two pairs advance independently.
func (w *Worker) advanceResuming(ev *journal.Event) error {
	cursor, ok := w.source.ResumePointer(ev.Feed)
	if !ok {
		return nil
	}
	provider := w.providers[ev.Feed]
	pos := &provider.Position
	if pos.ResumingFile >= cursor.Session && pos.ResumingOffset >= cursor.Offset {
		return nil
	}
	pos.ResumingFile = cursor.Session
	pos.ResumingOffset = cursor.Offset
	return w.db.Model(&models.FeedPosition{}).
		Where("provider_id = ?", provider.ID).
		Updates(map[string]any{
			"resuming_file":   pos.ResumingFile,
			"resuming_offset": pos.ResumingOffset,
		}).Error
}
