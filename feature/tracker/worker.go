package tracker

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sync/atomic"
	"time"

	"lobby-tracker/core/logger"
	"lobby-tracker/feature/tracker/journal"
	"lobby-tracker/feature/tracker/models"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Worker consumes one region's journal feeds and reconciles them into the
// store. Open, Work and Close form its lifecycle; Close may be called from
// another goroutine (the signal handler), everything else runs on the Work
// goroutine.
type Worker struct {
	region models.RegionID
	db     *gorm.DB
	log    *zap.Logger

	source    journal.Source
	providers map[string]*models.FeedProvider

	// process-lifetime identity caches; lobbies are evicted on terminal
	// reconciliation, profiles and document versions are not (see DESIGN.md)
	lobbies     map[uint32]*models.GameLobby
	profiles    map[string]*models.Profile
	docVersions map[string]uint

	// lobby row ids flagged as reopen candidates, pending confirmation
	reopenCandidates map[uint]struct{}

	closing atomic.Bool
}

// New creates a worker for one region. The database connection must not be
// shared with another worker.
func New(region models.RegionID, db *gorm.DB, log *zap.Logger) *Worker {
	return &Worker{
		region: region,
		db:     db,
		log: logger.ForRegion(log, region.Code()).
			With(zap.String("worker", uuid.NewString()[:8])),
		lobbies:          make(map[uint32]*models.GameLobby),
		profiles:         make(map[string]*models.Profile),
		docVersions:      make(map[string]uint),
		reopenCandidates: make(map[uint]struct{}),
	}
}

// Open loads the region's enabled feed providers and seeds the journal
// source from each provider's resuming checkpoint.
func (w *Worker) Open(ctx context.Context, open journal.OpenFunc) error {
	var region models.Region
	if err := w.db.WithContext(ctx).First(&region, uint8(w.region)).Error; err != nil {
		return fmt.Errorf("load region %d: %w", w.region, err)
	}

	var providers []models.FeedProvider
	err := w.db.WithContext(ctx).
		Preload("Position").
		Where("region_id = ? AND enabled = ?", uint8(w.region), true).
		Find(&providers).Error
	if err != nil {
		return fmt.Errorf("load feed providers: %w", err)
	}

	w.providers = make(map[string]*models.FeedProvider, len(providers))
	seeds := make([]journal.FeedSeed, 0, len(providers))
	for i := range providers {
		p := &providers[i]
		feed := fmt.Sprintf("%s-%s", p.Name, region.Code)
		w.providers[feed] = p
		seeds = append(seeds, journal.FeedSeed{
			Name: feed,
			// resume from the session file only; replayed effects within
			// it are dropped by the storage checkpoint
			Cursor: journal.Cursor{Session: p.Position.ResumingFile},
		})
	}

	source, err := open(seeds)
	if err != nil {
		return fmt.Errorf("open journal source: %w", err)
	}
	w.source = source

	w.log.Info("worker opened", zap.Int("feeds", len(seeds)))
	return nil
}

// Work runs the consume loop until the source is exhausted or Close is
// requested. Any store or source fault aborts the loop.
func (w *Worker) Work(ctx context.Context) error {
	for !w.closing.Load() {
		ev, err := w.source.Next(ctx)
		if errors.Is(err, io.EOF) || errors.Is(err, journal.ErrClosed) {
			break
		}
		if err != nil {
			return err
		}

		provider, ok := w.providers[ev.Feed]
		if !ok {
			w.log.Warn("event from unknown feed", zap.String("src", ev.Feed))
			continue
		}
		pos := &provider.Position
		if ev.Cursor.Session <= pos.StorageFile && ev.Cursor.Offset < pos.StorageOffset {
			// already committed before the last crash
			continue
		}

		switch p := ev.Payload.(type) {
		case journal.NewLobby:
			err = w.onNewLobby(ev, &p.Lobby)
		case journal.CloseLobby:
			if err = w.onCloseLobby(ev, &p.Lobby); err == nil {
				err = w.advanceResuming(ev)
			}
		case journal.UpdateLobbySnapshot:
			err = w.onUpdateSnapshot(ev, &p.Lobby)
		case journal.UpdateLobbySlots:
			err = w.onUpdateSlots(ev, &p.Lobby)
		case journal.UpdateLobbyList:
			err = w.advanceStorage(ev)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

// Close requests a graceful drain: the loop finishes the in-flight event and
// stops. A second Close while the first is still draining forces process
// termination after a short grace delay, as a safety valve against a stuck
// store round-trip.
func (w *Worker) Close() {
	if !w.closing.CompareAndSwap(false, true) {
		w.log.Error("forcing termination")
		time.Sleep(time.Second)
		os.Exit(1)
	}
	if w.source != nil {
		_ = w.source.Close()
	}
}

// CloseStore releases the worker's private connection pool. The supervisor
// calls it once the work loop has drained; the pool is never shared.
func (w *Worker) CloseStore() error {
	sqlDB, err := w.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// Region returns the worker's region.
func (w *Worker) Region() models.RegionID {
	return w.region
}

func (w *Worker) onNewLobby(ev *journal.Event, st *journal.LobbyState) error {
	mapVer, err := w.documentVersion(st.Map, models.DocumentMap, st.MapVariantCategory)
	if err != nil {
		return err
	}
	extVer, err := w.documentVersion(st.ExtMod, models.DocumentExtensionMod, "")
	if err != nil {
		return err
	}
	multiVer, err := w.documentVersion(st.MultiMod, models.DocumentExtensionMod, "")
	if err != nil {
		return err
	}

	lobby := &models.GameLobby{
		RegionID:     uint8(w.region),
		BnetBucketID: st.BucketID,
		BnetRecordID: st.RecordID,

		CreatedAt:         st.CreatedAt,
		SnapshotUpdatedAt: st.SnapshotUpdatedAt,
		Status:            models.LobbyOpen,

		LobbyTitle:       st.Name,
		HostName:         st.HostName,
		SlotsHumansTaken: st.HumansTaken,
		SlotsHumansTotal: st.HumansTotal,

		MapBnetID:       st.Map.ID,
		MapMajorVersion: st.Map.MajorVersion,
		MapMinorVersion: st.Map.MinorVersion,
		MapVariantIndex: st.MapVariantIndex,
		MapVariantMode:  st.MapVariantMode,

		MapDocumentVersionID:      mapVer,
		ExtModDocumentVersionID:   extVer,
		MultiModDocumentVersionID: multiVer,
	}
	if st.ExtMod.ID != 0 {
		lobby.ExtModBnetID = &st.ExtMod.ID
		lobby.ExtModMajorVersion = &st.ExtMod.MajorVersion
		lobby.ExtModMinorVersion = &st.ExtMod.MinorVersion
	}
	if st.MultiMod.ID != 0 {
		lobby.MultiModBnetID = &st.MultiMod.ID
		lobby.MultiModMajorVersion = &st.MultiMod.MajorVersion
		lobby.MultiModMinorVersion = &st.MultiMod.MinorVersion
	}

	err = w.db.Create(lobby).Error
	if err == nil {
		lobby.Slots = nil
		w.lobbies[st.RecordID] = lobby
		w.log.Info("NEW",
			zap.String("src", ev.Feed),
			zap.String("lobby", w.ref(st.RecordID)),
			zap.String("map", st.Map.Name),
		)
		return nil
	}
	if !errors.Is(err, gorm.ErrDuplicatedKey) {
		return err
	}

	// a closed lobby reappearing under the same (bucket, record) pair;
	// flag it and wait for the matching close event before touching data
	existing, err := w.getLobby(st)
	if err != nil {
		return err
	}
	if existing.Status != models.LobbyOpen {
		w.reopenCandidates[existing.ID] = struct{}{}
		w.log.Debug("lobby reappeared",
			zap.String("src", ev.Feed),
			zap.String("lobby", w.ref(st.RecordID)),
			zap.Duration("snapshotLag", st.SnapshotUpdatedAt.Sub(existing.SnapshotUpdatedAt)),
		)
	}
	return nil
}

func (w *Worker) onUpdateSnapshot(ev *journal.Event, st *journal.LobbyState) error {
	lobby, err := w.getLobby(st)
	if err != nil {
		return err
	}
	if lobby.SnapshotUpdatedAt.After(st.SnapshotUpdatedAt) {
		return nil
	}
	// late data for a closed lobby is only resolved retroactively by the
	// close event, never applied eagerly
	if lobby.Status != models.LobbyOpen {
		return nil
	}

	lobby.LobbyTitle = st.Name
	lobby.HostName = st.HostName
	lobby.SlotsHumansTaken = st.HumansTaken
	lobby.SlotsHumansTotal = st.HumansTotal
	lobby.SnapshotUpdatedAt = st.SnapshotUpdatedAt
	return w.saveLobby(lobby,
		"lobby_title", "host_name", "slots_humans_taken", "slots_humans_total", "snapshot_updated_at")
}

func (w *Worker) onUpdateSlots(ev *journal.Event, st *journal.LobbyState) error {
	lobby, err := w.getLobby(st)
	if err != nil {
		return err
	}
	changed, err := w.reconcileSlots(ev, lobby, st)
	if err != nil || !changed {
		return err
	}
	w.log.Info("slots updated",
		zap.String("src", ev.Feed),
		zap.String("lobby", w.ref(st.RecordID)),
	)

	if _, ok := w.reopenCandidates[lobby.ID]; ok {
		// a live slot update proves the lobby is genuinely open again
		w.log.Info("lobby reopened",
			zap.String("src", ev.Feed),
			zap.String("lobby", w.ref(st.RecordID)),
		)
		lobby.Status = models.LobbyOpen
		lobby.ClosedAt = nil
		lobby.SnapshotUpdatedAt = st.SnapshotUpdatedAt
		lobby.LobbyTitle = st.Name
		lobby.HostName = st.HostName
		lobby.SlotsHumansTaken = st.HumansTaken
		lobby.SlotsHumansTotal = st.HumansTotal
		if err := w.saveLobby(lobby,
			"status", "closed_at", "snapshot_updated_at",
			"lobby_title", "host_name", "slots_humans_taken", "slots_humans_total"); err != nil {
			return err
		}
		delete(w.reopenCandidates, lobby.ID)
	}
	return nil
}

func (w *Worker) onCloseLobby(ev *journal.Event, st *journal.LobbyState) error {
	lobby, err := w.getLobby(st)
	if err != nil {
		return err
	}

	// the reappearance turned out to be spurious: the close event of the
	// original instance simply arrived late; discard without mutation
	if _, ok := w.reopenCandidates[lobby.ID]; ok {
		delete(w.reopenCandidates, lobby.ID)
		delete(w.lobbies, st.RecordID)
		return nil
	}

	if lobby.Status != models.LobbyOpen {
		if lobby.Status == models.LobbyUnknown && st.Status != models.LobbyUnknown {
			w.log.Warn("reopening lobby with unresolved status",
				zap.String("src", ev.Feed),
				zap.String("lobby", w.ref(st.RecordID)),
			)
			lobby.ClosedAt = nil
			lobby.Status = models.LobbyOpen
			lobby.SnapshotUpdatedAt = st.SnapshotUpdatedAt
			lobby.LobbyTitle = st.Name
			lobby.HostName = st.HostName
			lobby.SlotsHumansTaken = st.HumansTaken
			lobby.SlotsHumansTotal = st.HumansTotal
			if err := w.saveLobby(lobby,
				"closed_at", "status", "snapshot_updated_at",
				"lobby_title", "host_name", "slots_humans_taken", "slots_humans_total"); err != nil {
				return err
			}
		} else {
			if lobby.ClosedAt != nil && !lobby.ClosedAt.Equal(st.ClosedAt) {
				w.log.Debug("close event for lobby with determined state",
					zap.String("src", ev.Feed),
					zap.String("lobby", w.ref(st.RecordID)),
					zap.Duration("closeLag", lobby.ClosedAt.Sub(st.ClosedAt)),
				)
			}
			delete(w.lobbies, st.RecordID)
			return nil
		}
	}

	if _, err := w.reconcileSlots(ev, lobby, st); err != nil {
		return err
	}

	// lobbies that ended without starting do not retain per-slot history
	if st.Status != models.LobbyStarted && len(lobby.Slots) > 0 {
		err := w.db.Model(&models.PlayerJoin{}).
			Where("lobby_id = ? AND left_at IS NULL", lobby.ID).
			Update("left_at", st.ClosedAt).Error
		if err != nil {
			return err
		}
		err = w.db.Where("lobby_id = ?", lobby.ID).Delete(&models.LobbySlot{}).Error
		if err != nil {
			return err
		}
	}

	closedAt := st.ClosedAt
	lobby.ClosedAt = &closedAt
	lobby.Status = st.Status
	if err := w.saveLobby(lobby, "closed_at", "status"); err != nil {
		return err
	}
	delete(w.lobbies, st.RecordID)
	w.log.Info("CLOSED",
		zap.String("src", ev.Feed),
		zap.String("lobby", w.ref(st.RecordID)),
		zap.Time("closedAt", st.ClosedAt),
		zap.String("status", string(st.Status)),
	)
	return nil
}

// getLobby returns the cached lobby or loads it with its slots, slot
// profiles and active join records.
func (w *Worker) getLobby(st *journal.LobbyState) (*models.GameLobby, error) {
	if lobby, ok := w.lobbies[st.RecordID]; ok {
		return lobby, nil
	}
	var lobby models.GameLobby
	err := w.db.
		Preload("Slots", func(tx *gorm.DB) *gorm.DB { return tx.Order("slot_number") }).
		Preload("Slots.Profile").
		Preload("Slots.Join").
		Preload("Slots.Join.Profile").
		Where("region_id = ? AND bnet_bucket_id = ? AND bnet_record_id = ?",
			uint8(w.region), st.BucketID, st.RecordID).
		First(&lobby).Error
	if err != nil {
		return nil, fmt.Errorf("load lobby %s: %w", w.ref(st.RecordID), err)
	}
	w.lobbies[st.RecordID] = &lobby
	return &lobby, nil
}

// saveLobby persists the named columns from the in-memory lobby row.
func (w *Worker) saveLobby(lobby *models.GameLobby, cols ...string) error {
	return w.db.Model(lobby).Select(cols).Updates(lobby).Error
}

func (w *Worker) ref(recordID uint32) string {
	return fmt.Sprintf("%s#%d", w.region.Code(), recordID)
}
