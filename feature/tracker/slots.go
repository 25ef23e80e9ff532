package tracker

import (
	"errors"
	"fmt"

	"lobby-tracker/feature/tracker/journal"
	"lobby-tracker/feature/tracker/models"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// ErrSlotOrder marks a fatal invariant violation: an incoming slot's
// positional index does not match the stored slot number.
var ErrSlotOrder = errors.New("tracker: slot index does not match stored slot number")

// reconcileSlots applies an incoming slot template to the lobby. It returns
// true when any slot, join or count mutation was applied. Stale or absent
// templates are a no-op.
//
// Count changes are handled first: shrinking removes trailing slots (closing
// the joins of any occupied ones), growing appends open slots. The per-slot
// diff and all join movement then run as one transaction, so a failure in
// any sub-step leaves no partial state visible.
func (w *Worker) reconcileSlots(ev *journal.Event, lobby *models.GameLobby, st *journal.LobbyState) (bool, error) {
	if st.Slots == nil || !st.SlotsUpdatedAt.After(lobby.SlotsUpdatedAt) {
		return false, nil
	}
	ts := st.SlotsUpdatedAt

	if len(lobby.Slots) != len(st.Slots) {
		if len(lobby.Slots) > 0 {
			w.log.Warn("slot count changed",
				zap.String("src", ev.Feed),
				zap.String("lobby", w.ref(st.RecordID)),
				zap.Int("prev", len(lobby.Slots)),
				zap.Int("next", len(st.Slots)),
			)
		}
		if len(lobby.Slots) > len(st.Slots) {
			if err := w.removeTrailingSlots(ev, lobby, st); err != nil {
				return false, err
			}
		} else {
			for i := len(lobby.Slots); i < len(st.Slots); i++ {
				slot := models.LobbySlot{
					LobbyID:    lobby.ID,
					SlotNumber: i + 1,
					Team:       st.Slots[i].Team,
					Kind:       models.SlotOpen,
				}
				if err := w.db.Create(&slot).Error; err != nil {
					return false, err
				}
				lobby.Slots = append(lobby.Slots, slot)
			}
		}
	} else {
		changed := false
		for i := range st.Slots {
			if slotDiffers(&lobby.Slots[i], &st.Slots[i]) {
				changed = true
				break
			}
		}
		if !changed {
			return false, nil
		}
	}

	// occupant profiles are resolved before entering the transactional unit
	profiles := make([]*models.Profile, len(st.Slots))
	for i := range st.Slots {
		if st.Slots[i].Profile == nil {
			continue
		}
		p, err := w.profile(st.Slots[i].Profile, ts)
		if err != nil {
			return false, err
		}
		profiles[i] = p
	}

	err := w.db.Transaction(func(tx *gorm.DB) error {
		// joins provisionally marked as leaving, keyed by profile
		// identity; anything still here at the end genuinely departed
		departed := make(map[string]*models.PlayerJoin)

		for i := range st.Slots {
			in := &st.Slots[i]
			slot := &lobby.Slots[i]
			if i != slot.SlotNumber-1 {
				w.log.Error("slot order mismatch",
					zap.String("lobby", w.ref(st.RecordID)),
					zap.Int("index", i),
					zap.Int("slotNumber", slot.SlotNumber),
				)
				return ErrSlotOrder
			}
			if !slotDiffers(slot, in) {
				continue
			}

			incoming := profiles[i]
			if slot.Join != nil && (incoming == nil || slot.Join.ProfileID != incoming.ID) {
				departed[joinProfileKey(slot.Join)] = slot.Join
				slot.Join = nil
				slot.JoinID = nil
			}

			if slot.Join == nil && incoming != nil {
				key := profileKey(incoming.RealmID, incoming.BnetProfileID)
				if join, ok := departed[key]; ok {
					// pure slot swap within the batch
					slot.Join = join
					slot.JoinID = &join.ID
					delete(departed, key)
				} else if join := claimAssignedJoin(lobby, incoming.ID); join != nil {
					// player displaced mid-batch but not yet marked departed
					slot.Join = join
					slot.JoinID = &join.ID
				} else {
					join := &models.PlayerJoin{
						LobbyID:   lobby.ID,
						ProfileID: incoming.ID,
						Profile:   incoming,
						JoinedAt:  ts,
					}
					if err := tx.Omit("Profile").Create(join).Error; err != nil {
						return err
					}
					slot.Join = join
					slot.JoinID = &join.ID
				}
			}

			slot.Team = in.Team
			slot.Kind = in.Kind
			slot.Name = in.Name
			if incoming != nil {
				slot.ProfileID = &incoming.ID
				slot.Profile = incoming
			} else {
				slot.ProfileID = nil
				slot.Profile = nil
			}
			err := tx.Model(&models.LobbySlot{}).Where("id = ?", slot.ID).Updates(map[string]any{
				"team":       slot.Team,
				"kind":       slot.Kind,
				"name":       slot.Name,
				"profile_id": slot.ProfileID,
				"join_id":    slot.JoinID,
			}).Error
			if err != nil {
				return err
			}
		}

		if len(departed) > 0 {
			ids := make([]uint, 0, len(departed))
			for _, join := range departed {
				leftAt := ts
				join.LeftAt = &leftAt
				ids = append(ids, join.ID)
			}
			err := tx.Model(&models.PlayerJoin{}).Where("id IN ?", ids).
				Update("left_at", ts).Error
			if err != nil {
				return err
			}
		}

		lobby.SlotsUpdatedAt = ts
		return tx.Model(&models.GameLobby{}).Where("id = ?", lobby.ID).
			Update("slots_updated_at", ts).Error
	})
	if err != nil {
		return false, err
	}
	return true, nil
}

// removeTrailingSlots shrinks the lobby's slot list to the incoming count,
// closing the join of any removed slot that was still occupied.
func (w *Worker) removeTrailingSlots(ev *journal.Event, lobby *models.GameLobby, st *journal.LobbyState) error {
	removed := lobby.Slots[len(st.Slots):]
	lobby.Slots = lobby.Slots[:len(st.Slots)]

	slotIDs := make([]uint, 0, len(removed))
	var occupiedJoinIDs []uint
	for i := range removed {
		slotIDs = append(slotIDs, removed[i].ID)
		if removed[i].JoinID != nil {
			occupiedJoinIDs = append(occupiedJoinIDs, *removed[i].JoinID)
		}
	}

	if len(occupiedJoinIDs) > 0 {
		w.log.Warn("occupied slots removed",
			zap.String("src", ev.Feed),
			zap.String("lobby", w.ref(st.RecordID)),
			zap.Int("count", len(occupiedJoinIDs)),
		)
		err := w.db.Model(&models.PlayerJoin{}).Where("id IN ?", occupiedJoinIDs).
			Update("left_at", st.SlotsUpdatedAt).Error
		if err != nil {
			return err
		}
	}
	return w.db.Where("id IN ?", slotIDs).Delete(&models.LobbySlot{}).Error
}

// slotDiffers reports whether the stored slot deviates from the incoming one
// in kind, team, name or occupant identity.
func slotDiffers(slot *models.LobbySlot, in *journal.SlotState) bool {
	if slot.Kind != in.Kind || slot.Team != in.Team || slot.Name != in.Name {
		return true
	}
	switch {
	case in.Profile == nil:
		return slot.Profile != nil
	case slot.Profile == nil:
		return true
	default:
		return slot.Profile.RealmID != in.Profile.RealmID ||
			slot.Profile.BnetProfileID != in.Profile.ProfileID
	}
}

// claimAssignedJoin detaches and returns the join record of the given
// profile from whichever slot currently holds it, if any.
func claimAssignedJoin(lobby *models.GameLobby, profileRowID uint) *models.PlayerJoin {
	for i := range lobby.Slots {
		other := &lobby.Slots[i]
		if other.Join != nil && other.Join.ProfileID == profileRowID {
			join := other.Join
			other.Join = nil
			other.JoinID = nil
			return join
		}
	}
	return nil
}

func profileKey(realm uint8, profile uint32) string {
	return fmt.Sprintf("%d-%d", realm, profile)
}

func joinProfileKey(join *models.PlayerJoin) string {
	if join.Profile != nil {
		return profileKey(join.Profile.RealmID, join.Profile.BnetProfileID)
	}
	return fmt.Sprintf("row-%d", join.ProfileID)
}
