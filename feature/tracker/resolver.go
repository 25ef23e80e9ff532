package tracker

import (
	"errors"
	"fmt"
	"time"

	"lobby-tracker/feature/tracker/journal"
	"lobby-tracker/feature/tracker/models"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// profile resolves or lazily creates the profile row for a slot occupant.
// Name and discriminator are only overwritten by strictly newer data.
func (w *Worker) profile(ref *journal.ProfileRef, updatedAt time.Time) (*models.Profile, error) {
	key := profileKey(ref.RealmID, ref.ProfileID)
	p, ok := w.profiles[key]
	if !ok {
		p = &models.Profile{}
		err := w.db.
			Where("region_id = ? AND realm_id = ? AND bnet_profile_id = ?",
				uint8(w.region), ref.RealmID, ref.ProfileID).
			First(p).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			at := updatedAt
			p = &models.Profile{
				RegionID:      uint8(w.region),
				RealmID:       ref.RealmID,
				BnetProfileID: ref.ProfileID,
				Name:          ref.Name,
				Discriminator: ref.Discriminator,
				UpdatedAt:     &at,
			}
			if err := w.db.Create(p).Error; err != nil {
				return nil, err
			}
		} else if err != nil {
			return nil, err
		}
		w.profiles[key] = p
	}

	if (p.Name != ref.Name || p.Discriminator != ref.Discriminator) &&
		(p.UpdatedAt == nil || p.UpdatedAt.Before(updatedAt)) {
		w.log.Debug("profile renamed",
			zap.String("from", fmt.Sprintf("%s#%d", p.Name, p.Discriminator)),
			zap.String("to", fmt.Sprintf("%s#%d", ref.Name, ref.Discriminator)),
		)
		at := updatedAt
		p.Name = ref.Name
		p.Discriminator = ref.Discriminator
		p.UpdatedAt = &at
		err := w.db.Model(&models.Profile{}).Where("id = ?", p.ID).Updates(map[string]any{
			"name":          p.Name,
			"discriminator": p.Discriminator,
			"updated_at":    at,
		}).Error
		if err != nil {
			return nil, err
		}
	}
	return p, nil
}

// documentVersion resolves or creates the document version referenced by a
// handle and returns its row id. A zero handle id yields no reference. The
// document's current version is a monotonic watermark: it only moves to an
// equal-or-greater version, never backwards.
func (w *Worker) documentVersion(h journal.DocumentHandle, typ models.DocumentType, categoryName string) (*uint, error) {
	if h.ID == 0 {
		return nil, nil
	}
	key := fmt.Sprintf("%d/%d.%d", h.ID, h.MajorVersion, h.MinorVersion)
	if id, ok := w.docVersions[key]; ok {
		return &id, nil
	}

	var doc models.Document
	err := w.db.Where("region_id = ? AND bnet_id = ?", uint8(w.region), h.ID).First(&doc).Error
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		major, minor := h.MajorVersion, h.MinorVersion
		doc = models.Document{
			RegionID:            uint8(w.region),
			BnetID:              h.ID,
			Type:                typ,
			IsArcade:            h.IsArcade,
			Name:                h.Name,
			CurrentMajorVersion: &major,
			CurrentMinorVersion: &minor,
		}
		if categoryName != "" {
			category, err := w.mapCategory(categoryName)
			if err != nil {
				return nil, err
			}
			doc.CategoryID = &category.ID
		}
		if err := w.db.Create(&doc).Error; err != nil {
			return nil, err
		}
	case err != nil:
		return nil, err
	default:
		updates := make(map[string]any)
		bump := doc.CurrentMajorVersion == nil || doc.CurrentMinorVersion == nil ||
			h.MajorVersion > *doc.CurrentMajorVersion ||
			(h.MajorVersion == *doc.CurrentMajorVersion && h.MinorVersion >= *doc.CurrentMinorVersion)
		if bump {
			major, minor := h.MajorVersion, h.MinorVersion
			doc.CurrentMajorVersion = &major
			doc.CurrentMinorVersion = &minor
			updates["current_major_version"] = major
			updates["current_minor_version"] = minor
		}
		if h.Name != "" && doc.Name == "" {
			doc.Name = h.Name
			updates["name"] = h.Name
		}
		if len(updates) > 0 {
			err := w.db.Model(&models.Document{}).Where("id = ?", doc.ID).Updates(updates).Error
			if err != nil {
				return nil, err
			}
		}
	}

	var version models.DocumentVersion
	err = w.db.
		Where("document_id = ? AND major_version = ? AND minor_version = ?",
			doc.ID, h.MajorVersion, h.MinorVersion).
		First(&version).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		version = models.DocumentVersion{
			DocumentID:   doc.ID,
			MajorVersion: h.MajorVersion,
			MinorVersion: h.MinorVersion,
			IconHash:     h.IconHash,
		}
		if err := w.db.Create(&version).Error; err != nil {
			return nil, err
		}
	} else if err != nil {
		return nil, err
	}

	w.docVersions[key] = version.ID
	id := version.ID
	return &id, nil
}

// mapCategory resolves or creates a map category by name.
func (w *Worker) mapCategory(name string) (*models.MapCategory, error) {
	var category models.MapCategory
	err := w.db.Where("name = ?", name).First(&category).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		category = models.MapCategory{Name: name}
		if err := w.db.Create(&category).Error; err != nil {
			return nil, err
		}
	} else if err != nil {
		return nil, err
	}
	return &category, nil
}
