package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"gorm.io/gorm"

	"github.com/Skotchmaster/video_hosting/internal/models"
)

// ErrInvalidReference is returned by callers of Toggle when the target
// object does not exist; the engine itself never checks foreign
// existence so it stays reusable across predicate kinds.
var ErrInvalidReference = errors.New("invalid reference")

type RelationService struct {
	DB *gorm.DB
}

// Toggle flips the presence of the (subject, predicate, object) edge
// and reports the state after the flip. Delete-else-insert, each
// branch a single atomic statement; the unique index over the triple
// is the linearization point. A duplicate-key failure means a
// concurrent toggler inserted first, so this toggle applies after it
// by deleting on the retry.
func (s *RelationService) Toggle(ctx context.Context, subjectID uint, predicate models.Predicate, objectID uint) (bool, error) {
	for attempt := 0; attempt < 3; attempt++ {
		res := s.DB.WithContext(ctx).
			Where("subject_id = ? AND predicate = ? AND object_id = ?", subjectID, predicate, objectID).
			Delete(&models.RelationEdge{})
		if res.Error != nil {
			return false, res.Error
		}
		if res.RowsAffected > 0 {
			return false, nil
		}

		edge := models.RelationEdge{
			SubjectID: subjectID,
			Predicate: predicate,
			ObjectID:  objectID,
		}
		err := s.DB.WithContext(ctx).Create(&edge).Error
		if err == nil {
			return true, nil
		}
		if !errors.Is(err, gorm.ErrDuplicatedKey) {
			return false, err
		}
		// Lost the race to a concurrent insert; next loop deletes it.
	}
	return false, fmt.Errorf("toggle did not settle for %s edge %d->%d", predicate, subjectID, objectID)
}

// Exists reports edge presence from the same table Toggle mutates.
func (s *RelationService) Exists(ctx context.Context, subjectID uint, predicate models.Predicate, objectID uint) (bool, error) {
	var count int64
	err := s.DB.WithContext(ctx).Model(&models.RelationEdge{}).
		Where("subject_id = ? AND predicate = ? AND object_id = ?", subjectID, predicate, objectID).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// DropEdgesForObject removes every edge pointing at a deleted target.
func (s *RelationService) DropEdgesForObject(ctx context.Context, predicate models.Predicate, objectID uint) error {
	return s.DB.WithContext(ctx).
		Where("predicate = ? AND object_id = ?", predicate, objectID).
		Delete(&models.RelationEdge{}).Error
}

func uintKey(id uint) string {
	return strconv.FormatUint(uint64(id), 10)
}
