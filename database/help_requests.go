package database

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/Raytar/labhelp/models"
)

// RecordRequest opens a journal record for req. A record still open for the
// same group is closed as resubmitted.
func (db *Database) RecordRequest(req models.HelpRequest) error {
	return db.conn.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.HelpRecord{}).Where("group_name = ? AND done = ?", req.Group, false).Updates(map[string]any{
			"done":    true,
			"done_at": db.now(),
			"reason":  models.ReasonResubmitted,
		}).Error; err != nil {
			db.log.Errorln("Failed to close previous help record:", err)
			return err
		}
		record := &models.HelpRecord{
			RecordID:    uuid.NewString(),
			Group:       req.Group,
			Description: req.Description,
			RequestedAt: req.Time,
		}
		record.CreatedAt = db.now()
		if err := tx.Create(record).Error; err != nil {
			db.log.Errorln("Failed to create help record:", err)
			return err
		}
		return nil
	})
}

// RecordClaim marks the open record of a.Group as claimed by a.TA. If this
// process never saw the request, a claimed record is created for it.
func (db *Database) RecordClaim(a models.Assignment) error {
	return db.conn.Transaction(func(tx *gorm.DB) error {
		record, err := openRecord(tx, a.Group)
		if errors.Is(err, gorm.ErrRecordNotFound) {
			record = &models.HelpRecord{
				RecordID:    uuid.NewString(),
				Group:       a.Group,
				Description: a.Description,
				RequestedAt: a.Time,
			}
			record.CreatedAt = db.now()
		} else if err != nil {
			db.log.Errorln("Failed to get help record from DB:", err)
			return err
		}
		record.Claimed = true
		record.ClaimedAt = db.now()
		record.AssistantName = a.TA
		if err := tx.Save(record).Error; err != nil {
			db.log.Errorln("Failed to save help record:", err)
			return err
		}
		return nil
	})
}

// RecordResolved closes the open record of group as helped.
func (db *Database) RecordResolved(group string) error {
	res := db.conn.Model(&models.HelpRecord{}).Where("group_name = ? AND done = ?", group, false).Updates(map[string]any{
		"done":    true,
		"done_at": db.now(),
		"reason":  models.ReasonHelped,
	})
	if res.Error != nil {
		db.log.Errorln("Failed to resolve help record:", res.Error)
		return res.Error
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("no open help record for %s", group)
	}
	return nil
}

// History returns every journal record, oldest first.
func (db *Database) History() (records []*models.HelpRecord, err error) {
	err = db.conn.Order("created_at asc").Order("id asc").Find(&records).Error
	if err != nil {
		db.log.Errorln("Failed to get help records from DB:", err)
	}
	return
}

// WaitingStats returns the number of claimed records and the mean time they
// waited between being recorded and being claimed.
func (db *Database) WaitingStats() (count int, mean time.Duration, err error) {
	var records []*models.HelpRecord
	if err := db.conn.Where("claimed = ?", true).Find(&records).Error; err != nil {
		db.log.Errorln("Failed to get claimed help records from DB:", err)
		return 0, 0, err
	}
	if len(records) == 0 {
		return 0, 0, nil
	}
	var total time.Duration
	for _, r := range records {
		total += r.ClaimedAt.Sub(r.CreatedAt)
	}
	return len(records), total / time.Duration(len(records)), nil
}

func openRecord(tx *gorm.DB, group string) (*models.HelpRecord, error) {
	var record models.HelpRecord
	if err := tx.Where("group_name = ? AND done = ?", group, false).Order("created_at desc").First(&record).Error; err != nil {
		return nil, err
	}
	return &record, nil
}
