package storage

import (
	"time"

	"gorm.io/datatypes"
)

// SnapshotModel is the GORM row holding one named snapshot.
type SnapshotModel struct {
	Name      string         `gorm:"primaryKey"`
	Data      datatypes.JSON `gorm:"type:jsonb;not null"`
	UpdatedAt time.Time      `gorm:"not null"`
}

func (SnapshotModel) TableName() string {
	return "snapshots"
}
