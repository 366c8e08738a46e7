package models

import (
	"time"

	"gorm.io/gorm"
)

type BaseModel struct {
	CreatedAt time.Time
	UpdatedAt time.Time
	DeletedAt gorm.DeletedAt `gorm:"index"`
}

// Note: Gorm will fail if the function signature
//  does not include `*gorm.DB` and `error`

var Models = []interface{}{
	AggregateRecord{},
}
