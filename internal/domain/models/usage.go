// internal/domain/models/usage.go
package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// DailyUsage is one pharmacy's counter for one calendar day.
// (PharmacyID, Date) is unique; Date is "YYYY-MM-DD".
type DailyUsage struct {
	ID         primitive.ObjectID `bson:"_id,omitempty" json:"-"`
	PharmacyID primitive.ObjectID `bson:"pharmacy_id" json:"pharmacy_id"`
	Date       string             `bson:"date" json:"date"`
	Count      int64              `bson:"count" json:"count"`
	UpdatedAt  time.Time          `bson:"updated_at,omitempty" json:"updated_at,omitempty"`
}
