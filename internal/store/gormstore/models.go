package gormstore

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Voyage mirrors the voyages table. The reserved-seat counter is guarded by a
// CHECK constraint as well as by the conditional updates in Store.
type Voyage struct {
	ID            string          `gorm:"type:uuid;primaryKey"`
	Title         string          `gorm:"not null"`
	Description   string          `gorm:"not null"`
	Destination   string          `gorm:"not null"`
	City          string          `gorm:"not null"`
	Country       string          `gorm:"not null"`
	Price         decimal.Decimal `gorm:"type:numeric(12,2);not null"`
	DurationDays  int             `gorm:"not null"`
	DepartureAt   time.Time       `gorm:"not null;index"`
	ReturnAt      time.Time       `gorm:"not null"`
	TotalCapacity int             `gorm:"not null;check:chk_voyages_capacity,total_capacity >= 1"`
	ReservedCount int             `gorm:"not null;check:chk_voyages_reserved,reserved_count >= 0 AND reserved_count <= total_capacity"`
	Remaining     int             `gorm:"not null"`
	Active        bool            `gorm:"not null;index"`
	Status        string          `gorm:"not null"`
	CreatedBy     string          `gorm:"not null;index"`
	Revision      int64           `gorm:"not null"`
	CreatedAt     time.Time       `gorm:"not null;index"`
	UpdatedAt     time.Time       `gorm:"not null"`
}

func (Voyage) TableName() string { return "voyages" }

func (voyage *Voyage) BeforeCreate(tx *gorm.DB) error {
	if voyage.ID == "" {
		voyage.ID = uuid.NewString()
	}
	return nil
}

// Reservation mirrors the reservations table.
type Reservation struct {
	ID              string          `gorm:"type:uuid;primaryKey"`
	VoyageID        string          `gorm:"type:uuid;not null;index"`
	UserID          string          `gorm:"not null;index:idx_reservations_user_created,priority:1"`
	PartySize       int             `gorm:"not null;check:chk_reservations_party_size,party_size >= 1"`
	TotalPrice      decimal.Decimal `gorm:"type:numeric(12,2);not null"`
	SpecialRequests string          `gorm:"not null"`
	Phone           string          `gorm:"not null"`
	Status          string          `gorm:"not null;index"`
	PaymentStatus   string          `gorm:"not null;index"`
	Active          bool            `gorm:"not null"`
	Revision        int64           `gorm:"not null"`
	CreatedAt       time.Time       `gorm:"not null;index:idx_reservations_user_created,priority:2"`
	UpdatedAt       time.Time       `gorm:"not null"`
}

func (Reservation) TableName() string { return "reservations" }

func (reservation *Reservation) BeforeCreate(tx *gorm.DB) error {
	if reservation.ID == "" {
		reservation.ID = uuid.NewString()
	}
	return nil
}

// User mirrors the users table.
type User struct {
	ID        string    `gorm:"primaryKey"`
	Name      string    `gorm:"not null"`
	Email     string    `gorm:"not null;uniqueIndex"`
	Role      string    `gorm:"not null"`
	Active    bool      `gorm:"not null;index"`
	CreatedAt time.Time `gorm:"not null"`
	UpdatedAt time.Time `gorm:"not null"`
}

func (User) TableName() string { return "users" }

func (user *User) BeforeCreate(tx *gorm.DB) error {
	if user.ID == "" {
		user.ID = uuid.NewString()
	}
	return nil
}

// Models lists every table managed by the store, in migration order.
func Models() []any {
	return []any{&User{}, &Voyage{}, &Reservation{}}
}

// AutoMigrate creates or updates the schema.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(Models()...)
}
