package models

import (
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

// Partition is the table or collection holding principals of the role.
func (r Role) Partition() string {
	if r == RoleAdmin {
		return "admins"
	}
	return "users"
}

func (r Role) Valid() bool {
	return r == RoleUser || r == RoleAdmin
}

// Principal is a stored credential. Users and admins share the shape but live
// in separate partitions, so Role is not persisted.
type Principal struct {
	ID           string `gorm:"primaryKey;type:varchar(36)" bson:"_id"          json:"id"`
	Email        string `gorm:"not null"                    bson:"email"        json:"email"`
	PasswordHash string `gorm:"not null"                    bson:"passwordHash" json:"-"`
	Role         Role   `gorm:"-"                           bson:"-"            json:"role"`
}

func (p *Principal) BeforeCreate(tx *gorm.DB) error {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	return nil
}

type Product struct {
	ID          string  `gorm:"primaryKey;type:varchar(36)" bson:"_id"         json:"id"`
	Name        string  `gorm:"column:name"                 bson:"name"        json:"name"`
	Price       float64 `gorm:"column:price"                bson:"price"       json:"price"`
	Description string  `gorm:"column:description"          bson:"description" json:"description"`
	GPIOPin     int     `gorm:"column:gpio_pin"             bson:"gpioPin"     json:"gpioPin"`
	GPIOAction  string  `gorm:"column:gpio_action"          bson:"gpioAction"  json:"gpioAction"`
	Image       string  `gorm:"column:image"                bson:"image"       json:"image"`
}

func (p *Product) BeforeCreate(tx *gorm.DB) error {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	return nil
}

// ProductPatch carries the fields present in an update submission. Nil fields
// are left untouched by the store.
type ProductPatch struct {
	Name        *string
	Price       *float64
	Description *string
	GPIOPin     *int
	GPIOAction  *string
	Image       *string
}

func (p ProductPatch) Empty() bool {
	return p.Name == nil && p.Price == nil && p.Description == nil &&
		p.GPIOPin == nil && p.GPIOAction == nil && p.Image == nil
}

// Columns returns the patch keyed by relational column name.
func (p ProductPatch) Columns() map[string]any {
	m := map[string]any{}
	if p.Name != nil {
		m["name"] = *p.Name
	}
	if p.Price != nil {
		m["price"] = *p.Price
	}
	if p.Description != nil {
		m["description"] = *p.Description
	}
	if p.GPIOPin != nil {
		m["gpio_pin"] = *p.GPIOPin
	}
	if p.GPIOAction != nil {
		m["gpio_action"] = *p.GPIOAction
	}
	if p.Image != nil {
		m["image"] = *p.Image
	}
	return m
}

// Fields returns the patch keyed by document field name.
func (p ProductPatch) Fields() map[string]any {
	m := map[string]any{}
	if p.Name != nil {
		m["name"] = *p.Name
	}
	if p.Price != nil {
		m["price"] = *p.Price
	}
	if p.Description != nil {
		m["description"] = *p.Description
	}
	if p.GPIOPin != nil {
		m["gpioPin"] = *p.GPIOPin
	}
	if p.GPIOAction != nil {
		m["gpioAction"] = *p.GPIOAction
	}
	if p.Image != nil {
		m["image"] = *p.Image
	}
	return m
}
