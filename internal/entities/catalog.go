package entities

import (
	"time"

	"gorm.io/gorm"
)

type Author struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	Name        string    `gorm:"index;size:255;not null" json:"name"`
	Surname     *string   `gorm:"size:255" json:"surname,omitempty"`
	SearchName  string    `gorm:"index;size:512;not null;default:''" json:"-"`
	OwnerUserID uint      `gorm:"index" json:"owner_user_id"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// BeforeSave keeps the folded search column in step with the name.
func (a *Author) BeforeSave(*gorm.DB) error {
	a.SearchName = SearchKey(a.FullName())
	return nil
}

func (Author) TableName() string {
	return "authors"
}

// FullName joins name and surname the way labels are matched and displayed.
func (a Author) FullName() string {
	if a.Surname == nil || *a.Surname == "" {
		return a.Name
	}
	return a.Name + " " + *a.Surname
}

type Publisher struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	Name        string    `gorm:"index;size:255;not null" json:"name"`
	SearchName  string    `gorm:"index;size:512;not null;default:''" json:"-"`
	OwnerUserID uint      `gorm:"index" json:"owner_user_id"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// BeforeSave keeps the folded search column in step with the name.
func (p *Publisher) BeforeSave(*gorm.DB) error {
	p.SearchName = SearchKey(p.Name)
	return nil
}

func (Publisher) TableName() string {
	return "publishers"
}

type Category struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	Name        string    `gorm:"index;size:255;not null" json:"name"`
	SearchName  string    `gorm:"index;size:512;not null;default:''" json:"-"`
	OwnerUserID uint      `gorm:"index" json:"owner_user_id"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// BeforeSave keeps the folded search column in step with the name.
func (c *Category) BeforeSave(*gorm.DB) error {
	c.SearchName = SearchKey(c.Name)
	return nil
}

func (Category) TableName() string {
	return "categories"
}
