package model

import (
	"time"
)

type UserRole string

const (
	Admin       UserRole = "admin"
	Manager     UserRole = "manager"
	TestSubject UserRole = "test_subject"
)

func (r UserRole) Valid() bool {
	switch r {
	case Admin, Manager, TestSubject:
		return true
	}
	return false
}

const (
	SecurityBeginner     = "beginner"
	SecurityIntermediate = "intermediate"
	SecurityAdvanced     = "advanced"
	SecurityExpert       = "expert"
)

// swagger:model User
type User struct {
	BaseModel
	Username               string     `gorm:"size:50;uniqueIndex;not null" json:"username"`
	Email                  string     `gorm:"size:100;uniqueIndex;not null" json:"email"`
	PasswordHash           string     `gorm:"size:255;not null" json:"-"`
	FullName               string     `gorm:"size:100" json:"fullName"`
	Role                   UserRole   `gorm:"size:20;not null;default:'test_subject';index" json:"role"`
	CreatedBy              *uint      `gorm:"index" json:"createdBy"`
	Organization           string     `gorm:"size:100;index" json:"organization"`
	LastLogin              *time.Time `json:"lastLogin"`
	IsActive               bool       `gorm:"default:true" json:"isActive"`
	SecurityLevel          string     `gorm:"size:20;default:'beginner'" json:"securityLevel"`
	TrainingProgress       int        `gorm:"default:0" json:"trainingProgress"`
	PhishingTestsCompleted int        `gorm:"default:0" json:"phishingTestsCompleted"`
}

func (User) TableName() string {
	return "users"
}
