package models

import "gorm.io/datatypes"

// Student is an individual completing a learner profile.
type Student struct {
	Account

	FullName string `gorm:"size:200;not null" json:"full_name"`

	BasicInfo       datatypes.JSON `json:"basic_info"`
	ContactInfo     datatypes.JSON `json:"contact_info"`
	Education       datatypes.JSON `json:"education"`
	Preferences     datatypes.JSON `json:"preferences"`
	Achievements    datatypes.JSON `json:"achievements"`
	SocialMedia     datatypes.JSON `json:"social_media"`
	ProfilePhotoURL string         `gorm:"size:1024" json:"profile_photo_url"`
}

func (Student) TableName() string { return "students" }

func (s *Student) Kind() AccountKind { return KindStudent }

func (s *Student) DisplayName() string { return s.FullName }

func (s *Student) SectionJSON(name string) []byte {
	switch name {
	case "basic_info":
		return s.BasicInfo
	case "contact_info":
		return s.ContactInfo
	case "education":
		return s.Education
	case "preferences":
		return s.Preferences
	case "achievements":
		return s.Achievements
	case "social_media":
		return s.SocialMedia
	case "profile_photo_url":
		return scalarJSON(s.ProfilePhotoURL)
	}
	return nil
}
