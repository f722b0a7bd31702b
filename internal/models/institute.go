package models

import (
	"encoding/json"

	"gorm.io/datatypes"
)

// Institute is an organisation publishing its profile on the platform.
type Institute struct {
	Account

	InstituteName string `gorm:"size:200;not null" json:"institute_name"`

	BasicInfo      datatypes.JSON `json:"basic_info"`
	ContactDetails datatypes.JSON `json:"contact_details"`
	Courses        datatypes.JSON `json:"courses"`
	Faculty        datatypes.JSON `json:"faculty"`
	Facilities     datatypes.JSON `json:"facilities"`
	Achievements   datatypes.JSON `json:"achievements"`
	Media          datatypes.JSON `json:"media"`
	SocialMedia    datatypes.JSON `json:"social_media"`
	LogoURL        string         `gorm:"size:1024" json:"logo_url"`
}

func (Institute) TableName() string { return "institutes" }

func (i *Institute) Kind() AccountKind { return KindInstitute }

func (i *Institute) DisplayName() string { return i.InstituteName }

func (i *Institute) SectionJSON(name string) []byte {
	switch name {
	case "basic_info":
		return i.BasicInfo
	case "contact_details":
		return i.ContactDetails
	case "courses":
		return i.Courses
	case "faculty":
		return i.Faculty
	case "facilities":
		return i.Facilities
	case "achievements":
		return i.Achievements
	case "media":
		return i.Media
	case "social_media":
		return i.SocialMedia
	case "logo_url":
		return scalarJSON(i.LogoURL)
	}
	return nil
}

func scalarJSON(value string) []byte {
	if value == "" {
		return nil
	}
	out, _ := json.Marshal(value)
	return out
}
