package sections

// InstituteBasicInfo is the first wizard step for institutes.
type InstituteBasicInfo struct {
	InstituteName   string `json:"institute_name" validate:"required,max=200"`
	InstituteType   string `json:"institute_type" validate:"required,oneof=university college school coaching training other"`
	EstablishedYear int    `json:"established_year,omitempty" validate:"omitempty,gte=1800,lte=2100"`
	Affiliation     string `json:"affiliation,omitempty" validate:"max=200"`
	Accreditation   string `json:"accreditation,omitempty" validate:"max=200"`
	Description     string `json:"description,omitempty" validate:"max=4000"`
}

// InstituteContact carries the institute's public contact channels.
type InstituteContact struct {
	Email          string  `json:"email" validate:"required,email,max=320"`
	Phone          string  `json:"phone" validate:"required,max=32"`
	AlternatePhone string  `json:"alternate_phone,omitempty" validate:"max=32"`
	Website        string  `json:"website,omitempty" validate:"omitempty,url,max=512"`
	Address        Address `json:"address" validate:"required"`
}

func (c *InstituteContact) phoneFields() []phoneField {
	return []phoneField{
		{path: "phone", value: &c.Phone, required: true},
		{path: "alternate_phone", value: &c.AlternatePhone},
	}
}

// Course is one entry of the courses section.
type Course struct {
	Name        string `json:"name" validate:"required,max=200"`
	Level       string `json:"level,omitempty" validate:"omitempty,oneof=certificate diploma undergraduate postgraduate doctorate other"`
	Duration    string `json:"duration,omitempty" validate:"max=50"`
	Fees        string `json:"fees,omitempty" validate:"max=50"`
	Seats       int    `json:"seats,omitempty" validate:"gte=0,lte=100000"`
	Eligibility string `json:"eligibility,omitempty" validate:"max=500"`
	Description string `json:"description,omitempty" validate:"max=2000"`
}

// FacultyMember is one entry of the faculty section.
type FacultyMember struct {
	Name            string `json:"name" validate:"required,max=200"`
	Designation     string `json:"designation" validate:"required,max=200"`
	Department      string `json:"department,omitempty" validate:"max=200"`
	Qualification   string `json:"qualification,omitempty" validate:"max=200"`
	ExperienceYears int    `json:"experience_years,omitempty" validate:"gte=0,lte=80"`
	Email           string `json:"email,omitempty" validate:"omitempty,email"`
	PhotoURL        string `json:"photo_url,omitempty" validate:"omitempty,url,max=1024"`
}

// Facility is one entry of the facilities section.
type Facility struct {
	Name        string `json:"name" validate:"required,max=200"`
	Description string `json:"description,omitempty" validate:"max=1000"`
}

// InstituteMedia groups gallery content.
type InstituteMedia struct {
	Photos    []MediaItem `json:"photos,omitempty" validate:"max=50,dive"`
	Videos    []MediaItem `json:"videos,omitempty" validate:"max=20,dive"`
	Brochures []Document  `json:"brochures,omitempty" validate:"max=20,dive"`
}
