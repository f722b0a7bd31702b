package sections

// StudentBasicInfo is the first wizard step for students.
type StudentBasicInfo struct {
	FullName    string `json:"full_name" validate:"required,max=200"`
	DateOfBirth string `json:"date_of_birth,omitempty" validate:"omitempty,datetime=2006-01-02"`
	Gender      string `json:"gender,omitempty" validate:"omitempty,oneof=male female other prefer_not_to_say"`
	Bio         string `json:"bio,omitempty" validate:"max=1000"`
}

// StudentContact carries the student's contact channels.
type StudentContact struct {
	Email         string   `json:"email" validate:"required,email,max=320"`
	Phone         string   `json:"phone" validate:"required,max=32"`
	GuardianName  string   `json:"guardian_name,omitempty" validate:"max=200"`
	GuardianPhone string   `json:"guardian_phone,omitempty" validate:"max=32"`
	Address       *Address `json:"address,omitempty"`
}

func (c *StudentContact) phoneFields() []phoneField {
	return []phoneField{
		{path: "phone", value: &c.Phone, required: true},
		{path: "guardian_phone", value: &c.GuardianPhone},
	}
}

// EducationEntry is one entry of the education section.
type EducationEntry struct {
	Institution   string `json:"institution" validate:"required,max=200"`
	Qualification string `json:"qualification" validate:"required,max=200"`
	FieldOfStudy  string `json:"field_of_study,omitempty" validate:"max=200"`
	StartYear     int    `json:"start_year,omitempty" validate:"omitempty,gte=1900,lte=2100"`
	EndYear       int    `json:"end_year,omitempty" validate:"omitempty,gte=1900,lte=2100,gtefield=StartYear"`
	Grade         string `json:"grade,omitempty" validate:"max=50"`
	Current       bool   `json:"current,omitempty"`
}

// StudentPreferences records what the student is looking for.
type StudentPreferences struct {
	Interests          []string `json:"interests,omitempty" validate:"max=50,dive,required,max=100"`
	PreferredCourses   []string `json:"preferred_courses,omitempty" validate:"max=50,dive,required,max=200"`
	PreferredLocations []string `json:"preferred_locations,omitempty" validate:"max=50,dive,required,max=100"`
	StudyMode          string   `json:"study_mode,omitempty" validate:"omitempty,oneof=online offline hybrid"`
	BudgetRange        string   `json:"budget_range,omitempty" validate:"max=100"`
}
