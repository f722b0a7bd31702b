package sections

// Address is shared by institute and student contact sections.
type Address struct {
	Line1      string `json:"line1" validate:"required,max=200"`
	Line2      string `json:"line2,omitempty" validate:"max=200"`
	City       string `json:"city" validate:"required,max=100"`
	State      string `json:"state" validate:"required,max=100"`
	PostalCode string `json:"postal_code" validate:"required,max=20"`
	Country    string `json:"country" validate:"required,max=100"`
}

// SocialLinks lists public profile links. Every entry is optional.
type SocialLinks struct {
	Website   string `json:"website,omitempty" validate:"omitempty,url,max=512"`
	Facebook  string `json:"facebook,omitempty" validate:"omitempty,url,max=512"`
	Twitter   string `json:"twitter,omitempty" validate:"omitempty,url,max=512"`
	Instagram string `json:"instagram,omitempty" validate:"omitempty,url,max=512"`
	LinkedIn  string `json:"linkedin,omitempty" validate:"omitempty,url,max=512"`
	YouTube   string `json:"youtube,omitempty" validate:"omitempty,url,max=512"`
	GitHub    string `json:"github,omitempty" validate:"omitempty,url,max=512"`
}

// Document is a file reference attached to an achievement or media entry.
type Document struct {
	Name string `json:"name" validate:"required,max=200"`
	URL  string `json:"url" validate:"required,url,max=1024"`
}

// MediaItem is a photo, video or brochure link.
type MediaItem struct {
	URL     string `json:"url" validate:"required,url,max=1024"`
	Caption string `json:"caption,omitempty" validate:"max=300"`
}
