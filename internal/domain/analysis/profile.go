package analysis

// Profile is the dating profile a user asks to have checked. Only Name drives the
// web-intel lookup; everything else is prompt material.
type Profile struct {
	Name       string   `json:"name"`
	Age        int      `json:"age,omitempty"`
	Bio        string   `json:"bio,omitempty"`
	Location   string   `json:"location,omitempty"`
	Occupation string   `json:"occupation,omitempty"`
	Photos     []string `json:"photos,omitempty"`
}

// Image is one uploaded picture.
type Image struct {
	Data []byte
	MIME string
}
