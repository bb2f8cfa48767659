package model

// Members 表字段名
const (
	MemberName         = "Name"
	MemberEmail        = "Email"
	MemberBio          = "Bio"
	MemberProfileImage = "ProfileImage"
	MemberSkills       = "Skills"
	MemberInterests    = "Interests"
	MemberWebsite      = "Website"
	MemberInstagram    = "Instagram"
	MemberTwitter      = "Twitter"
	MemberLinkedIn     = "LinkedIn"
	MemberJoinedDate   = "JoinedDate"
)

type SocialLinks struct {
	Website   string `json:"website,omitempty"`
	Instagram string `json:"instagram,omitempty"`
	Twitter   string `json:"twitter,omitempty"`
	LinkedIn  string `json:"linkedin,omitempty"`
}

// Member 成员资料，只读
type Member struct {
	ID           string      `json:"id"`
	Name         string      `json:"name"`
	Email        string      `json:"email"`
	Bio          string      `json:"bio,omitempty"`
	ProfileImage string      `json:"profileImage,omitempty"`
	Skills       []string    `json:"skills,omitempty"`
	Interests    []string    `json:"interests,omitempty"`
	SocialLinks  SocialLinks `json:"socialLinks"`
	JoinedDate   string      `json:"joinedDate,omitempty"`
}

func MemberFromRecord(r *Record) Member {
	f := r.Fields
	return Member{
		ID:           r.ID,
		Name:         f.String(MemberName),
		Email:        f.String(MemberEmail),
		Bio:          f.String(MemberBio),
		ProfileImage: f.FirstAttachmentURL(MemberProfileImage),
		Skills:       f.Strings(MemberSkills),
		Interests:    f.Strings(MemberInterests),
		SocialLinks: SocialLinks{
			Website:   f.String(MemberWebsite),
			Instagram: f.String(MemberInstagram),
			Twitter:   f.String(MemberTwitter),
			LinkedIn:  f.String(MemberLinkedIn),
		},
		JoinedDate: f.String(MemberJoinedDate),
	}
}
