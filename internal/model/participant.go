package model

import "time"

// Track is the competition stream a participant registers for.
type Track string

const (
	TrackProgramming            Track = "programming"
	TrackIdeathon               Track = "ideathon"
	TrackCompetitiveProgramming Track = "competitive_programming"
	TrackGaming                 Track = "gaming"
	TrackSocialite              Track = "socialite"
)

// Tracks lists every track in display order.
var Tracks = []Track{
	TrackProgramming,
	TrackIdeathon,
	TrackCompetitiveProgramming,
	TrackGaming,
	TrackSocialite,
}

func (t Track) Valid() bool {
	for _, k := range Tracks {
		if k == t {
			return true
		}
	}
	return false
}

type TShirtSize string

const (
	SizeS   TShirtSize = "S"
	SizeM   TShirtSize = "M"
	SizeL   TShirtSize = "L"
	SizeXL  TShirtSize = "XL"
	SizeXXL TShirtSize = "XXL"
)

func (s TShirtSize) Valid() bool {
	switch s {
	case SizeS, SizeM, SizeL, SizeXL, SizeXXL:
		return true
	}
	return false
}

// Participant is the one-to-one registration profile of a user
type Participant struct {
	ID                  int64      `json:"id"`
	UserID              int64      `json:"user_id"`
	Track               Track      `json:"track"`
	TeamID              *int64     `json:"team_id,omitempty"`
	IsTeamLead          bool       `json:"is_team_lead"`
	StudentID           string     `json:"student_id"`
	CNIC                string     `json:"cnic"`
	TShirtSize          TShirtSize `json:"tshirt_size"`
	EmergencyContact    string     `json:"emergency_contact"`
	Skills              *string    `json:"skills,omitempty"`
	GithubURL           *string    `json:"github_url,omitempty"`
	PortfolioURL        *string    `json:"portfolio_url,omitempty"`
	DietaryRequirements *string    `json:"dietary_requirements,omitempty"`
	RegisteredBy        *int64     `json:"registered_by,omitempty"` // set for manual registrations
	CreatedAt           time.Time  `json:"created_at"`
	UpdatedAt           time.Time  `json:"updated_at"`
}

// ParticipantDetail joins a participant with its user, team and payment for listings.
type ParticipantDetail struct {
	Participant
	Email         string         `json:"email"`
	FullName      string         `json:"full_name"`
	University    *string        `json:"university,omitempty"`
	PhoneNumber   *string        `json:"phone_number,omitempty"`
	TeamName      *string        `json:"team_name,omitempty"`
	PaymentStatus *PaymentStatus `json:"payment_status,omitempty"`
	PaymentMethod *PaymentMethod `json:"payment_method,omitempty"`
	CheckedIn     bool           `json:"checked_in"`
}

// RegisterRequest is the public signup payload. TeamName and TeamCode are
// mutually exclusive: the first creates a team, the second joins one.
type RegisterRequest struct {
	Email               string     `json:"email" binding:"required,email"`
	Password            string     `json:"password" binding:"required"`
	FullName            string     `json:"full_name" binding:"required,min=2,max=100"`
	University          *string    `json:"university"`
	PhoneNumber         *string    `json:"phone_number"`
	Track               Track      `json:"track" binding:"required"`
	StudentID           string     `json:"student_id" binding:"required"`
	CNIC                string     `json:"cnic" binding:"required"`
	TShirtSize          TShirtSize `json:"tshirt_size" binding:"required"`
	EmergencyContact    string     `json:"emergency_contact" binding:"required"`
	Skills              *string    `json:"skills"`
	GithubURL           *string    `json:"github_url"`
	PortfolioURL        *string    `json:"portfolio_url"`
	DietaryRequirements *string    `json:"dietary_requirements"`
	TeamName            *string    `json:"team_name"`
	TeamCode            *string    `json:"team_code"`
}

// ManualRegisterRequest is used by the registration desk. The payment method
// is chosen in the same call.
type ManualRegisterRequest struct {
	RegisterRequest
	PaymentMethod PaymentMethod `json:"payment_method" binding:"required"`
}

// RegisterResponse is returned after signup.
type RegisterResponse struct {
	User        *User        `json:"user"`
	Participant *Participant `json:"participant"`
	Team        *Team        `json:"team,omitempty"`
	Payment     *Payment     `json:"payment,omitempty"`
}

// ParticipantFilters narrows admin and desk listings
type ParticipantFilters struct {
	Track         *Track
	PaymentStatus *PaymentStatus
	RegisteredBy  *int64
	Search        *string
	Limit         int
	Offset        int
}

// SearchRequest is the ambassador lookup payload; exactly one field is used.
type SearchRequest struct {
	Email     string `json:"email"`
	StudentID string `json:"student_id"`
	CNIC      string `json:"cnic"`
	Phone     string `json:"phone"`
}

// StatusResponse answers the public check-status query.
type StatusResponse struct {
	FullName      string         `json:"full_name"`
	Track         Track          `json:"track"`
	TeamName      *string        `json:"team_name,omitempty"`
	PaymentStatus *PaymentStatus `json:"payment_status,omitempty"`
	PaymentMethod *PaymentMethod `json:"payment_method,omitempty"`
	CheckedIn     bool           `json:"checked_in"`
}
