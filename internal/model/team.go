package model

import "time"

// Team is a named group of participants sharing one track
type Team struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	Code        string    `json:"code"`
	Track       Track     `json:"track"`
	MemberCount int       `json:"member_count"`
	CreatedAt   time.Time `json:"created_at"`
}

type CreateTeamRequest struct {
	Name string `json:"name" binding:"required"`
}

type JoinTeamRequest struct {
	Code string `json:"code" binding:"required"`
}

// TeamMemberStatus is one row of a team's aggregate payment view.
type TeamMemberStatus struct {
	ParticipantID int64          `json:"participant_id"`
	FullName      string         `json:"full_name"`
	IsTeamLead    bool           `json:"is_team_lead"`
	PaymentStatus *PaymentStatus `json:"payment_status,omitempty"`
}

// TeamPaymentStatus is complete only when the team has at least the minimum
// number of members and every member's payment is verified.
type TeamPaymentStatus struct {
	Team     *Team              `json:"team"`
	Members  []TeamMemberStatus `json:"members"`
	Complete bool               `json:"complete"`
}

// IsPaymentComplete evaluates the aggregate for a team with the given members.
func IsPaymentComplete(members []TeamMemberStatus, minSize int) bool {
	if len(members) == 0 || len(members) < minSize {
		return false
	}
	for _, m := range members {
		if m.PaymentStatus == nil || *m.PaymentStatus != PaymentStatusVerified {
			return false
		}
	}
	return true
}
