package model

// PublicStats is shown on the landing page.
type PublicStats struct {
	TotalParticipants int64           `json:"total_participants"`
	TotalTeams        int64           `json:"total_teams"`
	ByTrack           map[Track]int64 `json:"by_track"`
}

// DashboardStats is the admin overview.
type DashboardStats struct {
	TotalParticipants int64                   `json:"total_participants"`
	TotalTeams        int64                   `json:"total_teams"`
	CheckedIn         int64                   `json:"checked_in"`
	ByTrack           map[Track]int64         `json:"by_track"`
	ByPaymentStatus   map[PaymentStatus]int64 `json:"by_payment_status"`
	RevenueVerified   int64                   `json:"revenue_verified"`
}

// VerifierStats summarizes cash collected by one ambassador.
type VerifierStats struct {
	VerifiedCount  int64 `json:"verified_count"`
	TotalCollected int64 `json:"total_collected"`
	PendingCash    int64 `json:"pending_cash"`
}

// DeskStats summarizes manual registrations by one desk member.
type DeskStats struct {
	Registered int64                   `json:"registered"`
	ByStatus   map[PaymentStatus]int64 `json:"by_status"`
}
