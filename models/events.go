package models

// Типы событий, отправляемых через websocket.
const (
	EventParticipantCount = "bounty:participants"
	EventTeamAssignment   = "team:assignment"
	EventNewBounty        = "bounty:new"
)

type ParticipantCountPayload struct {
	BountyID int `json:"bountyId"`
	Count    int `json:"count"`
}

type TeamAssignmentPayload struct {
	TeamID      string `json:"teamId"`
	TeamName    string `json:"teamName"`
	BountyTitle string `json:"bountyTitle"`
	Members     []int  `json:"members"`
}
