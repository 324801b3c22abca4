package realtime

import (
	"strconv"

	"github.com/Dosada05/bounty-system/models"
)

// Publisher is the capability services use to emit real-time events. It is
// passed to constructors so tests can substitute a recorder.
type Publisher interface {
	PublishParticipantCount(bountyID, count int)
	PublishTeamAssignment(userID int, payload models.TeamAssignmentPayload)
	PublishToRoom(room, eventType string, payload interface{})
}

func BountyRoom(bountyID int) string   { return "bounty:" + strconv.Itoa(bountyID) }
func UserRoom(userID int) string       { return "user:" + strconv.Itoa(userID) }
func CollegeRoom(collegeID int) string { return "college:" + strconv.Itoa(collegeID) }

var _ Publisher = (*Hub)(nil)

func (h *Hub) PublishParticipantCount(bountyID, count int) {
	h.BroadcastToRoom(BountyRoom(bountyID), Message{
		Type:    models.EventParticipantCount,
		Payload: models.ParticipantCountPayload{BountyID: bountyID, Count: count},
	})
}

func (h *Hub) PublishTeamAssignment(userID int, payload models.TeamAssignmentPayload) {
	h.BroadcastToRoom(UserRoom(userID), Message{
		Type:    models.EventTeamAssignment,
		Payload: payload,
	})
}

func (h *Hub) PublishToRoom(room, eventType string, payload interface{}) {
	h.BroadcastToRoom(room, Message{Type: eventType, Payload: payload})
}
