package patterns

// EventType is the detected kind of a calendar event.
type EventType string

const (
	EventOneOnOne      EventType = "one_on_one"
	EventTeamMeeting   EventType = "team_meeting"
	EventClientMeeting EventType = "client_meeting"
	EventInterview     EventType = "interview"
	EventPresentation  EventType = "presentation"
	EventReview        EventType = "review"
	EventPlanning      EventType = "planning"
	EventWorkshop      EventType = "workshop"
	EventSocial        EventType = "social"

	// EventUnknown is the detector's "could not classify" sentinel. It is a
	// valid value but never produces a pattern.
	EventUnknown EventType = "unknown"
)

// EventTypes lists every valid event type.
var EventTypes = []EventType{
	EventOneOnOne,
	EventTeamMeeting,
	EventClientMeeting,
	EventInterview,
	EventPresentation,
	EventReview,
	EventPlanning,
	EventWorkshop,
	EventSocial,
	EventUnknown,
}

// IsValid reports whether t is one of EventTypes.
func (t EventType) IsValid() bool {
	for _, v := range EventTypes {
		if t == v {
			return true
		}
	}
	return false
}

// IsKnown reports whether t is valid and not EventUnknown.
func (t EventType) IsKnown() bool {
	return t != EventUnknown && t.IsValid()
}
