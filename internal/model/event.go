package model

type EventType string

const (
	EventWorkshop   EventType = "Workshop"
	EventMeetup     EventType = "Meetup"
	EventExhibition EventType = "Exhibition"
	EventConference EventType = "Conference"
	EventOther      EventType = "Other"
)

// Events 表字段名
const (
	EventTitle            = "Title"
	EventDescription      = "Description"
	EventTypeF            = "EventType"
	EventDate             = "Date"
	EventStartTime        = "StartTime"
	EventEndTime          = "EndTime"
	EventLocation         = "Location"
	EventOrganizer        = "Organizer"
	EventOrganizerID      = "OrganizerId"
	EventImage            = "Image"
	EventRSVPLink         = "RSVPLink"
	EventMaxAttendees     = "MaxAttendees"
	EventCurrentAttendees = "CurrentAttendees"
	EventTags             = "Tags"
)

type Event struct {
	ID               string    `json:"id"`
	Title            string    `json:"title"`
	Description      string    `json:"description"`
	EventType        EventType `json:"eventType"`
	Date             string    `json:"date"`
	StartTime        string    `json:"startTime,omitempty"`
	EndTime          string    `json:"endTime,omitempty"`
	Location         string    `json:"location,omitempty"`
	Organizer        string    `json:"organizer,omitempty"`
	OrganizerID      string    `json:"organizerId,omitempty"`
	Image            string    `json:"image,omitempty"`
	RSVPLink         string    `json:"rsvpLink,omitempty"`
	MaxAttendees     *int      `json:"maxAttendees,omitempty"`
	CurrentAttendees *int      `json:"currentAttendees,omitempty"`
	Tags             []string  `json:"tags,omitempty"`
}

func EventFromRecord(r *Record) Event {
	f := r.Fields
	e := Event{
		ID:          r.ID,
		Title:       f.String(EventTitle),
		Description: f.String(EventDescription),
		EventType:   EventType(f.String(EventTypeF)),
		Date:        f.String(EventDate),
		StartTime:   f.String(EventStartTime),
		EndTime:     f.String(EventEndTime),
		Location:    f.String(EventLocation),
		Organizer:   f.String(EventOrganizer),
		OrganizerID: f.StringOr(EventOrganizerID, FieldCreatorID),
		Image:       f.FirstAttachmentURL(EventImage),
		RSVPLink:    f.String(EventRSVPLink),
		Tags:        f.Strings(EventTags),
	}
	if n, ok := f.Int(EventMaxAttendees); ok {
		e.MaxAttendees = &n
	}
	if n, ok := f.Int(EventCurrentAttendees); ok {
		e.CurrentAttendees = &n
	}
	return e
}
