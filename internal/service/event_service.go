package service

import (
	"context"

	"VISO_Collective/internal/filter"
	"VISO_Collective/internal/gateway"
	"VISO_Collective/internal/model"
	"VISO_Collective/internal/store"
)

const unknownOrganizer = "Unknown"

type EventService struct {
	gw *gateway.Gateway
}

type CreateEventInput struct {
	Title            string          `json:"title" validate:"required"`
	Date             string          `json:"date" validate:"required"`
	EventType        model.EventType `json:"eventType" validate:"required"`
	Description      string          `json:"description"`
	StartTime        string          `json:"startTime"`
	EndTime          string          `json:"endTime"`
	Location         string          `json:"location"`
	Organizer        string          `json:"organizer"`
	RSVPLink         string          `json:"rsvpLink" validate:"omitempty,url"`
	MaxAttendees     *int            `json:"maxAttendees" validate:"omitempty,gte=0"`
	CurrentAttendees *int            `json:"currentAttendees" validate:"omitempty,gte=0"`
	Image            []string        `json:"image" validate:"omitempty,dive,url"`
	Tags             []string        `json:"tags"`
}

// UpdateEventInput title/date/eventType 为空不修改，其余字段出现即写入
type UpdateEventInput struct {
	Title            string          `json:"title"`
	Date             string          `json:"date"`
	EventType        model.EventType `json:"eventType"`
	Description      *string         `json:"description"`
	StartTime        *string         `json:"startTime"`
	EndTime          *string         `json:"endTime"`
	Location         *string         `json:"location"`
	Organizer        *string         `json:"organizer"`
	RSVPLink         *string         `json:"rsvpLink"`
	MaxAttendees     *int            `json:"maxAttendees" validate:"omitempty,gte=0"`
	CurrentAttendees *int            `json:"currentAttendees" validate:"omitempty,gte=0"`
	Image            []string        `json:"image" validate:"omitempty,dive,url"`
	Tags             []string        `json:"tags"`
}

func NewEventService(gw *gateway.Gateway) *EventService {
	return &EventService{gw: gw}
}

var (
	upcomingQuery = store.Query{
		Filter: filter.Cmp(model.EventDate, filter.OpGTE, filter.Today()),
		Sort:   []store.Sort{{Field: model.EventDate, Direction: store.Asc}},
	}
	pastQuery = store.Query{
		Filter: filter.Cmp(model.EventDate, filter.OpLT, filter.Today()),
		Sort:   []store.Sort{{Field: model.EventDate, Direction: store.Desc}},
	}
)

// ListUpcoming 今天及以后的活动，日期升序
func (s *EventService) ListUpcoming(ctx context.Context) ([]model.Event, error) {
	return s.list(ctx, upcomingQuery)
}

// ListPast 已结束的活动，日期倒序
func (s *EventService) ListPast(ctx context.Context) ([]model.Event, error) {
	return s.list(ctx, pastQuery)
}

func (s *EventService) list(ctx context.Context, q store.Query) ([]model.Event, error) {
	recs, err := store.Collect(s.gw.List(ctx, model.TableEvents, q))
	if err != nil {
		return nil, err
	}
	return toEvents(recs), nil
}

func (s *EventService) ListMine(ctx context.Context, caller model.Caller) ([]model.Event, error) {
	seq, err := s.gw.ListOwned(ctx, model.TableEvents, caller, store.Query{
		Sort: []store.Sort{{Field: model.EventDate, Direction: store.Asc}},
	})
	if err != nil {
		return nil, err
	}
	recs, err := store.Collect(seq)
	if err != nil {
		return nil, err
	}
	return toEvents(recs), nil
}

func (s *EventService) Get(ctx context.Context, id string) (model.Event, error) {
	rec, err := s.gw.Get(ctx, model.TableEvents, id)
	if err != nil {
		return model.Event{}, err
	}
	return model.EventFromRecord(rec), nil
}

func (s *EventService) Create(ctx context.Context, caller model.Caller, in CreateEventInput) (model.Event, error) {
	if !caller.Authenticated() {
		return model.Event{}, model.ErrUnauthenticated
	}
	if err := validateInput(in); err != nil {
		return model.Event{}, err
	}

	maxAttendees := attendeeLimit(in.MaxAttendees)
	current := 0
	if in.CurrentAttendees != nil {
		current = *in.CurrentAttendees
	}
	organizer := in.Organizer
	if organizer == "" {
		organizer = caller.Name
	}
	if organizer == "" {
		organizer = unknownOrganizer
	}
	tags := in.Tags
	if tags == nil {
		tags = []string{}
	}

	rec, err := s.gw.Create(ctx, model.TableEvents, model.Fields{
		model.EventTitle:            in.Title,
		model.EventDate:             in.Date,
		model.EventTypeF:            string(in.EventType),
		model.EventDescription:      in.Description,
		model.EventStartTime:        in.StartTime,
		model.EventEndTime:          in.EndTime,
		model.EventLocation:         in.Location,
		model.EventRSVPLink:         in.RSVPLink,
		model.EventMaxAttendees:     maxAttendees,
		model.EventCurrentAttendees: current,
		model.EventImage:            model.Attachments(in.Image),
		model.EventTags:             tags,
		model.EventOrganizer:        organizer,
	}, caller)
	if err != nil {
		return model.Event{}, err
	}
	return model.EventFromRecord(rec), nil
}

func (s *EventService) Update(ctx context.Context, caller model.Caller, id string, in UpdateEventInput) (model.Event, error) {
	if !caller.Authenticated() {
		return model.Event{}, model.ErrUnauthenticated
	}
	if id == "" {
		return model.Event{}, model.NewValidationError(model.FieldError{Field: "id", Message: "is required"})
	}
	if err := validateInput(in); err != nil {
		return model.Event{}, err
	}

	fields := model.Fields{}
	if in.Title != "" {
		fields[model.EventTitle] = in.Title
	}
	if in.Date != "" {
		fields[model.EventDate] = in.Date
	}
	if in.EventType != "" {
		fields[model.EventTypeF] = string(in.EventType)
	}
	setString(fields, model.EventDescription, in.Description)
	setString(fields, model.EventStartTime, in.StartTime)
	setString(fields, model.EventEndTime, in.EndTime)
	setString(fields, model.EventLocation, in.Location)
	setString(fields, model.EventOrganizer, in.Organizer)
	setString(fields, model.EventRSVPLink, in.RSVPLink)
	if in.MaxAttendees != nil {
		fields[model.EventMaxAttendees] = attendeeLimit(in.MaxAttendees)
	}
	if in.CurrentAttendees != nil {
		fields[model.EventCurrentAttendees] = *in.CurrentAttendees
	}
	if in.Image != nil {
		fields[model.EventImage] = model.Attachments(in.Image)
	}
	if in.Tags != nil {
		fields[model.EventTags] = in.Tags
	}

	rec, err := s.gw.Update(ctx, model.TableEvents, id, fields, caller)
	if err != nil {
		return model.Event{}, err
	}
	return model.EventFromRecord(rec), nil
}

func (s *EventService) Delete(ctx context.Context, caller model.Caller, id string) error {
	if !caller.Authenticated() {
		return model.ErrUnauthenticated
	}
	if id == "" {
		return model.NewValidationError(model.FieldError{Field: "id", Message: "is required"})
	}
	return s.gw.Delete(ctx, model.TableEvents, id, caller)
}

// attendeeLimit 0 表示不限人数，和缺省一样写 null
func attendeeLimit(v *int) any {
	if v == nil || *v <= 0 {
		return nil
	}
	return *v
}

func setString(fields model.Fields, key string, v *string) {
	if v != nil {
		fields[key] = *v
	}
}

func toEvents(recs []*model.Record) []model.Event {
	out := make([]model.Event, 0, len(recs))
	for _, r := range recs {
		out = append(out, model.EventFromRecord(r))
	}
	return out
}
