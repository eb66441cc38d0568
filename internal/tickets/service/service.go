package tickets

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"ms-checkout/internal/logger"
	"ms-checkout/internal/metrics"
	"ms-checkout/internal/models"
	"ms-checkout/internal/tickets/db"
	"ms-checkout/internal/utils"
)

var (
	ErrTicketNotFound   = errors.New("ticket not found")
	ErrAlreadyCheckedIn = errors.New("ticket already checked in")
	ErrOrderNotFound    = errors.New("order not found")
)

// maxCodeAttempts bounds retries when a random ticket code collides.
const maxCodeAttempts = 3

type TicketDBLayer interface {
	LoadIssuance(ctx context.Context, orderID int64) (*db.Issuance, error)
	ListCustomFields(ctx context.Context, eventID int64) ([]models.EventCustomField, error)
	IssueTicket(ctx context.Context, ticket *models.Ticket, answers []models.TicketCustomFieldAnswer) error
	IncrementQuantitySold(ctx context.Context, ticketTypeID int64, n int) error
	GetTicketDetailByCode(ctx context.Context, code string) (*models.TicketDetail, error)
	CheckIn(ctx context.Context, ticketID int64, at time.Time) (bool, error)
	ListTicketsByOrder(ctx context.Context, orderID int64) ([]models.Ticket, error)
}

type TicketService struct {
	DB      TicketDBLayer
	Logger  *logger.Logger
	Metrics *metrics.Checkout

	now func() time.Time
}

func NewTicketService(store TicketDBLayer, log *logger.Logger, m *metrics.Checkout) *TicketService {
	return &TicketService{DB: store, Logger: log, Metrics: m, now: time.Now}
}

// IssueTickets creates one ticket per attendee of the order that does not have one
// yet. It is safe to call repeatedly and concurrently for the same order.
func (s *TicketService) IssueTickets(ctx context.Context, orderID int64) (models.IssueResult, error) {
	var result models.IssueResult

	issuance, err := s.DB.LoadIssuance(ctx, orderID)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return result, fmt.Errorf("%w: id %d", ErrOrderNotFound, orderID)
		}
		return result, fmt.Errorf("load issuance for order %d: %w", orderID, err)
	}
	if len(issuance.Attendees) == 0 {
		return result, nil
	}

	fields, err := s.DB.ListCustomFields(ctx, issuance.Order.EventID)
	if err != nil {
		return result, fmt.Errorf("load custom fields for event %d: %w", issuance.Order.EventID, err)
	}
	byID := make(map[string]models.EventCustomField, len(fields))
	byName := make(map[string]models.EventCustomField, len(fields))
	for _, f := range fields {
		byID[strconv.FormatInt(f.ID, 10)] = f
		byName[f.FieldName] = f
	}

	itemTypes := make(map[int64]int64, len(issuance.Items))
	for _, item := range issuance.Items {
		itemTypes[item.ID] = item.TicketTypeID
	}

	sold := map[int64]int{}
	ref := issuance.Order.OrderReference
	for _, attendee := range issuance.Attendees {
		answers := s.resolveAnswers(ref, attendee, byID, byName)
		ticketTypeID := itemTypes[attendee.OrderItemID]

		err := s.issueOne(ctx, issuance.Order, attendee, ticketTypeID, answers)
		switch {
		case err == nil:
			result.TicketsCreated++
			result.CustomFieldsProcessed += len(answers)
			sold[ticketTypeID]++
		case errors.Is(err, db.ErrAlreadyIssued):
			s.Logger.Debug("TICKET", fmt.Sprintf("Attendee %d of %s already issued, skipping", attendee.ID, ref))
		default:
			result.Failed++
			s.Logger.Error("TICKET", fmt.Sprintf("Failed to issue ticket for attendee %d of %s: %v", attendee.ID, ref, err))
		}
	}

	typeIDs := make([]int64, 0, len(sold))
	for id := range sold {
		typeIDs = append(typeIDs, id)
	}
	sort.Slice(typeIDs, func(i, j int) bool { return typeIDs[i] < typeIDs[j] })
	for _, id := range typeIDs {
		if err := s.DB.IncrementQuantitySold(ctx, id, sold[id]); err != nil {
			s.Logger.Error("TICKET", fmt.Sprintf("Failed to add %d to quantity_sold of ticket type %d: %v", sold[id], id, err))
		}
	}

	s.Metrics.TicketsIssued(result.TicketsCreated, result.Failed)
	s.Logger.Info("TICKET", fmt.Sprintf("Issued %d tickets for %s (%d answers, %d failed)",
		result.TicketsCreated, ref, result.CustomFieldsProcessed, result.Failed))
	return result, nil
}

func (s *TicketService) issueOne(ctx context.Context, order models.Order, attendee models.OrderItemAttendee, ticketTypeID int64, answers []models.TicketCustomFieldAnswer) error {
	code := strings.TrimSpace(attendee.BarcodeID)
	fixed := code != ""

	var err error
	for attempt := 0; attempt < maxCodeAttempts; attempt++ {
		if !fixed {
			code = utils.GenerateTicketCode()
		}
		ticket := &models.Ticket{
			OrderID:             order.ID,
			OrderItemID:         attendee.OrderItemID,
			AttendeeID:          attendee.ID,
			TicketTypeID:        ticketTypeID,
			TicketCode:          code,
			AttendeeName:        attendee.AttendeeName,
			AttendeeEmail:       attendee.AttendeeEmail,
			AttendeePhoneNumber: attendee.AttendeePhoneNumber,
			CreatedAt:           s.clock().UTC(),
		}
		err = s.DB.IssueTicket(ctx, ticket, cloneAnswers(answers))
		if err == nil || errors.Is(err, db.ErrAlreadyIssued) || fixed {
			return err
		}
	}
	return err
}

func (s *TicketService) resolveAnswers(ref string, attendee models.OrderItemAttendee, byID, byName map[string]models.EventCustomField) []models.TicketCustomFieldAnswer {
	if len(attendee.CustomAnswers) == 0 {
		return nil
	}

	keys := make([]string, 0, len(attendee.CustomAnswers))
	for k := range attendee.CustomAnswers {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var answers []models.TicketCustomFieldAnswer
	for _, key := range keys {
		value, ok := answerValue(attendee.CustomAnswers[key])
		if !ok {
			continue
		}
		field, found := byID[key]
		if !found {
			field, found = byName[key]
		}
		if !found {
			s.Logger.Warn("TICKET", fmt.Sprintf("Unknown custom field %q on attendee %d of %s, skipping", key, attendee.ID, ref))
			continue
		}
		answers = append(answers, models.TicketCustomFieldAnswer{CustomFieldID: field.ID, AnswerValue: value})
	}
	return answers
}

func answerValue(v interface{}) (string, bool) {
	switch val := v.(type) {
	case nil:
		return "", false
	case string:
		val = strings.TrimSpace(val)
		return val, val != ""
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64), true
	case bool:
		return strconv.FormatBool(val), true
	case []interface{}:
		parts := make([]string, 0, len(val))
		for _, p := range val {
			if s, ok := answerValue(p); ok {
				parts = append(parts, s)
			}
		}
		return strings.Join(parts, ", "), len(parts) > 0
	default:
		raw, err := json.Marshal(val)
		if err != nil {
			return fmt.Sprint(val), true
		}
		return string(raw), true
	}
}

func cloneAnswers(in []models.TicketCustomFieldAnswer) []models.TicketCustomFieldAnswer {
	if len(in) == 0 {
		return nil
	}
	out := make([]models.TicketCustomFieldAnswer, len(in))
	copy(out, in)
	return out
}

// Verification is the gate-check result for a ticket code.
type Verification struct {
	Valid  bool                 `json:"valid"`
	Reason string               `json:"reason,omitempty"`
	Ticket *models.TicketDetail `json:"ticket,omitempty"`
}

// Verify checks that code exists and belongs to the event with eventSlug.
func (s *TicketService) Verify(ctx context.Context, eventSlug, code string) (Verification, error) {
	detail, err := s.DB.GetTicketDetailByCode(ctx, code)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return Verification{Reason: "Ticket not found"}, nil
		}
		return Verification{}, fmt.Errorf("verify ticket %s: %w", code, err)
	}
	if detail.EventSlug != eventSlug {
		return Verification{Reason: "Ticket does not belong to this event"}, nil
	}
	return Verification{Valid: true, Ticket: detail}, nil
}

// CheckIn admits the ticket holder. A ticket can be checked in once.
func (s *TicketService) CheckIn(ctx context.Context, code string) (*models.TicketDetail, error) {
	detail, err := s.DB.GetTicketDetailByCode(ctx, code)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return nil, ErrTicketNotFound
		}
		return nil, fmt.Errorf("load ticket %s: %w", code, err)
	}
	if detail.Ticket.IsCheckedIn {
		return detail, ErrAlreadyCheckedIn
	}

	at := s.clock().UTC()
	ok, err := s.DB.CheckIn(ctx, detail.Ticket.ID, at)
	if err != nil {
		return nil, fmt.Errorf("check in ticket %s: %w", code, err)
	}
	if !ok {
		return detail, ErrAlreadyCheckedIn
	}

	detail.Ticket.IsCheckedIn = true
	detail.Ticket.CheckedInAt = &at
	s.Logger.Info("TICKET", fmt.Sprintf("Checked in %s for %s", code, detail.EventSlug))
	return detail, nil
}

func (s *TicketService) GetTicketsByOrder(ctx context.Context, orderID int64) ([]models.Ticket, error) {
	tickets, err := s.DB.ListTicketsByOrder(ctx, orderID)
	if err != nil {
		return nil, fmt.Errorf("list tickets of order %d: %w", orderID, err)
	}
	return tickets, nil
}

// GetTicket returns the detail for a ticket code.
func (s *TicketService) GetTicket(ctx context.Context, code string) (*models.TicketDetail, error) {
	detail, err := s.DB.GetTicketDetailByCode(ctx, code)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			return nil, ErrTicketNotFound
		}
		return nil, err
	}
	return detail, nil
}

func (s *TicketService) clock() time.Time {
	if s.now == nil {
		return time.Now()
	}
	return s.now()
}
