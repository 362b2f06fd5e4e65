package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"

	"github.com/gramasevaka/gs-portal-api/api"
	"github.com/gramasevaka/gs-portal-api/config"
	"github.com/gramasevaka/gs-portal-api/databases"
	"github.com/gramasevaka/gs-portal-api/models"
	"github.com/gramasevaka/gs-portal-api/workflow"
)

// Office hours for bookable slots, in UTC.
const (
	firstSlotStart = 9 * 60
	lastSlotEnd    = 16 * 60
	slotMinutes    = 30
)

var bySlot = bson.D{{Key: "date", Value: 1}, {Key: "timeSlot", Value: 1}, {Key: "_id", Value: 1}}

// OfficeSlots returns the half-hour grid offered each day, e.g. "09:00-09:30".
func OfficeSlots() []string {
	var out []string
	for m := firstSlotStart; m+slotMinutes <= lastSlotEnd; m += slotMinutes {
		out = append(out, fmt.Sprintf("%02d:%02d-%02d:%02d", m/60, m%60, (m+slotMinutes)/60, (m+slotMinutes)%60))
	}
	return out
}

func validSlot(slot string) bool {
	for _, s := range OfficeSlots() {
		if s == slot {
			return true
		}
	}
	return false
}

func parseDay(s string) (time.Time, error) {
	d, err := time.Parse(dateLayout, s)
	if err != nil {
		return d, invalid("date must be YYYY-MM-DD")
	}
	return d, nil
}

// Appointment handles office visit bookings.
type Appointment struct {
	Records[models.Appointment, *models.Appointment]
}

// NewAppointment builds the appointment handlers.
func NewAppointment(d Deps, db databases.AppointmentDatabase) Appointment {
	return Appointment{Records: NewRecords[models.Appointment](d, db, workflow.Appointments)}
}

func (a Appointment) today() string {
	return a.now().Format(dateLayout)
}

// SlotsHandler lists the slots of a day and whether each can still be booked.
func (a Appointment) SlotsHandler(w http.ResponseWriter, r *http.Request) {
	date := r.URL.Query().Get("date")
	if _, err := parseDay(date); err != nil {
		writeError(w, "", err)
		return
	}

	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()

	held, err := a.DB.Find(ctx, bson.M{"date": date, "slotHeld": true})
	if err != nil {
		config.ErrorStatus("failed to get booked slots", http.StatusInternalServerError, w, err)
		return
	}
	taken := make(map[string]bool, len(held))
	for _, h := range held {
		taken[h.TimeSlot] = true
	}

	past := date < a.today()
	resp := models.SlotAvailability{Date: date}
	for _, s := range OfficeSlots() {
		resp.Slots = append(resp.Slots, models.Slot{TimeSlot: s, Available: !past && !taken[s]})
	}
	writeJSON(w, http.StatusOK, resp)
}

// BookHandler books a slot. A slot held by another appointment is refused
// by the unique index on held slots.
func (a Appointment) BookHandler(w http.ResponseWriter, r *http.Request) {
	caller, ok := callerOrAbort(w, r)
	if !ok {
		return
	}
	var req models.AppointmentRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, "", err)
		return
	}
	if _, err := parseDay(req.Date); err != nil {
		writeError(w, "", err)
		return
	}
	switch {
	case req.Date < a.today():
		writeError(w, "", invalid("date is in the past"))
		return
	case !validSlot(req.TimeSlot):
		writeError(w, "", invalid("timeSlot must be one of %s", strings.Join(OfficeSlots(), ", ")))
		return
	case strings.TrimSpace(req.Purpose) == "":
		writeError(w, "", invalid("purpose is required"))
		return
	}

	ctx, cancel := api.WithQueryTimeout(r.Context())
	defer cancel()

	now := a.now()
	number, err := a.nextNumber(ctx, "", now)
	if err != nil {
		config.ErrorStatus("failed to assign appointment number", http.StatusInternalServerError, w, err)
		return
	}
	doc := &models.Appointment{
		WorkflowFields: models.NewWorkflowFields(a.Machine, number, caller.ID, now),
		Date:           req.Date,
		TimeSlot:       req.TimeSlot,
		Purpose:        strings.TrimSpace(req.Purpose),
		Description:    req.Description,
		SlotHeld:       true,
	}

	if err := a.create(ctx, doc, nil); err != nil {
		if errors.Is(err, databases.ErrDuplicate) {
			config.ErrorStatus("slot already booked", http.StatusConflict, w, nil)
			return
		}
		writeError(w, "failed to book appointment", err)
		return
	}
	writeJSON(w, http.StatusCreated, doc)
}

// ListHandler lists appointments in date and slot order.
func (a Appointment) ListHandler(w http.ResponseWriter, r *http.Request) {
	caller, ok := callerOrAbort(w, r)
	if !ok {
		return
	}
	q, err := parseListQuery(r)
	if err != nil {
		writeError(w, "", err)
		return
	}
	filter := bson.M{}
	if date := r.URL.Query().Get("date"); date != "" {
		filter["date"] = date
	}

	page, err := a.list(r, caller, q, filter, "", bySlot)
	if err != nil {
		writeError(w, "failed to get appointments", err)
		return
	}
	writeJSON(w, http.StatusOK, page)
}

// CancelHandler cancels an appointment and frees its slot. Submitters may
// only cancel appointments whose date has not passed.
func (a Appointment) CancelHandler(w http.ResponseWriter, r *http.Request) {
	var req models.CancelRequest
	if err := decodeOptionalJSON(r, &req); err != nil {
		writeError(w, "", err)
		return
	}
	caller, ok := callerOrAbort(w, r)
	if !ok {
		return
	}
	a.respondTransition(w, r, a.cancellation(req.Reason), func(cur *models.Appointment, _ *change) error {
		if !caller.IsOfficer() && cur.Date < a.today() {
			return fmt.Errorf("%w: appointment %s has already taken place", workflow.ErrNotCancellable, cur.Number)
		}
		return nil
	})
}

func (a Appointment) cancellation(reason string) change {
	c := change{
		To:     workflow.StatusCancelled,
		Note:   reason,
		Public: true,
		Set:    bson.M{"slotHeld": false},
	}
	if reason != "" {
		c.Set["cancellationReason"] = reason
	}
	return c
}

// StatusHandler applies an officer status change. Cancelling frees the slot
// in the same update.
func (a Appointment) StatusHandler(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeStatus(w, r)
	if !ok {
		return
	}
	c := change{To: req.Status, Note: req.Note, Public: isPublic(req.IsPublic)}
	if req.Status == workflow.StatusCancelled {
		c = a.cancellation(req.Note)
		c.Public = isPublic(req.IsPublic)
	}
	a.respondTransition(w, r, c, nil)
}
