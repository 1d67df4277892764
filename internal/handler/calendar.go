package handler

import (
	"fmt"
	"net/http"

	ics "github.com/arran4/golang-ical"

	"github.com/planmate/backend/internal/demand"
	"github.com/planmate/backend/internal/domain"
)

// GetCalendar handles GET /api/conversations/{id}/calendar: it exports the
// planned trip as an iCalendar file with one all-day event spanning the trip
// dates. Only a conversation showing a generated plan can be exported, and
// only when both dates normalize to real calendar dates — the extraction
// layer lets non-calendar tokens through, so this is where they surface.
func (s *Server) GetCalendar(w http.ResponseWriter, r *http.Request) {
	id, err := conversationID(r)
	if err != nil {
		requestError(w, "invalid conversation id")
		return
	}
	snap, err := s.conversations.Snapshot(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	if snap.Phase != domain.PhaseShowingResult {
		writeError(w, domain.ErrInvalidPhase)
		return
	}

	start, err := demand.ParseDate(snap.Demand.StartDate)
	if err != nil {
		requestError(w, "出发日期不是有效的日历日期")
		return
	}
	end, err := demand.ParseDate(snap.Demand.EndDate)
	if err != nil {
		requestError(w, "返回日期不是有效的日历日期")
		return
	}

	cal := ics.NewCalendar()
	cal.SetMethod(ics.MethodPublish)

	event := cal.AddEvent(snap.ID.String())
	event.SetSummary(fmt.Sprintf("%s之旅", snap.Demand.Destination))
	event.SetDescription(snap.Plan)
	event.SetAllDayStartAt(start)
	// DTEND is exclusive for all-day events, so the trip's return day is
	// included by ending the day after.
	event.SetAllDayEndAt(end.AddDate(0, 0, 1))

	w.Header().Set("Content-Type", "text/calendar; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="travel-plan.ics"`)
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write([]byte(cal.Serialize())); err != nil {
		return
	}
}
