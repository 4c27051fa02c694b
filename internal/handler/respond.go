package handler

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/kedai-pos/api/internal/service"
	"github.com/shopspring/decimal"
)

// errorResponse is the body of every non-2xx response.
type errorResponse struct {
	Error string       `json:"error"`
	Kind  service.Kind `json:"kind"`
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("ERROR: failed to encode JSON response: %v", err)
	}
}

// writeError maps a service error to its status code and kind. Internal
// errors are logged and hidden from the client.
func writeError(w http.ResponseWriter, op string, err error) {
	kind := service.KindOf(err)
	if kind == service.KindInternal {
		log.Printf("ERROR: %s: %v", op, err)
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "internal server error", Kind: kind})
		return
	}
	writeJSON(w, kind.HTTPStatus(), errorResponse{Error: err.Error(), Kind: kind})
}

func writeBadRequest(w http.ResponseWriter, msg string) {
	writeJSON(w, http.StatusBadRequest, errorResponse{Error: msg, Kind: service.KindValidation})
}

// --- Conversions ---

func numericToString(n pgtype.Numeric) string {
	if !n.Valid {
		return "0.00"
	}
	val, err := n.Value()
	if err != nil || val == nil {
		return "0.00"
	}
	d, err := decimal.NewFromString(val.(string))
	if err != nil {
		return "0.00"
	}
	return d.StringFixed(2)
}

// quantityToString keeps the three decimals stock is tracked in.
func quantityToString(n pgtype.Numeric) string {
	if !n.Valid {
		return "0.000"
	}
	val, err := n.Value()
	if err != nil || val == nil {
		return "0.000"
	}
	d, err := decimal.NewFromString(val.(string))
	if err != nil {
		return "0.000"
	}
	return d.StringFixed(3)
}

func textPtr(t pgtype.Text) *string {
	if !t.Valid {
		return nil
	}
	return &t.String
}

func uuidPtr(u pgtype.UUID) *string {
	if !u.Valid {
		return nil
	}
	s := uuid.UUID(u.Bytes).String()
	return &s
}

func timePtr(t pgtype.Timestamptz) *time.Time {
	if !t.Valid {
		return nil
	}
	return &t.Time
}

// parsePositive parses a decimal request field that must be > 0.
func parsePositive(field, s string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid %s", field)
	}
	if !d.IsPositive() {
		return decimal.Zero, fmt.Errorf("%s must be > 0", field)
	}
	return d, nil
}

// parseDateRange parses start_date and end_date query params in Asia/Jakarta
// time. Defaults to the last 30 days. The returned end is exclusive (midnight
// after end_date).
func parseDateRange(r *http.Request) (time.Time, time.Time, error) {
	const layout = "2006-01-02"

	loc, err := time.LoadLocation("Asia/Jakarta")
	if err != nil {
		loc = time.FixedZone("WIB", 7*3600)
	}

	now := time.Now().In(loc)
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, loc)
	startDate := today.AddDate(0, 0, -30)
	endDate := today.AddDate(0, 0, 1)

	if s := r.URL.Query().Get("start_date"); s != "" {
		t, err := time.ParseInLocation(layout, s, loc)
		if err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("invalid start_date format, use YYYY-MM-DD")
		}
		startDate = t
	}
	if s := r.URL.Query().Get("end_date"); s != "" {
		t, err := time.ParseInLocation(layout, s, loc)
		if err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("invalid end_date format, use YYYY-MM-DD")
		}
		endDate = t.AddDate(0, 0, 1)
	}

	if !startDate.Before(endDate) {
		return time.Time{}, time.Time{}, fmt.Errorf("start_date must be before end_date")
	}
	return startDate, endDate, nil
}
