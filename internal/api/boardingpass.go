package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/terminalworks/kiosk-core/internal/bcbp"
)

// boardingPassResponse is the wire shape for a decoded pass. The decoder's
// type stays JSON-free so this is the only place the field names are fixed.
type boardingPassResponse struct {
	PassengerName    string     `json:"passenger_name"`
	ConfirmationCode string     `json:"confirmation_code"`
	AirlineCode      string     `json:"airline_code"`
	FlightNumber     string     `json:"flight_number"`
	SeatNumber       string     `json:"seat_number,omitempty"`
	DepartureTime    *time.Time `json:"departure_time,omitempty"`
	DepartureDisplay string     `json:"departure_display"`
	Gate             string     `json:"gate,omitempty"`
	BoardingGroup    string     `json:"boarding_group,omitempty"`
}

// handleDecodeBoardingPass decodes a scanned IATA BCBP barcode. Scan
// failures are the traveller's normal case (crumpled passes, phone glare),
// so they come back as 400s with a readable message, never 500s.
func (s *Server) handleDecodeBoardingPass(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Raw string `json:"raw"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid request body")
		return
	}

	pass, err := bcbp.Decode(req.Raw)
	if s.metrics != nil {
		s.metrics.WriteBoardingPassScan(err == nil)
	}
	if err != nil {
		s.logger.Debug("boarding pass decode failed", "error", err)
		writeBadRequest(w, "could not read boarding pass")
		return
	}

	resp := boardingPassResponse{
		PassengerName:    pass.PassengerName,
		ConfirmationCode: pass.ConfirmationCode,
		AirlineCode:      pass.AirlineCode,
		FlightNumber:     pass.FlightNumber,
		SeatNumber:       pass.SeatNumber,
		DepartureDisplay: pass.DepartureDisplay,
		Gate:             pass.Gate,
		BoardingGroup:    pass.BoardingGroup,
	}
	if !pass.DepartureTime.IsZero() {
		resp.DepartureTime = &pass.DepartureTime
	}

	writeJSON(w, http.StatusOK, resp)
}
