package terminal

import "eventpos/internal/domain"

type ticketScanRequest struct {
	CustomerTags []uint64 `json:"customer_tags"`
}

type ticketScanResponse struct {
	Tickets []domain.CheckedTicket `json:"scanned_tickets"`
}

// errorBody is the error envelope of the backend. Detail may be a plain
// message or a structured validation report.
type errorBody struct {
	Detail  any    `json:"detail"`
	Message string `json:"message"`
}
