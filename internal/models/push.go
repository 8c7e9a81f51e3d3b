package models

import "fmt"

const (
	TicketStatusOK    = "ok"
	TicketStatusError = "error"
)

// PushMessage is one notification addressed to one push token.
type PushMessage struct {
	To    string `json:"to"`
	Title string `json:"title"`
	Body  string `json:"body"`
	Data  any    `json:"data"`
}

// PushTicket is the relay's per-message answer.
type PushTicket struct {
	Status  string `json:"status"`
	ID      string `json:"id,omitempty"`
	Message string `json:"message,omitempty"`
}

// PushReceipt summarizes a submitted batch.
type PushReceipt struct {
	Accepted int          `json:"accepted"`
	Rejected int          `json:"rejected"`
	Tickets  []PushTicket `json:"tickets,omitempty"`
}

// Add counts ticket into the receipt.
func (r *PushReceipt) Add(ticket PushTicket) {
	if ticket.Status == TicketStatusOK {
		r.Accepted++
	} else {
		r.Rejected++
	}
	r.Tickets = append(r.Tickets, ticket)
}

// WeatherMessages builds one identical message per token from the snapshot.
func WeatherMessages(city string, snapshot WeatherSnapshot, tokens []string) []PushMessage {
	title := fmt.Sprintf("%s is %s today", city, snapshot.WeatherName)
	body := fmt.Sprintf("%v ºC", snapshot.Temperature)

	msgs := make([]PushMessage, 0, len(tokens))
	for _, token := range tokens {
		msgs = append(msgs, PushMessage{
			To:    token,
			Title: title,
			Body:  body,
			Data:  snapshot,
		})
	}
	return msgs
}
