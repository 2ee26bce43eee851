package domain

import "time"

// AvailabilityWindow delimita um período em que um SKU pode ser alugado.
// Ausência de janelas declaradas significa "sempre disponível".
type AvailabilityWindow struct {
	From time.Time `json:"from"`
	To   time.Time `json:"to"`
}

// Contains informa se o intervalo [from, to] cabe inteiro dentro da janela.
func (w AvailabilityWindow) Contains(from, to time.Time) bool {
	return !from.Before(w.From) && !to.After(w.To)
}

// ReservationRequest é o payload de uma reserva de aluguel.
type ReservationRequest struct {
	Shop string    `json:"shop"`
	SKU  string    `json:"sku"`
	From time.Time `json:"from"`
	To   time.Time `json:"to"`
}
