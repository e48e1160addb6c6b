package services

import "sync"

// ReservationManager tracks house funds provisionally committed to bets
// that have not settled. It is working-set state only: not persisted, and
// rebuilt empty on restart while the reconciler fails the orphaned bets.
type ReservationManager struct {
	mu       sync.Mutex
	reserved map[string]float64
	total    float64
}

func NewReservationManager() *ReservationManager {
	return &ReservationManager{reserved: make(map[string]float64)}
}

// ReserveIfAvailable checks liquidity and inserts the reservation under a
// single lock hold, so two concurrent placements each see the other's hold
// and the house pool can never be overcommitted.
func (r *ReservationManager) ReserveIfAvailable(betID string, potentialPayout, houseBalance float64) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.reserved[betID]; exists {
		return false
	}
	if houseBalance-r.total < potentialPayout {
		return false
	}

	r.reserved[betID] = potentialPayout
	r.total += potentialPayout
	return true
}

// Release frees a bet's hold. Idempotent: error paths and the terminal
// transition may both call it.
func (r *ReservationManager) Release(betID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if amount, ok := r.reserved[betID]; ok {
		delete(r.reserved, betID)
		r.total -= amount
	}
}

func (r *ReservationManager) TotalReserved() float64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.total
}

func (r *ReservationManager) AvailableLiquidity(houseBalance float64) float64 {
	return houseBalance - r.TotalReserved()
}

// Held reports whether a live reservation exists for the bet.
func (r *ReservationManager) Held(betID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.reserved[betID]
	return ok
}
