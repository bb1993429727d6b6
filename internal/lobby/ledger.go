// internal/lobby/ledger.go
package lobby

import "github.com/jason-s-yu/jackpot/internal/models"

// Bank ledger operations. Every method assumes the lobby lock is held, so no
// partial update is ever visible to another goroutine.

// BankUnsafe returns the aggregate of all member bets. Assumes lock is held.
func (l *Lobby) BankUnsafe() int64 {
	return l.bank
}

// PlaceBetUnsafe moves amount from the participant's balance into its bet and the bank.
func (l *Lobby) PlaceBetUnsafe(p *models.Participant, amount int64) error {
	if l.members[p.ID] != p {
		return ErrNotMember
	}
	if l.round != nil {
		return ErrRoundActive
	}
	if amount <= 0 || amount > p.Balance {
		return ErrInsufficientFunds
	}
	p.Balance -= amount
	p.Bet += amount
	l.bank += amount
	return nil
}

// ClearBetUnsafe refunds the participant's bet. Returns the refunded amount.
func (l *Lobby) ClearBetUnsafe(p *models.Participant) (int64, error) {
	if l.members[p.ID] != p {
		return 0, ErrNotMember
	}
	if l.round != nil {
		return 0, ErrRoundActive
	}
	if p.Bet <= 0 {
		return 0, ErrNoBet
	}
	refund := p.Bet
	p.Balance += refund
	l.bank -= refund
	p.Bet = 0
	return refund, nil
}

// CreditWinUnsafe adds amount to the participant's balance.
func (l *Lobby) CreditWinUnsafe(p *models.Participant, amount int64) {
	p.Balance += amount
}

// ResetBetsUnsafe zeroes every member bet and the bank.
func (l *Lobby) ResetBetsUnsafe() {
	for _, p := range l.members {
		p.Bet = 0
	}
	l.bank = 0
}

// RefundAllUnsafe returns every bet to its owner and empties the bank.
// Returns the participants that were refunded, in member order.
func (l *Lobby) RefundAllUnsafe() []*models.Participant {
	var refunded []*models.Participant
	for _, id := range l.order {
		p := l.members[id]
		if p.Bet > 0 {
			p.Balance += p.Bet
			p.Bet = 0
			refunded = append(refunded, p)
		}
	}
	l.bank = 0
	return refunded
}

// BettorsUnsafe returns the members holding a bet, in member order.
func (l *Lobby) BettorsUnsafe() []*models.Participant {
	var out []*models.Participant
	for _, id := range l.order {
		if p := l.members[id]; p.Bet > 0 {
			out = append(out, p)
		}
	}
	return out
}
