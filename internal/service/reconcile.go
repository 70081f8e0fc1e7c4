package service

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/iliyamo/seat-hold-coordinator/internal/model"
)

// Divergence describes one seat on which the registry and the ledger
// disagree.
type Divergence struct {
	SeatID        string
	RegistryToken string // token the registry shows as holder, "" if not HELD
	LedgerToken   string // token whose ledger entry contains the seat, "" if none
}

// divergencesLocked compares the HELD seats of the registry with the
// union of seat sets across all ledger entries.  Callers hold mu.
func (c *Coordinator) divergencesLocked() []Divergence {
	held := make(map[string]string)
	for _, s := range c.seats.Snapshot() {
		if s.Status == model.SeatHeld {
			held[s.ID] = s.HoldToken
		}
	}
	inLedger := make(map[string]string)
	for _, e := range c.holds.Entries() {
		for id := range e.SeatIDs {
			inLedger[id] = e.Token
		}
	}

	var out []Divergence
	for id, tok := range held {
		if inLedger[id] != tok {
			out = append(out, Divergence{SeatID: id, RegistryToken: tok, LedgerToken: inLedger[id]})
		}
	}
	for id, tok := range inLedger {
		if _, ok := held[id]; !ok {
			out = append(out, Divergence{SeatID: id, LedgerToken: tok})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SeatID < out[j].SeatID })
	return out
}

// Verify returns an error listing every seat on which the registry and the
// ledger disagree, or nil when the set of HELD seats equals the union of
// ledger seat sets with matching tokens.
func (c *Coordinator) Verify() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	divs := c.divergencesLocked()
	if len(divs) == 0 {
		return nil
	}
	parts := make([]string, 0, len(divs))
	for _, d := range divs {
		parts = append(parts, fmt.Sprintf("%s(registry=%q ledger=%q)", d.SeatID, d.RegistryToken, d.LedgerToken))
	}
	return fmt.Errorf("chart %s: registry and ledger diverge on %s", c.chartKey, strings.Join(parts, ", "))
}

// Reconcile repairs divergence toward the conservative state the ledger
// describes: seats HELD without a matching ledger entry are freed, and
// ledger seats the registry does not show as held by that token are
// dropped from the ledger.  It returns the number of seats repaired.
func (c *Coordinator) Reconcile(_ context.Context) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	divs := c.divergencesLocked()
	for _, d := range divs {
		if d.LedgerToken != "" {
			if err := c.holds.Remove(d.LedgerToken, d.SeatID); err != nil {
				c.log.Warn("reconcile ledger seat", zap.String("seat", d.SeatID), zap.Error(err))
			}
		}
		if d.RegistryToken != "" {
			if err := c.seats.MarkFree(d.SeatID); err != nil {
				c.log.Warn("reconcile registry seat", zap.String("seat", d.SeatID), zap.Error(err))
			}
		}
	}
	if len(divs) > 0 {
		c.log.Warn("reconciled diverged seats", zap.Int("seats", len(divs)))
	}
	return len(divs)
}
