package loan

import (
	"testing"

	"collateral-loan-engine/internal/domain/event"
	domain "collateral-loan-engine/internal/domain/loan"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetLoan_AbsentIsZeroRecord(t *testing.T) {
	h := newHarness(t)

	l, err := h.engine.GetLoan(h.ctx, 404)
	require.NoError(t, err)
	assert.Equal(t, domain.StateNone, l.State)

	dto := ToDTO(l)
	assert.Equal(t, "none", dto.State)
	assert.Equal(t, "0", dto.Balance)
	assert.Equal(t, "0", dto.Terms.Principal)

	_, err = h.engine.PayoffAmount(h.ctx, 404)
	assert.ErrorIs(t, err, domain.ErrInvalidState)
}

func TestToDTO(t *testing.T) {
	h := newHarness(t)
	id := h.originate(1, 1000)

	dto := ToDTO(h.loan(id))
	assert.Equal(t, id, dto.LoanID)
	assert.Equal(t, "active", dto.State)
	assert.Equal(t, "1000", dto.Balance)
	assert.Equal(t, "10000000000000000000", dto.Terms.Rate)
	assert.Equal(t, collection.Hex(), dto.Terms.Collection)
	assert.Equal(t, "1", dto.Terms.CollateralItem)
	assert.EqualValues(t, 100, dto.Terms.Duration)
}

func TestLoanEvents_Payloads(t *testing.T) {
	h := newHarness(t)
	id := h.originate(1, 1000)

	evs, err := h.engine.LoanEvents(h.ctx, id)
	require.NoError(t, err)
	require.Len(t, evs, 2)
	assert.Len(t, evs[0].EventID, 32)
	assert.NotEqual(t, evs[0].EventID, evs[1].EventID)

	created := decode[event.LoanCreated](t, evs[0].Payload)
	assert.Equal(t, id, created.LoanID)
	assert.Equal(t, "1000", created.Terms.Principal)
	assert.Equal(t, currency.Hex(), created.Terms.Currency)

	started := decode[event.LoanStarted](t, evs[1].Payload)
	assert.Equal(t, event.LoanStarted{LoanID: id, Lender: lender.Hex(), Borrower: borrower.Hex()}, started)

	none, err := h.engine.LoanEvents(h.ctx, 99)
	require.NoError(t, err)
	assert.Empty(t, none)
}
