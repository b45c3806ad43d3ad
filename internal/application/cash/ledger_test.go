package cash_test

import (
	"context"
	"errors"
	"testing"

	"github.com/jhoicas/pos-core/internal/application/cash"
	"github.com/jhoicas/pos-core/internal/application/dto"
	"github.com/jhoicas/pos-core/internal/application/idempotency"
	"github.com/jhoicas/pos-core/internal/domain"
	"github.com/jhoicas/pos-core/internal/domain/entity"
	"github.com/jhoicas/pos-core/internal/domain/repository"
	"github.com/jhoicas/pos-core/internal/infrastructure/memory"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	tenant = "tenant-1"
	user   = "user-1"
)

func newLedger(t *testing.T) (*cash.Ledger, *memory.Store) {
	t.Helper()
	store := memory.NewStore()
	gate := idempotency.NewGate(store, store.Repos().Idempotency, idempotency.Options{Logger: zerolog.Nop()})
	return cash.NewLedger(gate, store.Repos().Cash, zerolog.Nop()), store
}

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func open(t *testing.T, l *cash.Ledger, key, amount string) dto.CashSessionResponse {
	t.Helper()
	out, err := l.Open(context.Background(), tenant, user, key, dto.OpenCashSessionRequest{OpeningAmount: dec(amount)})
	require.NoError(t, err)
	return out.Value
}

func TestOpen_OnlyOneOpenSession(t *testing.T) {
	l, _ := newLedger(t)
	s := open(t, l, "open-1", "100000")
	assert.Equal(t, "OPEN", s.Status)
	assert.True(t, s.OpeningAmount.Equal(dec("100000")))

	_, err := l.Open(context.Background(), tenant, user, "open-2", dto.OpenCashSessionRequest{OpeningAmount: dec("5000")})
	assert.ErrorIs(t, err, domain.ErrSessionAlreadyOpen)

	// La repetición de la primera apertura no es un conflicto.
	again, err := l.Open(context.Background(), tenant, user, "open-1", dto.OpenCashSessionRequest{OpeningAmount: dec("100000")})
	require.NoError(t, err)
	assert.True(t, again.Replayed)
	assert.Equal(t, s.ID, again.Value.ID)
}

func TestOpen_NegativeAmount(t *testing.T) {
	l, _ := newLedger(t)
	_, err := l.Open(context.Background(), tenant, user, "open-1", dto.OpenCashSessionRequest{OpeningAmount: dec("-1")})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestClose_ComputesExpectedAndDifference(t *testing.T) {
	l, _ := newLedger(t)
	ctx := context.Background()
	s := open(t, l, "open-1", "100000")

	movements := []dto.CashMovementRequest{
		{Type: entity.CashMovementIN, Method: entity.PaymentMethodCash, Amount: dec("50000")},
		{Type: entity.CashMovementOUT, Method: entity.PaymentMethodCash, Amount: dec("20000"), Reference: "domicilio"},
		{Type: entity.CashMovementADJUST, Method: entity.PaymentMethodCash, Amount: dec("-500")},
	}
	for i, m := range movements {
		_, err := l.AddMovement(ctx, tenant, user, "mov-"+string(rune('a'+i)), s.ID, m)
		require.NoError(t, err)
	}

	cur, err := l.Current(ctx, tenant)
	require.NoError(t, err)
	assert.True(t, cur.ExpectedAmount.Equal(dec("129500")), cur.ExpectedAmount.String())
	assert.Len(t, cur.Movements, 3)

	closed, err := l.Close(ctx, tenant, user, "close-1", s.ID, dto.CloseCashSessionRequest{ClosingAmount: dec("129000")})
	require.NoError(t, err)
	assert.Equal(t, "CLOSED", closed.Value.Status)
	assert.True(t, closed.Value.ExpectedAmount.Equal(dec("129500")))
	require.NotNil(t, closed.Value.Difference)
	assert.True(t, closed.Value.Difference.Equal(dec("-500")))
	assert.True(t, closed.Value.Totals.In.Equal(dec("50000")))
	assert.True(t, closed.Value.Totals.Out.Equal(dec("20000")))
	assert.True(t, closed.Value.Totals.Adjust.Equal(dec("-500")))

	_, err = l.Current(ctx, tenant)
	assert.ErrorIs(t, err, domain.ErrNoOpenSession)
}

func TestClosedSessionRejectsChanges(t *testing.T) {
	l, _ := newLedger(t)
	ctx := context.Background()
	s := open(t, l, "open-1", "0")
	_, err := l.Close(ctx, tenant, user, "close-1", s.ID, dto.CloseCashSessionRequest{ClosingAmount: dec("0")})
	require.NoError(t, err)

	_, err = l.AddMovement(ctx, tenant, user, "mov-1", s.ID, dto.CashMovementRequest{
		Type: entity.CashMovementIN, Method: entity.PaymentMethodCash, Amount: dec("10"),
	})
	assert.ErrorIs(t, err, domain.ErrSessionClosed)

	_, err = l.Close(ctx, tenant, user, "close-2", s.ID, dto.CloseCashSessionRequest{ClosingAmount: dec("0")})
	assert.ErrorIs(t, err, domain.ErrSessionClosed)

	// Repetir el cierre original devuelve el mismo arqueo.
	again, err := l.Close(ctx, tenant, user, "close-1", s.ID, dto.CloseCashSessionRequest{ClosingAmount: dec("0")})
	require.NoError(t, err)
	assert.True(t, again.Replayed)

	summary, err := l.Summary(ctx, tenant, s.ID)
	require.NoError(t, err)
	assert.Equal(t, "CLOSED", summary.Status)
	assert.Empty(t, summary.Movements)

	// Se puede abrir un nuevo turno.
	next := open(t, l, "open-2", "1000")
	assert.NotEqual(t, s.ID, next.ID)
}

func TestAddMovement_Validation(t *testing.T) {
	l, _ := newLedger(t)
	s := open(t, l, "open-1", "0")

	cases := []struct {
		name  string
		req   dto.CashMovementRequest
		field string
	}{
		{"tipo desconocido", dto.CashMovementRequest{Type: "GIFT", Method: entity.PaymentMethodCash, Amount: dec("1")}, "type"},
		{"salida en cero", dto.CashMovementRequest{Type: entity.CashMovementOUT, Method: entity.PaymentMethodCash, Amount: dec("0")}, "amount"},
		{"ingreso negativo", dto.CashMovementRequest{Type: entity.CashMovementIN, Method: entity.PaymentMethodCash, Amount: dec("-5")}, "amount"},
		{"ajuste en cero", dto.CashMovementRequest{Type: entity.CashMovementADJUST, Method: entity.PaymentMethodCash, Amount: dec("0")}, "amount"},
		{"medio inválido", dto.CashMovementRequest{Type: entity.CashMovementIN, Method: "BITCOIN", Amount: dec("1")}, "method"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := l.AddMovement(context.Background(), tenant, user, "mov-"+tc.name, s.ID, tc.req)
			var verr *domain.ValidationError
			require.True(t, errors.As(err, &verr))
			assert.Contains(t, verr.Fields, tc.field)
		})
	}
}

func TestAddMovement_UnknownSession(t *testing.T) {
	l, _ := newLedger(t)
	_, err := l.AddMovement(context.Background(), tenant, user, "mov-1", "no-existe", dto.CashMovementRequest{
		Type: entity.CashMovementIN, Method: entity.PaymentMethodCash, Amount: dec("1"),
	})
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestResolveSession(t *testing.T) {
	l, store := newLedger(t)
	ctx := context.Background()

	err := store.Run(ctx, func(ctx context.Context, r repository.TxRepos) error {
		_, err := l.ResolveSession(ctx, r, tenant, "")
		return err
	})
	assert.ErrorIs(t, err, domain.ErrNoOpenSession)

	s := open(t, l, "open-1", "0")
	err = store.Run(ctx, func(ctx context.Context, r repository.TxRepos) error {
		got, err := l.ResolveSession(ctx, r, tenant, "")
		if err != nil {
			return err
		}
		assert.Equal(t, s.ID, got.ID)
		got, err = l.ResolveSession(ctx, r, tenant, s.ID)
		if err != nil {
			return err
		}
		assert.Equal(t, s.ID, got.ID)
		return nil
	})
	require.NoError(t, err)

	err = store.Run(ctx, func(ctx context.Context, r repository.TxRepos) error {
		_, err := l.ResolveSession(ctx, r, "tenant-2", s.ID)
		return err
	})
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestSummary_UnknownSession(t *testing.T) {
	l, _ := newLedger(t)
	_, err := l.Summary(context.Background(), tenant, "nope")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}
