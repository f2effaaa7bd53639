package wallet

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func Test_StubProvider(t *testing.T) {
	p, err := NewStubProvider(zap.NewNop(), "0xabc")
	require.NoError(t, err)

	// reading the account before connecting fails
	_, err = p.Account(context.Background())
	require.ErrorIs(t, err, ErrNotConnected)

	require.NoError(t, p.Connect(context.Background()))

	account, err := p.Account(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "0xabc", account.Address)
}

func Test_Detect(t *testing.T) {
	_, err := Detect(nil)
	require.ErrorIs(t, err, ErrProviderNotFound)

	p, err := NewStubProvider(zap.NewNop(), "0xabc")
	require.NoError(t, err)

	got, err := Detect(p)
	require.NoError(t, err)
	assert.Equal(t, Provider(p), got)
}
