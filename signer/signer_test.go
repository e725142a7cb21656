package signer_test

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/blockberries/tokenberry/extension"
	"github.com/blockberries/tokenberry/signer"
	"github.com/blockberries/tokenberry/token"
	"github.com/blockberries/tokenberry/token/tokentest"
	"github.com/blockberries/tokenberry/types"
)

var (
	maintainer = types.BytesToAddress([]byte{0xaa})
	alice      = types.BytesToAddress([]byte{0x0a})
	message    = types.HashBytes([]byte("pay 100 to carol"))
)

func deploy(t *testing.T) (*tokentest.Env, *token.Token) {
	t.Helper()
	env, err := tokentest.NewEnv(signer.New())
	require.NoError(t, err)
	tok, err := env.Deploy(token.InitParams{
		Variant:     types.VariantFungible,
		Symbol:      "SIG",
		Maintainer:  maintainer,
		EpochWindow: time.Hour,
		Extensions:  []extension.ID{signer.ID},
	})
	require.NoError(t, err)
	return env, tok
}

func magic(t *testing.T, tok *token.Token, hash types.Hash) string {
	t.Helper()
	out, err := tok.Execute(alice, signer.IsValidSignature(hash, []byte("ignored")))
	require.NoError(t, err)
	var res signer.IsValidResult
	require.NoError(t, json.Unmarshal(out, &res))
	return res.Magic
}

func validate(t *testing.T, tok *token.Token, hash types.Hash) signer.ValidateResult {
	t.Helper()
	out, err := tok.Execute(alice, signer.ValidateSignature(hash))
	require.NoError(t, err)
	var res signer.ValidateResult
	require.NoError(t, json.Unmarshal(out, &res))
	return res
}

func TestSetSignatureIsPrivileged(t *testing.T) {
	_, tok := deploy(t)
	_, err := tok.Execute(alice, signer.SetSignature(message, 0, 0, signer.ModeMessage))
	assert.ErrorIs(t, err, types.ErrInvalidAuthority)
	assert.Equal(t, "0xffffffff", magic(t, tok, message))
}

func TestValidityWindow(t *testing.T) {
	env, tok := deploy(t)
	start := tokentest.Genesis.Unix()

	_, err := tok.Execute(maintainer, signer.SetSignature(message, start+60, start+120, signer.ModeMessage))
	require.NoError(t, err)

	assert.Equal(t, "0xffffffff", magic(t, tok, message), "not yet valid")
	env.Clock.Advance(60 * time.Second)
	assert.Equal(t, "0x1626ba7e", magic(t, tok, message))
	env.Clock.Advance(60 * time.Second)
	assert.Equal(t, "0x1626ba7e", magic(t, tok, message), "bounds are inclusive")
	env.Clock.Advance(time.Second)
	assert.Equal(t, "0xffffffff", magic(t, tok, message), "expired")
}

func TestModes(t *testing.T) {
	_, tok := deploy(t)
	op := types.HashBytes([]byte("operation"))

	_, err := tok.Execute(maintainer, signer.SetSignature(message, 0, 0, signer.ModeMessage))
	require.NoError(t, err)
	_, err = tok.Execute(maintainer, signer.SetSignature(op, 0, 0, signer.ModeOperation))
	require.NoError(t, err)

	assert.Equal(t, "0x1626ba7e", magic(t, tok, message))
	assert.Equal(t, "0xffffffff", magic(t, tok, op))
	assert.False(t, validate(t, tok, message).Valid)
	assert.True(t, validate(t, tok, op).Valid)
	assert.Equal(t, signer.ValidateResult{}, validate(t, tok, types.HashBytes([]byte("unknown"))))

	_, err = tok.Execute(maintainer, signer.SetSignature(op, 0, 0, 0))
	assert.ErrorIs(t, err, types.ErrInvalidArgument)
	_, err = tok.Execute(maintainer, signer.SetSignature(op, 0, 0, 8))
	assert.ErrorIs(t, err, types.ErrInvalidArgument)
	_, err = tok.Execute(maintainer, signer.SetSignature(op, 10, 5, signer.ModeOperation))
	assert.ErrorIs(t, err, types.ErrInvalidArgument)
}

func TestRemoveSignature(t *testing.T) {
	_, tok := deploy(t)
	_, err := tok.Execute(maintainer, signer.SetSignature(message, 0, 0, signer.ModeMessage|signer.ModeOperation))
	require.NoError(t, err)
	assert.True(t, validate(t, tok, message).Valid)

	_, err = tok.Execute(maintainer, signer.RemoveSignature(message))
	require.NoError(t, err)
	assert.Equal(t, "0xffffffff", magic(t, tok, message))

	_, err = tok.Execute(maintainer, signer.RemoveSignature(message))
	assert.ErrorIs(t, err, signer.ErrSignatureNotFound)
}

func TestRecordValidAt(t *testing.T) {
	now := time.Unix(1000, 0)
	cases := []struct {
		rec  signer.Record
		want bool
	}{
		{signer.Record{Mode: signer.ModeMessage}, true},
		{signer.Record{Mode: signer.ModeOperation}, false},
		{signer.Record{ValidAfter: 1001, Mode: signer.ModeMessage}, false},
		{signer.Record{ValidAfter: 1000, ValidUntil: 1000, Mode: signer.ModeMessage}, true},
		{signer.Record{ValidUntil: 999, Mode: signer.ModeMessage}, false},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, c.rec.ValidAt(now, signer.ModeMessage), "%+v", c.rec)
	}
}
