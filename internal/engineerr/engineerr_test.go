package engineerr_test

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/mepuka/bsky-cli-sub001/internal/engineerr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestErrorMarshalJSON(t *testing.T) {
	err := engineerr.New(engineerr.KindStoreNotFound, "no store named x", errors.New("stat: no such file"))

	data, merr := json.Marshal(err)
	require.NoError(t, merr)
	assert.JSONEq(t, `{"kind":"store_not_found","message":"no store named x","cause":"stat: no such file"}`, string(data))
}

func TestErrorMarshalJSONWithoutCause(t *testing.T) {
	err := engineerr.New(engineerr.KindCliInput, "missing --store flag", nil)

	data, merr := json.Marshal(err)
	require.NoError(t, merr)
	assert.JSONEq(t, `{"kind":"cli_input_error","message":"missing --store flag"}`, string(data))
}

func TestIsMatchesKind(t *testing.T) {
	err := engineerr.NewSync(engineerr.StageParse, "bad record", nil)
	assert.True(t, engineerr.Is(err, engineerr.KindSync))
	assert.False(t, engineerr.Is(err, engineerr.KindDerivation))
}

func TestUnwrapExposesCause(t *testing.T) {
	cause := errors.New("boom")
	err := engineerr.New(engineerr.KindStoreIO, "write failed", cause)
	assert.ErrorIs(t, err, cause)
}
