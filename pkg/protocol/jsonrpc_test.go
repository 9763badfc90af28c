package protocol

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseJsonRpcRequest(t *testing.T) {
	req, err := ParseJsonRpcRequest([]byte(`{"jsonrpc":"2.0","id":7,"method":"tools/list","params":{}}`))
	require.NoError(t, err)
	assert.Equal(t, string(MethodToolsList), req.Method)
	assert.Equal(t, float64(7), req.ID)
	assert.False(t, req.IsNotification())

	note, err := ParseJsonRpcRequest([]byte(`{"jsonrpc":"2.0","method":"notifications/initialized"}`))
	require.NoError(t, err)
	assert.True(t, note.IsNotification())
}

func TestParseJsonRpcRequestErrors(t *testing.T) {
	tests := []struct {
		in   string
		code int
	}{
		{`{not json`, ErrParse},
		{`{"jsonrpc":"1.0","id":1,"method":"ping"}`, ErrInvalidRequest},
		{`{"jsonrpc":"2.0","id":1}`, ErrInvalidRequest},
	}
	for _, tt := range tests {
		_, err := ParseJsonRpcRequest([]byte(tt.in))
		var rpcErr *JsonRpcError
		require.True(t, errors.As(err, &rpcErr), tt.in)
		assert.Equal(t, tt.code, rpcErr.Code, tt.in)
	}
}

func TestResponses(t *testing.T) {
	resp, err := NewJsonRpcResponse(TextResult("hello"), 3)
	require.NoError(t, err)
	assert.JSONEq(t, `{"jsonrpc":"2.0","id":3,"result":{"content":[{"type":"text","text":"hello"}]}}`, resp.String())

	errResp := NewJsonRpcErrorResponse(ErrMethodNotFound, "Method not found: nope", nil, nil)
	b, err := json.Marshal(errResp)
	require.NoError(t, err)
	assert.JSONEq(t, `{"jsonrpc":"2.0","id":null,"error":{"code":-32601,"message":"Method not found: nope"}}`, string(b))

	parsed, err := ParseJsonRpcResponse(b)
	require.NoError(t, err)
	assert.Equal(t, ErrMethodNotFound, parsed.Error.Code)
}
