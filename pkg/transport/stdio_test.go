package transport

import (
	"bytes"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/richard-senior/matchpredict/pkg/protocol"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadRequestSplitsObjects(t *testing.T) {
	in := `{"jsonrpc":"2.0","id":1,"method":"initialize","params":{"clientInfo":{"name":"a}{\"b"}}}` +
		"\n\n  " + `{"jsonrpc":"2.0","method":"notifications/initialized"}{"jsonrpc":"2.0","id":2,"method":"tools/list"}`
	tr := NewStreamTransport(strings.NewReader(in), io.Discard)

	req, err := tr.ReadRequest()
	require.NoError(t, err)
	assert.Equal(t, "initialize", req.Method)
	assert.Contains(t, string(req.Params), `a}{\"b`)

	req, err = tr.ReadRequest()
	require.NoError(t, err)
	assert.True(t, req.IsNotification())

	req, err = tr.ReadRequest()
	require.NoError(t, err)
	assert.Equal(t, "tools/list", req.Method)

	_, err = tr.ReadRequest()
	assert.Equal(t, io.EOF, err)
}

func TestReadRequestErrors(t *testing.T) {
	tr := NewStreamTransport(strings.NewReader(`{"jsonrpc":"1.0","id":1,"method":"x"} {"jsonrpc":"2.0"`), io.Discard)

	_, err := tr.ReadRequest()
	var rpcErr *protocol.JsonRpcError
	require.True(t, errors.As(err, &rpcErr))
	assert.Equal(t, protocol.ErrInvalidRequest, rpcErr.Code)

	_, err = tr.ReadRequest()
	assert.Equal(t, io.ErrUnexpectedEOF, err)
}

func TestWriteResponse(t *testing.T) {
	var out bytes.Buffer
	tr := NewStreamTransport(strings.NewReader(""), &out)
	resp, err := protocol.NewJsonRpcResponse(map[string]string{"ok": "yes"}, 4)
	require.NoError(t, err)

	require.NoError(t, tr.WriteResponse(resp))
	require.NoError(t, tr.WriteResponse(protocol.NewJsonRpcErrorResponse(protocol.ErrInternal, "boom", nil, 5)))

	lines := strings.Split(strings.TrimSuffix(out.String(), "\n"), "\n")
	require.Len(t, lines, 2)
	assert.JSONEq(t, `{"jsonrpc":"2.0","id":4,"result":{"ok":"yes"}}`, lines[0])
	assert.Contains(t, lines[1], `"code":-32603`)
}
