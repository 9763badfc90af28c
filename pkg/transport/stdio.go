package transport

import (
	"bufio"
	"encoding/json"
	"io"
	"os"
	"sync"

	"github.com/richard-senior/matchpredict/internal/logger"
	"github.com/richard-senior/matchpredict/pkg/protocol"
)

// StdioTransport exchanges newline terminated JSON-RPC messages over a reader and writer
type StdioTransport struct {
	reader *bufio.Reader
	mu     sync.Mutex
	writer *bufio.Writer
}

// NewStdioTransport creates a transport over stdin/stdout
func NewStdioTransport() *StdioTransport {
	return NewStreamTransport(os.Stdin, os.Stdout)
}

// NewStreamTransport creates a transport over any reader and writer
func NewStreamTransport(r io.Reader, w io.Writer) *StdioTransport {
	return &StdioTransport{
		reader: bufio.NewReader(r),
		writer: bufio.NewWriter(w),
	}
}

// ReadRequest reads one JSON object, tracking brace depth so messages need not be
// newline delimited. Malformed messages come back as a *protocol.JsonRpcError.
func (t *StdioTransport) ReadRequest() (*protocol.JsonRpcRequest, error) {
	data, err := t.readObject()
	if err != nil {
		if err == io.EOF {
			logger.Info("Received EOF, client disconnected")
		} else {
			logger.Error("Error reading request:", err)
		}
		return nil, err
	}
	logger.Debug("Received raw request:", string(data))

	req, err := protocol.ParseJsonRpcRequest(data)
	if err != nil {
		logger.Warn("Failed to parse JSON-RPC request:", err)
		return nil, err
	}
	return req, nil
}

func (t *StdioTransport) readObject() ([]byte, error) {
	var (
		data       []byte
		depth      int
		started    bool
		inString   bool
		escapeNext bool
	)
	for {
		b, err := t.reader.ReadByte()
		if err != nil {
			if err == io.EOF && started {
				return nil, io.ErrUnexpectedEOF
			}
			return nil, err
		}
		if !started {
			switch b {
			case ' ', '\t', '\r', '\n':
				continue
			}
			started = true
		}
		data = append(data, b)

		if inString {
			switch {
			case escapeNext:
				escapeNext = false
			case b == '\\':
				escapeNext = true
			case b == '"':
				inString = false
			}
			continue
		}

		switch b {
		case '"':
			inString = true
		case '{', '[':
			depth++
		case '}', ']':
			depth--
		}
		if depth <= 0 {
			return data, nil
		}
	}
}

// WriteResponse writes the response as a single line and flushes it
func (t *StdioTransport) WriteResponse(response *protocol.JsonRpcResponse) error {
	b, err := json.Marshal(response)
	if err != nil {
		logger.Error("Failed to marshal response:", err)
		return err
	}
	b = append(b, '\n')
	logger.Debug("Sending response:", string(b))

	t.mu.Lock()
	defer t.mu.Unlock()
	if _, err := t.writer.Write(b); err != nil {
		logger.Error("Failed to write response:", err)
		return err
	}
	if err := t.writer.Flush(); err != nil {
		logger.Error("Failed to flush response:", err)
		return err
	}
	return nil
}
