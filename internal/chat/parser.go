package chat

import (
	"bytes"
	"encoding/json"

	"shodh/internal/api"
)

// headerParser splits the hybrid chat stream into its one-line JSON header
// and the undelimited raw text that follows. Network chunk boundaries carry
// no meaning: the header's terminating newline can arrive mid-chunk, split
// across chunks, or never. The parser buffers until it sees the newline,
// then switches permanently to pass-through.
//
// It is a two-state machine (buffering the header, then streaming the body)
// with no I/O of its own, so it can be driven byte by byte in tests.
type headerParser struct {
	buf        []byte
	headerDone bool
}

// Feed consumes one chunk. It returns the parsed header metadata on the call
// that completes the header line (nil on every other call) and any body text
// contained in this chunk, including the remainder of the chunk the header
// ended in.
//
// If the text before the newline is not valid JSON the whole buffered prefix
// is handed back as body: malformed metadata degrades to content, it is
// never dropped and never an error.
func (p *headerParser) Feed(chunk []byte) (*api.StreamMeta, []byte) {
	if p.headerDone {
		return nil, chunk
	}

	p.buf = append(p.buf, chunk...)
	idx := bytes.IndexByte(p.buf, '\n')
	if idx < 0 {
		return nil, nil
	}

	head := p.buf[:idx]
	rest := p.buf[idx+1:]
	p.headerDone = true
	p.buf = nil

	var meta api.StreamMeta
	if err := json.Unmarshal(head, &meta); err != nil {
		body := make([]byte, 0, idx+1+len(rest))
		body = append(body, head...)
		body = append(body, '\n')
		body = append(body, rest...)
		return nil, body
	}
	return &meta, rest
}

// Flush returns whatever is still buffered when the stream ends. A stream
// that never contained a newline yields its entire payload as content here.
func (p *headerParser) Flush() []byte {
	if p.headerDone {
		return nil
	}
	p.headerDone = true
	buf := p.buf
	p.buf = nil
	return buf
}
