package pipeline

import (
	"bytes"
	"net/http"
)

// ResponseBuffer é o http.ResponseWriter entregue aos estágios e ao handler.
// Nada chega ao cliente antes de flush.
type ResponseBuffer struct {
	header      http.Header
	status      int
	wroteHeader bool
	body        bytes.Buffer
}

func newResponseBuffer() *ResponseBuffer {
	return &ResponseBuffer{header: make(http.Header)}
}

func (b *ResponseBuffer) Header() http.Header { return b.header }

func (b *ResponseBuffer) WriteHeader(code int) {
	if b.wroteHeader {
		return
	}
	b.wroteHeader = true
	b.status = code
}

func (b *ResponseBuffer) Write(p []byte) (int, error) {
	if !b.wroteHeader {
		b.WriteHeader(http.StatusOK)
	}
	return b.body.Write(p)
}

// Status devolve o status atual. Sem nada escrito, vale 200 (como net/http).
func (b *ResponseBuffer) Status() int {
	if !b.wroteHeader {
		return http.StatusOK
	}
	return b.status
}

func (b *ResponseBuffer) Body() []byte { return b.body.Bytes() }

// Written informa se alguém já definiu status ou corpo.
func (b *ResponseBuffer) Written() bool { return b.wroteHeader }

// Reset descarta status, headers e corpo.
func (b *ResponseBuffer) Reset() {
	b.header = make(http.Header)
	b.status = 0
	b.wroteHeader = false
	b.body.Reset()
}

// Respond substitui o que havia por uma resposta completa.
func (b *ResponseBuffer) Respond(status int, contentType string, body []byte) {
	b.Reset()
	if contentType != "" {
		b.header.Set("Content-Type", contentType)
	}
	b.WriteHeader(status)
	_, _ = b.body.Write(body)
}

func (b *ResponseBuffer) flush(w http.ResponseWriter) {
	dst := w.Header()
	for k, v := range b.header {
		dst[k] = v
	}
	w.WriteHeader(b.Status())
	_, _ = w.Write(b.body.Bytes())
}
