package pipeline

import (
	"errors"
	"fmt"
	"net/http"
	"runtime/debug"

	"store-backend/internal/obs"
)

const (
	// FaultBody é a resposta uniforme para falhas não tratadas.
	FaultBody = `{"error":"Internal server error."}`

	fallbackBody = "Internal Server Error"
)

// PanicError embrulha o valor recuperado de um panic.
type PanicError struct {
	Value any
}

func (e *PanicError) Error() string { return fmt.Sprintf("panic: %v", e.Value) }

func (e *PanicError) Unwrap() error {
	if err, ok := e.Value.(error); ok {
		return err
	}
	return nil
}

// Boundary é a fronteira de exceções: captura panics e falhas levantadas com
// RaiseFault, troca a resposta por FaultBody (500) e registra a falha no sink.
//
// A resposta de erro é escrita uma única vez por requisição, mesmo que mais de
// uma falha aconteça (handler e depois um observador da volta, por exemplo).
// Respostas de erro "normais" escritas por estágios ou handlers não são falhas
// e passam intactas.
type Boundary struct {
	Sink       obs.Sink
	WithStacks bool
}

// Run executa fn protegida pela fronteira.
func (b *Boundary) Run(rc *RequestContext, fn func()) {
	defer func() {
		if v := recover(); v != nil {
			var stack []byte
			if b.WithStacks {
				stack = debug.Stack()
			}
			// um RaiseFault anterior ao panic é a mesma falha
			rc.pending = nil
			b.handle(rc, &PanicError{Value: v}, stack)
		}
	}()

	fn()

	if err := rc.pending; err != nil {
		rc.pending = nil
		b.handle(rc, err, nil)
	}
}

func (b *Boundary) handle(rc *RequestContext, fault error, stack []byte) {
	// falha dentro da própria tradução/log: degrada para texto puro.
	defer func() {
		if recover() != nil {
			rc.converted = true
			rc.Response.Respond(http.StatusInternalServerError, "text/plain; charset=utf-8", []byte(fallbackBody))
		}
	}()

	if rc.fault == nil {
		rc.fault = fault
	}
	if !rc.converted {
		rc.converted = true
		rc.Response.Respond(http.StatusInternalServerError, "application/json", []byte(FaultBody))
	}

	if b.Sink == nil {
		return
	}
	var pe *PanicError
	b.Sink.Fault(obs.FaultRecord{
		RequestID: rc.RequestID,
		Method:    rc.Method,
		Path:      rc.Path,
		Fault:     describe(fault),
		Panic:     errors.As(fault, &pe),
		Stack:     string(stack),
	})
}

func describe(err error) string {
	var pe *PanicError
	if errors.As(err, &pe) {
		return fmt.Sprint(pe.Value)
	}
	return err.Error()
}
