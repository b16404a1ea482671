package domain

import "context"

// SlotPool limita quantas requisições executam ao mesmo tempo.
// Acquire espera uma vaga até o ctx acabar; release devolve a vaga e deve ser
// chamado uma vez.
type SlotPool interface {
	Acquire(ctx context.Context) (release func(), ok bool)
}
