package source

import (
	"context"

	"github.com/Marcin0203/1und1-recruitment-task/internal/salesman"
)

// Static emits a fixed directory once.
type Static struct {
	list []salesman.Salesman
}

// NewStatic returns a Static source for list. A nil list is emitted as empty.
func NewStatic(list []salesman.Salesman) *Static {
	if list == nil {
		list = []salesman.Salesman{}
	}
	return &Static{list: list}
}

// Watch implements Source.
func (s *Static) Watch(ctx context.Context) <-chan Update {
	ch := make(chan Update, 1)
	go func() {
		defer close(ch)
		if !send(ctx, ch, Update{Salesmen: s.list}) {
			return
		}
		<-ctx.Done()
	}()
	return ch
}
