package nodes

import (
	"github.com/aretw0/espalier/pkg/domain"
)

// Func builds a plain task node around an execute function.
func Func(id string, fn domain.ExecFunc) domain.Node {
	return domain.Node{
		ID:      id,
		Type:    domain.NodeTypeTask,
		Execute: fn,
	}
}
