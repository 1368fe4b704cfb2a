package httpapi

import (
	"github.com/jrivasm/contably/internal/storage/memory"
	"github.com/jrivasm/contably/internal/storage/postgres"
)

// Compile-time assertions that both stores satisfy the full Store surface.
var (
	_ Store = (*memory.Store)(nil)
	_ Store = (*postgres.Store)(nil)
)
