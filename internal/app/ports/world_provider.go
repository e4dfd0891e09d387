package ports

import (
	"questweaver/internal/domain/worlddata"
)

// WorldProvider exposes the static world catalog. *worlddata.Catalog
// satisfies it.
type WorldProvider interface {
	World(name string) (worlddata.World, bool)
	Names() []string
	Default() (worlddata.World, bool)
}
