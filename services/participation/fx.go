package participation

import (
	"go.uber.org/fx"
)

var Module = fx.Module("participation.source",
	fx.Provide(
		NewSource,
		func(s *GormSource) Source { return s },
	),
)
