package libglittrwallet

import (
	"github.com/glittrfi/glittr-go/infrastructure/logger"
)

var log, _ = logger.Get(logger.SubsystemTags.WLLT)
