package assembler

import (
	"github.com/glittrfi/glittr-go/infrastructure/logger"
)

var log, _ = logger.Get(logger.SubsystemTags.ASMB)
