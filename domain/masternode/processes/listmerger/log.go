package listmerger

import (
	"github.com/dashevo/dashspv/infrastructure/logger"
)

var log = logger.RegisterSubSystem("MNLS")
