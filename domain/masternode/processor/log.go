package processor

import (
	"github.com/dashevo/dashspv/infrastructure/logger"
	"github.com/dashevo/dashspv/util/panics"
)

var log = logger.RegisterSubSystem("MNLS")
var spawn = panics.GoroutineWrapperFunc(log)
