package mnlistsync

import (
	"github.com/dashevo/dashspv/infrastructure/logger"
	"github.com/dashevo/dashspv/util/panics"
)

var log = logger.RegisterSubSystem("SYNC")
var spawn = panics.GoroutineWrapperFunc(log)
