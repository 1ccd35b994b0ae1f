package main

import (
	"github.com/dashevo/dashspv/infrastructure/logger"
	"github.com/dashevo/dashspv/util/panics"
)

var log = logger.RegisterSubSystem("MNLD")
var spawn = panics.GoroutineWrapperFunc(log)

func backendLogClose() {
	logger.BackendLog.Close()
}
