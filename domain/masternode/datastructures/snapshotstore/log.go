package snapshotstore

import (
	"github.com/dashevo/dashspv/infrastructure/logger"
)

var log = logger.RegisterSubSystem("MNDB")
