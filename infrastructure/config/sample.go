package config

const sampleConfig = `[Application Options]

; ------------------------------------------------------------------------------
; Data settings
; ------------------------------------------------------------------------------

; The directory to store masternode lists in. The network name is appended.
; datadir=~/.dashspv/data

; The size of the database cache in MiB.
; dbcachesize=16

; Keep the masternode lists of this many blocks below the latest list on disk.
; 0 keeps every list.
; keeplists=0

; ------------------------------------------------------------------------------
; Network settings
; ------------------------------------------------------------------------------

; Use the test network.
; testnet=1

; Use the development network.
; devnet=1

; Use the regression test network.
; regtest=1

; ------------------------------------------------------------------------------
; Sync settings
; ------------------------------------------------------------------------------

; The maximum number of masternode lists requested from peers at once.
; maxinflight=8

; The number of masternode lists kept in memory.
; cachecapacity=64

; The maximum number of masternode list retrievals tracked at once.
; maxretrievals=1024

; How long a peer has to answer a request.
; requesttimeout=20s

; The ban score at which misbehaving peers are banned.
; banthreshold=100

; Request qrinfo messages for blocks past the rotated quorums activation.
; qrinfo=1

; How to treat quorum signatures of the legacy BLS scheme: skip leaves the
; quorums unchecked, reject marks them invalid.
; legacybls=skip

; ------------------------------------------------------------------------------
; Debug
; ------------------------------------------------------------------------------

; Debug logging level.
; Valid levels are {trace, debug, info, warn, error, critical}
; You may also specify <subsystem>=<level>,<subsystem2>=<level>,... to set
; log level for individual subsystems. Use dashspv --loglevel=show to list
; available subsystems.
; loglevel=info

; Serve Prometheus metrics on the given interface/port.
; metricslisten=:9101
`
