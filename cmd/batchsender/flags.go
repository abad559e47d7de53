package main

import (
	"github.com/urfave/cli/v2"
)

const EnvVarPrefix = "BATCHSENDER"

func prefixEnvVars(name string) []string {
	return []string{EnvVarPrefix + "_" + name}
}

const (
	ConfigFlagName   = "config"
	KeysFlagName     = "keys"
	RPCFlagName      = "rpc"
	WorkersFlagName  = "workers"
	LogLevelFlagName = "log-level"
	LogFileFlagName  = "log-file"
)

var (
	ConfigFlag = &cli.StringFlag{
		Name:    ConfigFlagName,
		Usage:   "Path to the YAML run configuration",
		Value:   "./config.yaml",
		EnvVars: prefixEnvVars("CONFIG"),
	}

	KeysFlag = &cli.StringFlag{
		Name:    KeysFlagName,
		Usage:   "Path to the private keys file, one hex key per line",
		Value:   "./private_keys.txt",
		EnvVars: prefixEnvVars("KEYS"),
	}

	RPCFlag = &cli.StringFlag{
		Name:    RPCFlagName,
		Usage:   "Overrides rpc from the config file",
		EnvVars: prefixEnvVars("RPC"),
	}

	WorkersFlag = &cli.IntFlag{
		Name:    WorkersFlagName,
		Usage:   "Overrides workers_count from the config file",
		EnvVars: prefixEnvVars("WORKERS"),
	}

	LogLevelFlag = &cli.StringFlag{
		Name:    LogLevelFlagName,
		Usage:   "Overrides log_level from the config file (debug, info, warn, error)",
		EnvVars: prefixEnvVars("LOG_LEVEL"),
	}

	LogFileFlag = &cli.StringFlag{
		Name:    LogFileFlagName,
		Usage:   "Overrides log_file from the config file",
		EnvVars: prefixEnvVars("LOG_FILE"),
	}
)

// Flags contains the list of configuration options available to the binary.
var Flags = []cli.Flag{
	ConfigFlag,
	KeysFlag,
	RPCFlag,
	WorkersFlag,
	LogLevelFlag,
	LogFileFlag,
}
