// Package config reads the YAML run configuration and turns it into a
// types.Config.
package config

import (
	"io"
	"math"
	"math/big"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/celer-network/eth-batch-sender/types"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

const (
	DefaultGasMultiplier       = 1.05
	DefaultGasPollInterval     = time.Second
	DefaultGateWaitInterval    = time.Second
	DefaultMaxGasQueryFailures = 10
	DefaultLogLevel            = "info"
)

// File mirrors config.yaml. Amounts are in the units an operator reads on a
// block explorer: gas_target in gwei, value in wei, delays in seconds.
type File struct {
	Contract      string   `yaml:"contract" validate:"required,eth_addr"`
	InputData     string   `yaml:"input_data" validate:"omitempty,eq=0x|eq=0X|hexadecimal"`
	RPC           string   `yaml:"rpc" validate:"required,url"`
	SecondaryRPCs []string `yaml:"secondary_rpcs" validate:"dive,url"`

	WorkersCount int `yaml:"workers_count" validate:"gt=0"`
	// [min, max] seconds slept before each account's gas re-check
	SleepBetweenAccounts []float64 `yaml:"sleep_between_accounts" validate:"required,len=2,dive,gte=0"`

	GasTarget     float64 `yaml:"gas_target" validate:"gt=0"`
	Value         string  `yaml:"value" validate:"omitempty,numeric"`
	GasMultiplier float64 `yaml:"gas_multiplier" validate:"gte=1"`

	GasPollInterval         time.Duration `yaml:"gas_poll_interval" validate:"gt=0"`
	GateWaitInterval        time.Duration `yaml:"gate_wait_interval" validate:"gt=0"`
	MaxGasQueryFailures     int           `yaml:"max_gas_query_failures" validate:"gte=0"`
	MaxSubmissionsPerSecond float64       `yaml:"max_submissions_per_second" validate:"gte=0"`

	LogLevel string `yaml:"log_level" validate:"omitempty,oneof=debug info warn error"`
	LogFile  string `yaml:"log_file"`
}

// Default returns a File holding every optional setting at its default.
func Default() *File {
	return &File{
		Value:               "0",
		GasMultiplier:       DefaultGasMultiplier,
		GasPollInterval:     DefaultGasPollInterval,
		GateWaitInterval:    DefaultGateWaitInterval,
		MaxGasQueryFailures: DefaultMaxGasQueryFailures,
		LogLevel:            DefaultLogLevel,
	}
}

// Load reads and checks the YAML file at path.
func Load(path string) (*File, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "failed to open config file")
	}
	defer file.Close()

	f, err := Decode(file)
	if err != nil {
		return nil, errors.Wrapf(err, "invalid config %s", path)
	}
	return f, nil
}

// Decode reads YAML from r over the defaults and checks the result. Unknown
// keys are rejected.
func Decode(r io.Reader) (*File, error) {
	f := Default()
	decoder := yaml.NewDecoder(r)
	decoder.KnownFields(true)
	if err := decoder.Decode(f); err != nil {
		return nil, errors.Wrap(err, "failed to decode config")
	}
	if err := f.Check(); err != nil {
		return nil, err
	}
	return f, nil
}

// Check validates the config.
func (f *File) Check() error {
	if err := validator.New().Struct(f); err != nil {
		return errors.Wrap(err, "config validation failed")
	}
	if f.SleepBetweenAccounts[0] > f.SleepBetweenAccounts[1] {
		return errors.Errorf("sleep_between_accounts min %v is above max %v",
			f.SleepBetweenAccounts[0], f.SleepBetweenAccounts[1])
	}
	if _, err := parseInputData(f.InputData); err != nil {
		return err
	}
	if _, err := parseValue(f.Value); err != nil {
		return err
	}
	return nil
}

// ToConfig converts a checked File into the runtime configuration.
func (f *File) ToConfig(logger types.Logger) (*types.Config, error) {
	rpcURL, err := url.Parse(f.RPC)
	if err != nil {
		return nil, errors.Wrap(err, "invalid rpc")
	}
	secondaryURLs := make([]*url.URL, 0, len(f.SecondaryRPCs))
	for _, raw := range f.SecondaryRPCs {
		u, err := url.Parse(raw)
		if err != nil {
			return nil, errors.Wrapf(err, "invalid secondary rpc %s", raw)
		}
		secondaryURLs = append(secondaryURLs, u)
	}

	inputData, err := parseInputData(f.InputData)
	if err != nil {
		return nil, err
	}
	value, err := parseValue(f.Value)
	if err != nil {
		return nil, err
	}
	multiplier, ok := new(big.Rat).SetString(strconv.FormatFloat(f.GasMultiplier, 'f', -1, 64))
	if !ok {
		return nil, errors.Errorf("invalid gas_multiplier %v", f.GasMultiplier)
	}

	return &types.Config{
		Logger:           logger,
		RPCURL:           rpcURL,
		SecondaryRPCURLs: secondaryURLs,

		ContractAddress: common.HexToAddress(f.Contract),
		InputData:       inputData,
		Value:           value,

		WorkersCount:    f.WorkersCount,
		MinAccountDelay: secondsToDuration(f.SleepBetweenAccounts[0]),
		MaxAccountDelay: secondsToDuration(f.SleepBetweenAccounts[1]),

		GasTarget:     types.GweiToWei(f.GasTarget),
		GasMultiplier: multiplier,

		GasPollInterval:         f.GasPollInterval,
		GateWaitInterval:        f.GateWaitInterval,
		MaxGasQueryFailures:     f.MaxGasQueryFailures,
		MaxSubmissionsPerSecond: f.MaxSubmissionsPerSecond,
	}, nil
}

func parseInputData(raw string) ([]byte, error) {
	if raw == "" {
		return []byte{}, nil
	}
	if !strings.HasPrefix(raw, "0x") && !strings.HasPrefix(raw, "0X") {
		raw = "0x" + raw
	}
	data, err := hexutil.Decode("0x" + raw[2:])
	if err != nil {
		return nil, errors.Wrap(err, "invalid input_data")
	}
	return data, nil
}

func parseValue(raw string) (*big.Int, error) {
	if raw == "" {
		return new(big.Int), nil
	}
	value, ok := new(big.Int).SetString(raw, 10)
	if !ok {
		return nil, errors.Errorf("value %q is not a whole number of wei", raw)
	}
	if value.Sign() < 0 {
		return nil, errors.Errorf("value %q is negative", raw)
	}
	return value, nil
}

// secondsToDuration keeps millisecond resolution.
func secondsToDuration(seconds float64) time.Duration {
	return time.Duration(math.Round(seconds*1000)) * time.Millisecond
}
