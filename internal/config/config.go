// Package config loads the solver's startup configuration: the list of
// chain networks it operates against, and its pricing profile.
//
// Grounded on the teacher's provider.ProviderConfigStore JSON-file
// persistence pattern, stripped of its encryption layer (secret
// management is explicitly out of scope here) and repurposed to load
// networks and a solver profile rather than per-chain API-key providers.
package config

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/ethereum/go-ethereum/common"

	"github.com/aaravm/onlyswaps-solver/pkg/swaptypes"
)

// NetworkConfig describes one chain the solver operates against.
type NetworkConfig struct {
	ChainID       uint64 `json:"chain_id"`
	RPCURL        string `json:"rpc_url"`
	RUSDAddress   string `json:"rusd_address"`
	RouterAddress string `json:"router_address"`
}

// SolverProfile is the solver's named profile. ThresholdMultiplier is
// loaded and validated here, but nothing reads it: the auction execution
// threshold is fixed at 2x the reserve price.
type SolverProfile struct {
	ThresholdMultiplier float64 `json:"threshold_multiplier"`
	SolverName          string  `json:"solver_name"`
}

// File is the on-disk JSON structure.
type File struct {
	Networks     []NetworkConfig `json:"networks"`
	SolverConfig *SolverProfile  `json:"solver_config,omitempty"`
}

// Config is the solver's validated, typed startup configuration.
type Config struct {
	Networks []NetworkConfig
	Solver   SolverProfile
}

// defaultSolverProfile is used when the config file omits solver_config.
var defaultSolverProfile = SolverProfile{
	ThresholdMultiplier: 3.0,
	SolverName:          "default",
}

// Load reads and validates the JSON configuration file at path.
//
// Required fields: at least one network, and each network must carry a
// non-zero chain_id, rpc_url, rusd_address and router_address. A
// configuration error here is fatal at startup (spec.md §6).
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var file File
	if err := json.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	if len(file.Networks) == 0 {
		return nil, fmt.Errorf("config must declare at least one network")
	}

	seen := make(map[uint64]struct{}, len(file.Networks))
	for i, n := range file.Networks {
		if n.ChainID == 0 {
			return nil, fmt.Errorf("networks[%d]: chain_id is required", i)
		}
		if n.RPCURL == "" {
			return nil, fmt.Errorf("networks[%d]: rpc_url is required", i)
		}
		if n.RUSDAddress == "" {
			return nil, fmt.Errorf("networks[%d]: rusd_address is required", i)
		}
		if n.RouterAddress == "" {
			return nil, fmt.Errorf("networks[%d]: router_address is required", i)
		}
		if _, dup := seen[n.ChainID]; dup {
			return nil, fmt.Errorf("networks[%d]: duplicate chain_id %d", i, n.ChainID)
		}
		seen[n.ChainID] = struct{}{}
	}

	profile := defaultSolverProfile
	if file.SolverConfig != nil {
		profile = *file.SolverConfig
		if profile.SolverName == "" {
			profile.SolverName = defaultSolverProfile.SolverName
		}
		if profile.ThresholdMultiplier <= 0 {
			return nil, fmt.Errorf("solver_config.threshold_multiplier must be positive")
		}
	}

	return &Config{Networks: file.Networks, Solver: profile}, nil
}

// TypedChainID returns the typed swaptypes.ChainId for a network entry.
func (n NetworkConfig) TypedChainID() swaptypes.ChainId {
	return swaptypes.ChainId(n.ChainID)
}

// ParsedRouterAddress decodes the hex-encoded router address.
func (n NetworkConfig) ParsedRouterAddress() swaptypes.Address {
	return swaptypes.Address(common.HexToAddress(n.RouterAddress))
}

// ParsedRUSDAddress decodes the hex-encoded token address.
func (n NetworkConfig) ParsedRUSDAddress() swaptypes.Address {
	return swaptypes.Address(common.HexToAddress(n.RUSDAddress))
}
