package main

import (
	"encoding/hex"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"alphapoints/core/points"
	"alphapoints/native/ledger"
	"alphapoints/native/partner"
	"alphapoints/state"
)

// genesisSpec seeds roles, partner capabilities and opening balances on first
// boot. The file is YAML so operators can review diffs easily.
type genesisSpec struct {
	Roles    []genesisRole    `yaml:"roles"`
	Partners []genesisPartner `yaml:"partners"`
	Balances []genesisBalance `yaml:"balances"`
}

type genesisRole struct {
	Role    string `yaml:"role"`
	Address string `yaml:"address"`
}

type genesisPartner struct {
	Owner              string `yaml:"owner"`
	Name               string `yaml:"name"`
	CollateralUSDMicro uint64 `yaml:"collateral_usd_micro"`
}

type genesisBalance struct {
	User   string `yaml:"user"`
	Amount uint64 `yaml:"amount"`
}

var genesisAppliedKey = []byte("genesis/applied")

func loadGenesisSpec(path string) (*genesisSpec, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read genesis file: %w", err)
	}
	spec := &genesisSpec{}
	if err := yaml.Unmarshal(data, spec); err != nil {
		return nil, fmt.Errorf("parse genesis file %s: %w", path, err)
	}
	return spec, nil
}

// applyGenesis seeds the state exactly once. Subsequent boots with the same
// data directory are no-ops.
func applyGenesis(mgr *state.Manager, svc *points.Service, spec *genesisSpec) error {
	var applied bool
	if ok, err := mgr.KVGet(genesisAppliedKey, &applied); err != nil {
		return fmt.Errorf("check genesis marker: %w", err)
	} else if ok && applied {
		return nil
	}

	var admin [20]byte
	haveAdmin := false
	for _, entry := range spec.Roles {
		addr, err := parseGenesisAddress(entry.Address)
		if err != nil {
			return fmt.Errorf("role %q: %w", entry.Role, err)
		}
		if err := mgr.GrantRole(entry.Role, addr[:]); err != nil {
			return fmt.Errorf("grant role %q: %w", entry.Role, err)
		}
		if entry.Role == partner.RoleAdmin && !haveAdmin {
			admin = addr
			haveAdmin = true
		}
	}

	if len(spec.Partners) > 0 && !haveAdmin {
		return fmt.Errorf("genesis declares partners but no %s role to create them", partner.RoleAdmin)
	}
	for _, entry := range spec.Partners {
		owner, err := parseGenesisAddress(entry.Owner)
		if err != nil {
			return fmt.Errorf("partner %q: %w", entry.Name, err)
		}
		if _, err := svc.CreatePartner(admin, owner, entry.Name, entry.CollateralUSDMicro); err != nil {
			return fmt.Errorf("create partner %q: %w", entry.Name, err)
		}
	}

	if len(spec.Balances) > 0 {
		// Opening balances are minted directly: there is no quota to charge
		// against before any partner has earned anything.
		mint := ledger.NewEngine(mgr)
		mint.SetEmitter(mgr)
		mint.SetPauses(mgr)
		for _, entry := range spec.Balances {
			user, err := parseGenesisAddress(entry.User)
			if err != nil {
				return fmt.Errorf("balance entry: %w", err)
			}
			if err := mint.Earn(user, entry.Amount); err != nil {
				return fmt.Errorf("seed balance for %s: %w", entry.User, err)
			}
		}
	}

	applied = true
	return mgr.KVPut(genesisAppliedKey, applied)
}

func parseGenesisAddress(value string) ([20]byte, error) {
	var addr [20]byte
	trimmed := strings.TrimPrefix(strings.TrimSpace(value), "0x")
	raw, err := hex.DecodeString(trimmed)
	if err != nil {
		return addr, fmt.Errorf("invalid address %q: %w", value, err)
	}
	if len(raw) != len(addr) {
		return addr, fmt.Errorf("invalid address %q: want %d bytes, got %d", value, len(addr), len(raw))
	}
	copy(addr[:], raw)
	return addr, nil
}
