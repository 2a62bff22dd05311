package schema

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"

	"github.com/morezero/coretime-allocator/pkg/codec"
	"github.com/morezero/coretime-allocator/pkg/xcm"
)

const logPrefix = "schema:loader"

// LoadSchema loads the broker schema artifact. It tries paths in order: first any paths
// passed in, then ALLOCATOR_SCHEMA_FILE, then config/broker_schema.json and
// broker_schema.json. Unreadable or unparsable files are skipped; when none loads the
// local table is returned.
func LoadSchema(paths ...string) (*BrokerSchema, error) {
	all := make([]string, 0, len(paths)+3)
	for _, p := range paths {
		if p != "" {
			all = append(all, p)
		}
	}
	if envPath := os.Getenv("ALLOCATOR_SCHEMA_FILE"); envPath != "" {
		all = append(all, envPath)
	}
	all = append(all, "config/broker_schema.json", "broker_schema.json")

	for _, p := range all {
		data, err := os.ReadFile(p)
		if err != nil {
			continue
		}

		var s BrokerSchema
		if err := json.Unmarshal(data, &s); err != nil {
			slog.Warn(fmt.Sprintf("%s - Failed to parse schema file %s: %v", logPrefix, p, err))
			continue
		}

		slog.Info(fmt.Sprintf("%s - Loaded broker schema %s@%s from %s", logPrefix, s.Name, s.Version, p))
		return &s, nil
	}

	slog.Info(fmt.Sprintf("%s - No schema artifact found, using local table", logPrefix))
	return LocalSchema(), nil
}

// LocalSchema returns the table compiled into this binary.
func LocalSchema() *BrokerSchema {
	return &BrokerSchema{
		Name:        "coretime-broker",
		Version:     "1.0.0",
		Description: "Relay chain Broker pallet calls driven by the coretime allocator",
		PalletIndex: codec.BrokerPalletIndex,
		Calls:       localCalls(),
		Xcm: XcmIndexes{
			Version:         xcm.VersionV3,
			UnpaidExecution: xcm.InstructionUnpaidExecution,
			Transact:        xcm.InstructionTransact,
			OriginNative:    uint8(xcm.OriginNative),
		},
	}
}

func localCalls() map[string]uint8 {
	calls := make(map[string]uint8, 4)
	for _, c := range []codec.Call{
		codec.RequestCoreCount{},
		codec.RequestRevenueInfoAt{},
		codec.CreditAccount{},
		codec.AssignCore{},
	} {
		calls[c.Name()] = c.CallIndex()
	}
	return calls
}
