package main

import (
	"strings"
	"testing"
)

const mainTestPrefix = "cmd/allocator:main_test"

func TestUsage_NonEmpty(t *testing.T) {
	if len(usage) == 0 {
		t.Fatalf("%s - usage string is empty", mainTestPrefix)
	}
}

func TestUsage_ContainsCommands(t *testing.T) {
	required := []string{"serve", "migrate", "clear", "ensure-db", "schema check", "ledger", "DATABASE_URL", "SLOT_STORE"}
	for _, word := range required {
		if !strings.Contains(usage, word) {
			t.Errorf("%s - usage should contain %q", mainTestPrefix, word)
		}
	}
}

func TestRunSchemaCheck_ShippedSchema(t *testing.T) {
	if err := runSchemaCheck("../../config/broker_schema.json"); err != nil {
		t.Errorf("%s - shipped schema should pass: %v", mainTestPrefix, err)
	}
}
