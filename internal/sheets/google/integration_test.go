//go:build integration

package google

import (
	"context"
	"os"
	"testing"

	"complaints/internal/core"
)

// Integration tests require a real worksheet and service account.
// Run with: go test -tags=integration ./internal/sheets/google

func TestIntegration_ReadSnapshot(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	settings := Settings{
		SpreadsheetID:   os.Getenv("GOOGLE_SPREADSHEET_ID"),
		SpreadsheetURL:  os.Getenv("GOOGLE_SPREADSHEET_URL"),
		Worksheet:       os.Getenv("GOOGLE_WORKSHEET"),
		CredentialsJSON: os.Getenv("GOOGLE_SERVICE_ACCOUNT_JSON"),
		CredentialsFile: os.Getenv("GOOGLE_SERVICE_ACCOUNT_FILE"),
	}
	if settings.SpreadsheetID == "" && settings.SpreadsheetURL == "" {
		t.Skip("GOOGLE_SPREADSHEET_ID not set, skipping integration test")
	}
	if settings.CredentialsJSON == "" && settings.CredentialsFile == "" {
		t.Skip("service account credentials not configured, skipping integration test")
	}

	ctx := context.Background()
	client, err := New(ctx, settings)
	if err != nil {
		t.Fatalf("Failed to create client: %v", err)
	}

	snap, err := client.ReadSnapshot(ctx)
	if err != nil {
		t.Fatalf("Failed to read snapshot: %v", err)
	}
	t.Logf("Read %d records from %s", snap.Len(), snap.Source)

	if err := snap.Require(core.ColState, core.ColCount); err != nil {
		t.Fatalf("mandatory columns: %v", err)
	}
	for i, r := range snap.Records {
		if err := r.Validate(); err != nil {
			t.Errorf("record %d: %v", i, err)
		}
	}
}

func TestIntegration_InvalidSpreadsheetID(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	creds := os.Getenv("GOOGLE_SERVICE_ACCOUNT_JSON")
	if creds == "" {
		t.Skip("GOOGLE_SERVICE_ACCOUNT_JSON not set, skipping integration test")
	}

	ctx := context.Background()
	client, err := New(ctx, Settings{SpreadsheetID: "invalid-spreadsheet-id", CredentialsJSON: creds})
	if err != nil {
		t.Fatalf("client creation should succeed lazily: %v", err)
	}
	if _, err := client.ReadSnapshot(ctx); err == nil {
		t.Error("Expected error with invalid spreadsheet ID")
	}
}
