package google

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"regexp"
	"strings"

	"complaints/internal/core"
	ports "complaints/internal/sheets"

	"golang.org/x/oauth2/google"
	"google.golang.org/api/googleapi"
	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"
)

// DefaultWorksheet is the tab read when none is configured.
const DefaultWorksheet = "Data"

// Scopes requested for the service account.
var Scopes = []string{gsheet.SpreadsheetsReadonlyScope, gsheet.DriveReadonlyScope}

type Client struct {
	svc           *gsheet.Service
	spreadsheetID string
	worksheet     string
}

// Ensure interface conformance
var _ ports.SnapshotReader = (*Client)(nil)

// Settings locates the worksheet and the service account credentials.
// SpreadsheetURL is used when SpreadsheetID is empty. Credentials are taken
// from CredentialsJSON, then CredentialsFile.
type Settings struct {
	SpreadsheetID   string
	SpreadsheetURL  string
	Worksheet       string
	CredentialsJSON string
	CredentialsFile string
}

// New creates a Sheets client authenticated as a service account.
func New(ctx context.Context, s Settings) (*Client, error) {
	id := strings.TrimSpace(s.SpreadsheetID)
	if id == "" && strings.TrimSpace(s.SpreadsheetURL) != "" {
		var err error
		id, err = SpreadsheetIDFromURL(s.SpreadsheetURL)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", core.ErrConfiguration, err)
		}
	}
	if id == "" {
		return nil, fmt.Errorf("%w: missing GOOGLE_SPREADSHEET_ID or GOOGLE_SPREADSHEET_URL", core.ErrConfiguration)
	}
	worksheet := strings.TrimSpace(s.Worksheet)
	if worksheet == "" {
		worksheet = DefaultWorksheet
	}

	svc, err := newSheetsService(ctx, s)
	if err != nil {
		return nil, fmt.Errorf("%w: sheets service: %v", core.ErrConfiguration, err)
	}
	return &Client{svc: svc, spreadsheetID: id, worksheet: worksheet}, nil
}

// newSheetsService initializes a Sheets Service using Service Account credentials.
func newSheetsService(ctx context.Context, s Settings) (*gsheet.Service, error) {
	credentialsJSON, err := credentialsBytes(s)
	if err != nil {
		return nil, err
	}

	creds, err := google.CredentialsFromJSON(ctx, credentialsJSON, Scopes...)
	if err != nil {
		return nil, fmt.Errorf("parse service account credentials: %w", err)
	}

	slog.InfoContext(ctx, "Creating Google Sheets service with Service Account",
		"credentials_size", len(credentialsJSON),
		"project_id", creds.ProjectID)

	service, err := gsheet.NewService(ctx, goption.WithCredentials(creds))
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}
	return service, nil
}

func credentialsBytes(s Settings) ([]byte, error) {
	inline := strings.TrimSpace(s.CredentialsJSON)
	file := strings.TrimSpace(s.CredentialsFile)
	switch {
	case inline != "":
		return []byte(inline), nil
	case file != "":
		b, err := os.ReadFile(file)
		if err != nil {
			return nil, fmt.Errorf("read service account file: %w", err)
		}
		return b, nil
	default:
		return nil, errors.New("missing service account credentials (set GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE, or GOOGLE_APPLICATION_CREDENTIALS)")
	}
}

var spreadsheetURLPattern = regexp.MustCompile(`/spreadsheets/d/([a-zA-Z0-9_-]+)`)

// SpreadsheetIDFromURL extracts the document key from a Sheets URL.
func SpreadsheetIDFromURL(u string) (string, error) {
	m := spreadsheetURLPattern.FindStringSubmatch(u)
	if m == nil {
		return "", fmt.Errorf("not a spreadsheet URL: %q", u)
	}
	return m[1], nil
}

// Source names the worksheet for logs and snapshot metadata.
func (c *Client) Source() string {
	return "sheets:" + c.spreadsheetID + "/" + c.worksheet
}

// ReadSnapshot reads the whole worksheet. The first row is the header.
func (c *Client) ReadSnapshot(ctx context.Context) (*core.Snapshot, error) {
	if c.svc == nil {
		return nil, errors.New("sheets service not initialized")
	}
	rng := quoteSheetName(c.worksheet)
	resp, err := c.svc.Spreadsheets.Values.Get(c.spreadsheetID, rng).
		ValueRenderOption("UNFORMATTED_VALUE").
		MajorDimension("ROWS").
		Context(ctx).Do()
	if err != nil {
		return nil, classifyReadError(rng, err)
	}
	snap, err := parseValues(c.Source(), resp.Values)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", rng, err)
	}
	slog.InfoContext(ctx, "Loaded complaints worksheet",
		"source", snap.Source,
		"snapshot_id", snap.ID,
		"records", snap.Len())
	return snap, nil
}

// classifyReadError marks rejected credentials and an unknown spreadsheet
// or worksheet as configuration errors. Other failures stay upstream errors.
func classifyReadError(rng string, err error) error {
	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		switch apiErr.Code {
		case http.StatusUnauthorized, http.StatusForbidden, http.StatusNotFound:
			return fmt.Errorf("%w: read %s: %w", core.ErrConfiguration, rng, err)
		}
	}
	return fmt.Errorf("read %s: %w", rng, err)
}

// quoteSheetName returns an A1 range covering the entire sheet.
func quoteSheetName(name string) string {
	return "'" + strings.ReplaceAll(name, "'", "''") + "'"
}
