// Package rest implements the data store ports against a PostgREST-style
// hosted database.
package rest

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/okian/interpretreflect/internal/adapters/datastore"
	"github.com/okian/interpretreflect/internal/auth"
	"github.com/okian/interpretreflect/internal/domain/model"
	"github.com/okian/interpretreflect/pkg/metrics"
)

// Tables.
const (
	tableReflections = "reflection_entries"
	tableWellness    = "wellness_metrics"
	tableAnonymized  = "anonymized_reflections"
	tableActivity    = "daily_activity"
)

const maxErrorBody = 64 << 10

// sessionMarkers are error body fragments that mean the bearer token is no
// longer accepted.
var sessionMarkers = []string{"jwt expired", "invalid jwt", "invalid token"}

// Client talks to the hosted data store. It implements datastore.Store.
type Client struct {
	base   *url.URL
	prefix string
	creds  auth.CredentialProvider
	http   *http.Client
	now    func() time.Time
}

var _ datastore.Store = (*Client)(nil)

// New builds a client for baseURL. Every request carries the credential
// resolved from its context by creds.
func New(baseURL string, creds auth.CredentialProvider, opts ...Option) (*Client, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("%w: bad base url %q", datastore.ErrInvalidQuery, baseURL)
	}
	if creds == nil {
		return nil, fmt.Errorf("%w: credential provider is required", datastore.ErrInvalidQuery)
	}
	c := &Client{
		base:   u,
		prefix: "/rest/v1",
		creds:  creds,
		http:   &http.Client{},
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// InsertReflection stores one reflection and returns the created row.
func (c *Client) InsertReflection(ctx context.Context, in datastore.NewReflection) (model.Entry, error) {
	var rows []entryRow
	err := c.do(ctx, "insert_reflection", http.MethodPost, tableReflections, nil,
		[]datastore.NewReflection{in}, "return=representation", &rows)
	if err != nil {
		return model.Entry{}, err
	}
	if len(rows) == 0 {
		return model.Entry{UserID: in.UserID, Kind: in.Kind, Data: in.Data}, nil
	}
	return rows[0].entry(), nil
}

// ListReflections returns the user's entries newest first.
func (c *Client) ListReflections(ctx context.Context, q datastore.ListQuery) ([]model.Entry, error) {
	if q.UserID == "" {
		return nil, fmt.Errorf("%w: user id is required", datastore.ErrInvalidQuery)
	}
	v := url.Values{}
	v.Set("select", "*")
	v.Set("user_id", "eq."+q.UserID)
	if !q.Since.IsZero() {
		v.Set("created_at", "gte."+q.Since.UTC().Format(time.RFC3339Nano))
	}
	v.Set("order", "created_at.desc")
	if q.Limit > 0 {
		v.Set("limit", strconv.Itoa(q.Limit))
	}
	var rows []entryRow
	if err := c.do(ctx, "list_reflections", http.MethodGet, tableReflections, v, nil, "", &rows); err != nil {
		return nil, err
	}
	out := make([]model.Entry, 0, len(rows))
	for i := range rows {
		out = append(out, rows[i].entry())
	}
	return out, nil
}

// GetSnapshot loads one weekly snapshot.
func (c *Client) GetSnapshot(ctx context.Context, userHash string, weekOf time.Time) (model.Snapshot, bool, error) {
	v := url.Values{}
	v.Set("select", "*")
	v.Set("user_hash", "eq."+userHash)
	v.Set("week_of", "eq."+weekOf.Format(datastore.DateLayout))
	v.Set("limit", "1")
	var rows []snapshotRow
	if err := c.do(ctx, "get_snapshot", http.MethodGet, tableWellness, v, nil, "", &rows); err != nil {
		return model.Snapshot{}, false, err
	}
	if len(rows) == 0 {
		return model.Snapshot{}, false, nil
	}
	s, err := rows[0].snapshot()
	if err != nil {
		return model.Snapshot{}, false, err
	}
	return s, true, nil
}

// UpsertSnapshot writes s, replacing any row for the same user and week.
func (c *Client) UpsertSnapshot(ctx context.Context, s model.Snapshot) error { //nolint:gocritic // hugeParam
	v := url.Values{}
	v.Set("on_conflict", "user_hash,week_of")
	return c.do(ctx, "upsert_snapshot", http.MethodPost, tableWellness, v,
		[]snapshotRow{snapshotToRow(s)}, "resolution=merge-duplicates,return=minimal", nil)
}

// ListSnapshots returns snapshots since the given week, oldest first.
func (c *Client) ListSnapshots(ctx context.Context, userHash string, since time.Time) ([]model.Snapshot, error) {
	v := url.Values{}
	v.Set("select", "*")
	v.Set("user_hash", "eq."+userHash)
	v.Set("week_of", "gte."+since.Format(datastore.DateLayout))
	v.Set("order", "week_of.asc")
	var rows []snapshotRow
	if err := c.do(ctx, "list_snapshots", http.MethodGet, tableWellness, v, nil, "", &rows); err != nil {
		return nil, err
	}
	out := make([]model.Snapshot, 0, len(rows))
	for i := range rows {
		s, err := rows[i].snapshot()
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, nil
}

// HasAnonymizedRecord reports whether recordHash was already written.
func (c *Client) HasAnonymizedRecord(ctx context.Context, recordHash string) (bool, error) {
	v := url.Values{}
	v.Set("select", "record_hash")
	v.Set("record_hash", "eq."+recordHash)
	v.Set("limit", "1")
	var rows []anonymizedRow
	if err := c.do(ctx, "has_anonymized", http.MethodGet, tableAnonymized, v, nil, "", &rows); err != nil {
		return false, err
	}
	return len(rows) > 0, nil
}

// InsertAnonymizedRecord appends r; a duplicate hash is ignored.
func (c *Client) InsertAnonymizedRecord(ctx context.Context, r model.AnonymizedRecord) error { //nolint:gocritic // hugeParam
	v := url.Values{}
	v.Set("on_conflict", "record_hash")
	row := anonymizedRow{
		RecordHash:      r.RecordHash,
		UserHash:        r.UserHash,
		WeekOf:          r.WeekOf.Format(datastore.DateLayout),
		Kind:            string(r.Kind),
		StressLevel:     r.Stress,
		EnergyLevel:     r.Energy,
		BurnoutScore:    r.Burnout,
		ConfidenceScore: r.Confidence,
		CreatedAt:       r.CreatedAt.UTC(),
	}
	return c.do(ctx, "insert_anonymized", http.MethodPost, tableAnonymized, v,
		[]anonymizedRow{row}, "resolution=ignore-duplicates,return=minimal", nil)
}

// RecordActivity marks the calendar date of day active for userID.
func (c *Client) RecordActivity(ctx context.Context, userID string, day time.Time) error {
	v := url.Values{}
	v.Set("on_conflict", "user_id,activity_date")
	row := activityRow{UserID: userID, ActivityDate: day.Format(datastore.DateLayout)}
	return c.do(ctx, "record_activity", http.MethodPost, tableActivity, v,
		[]activityRow{row}, "resolution=ignore-duplicates,return=minimal", nil)
}

// ActivityDays returns active dates on or after since, newest first.
func (c *Client) ActivityDays(ctx context.Context, userID string, since time.Time) ([]time.Time, error) {
	v := url.Values{}
	v.Set("select", "activity_date")
	v.Set("user_id", "eq."+userID)
	v.Set("activity_date", "gte."+since.Format(datastore.DateLayout))
	v.Set("order", "activity_date.desc")
	var rows []activityRow
	if err := c.do(ctx, "activity_days", http.MethodGet, tableActivity, v, nil, "", &rows); err != nil {
		return nil, err
	}
	out := make([]time.Time, 0, len(rows))
	for _, r := range rows {
		d, err := time.Parse(datastore.DateLayout, r.ActivityDate)
		if err != nil {
			return nil, fmt.Errorf("parse activity_date %q: %w", r.ActivityDate, err)
		}
		out = append(out, d)
	}
	return out, nil
}

// Close releases idle connections.
func (c *Client) Close() error {
	c.http.CloseIdleConnections()
	return nil
}

func (c *Client) do(ctx context.Context, op, method, table string, query url.Values, body any, prefer string, out any) error {
	start := c.now()
	err := c.roundTrip(ctx, method, table, query, body, prefer, out)
	outcome := "ok"
	if err != nil {
		outcome = "error"
		if errors.Is(err, auth.ErrSessionExpired) {
			outcome = "session_expired"
		}
	}
	metrics.RecordStoreLatency(op, outcome, float64(c.now().Sub(start).Milliseconds()))
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

func (c *Client) roundTrip(ctx context.Context, method, table string, query url.Values, body any, prefer string, out any) error {
	u := *c.base
	u.Path = strings.TrimRight(u.Path, "/") + c.prefix + "/" + table
	if query != nil {
		u.RawQuery = query.Encode()
	}

	var rdr io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode body: %w", err)
		}
		rdr = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, u.String(), rdr)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	cred := c.creds.Credential(ctx)
	if cred.APIKey != "" {
		req.Header.Set("apikey", cred.APIKey)
	}
	if cred.Bearer != "" {
		req.Header.Set("Authorization", "Bearer "+cred.Bearer)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if prefer != "" {
		req.Header.Set("Prefer", prefer)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("%w: %v", datastore.ErrUnavailable, err) //nolint:errorlint // transport detail only
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return classify(resp.StatusCode, raw)
	}
	if out == nil || resp.StatusCode == http.StatusNoContent {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// classify maps a rejected response to an error. Expired or invalid tokens
// become auth.ErrSessionExpired, everything else carries the store's own
// message.
func classify(status int, raw []byte) error {
	msg := errorMessage(raw)
	if status == http.StatusUnauthorized || isSessionError(msg) || isSessionError(string(raw)) {
		return auth.ErrSessionExpired
	}
	return &datastore.StatusError{Status: status, Body: msg}
}

func errorMessage(raw []byte) string {
	var body struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	if err := json.Unmarshal(raw, &body); err == nil {
		if body.Message != "" {
			return body.Message
		}
		if body.Error != "" {
			return body.Error
		}
	}
	return strings.TrimSpace(string(raw))
}

func isSessionError(s string) bool {
	s = strings.ToLower(s)
	for _, m := range sessionMarkers {
		if strings.Contains(s, m) {
			return true
		}
	}
	return false
}
