package credentials

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	go_json "github.com/goccy/go-json"
	"github.com/google/go-cmp/cmp"
	"golang.org/x/oauth2"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	return NewStore(filepath.Join(t.TempDir(), "data", "logindata.json"))
}

func TestStoreSaveRoundTrip(t *testing.T) {
	t.Parallel()

	s := newTestStore(t)
	input := `  {"access_token":"a","refresh_token":"r","client_id":"cid","extra":{"nested":[1,2]}}  `

	saved, err := s.Save([]byte(input))
	if err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	want := "{\n" +
		"    \"access_token\": \"a\",\n" +
		"    \"refresh_token\": \"r\",\n" +
		"    \"client_id\": \"cid\",\n" +
		"    \"extra\": {\n" +
		"        \"nested\": [\n" +
		"            1,\n" +
		"            2\n" +
		"        ]\n" +
		"    }\n" +
		"}"
	if diff := cmp.Diff(want, string(saved)); diff != "" {
		t.Errorf("Save() document mismatch (-want +got):\n%s", diff)
	}

	doc, err := s.Document()
	if err != nil {
		t.Fatalf("Document() error = %v", err)
	}
	if diff := cmp.Diff(want, string(doc)); diff != "" {
		t.Errorf("Document() mismatch (-want +got):\n%s", diff)
	}

	creds, err := s.Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if creds.AccessToken != "a" || creds.RefreshToken != "r" || creds.ClientID != "cid" {
		t.Errorf("Load() = %+v, want access a, refresh r, client cid", creds)
	}
}

func TestStoreSaveInvalidJSONLeavesFileUntouched(t *testing.T) {
	t.Parallel()

	s := newTestStore(t)
	if _, err := s.Save([]byte(`{"access_token":"original"}`)); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	before, err := os.ReadFile(s.Path())
	if err != nil {
		t.Fatalf("failed to read file: %v", err)
	}
	changed := s.Changed()

	tests := []string{
		`{"access_token":`,
		`not json`,
		``,
	}
	for _, input := range tests {
		if _, err := s.Save([]byte(input)); !errors.Is(err, ErrInvalidJSON) {
			t.Errorf("Save(%q) error = %v, want %v", input, err, ErrInvalidJSON)
		}
	}

	after, err := os.ReadFile(s.Path())
	if err != nil {
		t.Fatalf("failed to read file: %v", err)
	}
	if diff := cmp.Diff(string(before), string(after)); diff != "" {
		t.Errorf("file changed after invalid save (-before +after):\n%s", diff)
	}
	if _, err := os.Stat(s.BackupPath()); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("backup exists after invalid saves, stat error = %v", err)
	}
	select {
	case <-changed:
		t.Error("Changed() fired for an invalid save")
	default:
	}
}

func TestStoreSaveKeepsSingleBackup(t *testing.T) {
	t.Parallel()

	s := newTestStore(t)
	for _, tok := range []string{"first", "second", "third"} {
		if _, err := s.Save([]byte(`{"access_token":"` + tok + `"}`)); err != nil {
			t.Fatalf("Save(%s) error = %v", tok, err)
		}
	}

	backup, err := os.ReadFile(s.BackupPath())
	if err != nil {
		t.Fatalf("failed to read backup: %v", err)
	}
	if !strings.Contains(string(backup), `"second"`) {
		t.Errorf("backup = %s, want the second generation", backup)
	}

	matches, err := filepath.Glob(s.Path() + "*")
	if err != nil {
		t.Fatalf("glob error: %v", err)
	}
	if len(matches) != 2 {
		t.Errorf("files = %v, want the document and one backup", matches)
	}
}

func TestStoreChangedNotifiesOnSave(t *testing.T) {
	t.Parallel()

	s := newTestStore(t)
	changed := s.Changed()

	select {
	case <-changed:
		t.Fatal("Changed() closed before any save")
	default:
	}

	if _, err := s.Save([]byte(`{}`)); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	select {
	case <-changed:
	case <-time.After(time.Second):
		t.Fatal("Changed() not closed after save")
	}

	select {
	case <-s.Changed():
		t.Error("new Changed() channel already closed")
	default:
	}
}

func TestStoreLoadMissing(t *testing.T) {
	t.Parallel()

	s := newTestStore(t)
	if _, err := s.Load(); !errors.Is(err, ErrNotFound) {
		t.Errorf("Load() error = %v, want %v", err, ErrNotFound)
	}
	if _, err := s.Document(); !errors.Is(err, ErrNotFound) {
		t.Errorf("Document() error = %v, want %v", err, ErrNotFound)
	}
}

func TestStoreLoadNotObject(t *testing.T) {
	t.Parallel()

	s := newTestStore(t)
	if _, err := s.Save([]byte(`["a"]`)); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	if _, err := s.Load(); !errors.Is(err, ErrNotObject) {
		t.Errorf("Load() error = %v, want %v", err, ErrNotObject)
	}
}

func TestStoreUpdateToken(t *testing.T) {
	t.Parallel()

	s := newTestStore(t)
	if _, err := s.Save([]byte(`{"access_token":"old","refresh_token":"old-r","mag-identifier":"mag","custom":true}`)); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	changed := s.Changed()

	if err := s.UpdateToken("old-r", &oauth2.Token{AccessToken: "new", RefreshToken: "new-r"}); err != nil {
		t.Fatalf("UpdateToken() error = %v", err)
	}

	raw, err := os.ReadFile(s.Path())
	if err != nil {
		t.Fatalf("failed to read file: %v", err)
	}
	var got map[string]any
	if err := go_json.Unmarshal(raw, &got); err != nil {
		t.Fatalf("failed to decode: %v", err)
	}
	want := map[string]any{
		"access_token":   "new",
		"refresh_token":  "new-r",
		"mag-identifier": "mag",
		"custom":         true,
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("document mismatch (-want +got):\n%s", diff)
	}

	select {
	case <-changed:
		t.Error("UpdateToken() notified waiters")
	default:
	}
}

func TestStoreUpdateTokenAfterOperatorSave(t *testing.T) {
	t.Parallel()

	s := newTestStore(t)
	if _, err := s.Save([]byte(`{"access_token":"old","refresh_token":"old-r"}`)); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	saved, err := s.Save([]byte(`{"access_token":"operator","refresh_token":"operator-r"}`))
	if err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	err = s.UpdateToken("old-r", &oauth2.Token{AccessToken: "fresh", RefreshToken: "fresh-r"})
	if !errors.Is(err, ErrSuperseded) {
		t.Fatalf("UpdateToken() error = %v, want %v", err, ErrSuperseded)
	}

	got, err := s.Document()
	if err != nil {
		t.Fatalf("Document() error = %v", err)
	}
	if diff := cmp.Diff(string(saved), string(got)); diff != "" {
		t.Errorf("document changed by a stale refresh (-want +got):\n%s", diff)
	}
}

func TestTemplateDocument(t *testing.T) {
	t.Parallel()

	want := `{
    "access_token": "",
    "refresh_token": "",
    "scope": "profile openid roles country msso msso_register msso_client_register",
    "resource": [
        "https://mdtsts-ocl.medtronic.com/*"
    ],
    "client_id": "",
    "client_secret": "",
    "mag-identifier": ""
}`
	if diff := cmp.Diff(want, string(TemplateDocument())); diff != "" {
		t.Errorf("TemplateDocument() mismatch (-want +got):\n%s", diff)
	}
}

func TestCredentialsToken(t *testing.T) {
	t.Parallel()

	exp := time.Date(2030, 1, 2, 3, 4, 5, 0, time.UTC)
	withExp := signedToken(t, jwt.RegisteredClaims{ExpiresAt: jwt.NewNumericDate(exp)})
	withoutExp := signedToken(t, jwt.RegisteredClaims{Subject: "patient"})

	tests := []struct {
		name       string
		access     string
		wantExpiry time.Time
	}{
		{name: "jwt with exp", access: withExp, wantExpiry: exp},
		{name: "jwt without exp", access: withoutExp, wantExpiry: time.Time{}},
		{name: "opaque token", access: "opaque", wantExpiry: time.Unix(1, 0)},
		{name: "empty token", access: "", wantExpiry: time.Unix(1, 0)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			tok := Credentials{AccessToken: tt.access, RefreshToken: "r"}.Token()
			if !tok.Expiry.Equal(tt.wantExpiry) {
				t.Errorf("Token().Expiry = %v, want %v", tok.Expiry, tt.wantExpiry)
			}
			if tok.RefreshToken != "r" {
				t.Errorf("Token().RefreshToken = %q, want %q", tok.RefreshToken, "r")
			}
		})
	}
}

func signedToken(t *testing.T, claims jwt.RegisteredClaims) string {
	t.Helper()
	s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("test-key"))
	if err != nil {
		t.Fatalf("failed to sign token: %v", err)
	}
	return s
}
