package accounts

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func testTable(t *testing.T) *Table {
	t.Helper()
	table, err := NewTable(
		[]CNAccount{
			{ID: 1, Cookie: "cookie-1", XSRFToken: "token-1"},
			{ID: 2, Cookie: "cookie-2", XSRFToken: "token-2"},
			{ID: 3}, // configured but empty
		},
		IntlAccount{Cookie: "intl-cookie", Authorization: "Bearer abc", BxUA: "bx"},
		map[string]int{"Qwen3-Max-Preview": 2},
	)
	if err != nil {
		t.Fatalf("NewTable: %v", err)
	}
	return table
}

func TestRouteMappedModel(t *testing.T) {
	table := testTable(t)
	if got := table.Route("Qwen3-Max-Preview"); got != 2 {
		t.Errorf("Route(mapped) = %d, want 2", got)
	}
}

func TestRouteUnmappedModelFallsBack(t *testing.T) {
	table := testTable(t)
	for _, model := range []string{"qwen-plus", "qwen-vl-plus", "", "unknown-model"} {
		if got := table.Route(model); got != DefaultAccountID {
			t.Errorf("Route(%q) = %d, want default %d", model, got, DefaultAccountID)
		}
	}
}

func TestCNSelection(t *testing.T) {
	table := testTable(t)

	acct, err := table.CN(1)
	if err != nil {
		t.Fatalf("CN(1): %v", err)
	}
	if acct.Cookie != "cookie-1" || acct.XSRFToken != "token-1" {
		t.Errorf("CN(1) returned wrong credentials: %+v", acct)
	}
}

func TestCNMissingAccount(t *testing.T) {
	table := testTable(t)
	if _, err := table.CN(99); !errors.Is(err, ErrNotConfigured) {
		t.Errorf("CN(99) error = %v, want ErrNotConfigured", err)
	}
}

func TestCNIncompleteAccount(t *testing.T) {
	table := testTable(t)
	if _, err := table.CN(3); !errors.Is(err, ErrNotConfigured) {
		t.Errorf("CN(3) error = %v, want ErrNotConfigured", err)
	}
}

func TestIntlSelection(t *testing.T) {
	table := testTable(t)
	acct, err := table.Intl()
	if err != nil {
		t.Fatalf("Intl(): %v", err)
	}
	if acct.Authorization != "Bearer abc" {
		t.Errorf("Intl() returned wrong credentials: %+v", acct)
	}
}

func TestIntlIncomplete(t *testing.T) {
	table, err := NewTable(nil, IntlAccount{Cookie: "only-cookie"}, nil)
	if err != nil {
		t.Fatalf("NewTable: %v", err)
	}
	if _, err := table.Intl(); !errors.Is(err, ErrNotConfigured) {
		t.Errorf("Intl() error = %v, want ErrNotConfigured", err)
	}
}

func TestNewTableRejectsDuplicateIDs(t *testing.T) {
	_, err := NewTable([]CNAccount{{ID: 1}, {ID: 1}}, IntlAccount{}, nil)
	if err == nil {
		t.Error("expected error for duplicate account IDs")
	}
}

func TestNewTableRejectsNonPositiveIDs(t *testing.T) {
	_, err := NewTable([]CNAccount{{ID: 0}}, IntlAccount{}, nil)
	if err == nil {
		t.Error("expected error for non-positive account ID")
	}
}

func TestNewTableRejectsUnknownRouteTarget(t *testing.T) {
	_, err := NewTable(
		[]CNAccount{{ID: 1, Cookie: "c", XSRFToken: "x"}},
		IntlAccount{},
		map[string]int{"some-model": 7},
	)
	if err == nil {
		t.Error("expected error for route to unknown account")
	}
}

func TestLoadFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "accounts.yaml")
	content := `cn:
  - id: 1
    cookie: c1
    xsrf_token: x1
  - id: 2
    cookie: c2
    xsrf_token: x2
intl:
  cookie: ic
  authorization: Bearer tok
  bx_ua: bx
model_accounts:
  Qwen3-Max-Preview: 2
`
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("writing file: %v", err)
	}

	table, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	if got := table.Route("Qwen3-Max-Preview"); got != 2 {
		t.Errorf("Route = %d, want 2", got)
	}
	if ids := table.CNIDs(); len(ids) != 2 || ids[0] != 1 || ids[1] != 2 {
		t.Errorf("CNIDs = %v, want [1 2]", ids)
	}
}

func TestStoreReloadKeepsOldTableOnFailure(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "accounts.yaml")

	good := "cn:\n  - id: 1\n    cookie: c1\n    xsrf_token: x1\n"
	if err := os.WriteFile(path, []byte(good), 0o600); err != nil {
		t.Fatalf("writing file: %v", err)
	}

	table, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	store := NewStore(table, nil)

	// Corrupt the file; reload must fail and the old table must survive.
	if err := os.WriteFile(path, []byte("cn: [not valid"), 0o600); err != nil {
		t.Fatalf("writing file: %v", err)
	}
	if err := store.ReloadFrom(path); err == nil {
		t.Error("expected reload error for corrupt file")
	}
	if _, err := store.Table().CN(1); err != nil {
		t.Errorf("old table lost after failed reload: %v", err)
	}
}
