// Package accounts holds the pre-provisioned upstream credential sets and
// the model-to-account routing table.
//
// Credentials are explicit records keyed by account identifier and the
// table is validated when it is built. Selecting an account with missing
// or incomplete credentials fails before any outbound call is made.
package accounts

import (
	"errors"
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v3"
)

// DefaultAccountID is the account used for model names absent from the
// routing table.
const DefaultAccountID = 1

// Sentinel errors.
var (
	// ErrNotConfigured indicates the selected account has no usable
	// credentials.
	ErrNotConfigured = errors.New("account credentials not configured")
)

// CNAccount is a domestic-site credential set: a session cookie plus the
// matching cross-site token.
type CNAccount struct {
	ID        int    `yaml:"id"`
	Cookie    string `yaml:"cookie"`
	XSRFToken string `yaml:"xsrf_token"`
}

// complete reports whether both credential parts are present.
func (a CNAccount) complete() bool {
	return a.Cookie != "" && a.XSRFToken != ""
}

// IntlAccount is the alternate-site credential set used for image and
// video generation jobs: bearer token, cookie, and anti-bot header.
type IntlAccount struct {
	Cookie        string `yaml:"cookie"`
	Authorization string `yaml:"authorization"`
	BxUA          string `yaml:"bx_ua"`
}

// complete reports whether all three credential parts are present.
func (a IntlAccount) complete() bool {
	return a.Cookie != "" && a.Authorization != "" && a.BxUA != ""
}

// File is the YAML document shape of an accounts file.
type File struct {
	CN            []CNAccount    `yaml:"cn"`
	Intl          IntlAccount    `yaml:"intl"`
	ModelAccounts map[string]int `yaml:"model_accounts"`
}

// Table is the immutable routing and credential table built from one
// accounts definition. It is safe for concurrent use; reloads swap in a
// new Table rather than mutating an existing one.
type Table struct {
	cn            map[int]CNAccount
	intl          IntlAccount
	modelAccounts map[string]int
}

// NewTable builds and validates a Table. Structural problems (duplicate
// or non-positive account IDs, a routing entry pointing at an unknown
// account) are load-time errors. Empty credential values are allowed
// here; they fail at selection time instead, so that unused accounts may
// stay unconfigured.
func NewTable(cn []CNAccount, intl IntlAccount, modelAccounts map[string]int) (*Table, error) {
	byID := make(map[int]CNAccount, len(cn))
	for _, acct := range cn {
		if acct.ID <= 0 {
			return nil, fmt.Errorf("cn account ID must be positive, got %d", acct.ID)
		}
		if _, dup := byID[acct.ID]; dup {
			return nil, fmt.Errorf("duplicate cn account ID %d", acct.ID)
		}
		byID[acct.ID] = acct
	}

	for model, id := range modelAccounts {
		if _, ok := byID[id]; !ok {
			return nil, fmt.Errorf("model %q routes to unknown cn account %d", model, id)
		}
	}

	mapping := make(map[string]int, len(modelAccounts))
	for model, id := range modelAccounts {
		mapping[model] = id
	}

	return &Table{
		cn:            byID,
		intl:          intl,
		modelAccounts: mapping,
	}, nil
}

// Route returns the account identifier for the given model name. Names
// absent from the table silently fall back to DefaultAccountID; Route
// never fails.
func (t *Table) Route(model string) int {
	if id, ok := t.modelAccounts[model]; ok {
		return id
	}
	return DefaultAccountID
}

// CN returns the credential record for the given account identifier.
// Missing or incomplete credentials are an error.
func (t *Table) CN(id int) (CNAccount, error) {
	acct, ok := t.cn[id]
	if !ok {
		return CNAccount{}, fmt.Errorf("cn account %d: %w", id, ErrNotConfigured)
	}
	if !acct.complete() {
		return CNAccount{}, fmt.Errorf("cn account %d is incomplete: %w", id, ErrNotConfigured)
	}
	return acct, nil
}

// Intl returns the alternate-site credential record.
// Missing or incomplete credentials are an error.
func (t *Table) Intl() (IntlAccount, error) {
	if !t.intl.complete() {
		return IntlAccount{}, fmt.Errorf("intl account: %w", ErrNotConfigured)
	}
	return t.intl, nil
}

// CNIDs returns the configured domestic account identifiers in ascending
// order. Used for startup logging.
func (t *Table) CNIDs() []int {
	ids := make([]int, 0, len(t.cn))
	for id := range t.cn {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	return ids
}

// LoadFile reads and parses an accounts YAML file into a validated Table.
func LoadFile(path string) (*Table, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading accounts file %s: %w", path, err)
	}

	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parsing accounts file %s: %w", path, err)
	}

	table, err := NewTable(f.CN, f.Intl, f.ModelAccounts)
	if err != nil {
		return nil, fmt.Errorf("validating accounts file %s: %w", path, err)
	}
	return table, nil
}
