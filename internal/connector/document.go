package connector

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/desertthunder/spotsync/internal/models"
	"github.com/desertthunder/spotsync/internal/shared"
)

const (
	// ClassName identifies this source's document.
	ClassName = models.SourceSpotify
	// CacheVersion is the document layout this build writes.
	CacheVersion = 1

	missingCredential = "null"
)

var errNoStore = errors.New("no document store configured")

// Document is the persisted configuration of a source.
//
// Optional fields are pointers so a restore can tell a missing key from an empty value.
type Document struct {
	Class           string  `json:"class"`
	AccountName     *string `json:"account_name,omitempty"`
	RefreshToken    *string `json:"refresh_token,omitempty"`
	CacheVersion    *int    `json:"cache_version,omitempty"`
	AccountLogin    *string `json:"account_login,omitempty"`
	AccountPassword *string `json:"account_password,omitempty"`
}

// DecodeDocument parses a persisted document.
func DecodeDocument(data []byte) (*Document, error) {
	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("%w: source document: %v", shared.ErrParse, err)
	}
	return &doc, nil
}

// Encode serializes the document.
func (d *Document) Encode() ([]byte, error) {
	return shared.MarshalJSON(d, false)
}

func strPtr(s string) *string { return &s }

func valueOr(p *string, fallback string) string {
	if p == nil {
		return fallback
	}
	return *p
}

// Save builds the configuration document from the current state.
func (c *Connector) Save() *Document {
	c.mu.RLock()
	id := c.identity
	c.mu.RUnlock()

	version := CacheVersion
	doc := &Document{
		Class:           ClassName,
		AccountName:     strPtr(id.DisplayName),
		CacheVersion:    &version,
		AccountLogin:    strPtr(id.Username),
		AccountPassword: strPtr(id.Password),
	}
	if rt := c.creds.RefreshToken(); rt != "" {
		doc.RefreshToken = strPtr(rt)
	}
	return doc
}

// Restore loads state from doc.
//
// A missing refresh token leaves the connector DOWN until an interactive login; otherwise it is
// NEED_INIT. Missing login or password become the literal "null", a missing account name falls
// back to the login, and a document from a newer build is accepted with a warning.
func (c *Connector) Restore(doc *Document) error {
	if doc == nil {
		return fmt.Errorf("%w: source document", shared.ErrMissingArgument)
	}
	if doc.Class != "" && doc.Class != ClassName {
		return fmt.Errorf("%w: document class %q", shared.ErrInvalidConfig, doc.Class)
	}

	version := 0
	if doc.CacheVersion != nil {
		version = *doc.CacheVersion
	}
	if version > CacheVersion {
		c.logger.Warn("source document written by a newer version", "cache_version", version, "supported", CacheVersion)
		c.emit(Event{Kind: EventWarning, Status: c.Status(), Message: fmt.Sprintf("cache version %d is newer than %d", version, CacheVersion)})
	}

	login := valueOr(doc.AccountLogin, missingCredential)
	id := Identity{
		Username:    login,
		Password:    valueOr(doc.AccountPassword, missingCredential),
		DisplayName: valueOr(doc.AccountName, login),
	}

	c.mu.Lock()
	c.identity = id
	c.pending = nil
	c.mu.Unlock()

	if doc.RefreshToken == nil || *doc.RefreshToken == "" {
		c.creds.Clear()
		c.setStatus(Down)
		return nil
	}

	c.creds.SetRefreshToken(*doc.RefreshToken)
	c.setStatus(NeedInit)
	return nil
}

// Persist writes the configuration document to the store.
func (c *Connector) Persist() error {
	if c.store == nil {
		return errNoStore
	}

	data, err := c.Save().Encode()
	if err != nil {
		return err
	}
	return c.store.Save(ClassName, data)
}

// Load restores the connector from the store. Without a stored document the connector is DOWN
// and [shared.ErrSourceNotFound] is returned.
func (c *Connector) Load() error {
	if c.store == nil {
		return errNoStore
	}

	data, err := c.store.Load(ClassName)
	if err != nil {
		if errors.Is(err, shared.ErrSourceNotFound) {
			c.setStatus(Down)
		}
		return err
	}

	doc, err := DecodeDocument(data)
	if err != nil {
		return err
	}
	return c.Restore(doc)
}
