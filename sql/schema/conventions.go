// Copyright 2021-present The Atlas Authors. All rights reserved.
// This source code is licensed under the Apache 2.0 license found
// in the LICENSE file in the root directory of this source tree.

package schema

import (
	"crypto/sha1"
	"crypto/sha256"
	"crypto/sha512"
	"errors"
	"fmt"
	"hash"
	"regexp"
	"strings"

	"golang.org/x/mod/semver"
)

// ConventionsVersion is the version of the default conventions.
const ConventionsVersion = "v1.0.0"

// List of supported hash algorithms.
const (
	HashSHA1   = "sha1"
	HashSHA256 = "sha256"
	HashSHA512 = "sha512"
)

type (
	// Conventions holds the naming and typing constants shared by the
	// generator and the introspector. It is constructed once, validated
	// and passed by reference. Changing any value changes the generated
	// schema, hence the version.
	Conventions struct {
		Version      string
		MetaCategory string

		// Key columns.
		KeyPrefix string
		OID       string
		UID       string

		// Prefix of link (foreign key and pick) columns.
		LinkPrefix string

		// Audit columns.
		AuditPrefix string
		CreateTS    string
		RemoveTS    string
		UpdateTS    string
		Hash        string
		HashAlgo    string

		// TextType is the SQL type used for ids, links and timestamps.
		TextType string
		// AssocSep separates the two sides of an association table name.
		AssocSep string

		Texts Texts
	}

	// Texts holds the descriptions of the generated meta tables and the
	// prefixes of the human readable column labels.
	Texts struct {
		PickOne    string
		PickMany   string
		EdgeAssoc  string
		ForeignKey string
		About      string
		KeyLabel   string
		LinkLabel  string
		AuditLabel string
		CheckLabel string
	}
)

var (
	identRe  = regexp.MustCompile(`^[a-z][a-z0-9_]*$`)
	columnRe = regexp.MustCompile(`^[a-z_][a-z0-9_]*$`)
)

// DefaultConventions returns the default conventions.
func DefaultConventions() *Conventions {
	return &Conventions{
		Version:      ConventionsVersion,
		MetaCategory: "meta",
		KeyPrefix:    "__",
		OID:          "__oid",
		UID:          "__uid",
		LinkPrefix:   "_fk_",
		AuditPrefix:  "_a_",
		CreateTS:     "_a_create_ts",
		RemoveTS:     "_a_remove_ts",
		UpdateTS:     "_a_update_ts",
		Hash:         "_a_hash",
		HashAlgo:     HashSHA256,
		TextType:     "TEXT",
		AssocSep:     "_x_",
		Texts: Texts{
			PickOne:    "List of options. Only one may be selected.",
			PickMany:   "List of options. One or more may be selected.",
			EdgeAssoc:  "List of links via association table.",
			ForeignKey: "Logical (oid-based) foreign key links.",
			About:      "Describe purpose of a table.",
			KeyLabel:   "Key column: ",
			LinkLabel:  "Link column: ",
			AuditLabel: "Audit column: ",
			CheckLabel: "Check Rule: ",
		},
	}
}

// Validate checks the conventions are consistent. All problems are returned.
func (c *Conventions) Validate() []error {
	var errs []error
	if !semver.IsValid(c.Version) {
		errs = append(errs, Errorf("conventions", "invalid version %q", c.Version))
	} else if semver.Major(c.Version) != semver.Major(ConventionsVersion) {
		errs = append(errs, Errorf("conventions", "unsupported version %q", c.Version))
	}
	if _, err := c.HashSize(); err != nil {
		errs = append(errs, err)
	}
	if !ValidIdent(c.MetaCategory) {
		errs = append(errs, Errorf("conventions", "invalid meta category %q", c.MetaCategory))
	}
	for _, n := range []string{c.OID, c.UID, c.CreateTS, c.RemoveTS, c.UpdateTS, c.Hash} {
		if !columnRe.MatchString(n) {
			errs = append(errs, Errorf("conventions", "invalid identifier %q", n))
		}
	}
	switch {
	case c.KeyPrefix == "", c.LinkPrefix == "", c.AuditPrefix == "":
		errs = append(errs, Errorf("conventions", "column prefixes must not be empty"))
	case strings.HasPrefix(c.LinkPrefix, c.KeyPrefix), strings.HasPrefix(c.KeyPrefix, c.LinkPrefix):
		errs = append(errs, Errorf("conventions", "key prefix %q and link prefix %q overlap", c.KeyPrefix, c.LinkPrefix))
	}
	if !strings.HasPrefix(c.OID, c.KeyPrefix) || !strings.HasPrefix(c.UID, c.KeyPrefix) {
		errs = append(errs, Errorf("conventions", "key columns must start with %q", c.KeyPrefix))
	}
	for _, n := range []string{c.CreateTS, c.RemoveTS, c.UpdateTS, c.Hash} {
		if !strings.HasPrefix(n, c.AuditPrefix) {
			errs = append(errs, Errorf("conventions", "audit column %q must start with %q", n, c.AuditPrefix))
		}
	}
	return errs
}

// ValidIdent reports if the given name is a valid unquoted identifier.
func ValidIdent(name string) bool {
	return identRe.MatchString(name)
}

// HashSize returns the hex digest size of the configured hash algorithm.
func (c *Conventions) HashSize() (int, error) {
	h, err := c.Hasher()
	if err != nil {
		return 0, err
	}
	return h().Size() * 2, nil
}

// Hasher returns the constructor of the configured hash algorithm.
func (c *Conventions) Hasher() (func() hash.Hash, error) {
	switch c.HashAlgo {
	case HashSHA1:
		return sha1.New, nil
	case HashSHA256, "":
		return sha256.New, nil
	case HashSHA512:
		return sha512.New, nil
	default:
		return nil, Errorf("conventions", "unknown hash algorithm %q", c.HashAlgo)
	}
}

// MetaTable returns the name of the meta table of the given family.
// A ConfigurationError is returned for families that have no meta table.
func (c *Conventions) MetaTable(f Family) (string, error) {
	switch f {
	case FamilyPickOne, FamilyPickMany, FamilyForeignKey, FamilyAbout:
		return c.MetaCategory + "_" + f.String(), nil
	default:
		return "", Errorf("conventions", "unknown meta category %q", f)
	}
}

// MustMetaTable is like MetaTable but panics on error.
func (c *Conventions) MustMetaTable(f Family) string {
	name, err := c.MetaTable(f)
	if err != nil {
		panic(err)
	}
	return name
}

// About returns the description of the meta table of the given family.
func (c *Conventions) About(f Family) string {
	switch f {
	case FamilyPickOne:
		return c.Texts.PickOne
	case FamilyPickMany:
		return c.Texts.PickMany
	case FamilyAssoc:
		return c.Texts.EdgeAssoc
	case FamilyForeignKey:
		return c.Texts.ForeignKey
	case FamilyAbout:
		return c.Texts.About
	default:
		return ""
	}
}

// KeyColumns returns the two key columns, in order.
func (c *Conventions) KeyColumns() []*Column {
	return []*Column{
		{Name: c.OID, Type: c.TextType, Constraint: "NOT NULL", Kind: KindKey},
		{Name: c.UID, Type: c.TextType, Constraint: "NOT NULL PRIMARY KEY", Kind: KindKey},
	}
}

// AuditColumns returns the four audit columns, in order.
func (c *Conventions) AuditColumns() ([]*Column, error) {
	n, err := c.HashSize()
	if err != nil {
		return nil, err
	}
	return []*Column{
		{Name: c.CreateTS, Type: c.TextType, Constraint: "NOT NULL", Kind: KindAudit},
		{Name: c.RemoveTS, Type: c.TextType, Kind: KindAudit},
		{Name: c.UpdateTS, Type: c.TextType, Constraint: "NOT NULL", Kind: KindAudit},
		{
			Name:       c.Hash,
			Type:       c.TextType,
			Constraint: "NOT NULL",
			Check:      &Check{Expr: fmt.Sprintf("length(%s) = %d", c.Hash, n)},
			Kind:       KindAudit,
		},
	}, nil
}

// LinkColumn returns the name of the link column of the given attribute
// pointing to the given table, e.g. "_fk_capital_geo_place".
func (c *Conventions) LinkColumn(attr, table string) string {
	return c.LinkPrefix + attr + "_" + table
}

// Kind classifies a stored column by its name and position. Key columns
// are the two leading key-prefixed columns.
func (c *Conventions) Kind(name string, pos int) ColumnKind {
	switch {
	case pos < 2 && strings.HasPrefix(name, c.KeyPrefix):
		return KindKey
	case strings.HasPrefix(name, c.LinkPrefix):
		return KindLink
	case strings.HasPrefix(name, c.AuditPrefix):
		return KindAudit
	default:
		return KindAttr
	}
}

// ErrInvalidConventions is returned by Check for invalid conventions.
var ErrInvalidConventions = errors.New("schema: invalid conventions")

// Check is like Validate but joins all problems into one error.
func (c *Conventions) Check() error {
	if errs := c.Validate(); len(errs) > 0 {
		return fmt.Errorf("%w: %w", ErrInvalidConventions, errors.Join(errs...))
	}
	return nil
}
