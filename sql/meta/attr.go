// Copyright 2021-present The Atlas Authors. All rights reserved.
// This source code is licensed under the Apache 2.0 license found
// in the LICENSE file in the root directory of this source tree.

package meta

import (
	"fmt"
	"strings"

	"github.com/genuinemerit/saskan-app-sub000/model"
	"github.com/genuinemerit/saskan-app-sub000/sql/schema"
)

type (
	// EntityKey identifies an entity within the model.
	EntityKey struct {
		Category string
		Entity   string
	}

	// AttrKey identifies an attribute within the model.
	AttrKey struct {
		EntityKey
		Attr string
	}

	// Ref is a reference to the object id of an entity,
	// written as "<category>.<entity>.oid".
	Ref struct {
		EntityKey
	}

	// AttrSpec is the classification of an attribute. The set of
	// implementations is closed: Primitive, PickOne, PickMany,
	// EdgeAssoc and ForeignKeyRef.
	AttrSpec interface {
		attrSpec()
	}

	// Primitive is an attribute stored in a column of a registered
	// primitive type.
	Primitive struct {
		Type string
	}

	// PickOne is an attribute whose value is one of the options.
	PickOne struct {
		Options []string
	}

	// PickMany is an attribute whose value is a subset of the options.
	PickMany struct {
		Options []string
	}

	// EdgeAssoc is an attribute that links the entity to the target
	// through an association table.
	EdgeAssoc struct {
		Target Ref
	}

	// ForeignKeyRef is an attribute that stores the object id of the target.
	ForeignKeyRef struct {
		Target Ref
	}
)

func (*Primitive) attrSpec()     {}
func (*PickOne) attrSpec()       {}
func (*PickMany) attrSpec()      {}
func (*EdgeAssoc) attrSpec()     {}
func (*ForeignKeyRef) attrSpec() {}

// refSuffix marks an object id reference.
const refSuffix = ".oid"

// String returns the dotted form of the entity key, e.g. "geo.place".
func (k EntityKey) String() string {
	return k.Category + "." + k.Entity
}

// String returns the dotted form of the attribute key, e.g. "geo.place.region".
func (k AttrKey) String() string {
	return k.EntityKey.String() + "." + k.Attr
}

// String returns the reference in its source form, e.g. "geo.place.oid".
func (r Ref) String() string {
	return r.EntityKey.String() + refSuffix
}

// IsRef reports if the given type string references an object id.
func IsRef(s string) bool {
	return strings.HasSuffix(s, refSuffix) && strings.Count(s, ".") == 2
}

// ParseRef parses a reference in the form "<category>.<entity>.oid". If
// optional is true, the ".oid" suffix may be omitted.
func ParseRef(s string, optional bool) (Ref, error) {
	parts := strings.Split(s, ".")
	switch {
	case len(parts) == 3 && parts[2] == "oid":
	case len(parts) == 2 && optional:
	default:
		return Ref{}, fmt.Errorf("invalid reference %q, expect <category>.<entity>%s", s, refSuffix)
	}
	for _, p := range parts[:2] {
		if !schema.ValidIdent(p) {
			return Ref{}, fmt.Errorf("invalid reference %q: bad identifier %q", s, p)
		}
	}
	return Ref{EntityKey{Category: parts[0], Entity: parts[1]}}, nil
}

// Classify returns the AttrSpec of the given attribute. Exactly one of the
// attribute kinds must be set, or a ConfigurationError is returned.
func Classify(key AttrKey, a *model.Attr) (AttrSpec, error) {
	var set []string
	if a.Type != "" {
		set = append(set, "type")
	}
	if a.PickOne != nil {
		set = append(set, "pick_one")
	}
	if a.PickMany != nil {
		set = append(set, "pick_many")
	}
	if a.Assoc != "" {
		set = append(set, "assoc")
	}
	switch len(set) {
	case 0:
		return nil, schema.Errorf(key.String(), "unclassifiable attribute: one of type, pick_one, pick_many or assoc is required")
	case 1:
	default:
		return nil, schema.Errorf(key.String(), "ambiguous attribute: %s are mutually exclusive", strings.Join(set, ", "))
	}
	switch {
	case IsRef(a.Type):
		r, err := ParseRef(a.Type, false)
		if err != nil {
			return nil, &schema.ConfigurationError{Elem: key.String(), Err: err}
		}
		return &ForeignKeyRef{Target: r}, nil
	case a.Type != "":
		if strings.Contains(a.Type, ".") {
			return nil, schema.Errorf(key.String(), "invalid type %q, expect a primitive name or <category>.<entity>%s", a.Type, refSuffix)
		}
		return &Primitive{Type: a.Type}, nil
	case a.PickOne != nil:
		opts, err := options(key, a.PickOne)
		if err != nil {
			return nil, err
		}
		return &PickOne{Options: opts}, nil
	case a.PickMany != nil:
		opts, err := options(key, a.PickMany)
		if err != nil {
			return nil, err
		}
		return &PickMany{Options: opts}, nil
	default:
		r, err := ParseRef(a.Assoc, true)
		if err != nil {
			return nil, &schema.ConfigurationError{Elem: key.String(), Err: err}
		}
		return &EdgeAssoc{Target: r}, nil
	}
}

func options(key AttrKey, opts []string) ([]string, error) {
	if len(opts) == 0 {
		return nil, schema.Errorf(key.String(), "option list is empty")
	}
	seen := make(map[string]bool, len(opts))
	for _, o := range opts {
		switch {
		case strings.TrimSpace(o) == "":
			return nil, schema.Errorf(key.String(), "blank option")
		case seen[o]:
			return nil, schema.Errorf(key.String(), "duplicate option %q", o)
		}
		seen[o] = true
	}
	return append([]string(nil), opts...), nil
}
