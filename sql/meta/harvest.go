// Copyright 2021-present The Atlas Authors. All rights reserved.
// This source code is licensed under the Apache 2.0 license found
// in the LICENSE file in the root directory of this source tree.

// Package meta harvests the metadata of a domain model: every attribute
// is classified into exactly one AttrSpec and indexed by its entity.
package meta

import (
	"github.com/genuinemerit/saskan-app-sub000/model"
	"github.com/genuinemerit/saskan-app-sub000/sql/schema"

	"github.com/go-openapi/inflect"
)

type (
	// Index is the metadata of a domain model. It is built once per
	// rebuild and is not persisted.
	Index struct {
		// Entities in declaration order.
		Entities []*Entity

		About      map[EntityKey]string
		PickOne    map[AttrKey][]string
		PickMany   map[AttrKey][]string
		EdgeAssoc  map[AttrKey]Ref
		ForeignKey map[AttrKey]Ref
	}

	// Entity holds the classified attributes of an entity.
	Entity struct {
		Key   EntityKey
		About string
		Attrs []*Attr // Declaration order.
	}

	// Attr is a classified attribute.
	Attr struct {
		Key   AttrKey
		About string
		Spec  AttrSpec
	}
)

// Harvest classifies every attribute of the model and returns its index.
// The first problem found is returned as a ConfigurationError.
func Harvest(m *model.Model, c *schema.Conventions) (*Index, error) {
	var first error
	idx := harvest(m, c, func(err error) bool {
		first = err
		return false
	})
	if first != nil {
		return nil, first
	}
	return idx, nil
}

// Validate returns all problems found in the model.
func Validate(m *model.Model, c *schema.Conventions) []error {
	var errs []error
	harvest(m, c, func(err error) bool {
		errs = append(errs, err)
		return true
	})
	return errs
}

// harvest builds the index. It stops when report returns false.
func harvest(m *model.Model, c *schema.Conventions, report func(error) bool) *Index {
	idx := &Index{
		About:      make(map[EntityKey]string),
		PickOne:    make(map[AttrKey][]string),
		PickMany:   make(map[AttrKey][]string),
		EdgeAssoc:  make(map[AttrKey]Ref),
		ForeignKey: make(map[AttrKey]Ref),
	}
	var (
		refs  []*Attr
		catgs = make(map[string]bool)
	)
	for _, cat := range m.Categories {
		switch {
		case !schema.ValidIdent(cat.Name):
			if !report(schema.Errorf(cat.Name, "invalid category name")) {
				return idx
			}
			continue
		case cat.Name == c.MetaCategory:
			if !report(schema.Errorf(cat.Name, "category name is reserved for meta tables")) {
				return idx
			}
			continue
		case catgs[cat.Name]:
			if !report(schema.Errorf(cat.Name, "duplicate category")) {
				return idx
			}
			continue
		}
		catgs[cat.Name] = true
		ents := make(map[string]bool)
		for _, ent := range cat.Entities {
			key := EntityKey{Category: cat.Name, Entity: ent.Name}
			switch {
			case !schema.ValidIdent(ent.Name):
				if !report(schema.Errorf(key.String(), "invalid entity name")) {
					return idx
				}
				continue
			case ents[ent.Name]:
				if !report(schema.Errorf(key.String(), "duplicate entity")) {
					return idx
				}
				continue
			}
			ents[ent.Name] = true
			e := &Entity{Key: key, About: ent.About}
			if e.About == "" {
				e.About = inflect.Humanize(cat.Name + "_" + ent.Name)
				if cat.About != "" {
					e.About += " (" + cat.About + ")"
				}
			}
			idx.About[key] = e.About
			attrs := make(map[string]bool)
			for _, a := range ent.Attrs {
				akey := AttrKey{EntityKey: key, Attr: a.Name}
				switch {
				case !schema.ValidIdent(a.Name):
					if !report(schema.Errorf(akey.String(), "invalid attribute name")) {
						return idx
					}
					continue
				case attrs[a.Name]:
					if !report(schema.Errorf(akey.String(), "duplicate attribute")) {
						return idx
					}
					continue
				}
				attrs[a.Name] = true
				spec, err := Classify(akey, a)
				if err != nil {
					if !report(err) {
						return idx
					}
					continue
				}
				attr := &Attr{Key: akey, About: a.About, Spec: spec}
				e.Attrs = append(e.Attrs, attr)
				switch s := spec.(type) {
				case *PickOne:
					idx.PickOne[akey] = s.Options
				case *PickMany:
					idx.PickMany[akey] = s.Options
				case *EdgeAssoc:
					idx.EdgeAssoc[akey] = s.Target
					refs = append(refs, attr)
				case *ForeignKeyRef:
					idx.ForeignKey[akey] = s.Target
					refs = append(refs, attr)
				}
			}
			idx.Entities = append(idx.Entities, e)
		}
	}
	// References are resolved once all entities are known,
	// since an entity may reference one declared after it.
	for _, a := range refs {
		var target Ref
		switch s := a.Spec.(type) {
		case *EdgeAssoc:
			target = s.Target
		case *ForeignKeyRef:
			target = s.Target
		}
		if _, ok := idx.About[target.EntityKey]; !ok {
			if !report(schema.Errorf(a.Key.String(), "reference to unknown entity %q", target.EntityKey)) {
				return idx
			}
		}
	}
	return idx
}
