// Copyright (c) 2025 Seedfast
// Licensed under the MIT License. See LICENSE file in the project root for details.

// Package schema derives and caches per-object field metadata from the remote
// describe call. Two cache levels are kept: the raw describe payload and the
// derived field sets (creatable, updatable, selectable).
package schema

import (
	"context"
	"strings"

	"seedfast/forcebridge/internal/cache"
	"seedfast/forcebridge/internal/logging"
	"seedfast/forcebridge/internal/remote"
	"seedfast/forcebridge/internal/statement"

	"github.com/pterm/pterm"
	"golang.org/x/sync/singleflight"
)

// foreignNamespace marks wire types from another namespace. Such fields are
// left out of every set.
const foreignNamespace = "ens"

// FieldDef is the adapter's view of one field.
type FieldDef struct {
	Name       string                 `json:"name"`
	Type       statement.SemanticType `json:"type"`
	Length     int                    `json:"length"`
	Nullable   bool                   `json:"nullable"`
	Creatable  bool                   `json:"creatable"`
	Updatable  bool                   `json:"updatable"`
	Selectable bool                   `json:"selectable"`
}

// Descriptor is the derived schema of one object.
type Descriptor struct {
	Object     string              `json:"object"`
	PrimaryKey string              `json:"primaryKey"`
	Fields     map[string]FieldDef `json:"fields"`
	// Order lists field names in describe order.
	Order      []string            `json:"order"`
	Creatable  map[string]FieldDef `json:"creatable"`
	Updatable  map[string]FieldDef `json:"updatable"`
	Selectable map[string]FieldDef `json:"selectable"`
}

// SelectableNames returns the selectable fields in describe order.
func (d *Descriptor) SelectableNames() []string {
	var out []string
	for _, n := range d.Order {
		if _, ok := d.Selectable[n]; ok {
			out = append(out, n)
		}
	}
	return out
}

// Field looks a field up case-insensitively.
func (d *Descriptor) Field(name string) (FieldDef, bool) {
	if f, ok := d.Fields[name]; ok {
		return f, true
	}
	for n, f := range d.Fields {
		if strings.EqualFold(n, name) {
			return f, true
		}
	}
	return FieldDef{}, false
}

// MapWireType maps a describe field onto a semantic type. soapType is read
// first ("xsd:int" -> int); the REST type is the fallback. foreign reports a
// field from another namespace.
func MapWireType(soapType, restType string) (typ statement.SemanticType, foreign bool) {
	if soapType != "" {
		prefix, local, ok := strings.Cut(soapType, ":")
		if !ok {
			local = prefix
		} else if prefix == foreignNamespace {
			return statement.String, true
		}
		switch local {
		case "int":
			return statement.Integer, false
		case "double":
			return statement.Float, false
		case "boolean":
			return statement.Boolean, false
		case "dateTime":
			return statement.DateTime, false
		case "date":
			return statement.Date, false
		default:
			return statement.String, false
		}
	}
	switch strings.ToLower(restType) {
	case "int":
		return statement.Integer, false
	case "double", "currency", "percent":
		return statement.Float, false
	case "boolean":
		return statement.Boolean, false
	case "datetime":
		return statement.DateTime, false
	case "date":
		return statement.Date, false
	default:
		return statement.String, false
	}
}

// Build derives a Descriptor from a describe payload.
func Build(object string, d *remote.DescribeResult, primaryKey string) *Descriptor {
	if primaryKey == "" {
		primaryKey = statement.DefaultPrimaryKey
	}
	out := &Descriptor{
		Object:     object,
		PrimaryKey: primaryKey,
		Fields:     map[string]FieldDef{},
		Creatable:  map[string]FieldDef{},
		Updatable:  map[string]FieldDef{},
		Selectable: map[string]FieldDef{},
	}
	if d == nil {
		return out
	}
	for _, f := range d.Fields {
		typ, foreign := MapWireType(f.SoapType, f.Type)
		if foreign {
			continue
		}
		isKey := f.Name == primaryKey
		def := FieldDef{
			Name:       f.Name,
			Type:       typ,
			Length:     f.Length,
			Nullable:   f.Nillable,
			Creatable:  f.Createable || isKey,
			Updatable:  f.Updateable || isKey,
			Selectable: true,
		}
		out.Fields[f.Name] = def
		out.Order = append(out.Order, f.Name)
		out.Selectable[f.Name] = def
		if def.Creatable {
			out.Creatable[f.Name] = def
		}
		if def.Updatable {
			out.Updatable[f.Name] = def
		}
	}
	return out
}

// DescribeFunc fetches the raw describe payload of an object.
type DescribeFunc func(ctx context.Context, object string) (*remote.DescribeResult, error)

// Cache memoizes descriptors per object in a host cache namespace.
type Cache struct {
	store      cache.Store
	namespace  string
	primaryKey string
	group      singleflight.Group
	log        *pterm.Logger
}

// New creates a schema cache. namespace separates connections that talk to
// different orgs sharing one store.
func New(store cache.Store, namespace string, log *pterm.Logger) *Cache {
	return &Cache{
		store:      store,
		namespace:  namespace,
		primaryKey: statement.DefaultPrimaryKey,
		log:        logging.OrNop(log),
	}
}

func rawKey(object string) string     { return object + "_sObject" }
func derivedKey(object string) string { return object + "_schema" }

// Describe returns the descriptor of object, calling describe only when neither
// cache level holds it.
func (c *Cache) Describe(ctx context.Context, object string, describe DescribeFunc) (*Descriptor, error) {
	v, err, _ := c.group.Do(object, func() (any, error) {
		return cache.Remember(ctx, c.store, c.namespace, derivedKey(object), func(ctx context.Context) (*Descriptor, error) {
			raw, err := cache.Remember(ctx, c.store, c.namespace, rawKey(object), func(ctx context.Context) (*remote.DescribeResult, error) {
				c.log.Debug("describing object", c.log.Args("object", object))
				return describe(ctx, object)
			})
			if err != nil {
				return nil, err
			}
			return Build(object, raw, c.primaryKey), nil
		})
	})
	if err != nil {
		return nil, err
	}
	return v.(*Descriptor), nil
}

// Invalidate drops both cache levels of object.
func (c *Cache) Invalidate(ctx context.Context, object string) error {
	if err := c.store.Delete(ctx, c.namespace, derivedKey(object)); err != nil {
		return err
	}
	return c.store.Delete(ctx, c.namespace, rawKey(object))
}

// Clear drops every cached schema in the namespace.
func (c *Cache) Clear(ctx context.Context) error {
	return c.store.Clear(ctx, c.namespace)
}
