package catalog

import (
	"fmt"
	"time"
)

// Catalog is one node of the catalog tree together with its resources.
// Resource order is the enumeration order reported by the catalog provider.
type Catalog struct {
	ID        string
	Resources []Resource
}

// Resource is a named data stream within a catalog, e.g. a sensor channel.
type Resource struct {
	ID              string
	Properties      Properties
	Representations []Representation
}

// Properties are the resource attributes the aggregation filters match on.
// A resource may belong to several groups.
type Properties struct {
	Groups []string
	Unit   string
}

// Representation is one typed, fixed-sample-period encoding of a resource.
type Representation struct {
	ID           string
	SamplePeriod time.Duration
	DataType     DataType

	// SourceID names the backend source that serves this representation.
	SourceID string
}

// ElementSize is the number of bytes of a single sample.
func (r Representation) ElementSize() int {
	return r.DataType.ElementSize()
}

// Item binds a representation to the resource and catalog it belongs to.
type Item struct {
	CatalogID      string
	Resource       Resource
	Representation Representation
}

// Path returns the canonical "/catalog/resource/representation" path of the item.
func (i Item) Path() string {
	return fmt.Sprintf("%s/%s/%s", i.CatalogID, i.Resource.ID, i.Representation.ID)
}

// Find returns the item addressed by resource and representation id.
func (c Catalog) Find(resourceID, representationID string) (Item, bool) {
	for _, res := range c.Resources {
		if res.ID != resourceID {
			continue
		}
		for _, rep := range res.Representations {
			if rep.ID == representationID {
				return Item{CatalogID: c.ID, Resource: res, Representation: rep}, true
			}
		}
	}
	return Item{}, false
}
