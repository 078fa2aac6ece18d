// Package edge describes the parent association of an entity.
//
// A parent association designates one Mappings attribute as the link from
// an entity to its parents. The link rows live in the association table of
// that attribute, keyed by (LinkId, MappedId): LinkId holds the entity's
// primary key and MappedId the parent key.
//
//	schema.Define("Document").
//	    Fields(field.String("Folders").Mappings()).
//	    Parent(edge.Parent("Folders").Multiple())
//
// Filters that constrain the parent attribute require the association join,
// which callers request explicitly. When Multiple is set, an entity can have
// several parents and selects over the join are de-duplicated.
package edge
