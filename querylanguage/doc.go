// Package querylanguage provides the dialect-neutral filter and sort
// expressions accepted by the query compiler.
//
// A filter is a tree of predicates over logical attribute names. It never
// contains SQL; the compiler lowers it to parameter-bound SQL for the target
// dialect, remapping names to physical columns and extension slots.
//
//	p := querylanguage.And(
//	    querylanguage.FieldEQ("Status", "Published"),
//	    querylanguage.FieldIn("Folders", "f1", "f2"),
//	    querylanguage.Not(querylanguage.FieldNil("Title")),
//	)
//	p.String() // (Status == "Published" && Folders in ["f1","f2"] && !(Title == nil))
//
// Sort keys are ordered (field, direction) pairs:
//
//	[]querylanguage.Order{querylanguage.Desc("CreatedOn"), querylanguage.Asc("Title")}
package querylanguage
