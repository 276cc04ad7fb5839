// Package datavalues defines the value model of the engine: the logical
// DataValue seen by the rule language and the physical StorageValue kept in
// columns. Every column stores exactly one of five storage types; values of
// different storage types are ordered by type first, value second.
package datavalues

// StorageType identifies one of the five physical column types.
type StorageType uint8

const (
	// StorageId32 is a 32-bit dictionary reference.
	StorageId32 StorageType = iota
	// StorageId64 is a 64-bit dictionary reference.
	StorageId64
	// StorageInt64 is a plain signed integer.
	StorageInt64
	// StorageFloat is a 32-bit float (NaN excluded).
	StorageFloat
	// StorageDouble is a 64-bit float (NaN excluded).
	StorageDouble
)

// NumStorageTypes is the number of physical column types per trie layer.
const NumStorageTypes = 5

// StorageTypes lists all storage types in their fixed total order
// Id32 < Id64 < Int64 < Float < Double.
var StorageTypes = [NumStorageTypes]StorageType{
	StorageId32, StorageId64, StorageInt64, StorageFloat, StorageDouble,
}

func (t StorageType) String() string {
	switch t {
	case StorageId32:
		return "Id32"
	case StorageId64:
		return "Id64"
	case StorageInt64:
		return "Int64"
	case StorageFloat:
		return "Float"
	case StorageDouble:
		return "Double"
	}
	return "Unknown"
}
