package enums

// ProductKind distinguishes the two purchasable catalog entities.
type ProductKind string

const (
	ProductKindTrack      ProductKind = "track"
	ProductKindCollection ProductKind = "collection"
)

func (k ProductKind) Valid() bool {
	return k == ProductKindTrack || k == ProductKindCollection
}
